package strategy

import (
	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/tradecore/market"
)

// EMACross signals when the fast EMA crosses the slow EMA between the last
// two bars. Entries only on the crossing bar, so a window that has been
// trending for a while stays quiet. Stops are ATR-based like the breakout
// strategy.
type EMACross struct {
	FastPeriod  int
	SlowPeriod  int
	ATRPeriod   int
	StopATRMult float64
	RRRatio     float64
}

func NewEMACross(p Params) *EMACross {
	s := &EMACross{
		FastPeriod:  p.FastPeriod,
		SlowPeriod:  p.SlowPeriod,
		ATRPeriod:   p.ATRPeriod,
		StopATRMult: p.StopATRMult,
		RRRatio:     p.RRRatio,
	}
	if s.FastPeriod <= 0 {
		s.FastPeriod = 10
	}
	if s.SlowPeriod <= s.FastPeriod {
		s.SlowPeriod = s.FastPeriod * 3
	}
	if s.ATRPeriod <= 0 {
		s.ATRPeriod = 14
	}
	if s.StopATRMult <= 0 {
		s.StopATRMult = 1.5
	}
	if s.RRRatio <= 0 {
		s.RRRatio = 2.0
	}
	return s
}

func (s *EMACross) Name() string { return "ema-cross" }

func (s *EMACross) Lookback() int {
	n := s.SlowPeriod
	if s.ATRPeriod+1 > n {
		n = s.ATRPeriod + 1
	}
	return n + 2
}

func (s *EMACross) ComputeSignal(bars []market.Bar) *Signal {
	n := len(bars)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}

	fast := talib.Ema(closes, s.FastPeriod)
	slow := talib.Ema(closes, s.SlowPeriod)

	prev := fast[n-2] - slow[n-2]
	cur := fast[n-1] - slow[n-1]

	dir := Flat
	switch {
	case cur > 0 && prev <= 0:
		dir = Long
	case cur < 0 && prev >= 0:
		dir = Short
	}
	if dir == Flat {
		return nil
	}

	atr := talib.Atr(highs, lows, closes, s.ATRPeriod)
	dist := s.StopATRMult * atr[n-1]
	if dist <= 0 {
		return nil
	}

	close := closes[n-1]
	sig := &Signal{Direction: dir, Entry: close}
	if dir == Long {
		sig.Stop = close - dist
		sig.Target = close + s.RRRatio*dist
	} else {
		sig.Stop = close + dist
		sig.Target = close - s.RRRatio*dist
	}
	return sig
}
