package strategy

import (
	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/tradecore/market"
)

// ATRBreakout goes with a close beyond the highest high / lowest low of
// the previous N bars, with an optional EMA slope filter and an ATR floor
// to keep out of dead markets. Stops are a multiple of ATR, targets a
// reward multiple of the stop distance.
type ATRBreakout struct {
	BreakoutBars int
	ATRPeriod    int
	ATRMin       float64
	StopATRMult  float64
	RRRatio      float64
	EMAPeriod    int
	TrendFilter  bool
}

func NewATRBreakout(p Params) *ATRBreakout {
	s := &ATRBreakout{
		BreakoutBars: p.BreakoutBars,
		ATRPeriod:    p.ATRPeriod,
		ATRMin:       p.ATRMin,
		StopATRMult:  p.StopATRMult,
		RRRatio:      p.RRRatio,
		EMAPeriod:    p.EMAPeriod,
		TrendFilter:  p.TrendFilter,
	}
	if s.BreakoutBars <= 0 {
		s.BreakoutBars = 20
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
	if s.EMAPeriod <= 0 {
		s.EMAPeriod = 50
	}
	return s
}

func (s *ATRBreakout) Name() string { return "atr-breakout" }

func (s *ATRBreakout) Lookback() int {
	n := s.BreakoutBars
	if s.ATRPeriod+1 > n {
		n = s.ATRPeriod + 1
	}
	if s.EMAPeriod > n {
		n = s.EMAPeriod
	}
	// +2: one extra for the current bar, one for the EMA slope
	return n + 2
}

func (s *ATRBreakout) ComputeSignal(bars []market.Bar) *Signal {
	n := len(bars)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}

	atr := talib.Atr(highs, lows, closes, s.ATRPeriod)
	atrValue := atr[n-1]
	if atrValue <= 0 || atrValue < s.ATRMin {
		return nil
	}

	// breakout levels over the N bars before the current one
	breakoutHigh := highs[n-1-s.BreakoutBars]
	breakoutLow := lows[n-1-s.BreakoutBars]
	for i := n - s.BreakoutBars; i < n-1; i++ {
		if highs[i] > breakoutHigh {
			breakoutHigh = highs[i]
		}
		if lows[i] < breakoutLow {
			breakoutLow = lows[i]
		}
	}

	close := closes[n-1]
	dir := Flat
	switch {
	case close > breakoutHigh:
		dir = Long
	case close < breakoutLow:
		dir = Short
	}
	if dir == Flat {
		return nil
	}

	if s.TrendFilter {
		ema := talib.Ema(closes, s.EMAPeriod)
		slope := ema[n-1] - ema[n-2]
		if (dir == Long && slope <= 0) || (dir == Short && slope >= 0) {
			return nil
		}
	}

	dist := s.StopATRMult * atrValue
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
