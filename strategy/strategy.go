// Package strategy defines the pluggable signal capability. A Strategy is
// a pure function of an ordered bar window; the same bars always produce
// the same signal, which is what makes live and backtest output comparable
// bar for bar.
package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradecore/market"
)

// Direction of a signal or position.
type Direction int8

const (
	Flat  Direction = 0
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// Opposite returns the reversed direction; Flat stays Flat.
func (d Direction) Opposite() Direction { return -d }

// Signal is a directional trade idea with its supporting levels. Stop must
// sit on the loss side of entry and target on the profit side or the
// signal is invalid and gets discarded.
type Signal struct {
	Symbol     string
	Direction  Direction
	Entry      float64
	Stop       float64
	Target     float64
	StrategyID string
	Time       time.Time
}

// Valid checks the level geometry.
func (s *Signal) Valid() bool {
	switch s.Direction {
	case Long:
		return s.Stop < s.Entry && s.Target > s.Entry
	case Short:
		return s.Stop > s.Entry && s.Target < s.Entry
	default:
		return false
	}
}

// Strategy computes a signal from a bar window. Implementations must be
// stateless and side-effect free.
type Strategy interface {
	Name() string

	// Lookback is the minimum number of bars ComputeSignal needs.
	Lookback() int

	// ComputeSignal returns nil (or a Flat signal) when there is nothing
	// to do. bars is ordered oldest first and at least Lookback long.
	ComputeSignal(bars []market.Bar) *Signal
}

// Evaluate is the signal engine: it guards the window length, runs the
// strategy, and discards flat or geometrically invalid signals. The bar
// window's last timestamp becomes the signal time, so replay output does
// not depend on the wall clock.
func Evaluate(symbol string, bars []market.Bar, strat Strategy) *Signal {
	if strat == nil || len(bars) < strat.Lookback() {
		return nil
	}
	sig := strat.ComputeSignal(bars)
	if sig == nil || sig.Direction == Flat {
		return nil
	}
	sig.Symbol = symbol
	sig.StrategyID = strat.Name()
	sig.Time = bars[len(bars)-1].Time
	if !sig.Valid() {
		return nil
	}
	return sig
}

// Params carries the strategy tuning knobs from config. Fields unused by a
// given strategy are ignored.
type Params struct {
	BreakoutBars int     `yaml:"breakout_bars"`
	ATRPeriod    int     `yaml:"atr_period"`
	ATRMin       float64 `yaml:"atr_min"`
	StopATRMult  float64 `yaml:"stop_atr_mult"`
	RRRatio      float64 `yaml:"rr_ratio"`
	EMAPeriod    int     `yaml:"ema_period"`
	FastPeriod   int     `yaml:"fast_period"`
	SlowPeriod   int     `yaml:"slow_period"`
	TrendFilter  bool    `yaml:"trend_filter"`
}

// New builds a registered strategy by name.
func New(name string, p Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none":
		return Noop{}, nil
	case "atr-breakout", "atrbreakout":
		return NewATRBreakout(p), nil
	case "ema-cross", "emacross":
		return NewEMACross(p), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, atr-breakout, ema-cross)", name)
	}
}

// Noop never signals. Useful for wiring tests and dry runs.
type Noop struct{}

func (Noop) Name() string                            { return "noop" }
func (Noop) Lookback() int                           { return 1 }
func (Noop) ComputeSignal(bars []market.Bar) *Signal { return nil }
