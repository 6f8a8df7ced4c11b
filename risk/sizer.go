// Package risk converts signals into risk-bounded order intents. Sizing is
// the classic fixed-fractional formula: risk a configured slice of equity,
// divide by the per-unit loss at the stop, then round down to the venue's
// volume step so rounding can never push risk over budget.
package risk

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/tradecore/account"
	"github.com/rustyeddy/tradecore/strategy"
	"github.com/rustyeddy/tradecore/venue"
)

var (
	// ErrInsufficientRisk: the stop distance is zero or the sized volume
	// rounds below the venue minimum.
	ErrInsufficientRisk = errors.New("risk: insufficient risk budget for minimum volume")

	// ErrMarginInsufficient: estimated margin would eat into the free
	// margin buffer.
	ErrMarginInsufficient = errors.New("risk: insufficient free margin")
)

// Config is the sizing policy.
type Config struct {
	RiskPercent  float64 `yaml:"risk_percent"`  // fraction of equity risked per trade, e.g. 0.02
	Leverage     float64 `yaml:"leverage"`      // for the margin estimate, e.g. 30
	MarginBuffer float64 `yaml:"margin_buffer"` // fraction of equity kept free, e.g. 0.2
	MaxOpenRisk  float64 `yaml:"max_open_risk"` // ceiling on summed open risk, fraction of equity
}

// Intent is a sized, not yet safeguarded, candidate order. Never mutated
// after creation; a re-evaluation produces a new Intent.
type Intent struct {
	Symbol     string
	Direction  strategy.Direction
	Volume     float64 // positive, venue lots/units
	Entry      float64
	Stop       float64
	Target     float64
	RiskAmount float64 // account currency at the stop
	Reason     string  // originating strategy id
	Time       time.Time
}

// SignedVolume is the venue-facing volume: negative for shorts.
func (i Intent) SignedVolume() float64 {
	if i.Direction == strategy.Short {
		return -i.Volume
	}
	return i.Volume
}

type Sizer struct {
	cfg Config
}

func NewSizer(cfg Config) Sizer { return Sizer{cfg: cfg} }

func (s Sizer) Config() Config { return s.cfg }

// Size turns a valid signal into an intent or rejects it.
//
//	riskAmount = equity * riskPercent
//	perUnitRisk = |entry - stop|
//	volume = riskAmount / perUnitRisk, clamped down to the venue step
func (s Sizer) Size(sig *strategy.Signal, acct account.State, info venue.SymbolInfo) (Intent, error) {
	perUnit := math.Abs(sig.Entry - sig.Stop)
	if perUnit <= 0 {
		return Intent{}, fmt.Errorf("%w: entry %.5f equals stop", ErrInsufficientRisk, sig.Entry)
	}

	riskAmount := acct.Equity * s.cfg.RiskPercent
	raw := riskAmount / perUnit

	volume := venue.ClampVolume(raw, info)
	if volume <= 0 {
		return Intent{}, fmt.Errorf("%w: %.4f below venue minimum %.4f", ErrInsufficientRisk, raw, info.MinVolume)
	}

	if margin := s.EstimateMargin(volume, sig.Entry, info); margin > 0 {
		free := acct.FreeMargin - s.cfg.MarginBuffer*acct.Equity
		if margin > free {
			return Intent{}, fmt.Errorf("%w: need %.2f, free %.2f", ErrMarginInsufficient, margin, free)
		}
	}

	return Intent{
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		Volume:     volume,
		Entry:      sig.Entry,
		Stop:       sig.Stop,
		Target:     sig.Target,
		RiskAmount: volume * perUnit,
		Reason:     sig.StrategyID,
		Time:       sig.Time,
	}, nil
}

// EstimateMargin approximates the margin the venue will lock for the
// position. Quote currency is assumed to be the account currency; a live
// deployment with cross rates refines this at the adapter.
func (s Sizer) EstimateMargin(volume, price float64, info venue.SymbolInfo) float64 {
	if s.cfg.Leverage <= 0 {
		return 0
	}
	contract := info.ContractSize
	if contract <= 0 {
		contract = 1
	}
	return volume * contract * price / s.cfg.Leverage
}

// RiskCeiling is the absolute cap on summed open risk for the account.
func (s Sizer) RiskCeiling(acct account.State) float64 {
	if s.cfg.MaxOpenRisk <= 0 {
		return math.Inf(1)
	}
	return acct.Equity * s.cfg.MaxOpenRisk
}
