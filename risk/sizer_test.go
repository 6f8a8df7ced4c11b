package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradecore/account"
	"github.com/rustyeddy/tradecore/strategy"
	"github.com/rustyeddy/tradecore/venue"
)

func unitSymbol() venue.SymbolInfo {
	// volume expressed in base units with a contract size of 1
	return venue.SymbolInfo{
		Symbol:       "EURUSD",
		Point:        0.0001,
		ContractSize: 1,
		MinVolume:    1000,
		MaxVolume:    10_000_000,
		VolumeStep:   1000,
		Tradable:     true,
	}
}

func acctWith(equity float64) account.State {
	return account.State{
		Currency:   "USD",
		Balance:    equity,
		Equity:     equity,
		FreeMargin: equity,
	}
}

func TestSizeReferenceScenario(t *testing.T) {
	t.Parallel()

	// equity 10,000 at 2% risk, 20 pip stop: 200 / 0.0020 = 100,000 units
	s := NewSizer(Config{RiskPercent: 0.02, Leverage: 30})
	sig := &strategy.Signal{
		Symbol:     "EURUSD",
		Direction:  strategy.Long,
		Entry:      1.1050,
		Stop:       1.1030,
		Target:     1.1090,
		StrategyID: "atr-breakout",
	}

	intent, err := s.Size(sig, acctWith(10000), unitSymbol())
	require.NoError(t, err)

	assert.InDelta(t, 100000, intent.Volume, 1e-9)
	assert.InDelta(t, 200, intent.RiskAmount, 1e-6)
	assert.Equal(t, strategy.Long, intent.Direction)
	assert.Equal(t, "atr-breakout", intent.Reason)
	assert.InDelta(t, 100000, intent.SignedVolume(), 1e-9)
}

func TestSizeNeverExceedsRiskBudget(t *testing.T) {
	t.Parallel()

	s := NewSizer(Config{RiskPercent: 0.01})
	info := unitSymbol()

	pairs := []struct{ entry, stop float64 }{
		{1.1050, 1.1030},
		{1.1050, 1.1049},
		{1.1050, 1.0950},
		{150.00, 149.25},
		{0.6500, 0.6512},
	}

	for _, p := range pairs {
		acct := acctWith(25000)
		sig := &strategy.Signal{
			Symbol:    "EURUSD",
			Direction: strategy.Long,
			Entry:     p.entry,
			Stop:      p.stop,
			Target:    p.entry + 2*math.Abs(p.entry-p.stop),
		}
		if p.stop > p.entry {
			sig.Direction = strategy.Short
			sig.Target = p.entry - 2*math.Abs(p.entry-p.stop)
		}

		intent, err := s.Size(sig, acct, info)
		if errors.Is(err, ErrInsufficientRisk) {
			continue
		}
		require.NoError(t, err)

		budget := acct.Equity*0.01 + 1e-6
		assert.LessOrEqual(t, intent.RiskAmount, budget,
			"entry=%v stop=%v volume=%v", p.entry, p.stop, intent.Volume)
	}
}

func TestSizeZeroStopDistance(t *testing.T) {
	t.Parallel()

	s := NewSizer(Config{RiskPercent: 0.02})
	sig := &strategy.Signal{Symbol: "EURUSD", Direction: strategy.Long, Entry: 1.1050, Stop: 1.1050, Target: 1.11}

	_, err := s.Size(sig, acctWith(10000), unitSymbol())
	assert.ErrorIs(t, err, ErrInsufficientRisk)
}

func TestSizeBelowMinimumVolume(t *testing.T) {
	t.Parallel()

	// tiny account, wide stop: volume rounds below the 1000-unit minimum
	s := NewSizer(Config{RiskPercent: 0.001})
	sig := &strategy.Signal{Symbol: "EURUSD", Direction: strategy.Long, Entry: 1.2000, Stop: 1.1000, Target: 1.4}

	_, err := s.Size(sig, acctWith(100), unitSymbol())
	assert.ErrorIs(t, err, ErrInsufficientRisk)
}

func TestSizeMarginInsufficient(t *testing.T) {
	t.Parallel()

	// leverage 1 forces margin ~= notional, far above free margin
	s := NewSizer(Config{RiskPercent: 0.02, Leverage: 1, MarginBuffer: 0.1})
	sig := &strategy.Signal{Symbol: "EURUSD", Direction: strategy.Long, Entry: 1.1050, Stop: 1.1030, Target: 1.1090}

	_, err := s.Size(sig, acctWith(10000), unitSymbol())
	assert.ErrorIs(t, err, ErrMarginInsufficient)
}

func TestSizeRoundsDownToStep(t *testing.T) {
	t.Parallel()

	// 150 / 0.0007 = 214285.7 -> 214000 with a 1000-unit step
	s := NewSizer(Config{RiskPercent: 0.015})
	sig := &strategy.Signal{Symbol: "EURUSD", Direction: strategy.Long, Entry: 1.1050, Stop: 1.1043, Target: 1.1064}

	intent, err := s.Size(sig, acctWith(10000), unitSymbol())
	require.NoError(t, err)
	assert.InDelta(t, 214000, intent.Volume, 1e-9)
}

func TestRiskCeiling(t *testing.T) {
	t.Parallel()

	s := NewSizer(Config{RiskPercent: 0.02, MaxOpenRisk: 0.06})
	assert.InDelta(t, 600, s.RiskCeiling(acctWith(10000)), 1e-9)

	unbounded := NewSizer(Config{RiskPercent: 0.02})
	assert.True(t, math.IsInf(unbounded.RiskCeiling(acctWith(10000)), 1))
}
