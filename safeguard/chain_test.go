package safeguard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradecore/account"
	"github.com/rustyeddy/tradecore/market"
	"github.com/rustyeddy/tradecore/venue"
)

func passingContext() Context {
	return Context{
		Now: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		Tick: market.Tick{
			Symbol: "EURUSD",
			Bid:    1.10500,
			Ask:    1.10510, // 10 points
		},
		Info: venue.SymbolInfo{
			Symbol:   "EURUSD",
			Point:    0.00001,
			Tradable: true,
		},
		Account: account.State{
			Equity: 10000,
			Day:    "2024-03-05",
		},
	}
}

func testConfig() Config {
	return Config{
		DailyLossLimit:  500,
		MaxPositions:    3,
		MaxTradesPerDay: 10,
		MaxSpreadPoints: 30,
	}
}

func newTestChain(cfg Config, ks *KillSwitch) *Chain {
	sess, _ := market.NewSession("UTC", []market.WindowSpec{{Start: "08:00", End: "17:00"}})
	return NewChain(cfg, ks, sess, zerolog.Nop())
}

func TestChainPasses(t *testing.T) {
	t.Parallel()

	c := newTestChain(testConfig(), NewKillSwitch("", zerolog.Nop()))
	_, veto := c.Check(passingContext())
	assert.False(t, veto)
}

func TestChainSingleVetoes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Context)
		want   Reason
	}{
		{"out of session", func(ctx *Context) {
			ctx.Now = time.Date(2024, 3, 5, 3, 0, 0, 0, time.UTC)
		}, OutOfSession},
		{"daily loss", func(ctx *Context) {
			ctx.Account.RealizedToday = -500
		}, DailyLossLimit},
		{"max positions", func(ctx *Context) {
			ctx.Account.OpenPositions = 3
		}, MaxPositions},
		{"max trades", func(ctx *Context) {
			ctx.Account.TradesToday = 10
		}, MaxTradesPerDay},
		{"not tradable", func(ctx *Context) {
			ctx.Info.Tradable = false
		}, SymbolNotTradable},
		{"spread", func(ctx *Context) {
			ctx.Tick.Ask = ctx.Tick.Bid + 0.00040 // 40 points
		}, SpreadTooWide},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestChain(testConfig(), NewKillSwitch("", zerolog.Nop()))
			ctx := passingContext()
			tt.mutate(&ctx)
			reason, veto := c.Check(ctx)
			require.True(t, veto)
			assert.Equal(t, tt.want, reason)
		})
	}
}

// Two violations at once must always report the earliest gate.
func TestChainOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	c := newTestChain(testConfig(), NewKillSwitch("", zerolog.Nop()))

	// DailyLossLimit outranks both SymbolNotTradable and SpreadTooWide
	ctx := passingContext()
	ctx.Account.RealizedToday = -900
	ctx.Tick.Ask = ctx.Tick.Bid + 0.00080
	ctx.Info.Tradable = false

	reason, veto := c.Check(ctx)
	require.True(t, veto)
	assert.Equal(t, DailyLossLimit, reason)

	// kill switch beats everything
	ks := NewKillSwitch("", zerolog.Nop())
	ks.Trip("test")
	c2 := newTestChain(testConfig(), ks)
	reason, veto = c2.Check(ctx)
	require.True(t, veto)
	assert.Equal(t, Halted, reason)
}

func TestKillSwitchSentinelFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "halt")
	ks := NewKillSwitch(path, zerolog.Nop())
	c := newTestChain(testConfig(), ks)

	_, veto := c.Check(passingContext())
	assert.False(t, veto)

	require.NoError(t, os.WriteFile(path, nil, 0o644))

	// engaged mid-session: next evaluation must veto, no restart needed
	reason, veto := c.Check(passingContext())
	require.True(t, veto)
	assert.Equal(t, Halted, reason)

	require.NoError(t, os.Remove(path))
	_, veto = c.Check(passingContext())
	assert.False(t, veto)
}

func TestKillSwitchInternalTrip(t *testing.T) {
	t.Parallel()

	ks := NewKillSwitch("", zerolog.Nop())
	assert.False(t, ks.Active())

	ks.Trip("venue connection lost")
	assert.True(t, ks.Active())
	assert.Equal(t, "venue connection lost", ks.TripReason())

	ks.Reset()
	assert.False(t, ks.Active())
	assert.Empty(t, ks.TripReason())
}

// Once the daily limit is breached the gate stays down for the rest of the
// day, even if realized P/L recovers intraday. It releases on the next
// trading day.
func TestDailyLossLatchesUntilNextDay(t *testing.T) {
	t.Parallel()

	c := newTestChain(testConfig(), NewKillSwitch("", zerolog.Nop()))

	ctx := passingContext()
	ctx.Account.RealizedToday = -600
	reason, veto := c.Check(ctx)
	require.True(t, veto)
	require.Equal(t, DailyLossLimit, reason)

	// a winning trade brings the day back above the limit: still halted
	ctx.Account.RealizedToday = -100
	reason, veto = c.Check(ctx)
	require.True(t, veto)
	assert.Equal(t, DailyLossLimit, reason)

	// next trading day: counters reset, gate releases
	ctx.Account.Day = "2024-03-06"
	ctx.Account.RealizedToday = 0
	ctx.Now = ctx.Now.Add(24 * time.Hour)
	_, veto = c.Check(ctx)
	assert.False(t, veto)
}

func TestDisabledGatesPassEverything(t *testing.T) {
	t.Parallel()

	c := NewChain(Config{}, NewKillSwitch("", zerolog.Nop()), nil, zerolog.Nop())

	ctx := passingContext()
	ctx.Account.RealizedToday = -1e9
	ctx.Account.OpenPositions = 1000
	ctx.Account.TradesToday = 1000
	ctx.Tick.Ask = ctx.Tick.Bid + 1

	reason, veto := c.Check(ctx)
	require.True(t, veto, "tradable gate has no disable knob")
	assert.Equal(t, SymbolNotTradable, reason)

	ctx.Info.Tradable = true
	_, veto = c.Check(ctx)
	assert.False(t, veto)
}
