// Package safeguard is the pre-trade gate chain. Gates run in a fixed
// order, cheapest and most global first, and the first veto wins: two
// simultaneous violations always report the same reason, which keeps live
// runs, backtests, and tests in agreement.
package safeguard

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradecore/account"
	"github.com/rustyeddy/tradecore/market"
	"github.com/rustyeddy/tradecore/risk"
	"github.com/rustyeddy/tradecore/venue"
)

// Reason is a veto reason code. A veto is expected control flow, not an
// error.
type Reason string

const (
	Halted            Reason = "Halted"
	OutOfSession      Reason = "OutOfSession"
	DailyLossLimit    Reason = "DailyLossLimit"
	MaxPositions      Reason = "MaxPositions"
	MaxTradesPerDay   Reason = "MaxTradesPerDay"
	SymbolNotTradable Reason = "SymbolNotTradable"
	SpreadTooWide     Reason = "SpreadTooWide"
)

// Config bounds the chain.
type Config struct {
	DailyLossLimit  float64 `yaml:"daily_loss_limit"`   // account currency, > 0 enables
	MaxPositions    int     `yaml:"max_positions"`      // concurrent open positions, > 0 enables
	MaxTradesPerDay int     `yaml:"max_trades_per_day"` // > 0 enables
	MaxSpreadPoints float64 `yaml:"max_spread_points"`  // > 0 enables
	KillSwitchFile  string  `yaml:"kill_switch_file"`
}

// Context is the per-evaluation snapshot every gate reads. Built fresh for
// each check; nothing in it is cached between evaluations.
type Context struct {
	Now     time.Time
	Tick    market.Tick
	Info    venue.SymbolInfo
	Account account.State
	Intent  risk.Intent
}

type gate interface {
	check(Context) (Reason, bool)
}

// Chain evaluates the gates in their fixed order.
type Chain struct {
	cfg     Config
	ks      *KillSwitch
	session *market.Session
	gates   []gate
	log     zerolog.Logger
}

func NewChain(cfg Config, ks *KillSwitch, session *market.Session, log zerolog.Logger) *Chain {
	c := &Chain{
		cfg:     cfg,
		ks:      ks,
		session: session,
		log:     log.With().Str("component", "safeguards").Logger(),
	}
	// evaluation order is part of the contract; do not reorder
	c.gates = []gate{
		&killGate{ks: ks},
		&sessionGate{session: session},
		&dailyLossGate{limit: cfg.DailyLossLimit},
		&maxPositionsGate{max: cfg.MaxPositions},
		&maxTradesGate{max: cfg.MaxTradesPerDay},
		&tradableGate{},
		&spreadGate{max: cfg.MaxSpreadPoints},
	}
	return c
}

// Check runs the chain. The boolean is true when the intent is vetoed.
func (c *Chain) Check(ctx Context) (Reason, bool) {
	for _, g := range c.gates {
		if reason, veto := g.check(ctx); veto {
			c.log.Info().
				Str("symbol", ctx.Intent.Symbol).
				Str("reason", string(reason)).
				Msg("intent vetoed")
			return reason, true
		}
	}
	return "", false
}

// KillSwitch exposes the chain's switch so the order manager can trip it
// on system-wide failures.
func (c *Chain) KillSwitch() *KillSwitch { return c.ks }

type killGate struct{ ks *KillSwitch }

func (g *killGate) check(Context) (Reason, bool) {
	if g.ks != nil && g.ks.Active() {
		return Halted, true
	}
	return "", false
}

type sessionGate struct{ session *market.Session }

func (g *sessionGate) check(ctx Context) (Reason, bool) {
	if g.session != nil && !g.session.Contains(ctx.Now) {
		return OutOfSession, true
	}
	return "", false
}

// dailyLossGate latches once breached and stays down for the rest of the
// trading day, even if realized P/L recovers intraday.
type dailyLossGate struct {
	limit      float64
	latchedDay string
}

func (g *dailyLossGate) check(ctx Context) (Reason, bool) {
	if g.limit <= 0 {
		return "", false
	}
	if g.latchedDay == ctx.Account.Day && g.latchedDay != "" {
		return DailyLossLimit, true
	}
	if ctx.Account.RealizedToday <= -g.limit {
		g.latchedDay = ctx.Account.Day
		return DailyLossLimit, true
	}
	return "", false
}

type maxPositionsGate struct{ max int }

func (g *maxPositionsGate) check(ctx Context) (Reason, bool) {
	if g.max > 0 && ctx.Account.OpenPositions >= g.max {
		return MaxPositions, true
	}
	return "", false
}

type maxTradesGate struct{ max int }

func (g *maxTradesGate) check(ctx Context) (Reason, bool) {
	if g.max > 0 && ctx.Account.TradesToday >= g.max {
		return MaxTradesPerDay, true
	}
	return "", false
}

type tradableGate struct{}

func (tradableGate) check(ctx Context) (Reason, bool) {
	if !ctx.Info.Tradable {
		return SymbolNotTradable, true
	}
	return "", false
}

type spreadGate struct{ max float64 }

func (g *spreadGate) check(ctx Context) (Reason, bool) {
	if g.max > 0 && ctx.Tick.SpreadPoints(ctx.Info.Point) > g.max {
		return SpreadTooWide, true
	}
	return "", false
}
