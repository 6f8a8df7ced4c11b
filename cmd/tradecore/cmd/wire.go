package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradecore/account"
	"github.com/rustyeddy/tradecore/clock"
	"github.com/rustyeddy/tradecore/config"
	"github.com/rustyeddy/tradecore/engine"
	"github.com/rustyeddy/tradecore/journal"
	"github.com/rustyeddy/tradecore/order"
	"github.com/rustyeddy/tradecore/risk"
	"github.com/rustyeddy/tradecore/safeguard"
	"github.com/rustyeddy/tradecore/strategy"
	"github.com/rustyeddy/tradecore/venue"
)

func buildLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "csv":
		return journal.NewCSV(cfg.File)
	case "memory":
		return journal.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

// buildPipeline assembles the decision path from a validated config. The
// caller chooses the venue adapter, clock, journal sink, and id scheme,
// which is all that differs between live and replay.
func buildPipeline(cfg *config.Config, v venue.Adapter, jrnl journal.Journal,
	clk clock.Clock, newID func() string, sleep func(time.Duration),
	log zerolog.Logger) (*engine.Pipeline, error) {

	strat, err := strategy.New(cfg.Strategy.Name, cfg.Strategy.Params)
	if err != nil {
		return nil, err
	}
	session, err := cfg.Session()
	if err != nil {
		return nil, err
	}

	ks := safeguard.NewKillSwitch(cfg.Safeguards.KillSwitchFile, log)
	chain := safeguard.NewChain(cfg.Safeguards, ks, session, log)
	sizer := risk.NewSizer(cfg.Risk)

	initial := account.State{
		Currency: cfg.Account.Currency,
		Balance:  cfg.Account.Balance,
		Equity:   cfg.Account.Balance,
	}
	mgr := order.New(order.Deps{
		Venue:   v,
		Chain:   chain,
		Journal: jrnl,
		Clock:   clk,
		Sizer:   sizer,
		Log:     log,
		NewID:   newID,
		Day:     session.Day,
		Sleep:   sleep,
	}, initial, order.Config{
		Retry:         cfg.Order.Retry(),
		SubmitTimeout: cfg.Order.SubmitTimeout.Std(),
		NativeStops:   cfg.Order.NativeStops,
		RiskCeiling:   sizer.RiskCeiling(initial),
	})

	return engine.NewPipeline(strat, sizer, chain, mgr, v, clk, log), nil
}
