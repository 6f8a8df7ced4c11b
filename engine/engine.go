package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradecore/market"
	"github.com/rustyeddy/tradecore/order"
)

// BarSource feeds closed bars. Latest must return the most recent CLOSED
// bar, never the forming one.
type BarSource interface {
	History(ctx context.Context, symbol string, tf market.Timeframe, n int) ([]market.Bar, error)
	Latest(ctx context.Context, symbol string, tf market.Timeframe) (market.Bar, error)
}

// TickSource feeds the current top-of-book quote.
type TickSource interface {
	Tick(ctx context.Context, symbol string) (market.Tick, error)
}

// Config bounds the live loop.
type Config struct {
	Symbols      []string         `yaml:"symbols"`
	Timeframe    market.Timeframe `yaml:"-"`
	PollInterval time.Duration    `yaml:"poll_interval"`
	SyncInterval time.Duration    `yaml:"sync_interval"`
}

// Engine is the live driver: it polls for quotes and closed bars, feeds
// them through the shared pipeline, and keeps local state synced with the
// venue. All decisions happen in the pipeline; the engine only schedules.
type Engine struct {
	pipeline *Pipeline
	bars     BarSource
	ticks    TickSource
	cfg      Config
	log      zerolog.Logger

	lastBar map[string]time.Time
}

func New(p *Pipeline, bars BarSource, ticks TickSource, cfg Config, log zerolog.Logger) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 30 * time.Second
	}
	return &Engine{
		pipeline: p,
		bars:     bars,
		ticks:    ticks,
		cfg:      cfg,
		log:      log.With().Str("component", "engine").Logger(),
		lastBar:  make(map[string]time.Time),
	}
}

// Run blocks until ctx is cancelled or a fatal error occurs. Startup
// order matters: reconcile against the venue first, then warm up the bar
// windows, then start trading. Submissions are refused until the
// reconcile completes.
func (e *Engine) Run(ctx context.Context) error {
	mgr := e.pipeline.Manager()

	if err := mgr.Reconcile(ctx); err != nil {
		return fmt.Errorf("engine: startup: %w", err)
	}
	if err := e.warmup(ctx); err != nil {
		return fmt.Errorf("engine: warmup: %w", err)
	}

	e.log.Info().
		Strs("symbols", e.cfg.Symbols).
		Dur("poll", e.cfg.PollInterval).
		Msg("live engine started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.pollLoop(gctx) })
	g.Go(func() error { return e.syncLoop(gctx) })
	if chain := e.pipeline.Chain(); chain != nil {
		g.Go(func() error { return chain.KillSwitch().Watch(gctx) })
	}
	err := g.Wait()

	// flatten nothing on shutdown: open positions are protected by their
	// stops and picked up again by the next reconcile
	e.log.Info().Msg("live engine stopped")
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (e *Engine) warmup(ctx context.Context) error {
	n := e.pipeline.strat.Lookback() + 16
	for _, sym := range e.cfg.Symbols {
		bars, err := e.bars.History(ctx, sym, e.cfg.Timeframe, n)
		if err != nil {
			return err
		}
		e.pipeline.Warmup(sym, bars)
		if len(bars) > 0 {
			e.lastBar[sym] = bars[len(bars)-1].Time
		}
	}
	return nil
}

func (e *Engine) pollLoop(ctx context.Context) error {
	t := time.NewTicker(e.cfg.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			for _, sym := range e.cfg.Symbols {
				if err := e.pollSymbol(ctx, sym); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					// transient feed errors are survivable; the venue sync
					// loop trips the kill switch if the venue itself is gone
					e.log.Warn().Err(err).Str("symbol", sym).Msg("poll failed")
				}
			}
		}
	}
}

func (e *Engine) pollSymbol(ctx context.Context, sym string) error {
	tick, err := e.ticks.Tick(ctx, sym)
	if err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	if err := e.pipeline.OnTick(ctx, tick); err != nil {
		e.log.Error().Err(err).Str("symbol", sym).Msg("exit handling failed")
	}

	bar, err := e.bars.Latest(ctx, sym, e.cfg.Timeframe)
	if err != nil {
		return fmt.Errorf("latest bar: %w", err)
	}
	if !bar.Time.After(e.lastBar[sym]) {
		return nil
	}
	e.lastBar[sym] = bar.Time
	return e.pipeline.OnBar(ctx, bar, tick)
}

func (e *Engine) syncLoop(ctx context.Context) error {
	t := time.NewTicker(e.cfg.SyncInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := e.pipeline.Manager().SyncVenue(ctx); err != nil {
				e.log.Error().Err(err).Msg("venue sync failed")
			}
			for _, sym := range e.cfg.Symbols {
				e.pipeline.InvalidateSymbolInfo(sym)
			}
		}
	}
}

// CloseAll flattens every open position, used by the operator-facing
// flatten command.
func (e *Engine) CloseAll(ctx context.Context) error {
	return e.pipeline.Manager().CloseAll(ctx, order.CloseManual)
}
