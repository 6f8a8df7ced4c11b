// Package engine wires bars into decisions. The Pipeline is the single
// decision path shared by the live engine and the backtest replayer:
// bar in, signal out, sized, gated, submitted. Neither driver adds its
// own decision logic, which is what keeps the two modes in agreement.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradecore/clock"
	"github.com/rustyeddy/tradecore/market"
	"github.com/rustyeddy/tradecore/order"
	"github.com/rustyeddy/tradecore/risk"
	"github.com/rustyeddy/tradecore/safeguard"
	"github.com/rustyeddy/tradecore/strategy"
	"github.com/rustyeddy/tradecore/venue"
)

// Pipeline turns one closed bar into at most one order submission.
type Pipeline struct {
	strat   strategy.Strategy
	sizer   risk.Sizer
	chain   *safeguard.Chain
	manager *order.Manager
	venue   venue.Adapter
	clk     clock.Clock
	log     zerolog.Logger

	// mu guards windows and infos: the live sync loop invalidates
	// symbol info while the poll loop is processing bars
	mu      sync.Mutex
	windows map[string]*market.Window
	infos   map[string]venue.SymbolInfo
}

func NewPipeline(strat strategy.Strategy, sizer risk.Sizer, chain *safeguard.Chain,
	mgr *order.Manager, v venue.Adapter, clk clock.Clock, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		strat:   strat,
		sizer:   sizer,
		chain:   chain,
		manager: mgr,
		venue:   v,
		clk:     clk,
		log:     log.With().Str("component", "pipeline").Logger(),
		windows: make(map[string]*market.Window),
		infos:   make(map[string]venue.SymbolInfo),
	}
}

// Manager exposes the order manager for drivers that need direct access
// (exits, reconciliation, end-of-run flattening).
func (p *Pipeline) Manager() *order.Manager { return p.manager }

// Chain exposes the safeguard chain, mainly for the kill switch watcher.
func (p *Pipeline) Chain() *safeguard.Chain { return p.chain }

// Warmup seeds a symbol's bar window with history so the strategy has a
// full lookback before the first live bar arrives.
func (p *Pipeline) Warmup(symbol string, bars []market.Bar) {
	w := p.window(symbol)
	for _, b := range bars {
		w.Push(b)
	}
	p.log.Debug().Str("symbol", symbol).Int("bars", w.Len()).Msg("window warmed up")
}

func (p *Pipeline) window(symbol string) *market.Window {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.windows[symbol]
	if !ok {
		// a little slack over the lookback so strategies can look one bar
		// further back without the window starving them
		w = market.NewWindow(p.strat.Lookback() + 16)
		p.windows[symbol] = w
	}
	return w
}

func (p *Pipeline) symbolInfo(ctx context.Context, symbol string) (venue.SymbolInfo, error) {
	p.mu.Lock()
	info, ok := p.infos[symbol]
	p.mu.Unlock()
	if ok {
		return info, nil
	}
	info, err := p.venue.SymbolInfo(ctx, symbol)
	if err != nil {
		return venue.SymbolInfo{}, fmt.Errorf("engine: symbol info %s: %w", symbol, err)
	}
	p.mu.Lock()
	p.infos[symbol] = info
	p.mu.Unlock()
	return info, nil
}

// InvalidateSymbolInfo drops the cached metadata for symbol so the next
// bar refetches it. The live engine calls this on a schedule; tradability
// and stop levels do change intraday.
func (p *Pipeline) InvalidateSymbolInfo(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.infos, symbol)
}

// OnBar processes one closed bar against the current quote. The sequence
// is fixed: rollover, evaluate, size, gate, submit. Every decision along
// the way is journaled; a bar that produces no signal produces nothing.
func (p *Pipeline) OnBar(ctx context.Context, bar market.Bar, tick market.Tick) error {
	w := p.window(bar.Symbol)
	if !w.Push(bar) {
		p.log.Warn().
			Str("symbol", bar.Symbol).
			Time("bar", bar.Time).
			Msg("stale bar dropped")
		return nil
	}

	p.manager.Rollover(bar.Time)

	sig := strategy.Evaluate(bar.Symbol, w.Bars(), p.strat)
	if sig == nil {
		return nil
	}
	p.manager.JournalSignal(sig)
	p.log.Info().
		Str("symbol", sig.Symbol).
		Str("direction", sig.Direction.String()).
		Float64("entry", sig.Entry).
		Float64("stop", sig.Stop).
		Str("strategy", sig.StrategyID).
		Msg("signal")

	info, err := p.symbolInfo(ctx, bar.Symbol)
	if err != nil {
		return err
	}

	intent, err := p.sizer.Size(sig, p.manager.Snapshot(), info)
	if err != nil {
		if errors.Is(err, risk.ErrInsufficientRisk) || errors.Is(err, risk.ErrMarginInsufficient) {
			p.manager.JournalReject(sig, err)
			p.log.Info().Str("symbol", sig.Symbol).Err(err).Msg("signal not sized")
			return nil
		}
		return err
	}

	if p.chain != nil {
		sctx := safeguard.Context{
			Now:     p.clk.Now(),
			Tick:    tick,
			Info:    info,
			Account: p.manager.Snapshot(),
			Intent:  intent,
		}
		if reason, veto := p.chain.Check(sctx); veto {
			p.manager.JournalVeto(intent, reason)
			return nil
		}
	}

	err = p.manager.Submit(ctx, intent, tick, info)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, order.ErrOrderInFlight), errors.Is(err, order.ErrRiskCeiling):
		// bounded conditions, not failures; the journal already has them
		return nil
	default:
		var ve *order.VetoError
		if errors.As(err, &ve) {
			return nil
		}
		p.manager.JournalError(sig.Symbol, err)
		p.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("submission failed")
		return nil
	}
}

// OnTick forwards a quote to the order manager for marking and synthetic
// stop/target enforcement.
func (p *Pipeline) OnTick(ctx context.Context, tick market.Tick) error {
	return p.manager.OnTick(ctx, tick)
}
