// Package backtest replays historical bars through the exact decision
// path the live engine uses. The replayer owns the replay clock and the
// fill simulator; everything downstream of the bar feed is shared code,
// so a replay over the same bars always produces the same fills, the
// same account trajectory, and a byte-identical journal.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradecore/clock"
	"github.com/rustyeddy/tradecore/engine"
	"github.com/rustyeddy/tradecore/market"
	"github.com/rustyeddy/tradecore/order"
	"github.com/rustyeddy/tradecore/strategy"
	"github.com/rustyeddy/tradecore/venue"
)

// Result is the post-run summary.
type Result struct {
	Bars         int
	Trades       int
	Wins         int
	Losses       int
	StartBalance float64
	Balance      float64
	Equity       float64
	PnL          float64
	MaxDrawdown  float64 // peak-to-trough equity, account currency
	Start        time.Time
	End          time.Time
}

func (r Result) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades)
}

// Replayer drives the pipeline over a recorded bar series.
type Replayer struct {
	pipeline *engine.Pipeline
	sim      *venue.Sim
	clk      *clock.Replay
	costs    venue.Costs
	log      zerolog.Logger

	infos map[string]venue.SymbolInfo
}

func New(p *engine.Pipeline, sim *venue.Sim, clk *clock.Replay, costs venue.Costs, log zerolog.Logger) *Replayer {
	return &Replayer{
		pipeline: p,
		sim:      sim,
		clk:      clk,
		costs:    costs,
		log:      log.With().Str("component", "replay").Logger(),
		infos:    make(map[string]venue.SymbolInfo),
	}
}

// Run replays bars, oldest first, and flattens at the end of the series.
// Per bar the order is fixed: advance the clock, resolve exits against
// the bar's range, then evaluate the bar for entries. Exits run first so
// a position opened on bar N cannot be stopped out by bar N's own range.
func (r *Replayer) Run(ctx context.Context, bars []market.Bar) (Result, error) {
	if len(bars) == 0 {
		return Result{}, fmt.Errorf("backtest: no bars to replay")
	}

	mgr := r.pipeline.Manager()
	start := mgr.Snapshot()
	res := Result{
		StartBalance: start.Balance,
		Start:        bars[0].Time,
		End:          bars[len(bars)-1].Time,
	}
	peak := start.Equity

	r.clk.Set(bars[0].Time)
	if err := mgr.Reconcile(ctx); err != nil {
		return Result{}, err
	}

	for _, bar := range bars {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		r.clk.Set(bar.Time)

		info, err := r.symbolInfo(ctx, bar.Symbol)
		if err != nil {
			return Result{}, err
		}

		if err := r.resolveExits(ctx, bar, info); err != nil {
			return Result{}, err
		}

		tick := r.costs.TickFor(bar, info.Point)
		r.sim.SetTick(tick)
		if err := r.pipeline.OnTick(ctx, tick); err != nil {
			return Result{}, err
		}
		if err := r.pipeline.OnBar(ctx, bar, tick); err != nil {
			return Result{}, err
		}

		res.Bars++
		if eq := mgr.Snapshot().Equity; eq > peak {
			peak = eq
		} else if dd := peak - eq; dd > res.MaxDrawdown {
			res.MaxDrawdown = dd
		}
	}

	if err := mgr.CloseAll(ctx, order.CloseEndOfReplay); err != nil {
		return Result{}, fmt.Errorf("backtest: final flatten: %w", err)
	}

	final := mgr.Snapshot()
	res.Balance = final.Balance
	res.Equity = final.Equity
	res.PnL = final.Balance - res.StartBalance
	for _, t := range mgr.ClosedTrades() {
		res.Trades++
		if t.PnL > 0 {
			res.Wins++
		} else {
			res.Losses++
		}
	}

	r.log.Info().
		Int("bars", res.Bars).
		Int("trades", res.Trades).
		Float64("pnl", res.PnL).
		Float64("max_drawdown", res.MaxDrawdown).
		Msg("replay finished")
	return res, nil
}

func (r *Replayer) symbolInfo(ctx context.Context, symbol string) (venue.SymbolInfo, error) {
	if info, ok := r.infos[symbol]; ok {
		return info, nil
	}
	info, err := r.sim.SymbolInfo(ctx, symbol)
	if err != nil {
		return venue.SymbolInfo{}, err
	}
	r.infos[symbol] = info
	return info, nil
}

// resolveExits checks the open position on the bar's symbol against the
// bar's high/low. The adverse extreme is evaluated first: when a bar's
// range spans both the stop and the target, the stop is assumed to have
// been hit. Exit fills happen at the level, not at the bar extreme.
func (r *Replayer) resolveExits(ctx context.Context, bar market.Bar, info venue.SymbolInfo) error {
	mgr := r.pipeline.Manager()
	pos, ok := mgr.Position(bar.Symbol)
	if !ok {
		return nil
	}

	half := r.costs.SpreadPoints * info.Point / 2

	var levels []float64
	if pos.Direction == strategy.Long {
		// bid trades down to the low, up to the high
		if pos.Stop > 0 && bar.Low-half <= pos.Stop {
			levels = append(levels, pos.Stop)
		}
		if pos.Target > 0 && bar.High-half >= pos.Target {
			levels = append(levels, pos.Target)
		}
	} else {
		// ask trades up to the high, down to the low
		if pos.Stop > 0 && bar.High+half >= pos.Stop {
			levels = append(levels, pos.Stop)
		}
		if pos.Target > 0 && bar.Low+half <= pos.Target {
			levels = append(levels, pos.Target)
		}
	}

	for _, level := range levels {
		// the exit side of the book sits exactly on the level
		tick := market.Tick{Symbol: bar.Symbol, Time: bar.Time}
		if pos.Direction == strategy.Long {
			tick.Bid = level
			tick.Ask = level + 2*half
		} else {
			tick.Ask = level
			tick.Bid = level - 2*half
		}
		r.sim.SetTick(tick)
		if err := r.pipeline.OnTick(ctx, tick); err != nil {
			return err
		}
		if _, still := mgr.Position(bar.Symbol); !still {
			return nil
		}
	}
	return nil
}
