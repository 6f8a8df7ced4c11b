package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradecore/account"
	"github.com/rustyeddy/tradecore/clock"
	"github.com/rustyeddy/tradecore/internal/id"
	"github.com/rustyeddy/tradecore/journal"
	"github.com/rustyeddy/tradecore/market"
	"github.com/rustyeddy/tradecore/risk"
	"github.com/rustyeddy/tradecore/safeguard"
	"github.com/rustyeddy/tradecore/strategy"
	"github.com/rustyeddy/tradecore/venue"
)

// VetoError reports that safeguards refused an order during submission
// (possibly mid-retry, after conditions changed).
type VetoError struct {
	Reason safeguard.Reason
}

func (e *VetoError) Error() string {
	return "order: vetoed: " + string(e.Reason)
}

// Config tunes the manager.
type Config struct {
	Retry         venue.RetryPolicy
	SubmitTimeout time.Duration
	// NativeStops registers stop/target with the venue; otherwise they
	// are synthetic levels enforced by the tick monitor.
	NativeStops bool
	// RiskCeiling caps summed open risk amounts (account currency).
	// Zero or negative disables the cap.
	RiskCeiling float64
	// HaltJournalFailure trips the kill switch when the journal sink
	// fails. Default is log-and-continue: a journal failure degrades
	// observability, it does not halt trading.
	HaltJournalFailure bool
}

// Deps are the manager's collaborators. Zero fields get safe defaults.
type Deps struct {
	Venue   venue.Adapter
	Chain   *safeguard.Chain
	Journal journal.Journal
	Clock   clock.Clock
	Sizer   risk.Sizer
	Log     zerolog.Logger

	// NewID defaults to ULIDs; the replayer injects a deterministic
	// sequence so journal output is byte-identical across runs.
	NewID func() string

	// Day maps a time to the trading-day key (session timezone).
	Day func(time.Time) string

	// Sleep defaults to time.Sleep; tests and the replayer inject a
	// no-op so retry backoff costs no wall time.
	Sleep func(time.Duration)
}

// Manager drives every order through its lifecycle and is the only writer
// of account state and the position set.
type Manager struct {
	cfg Config

	venue venue.Adapter
	chain *safeguard.Chain
	jrnl  journal.Journal
	clk   clock.Clock
	sizer risk.Sizer
	log   zerolog.Logger
	newID func() string
	day   func(time.Time) string
	sleep func(time.Duration)

	mu        sync.Mutex
	acct      account.State
	positions map[string]*Position
	orders    map[string]*Order
	closed    []ClosedTrade
	ticks     map[string]market.Tick
	inflight  map[string]bool
	closing   map[string]bool
	ready     bool
}

func New(deps Deps, initial account.State, cfg Config) *Manager {
	if deps.Clock == nil {
		deps.Clock = clock.Wall{}
	}
	if deps.NewID == nil {
		deps.NewID = id.New
	}
	if deps.Day == nil {
		deps.Day = account.UTCDay
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = venue.DefaultRetry()
	}
	if initial.FreeMargin == 0 {
		initial.FreeMargin = initial.Equity
	}
	return &Manager{
		cfg:       cfg,
		venue:     deps.Venue,
		chain:     deps.Chain,
		jrnl:      deps.Journal,
		clk:       deps.Clock,
		sizer:     deps.Sizer,
		log:       deps.Log.With().Str("component", "orders").Logger(),
		newID:     deps.NewID,
		day:       deps.Day,
		sleep:     deps.Sleep,
		acct:      initial,
		positions: make(map[string]*Position),
		orders:    make(map[string]*Order),
		ticks:     make(map[string]market.Tick),
		inflight:  make(map[string]bool),
		closing:   make(map[string]bool),
	}
}

// Snapshot returns a copy of the account state.
func (m *Manager) Snapshot() account.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acct
}

// Position returns the open position for symbol, if any.
func (m *Manager) Position(symbol string) (Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Positions returns open positions sorted by symbol.
func (m *Manager) Positions() []Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ClosedTrades returns realized trades in close order.
func (m *Manager) ClosedTrades() []ClosedTrade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ClosedTrade, len(m.closed))
	copy(out, m.closed)
	return out
}

// Order looks up an order by id.
func (m *Manager) Order(orderID string) (Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Rollover resets daily counters when now crosses the trading-day
// boundary. Drivers call it once per cycle before evaluating signals.
func (m *Manager) Rollover(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acct.Rollover(m.day(now)) {
		m.log.Info().Str("day", m.acct.Day).Msg("trading day rollover")
	}
}

// Submit drives an intent through the order state machine: journal, send
// to the venue with bounded retry, then open the position on fill.
//
// At most one open position per symbol: a same-direction intent is a
// no-op; an opposite-direction intent first closes the existing position
// and proceeds only once that close has fully resolved.
func (m *Manager) Submit(ctx context.Context, intent risk.Intent, tick market.Tick, info venue.SymbolInfo) error {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return ErrNotReconciled
	}
	m.ticks[tick.Symbol] = tick

	if pos, ok := m.positions[intent.Symbol]; ok {
		if pos.Direction == intent.Direction {
			m.mu.Unlock()
			m.log.Debug().Str("symbol", intent.Symbol).Msg("position already open, intent ignored")
			return nil
		}
		m.mu.Unlock()
		if err := m.Close(ctx, intent.Symbol, CloseReversal); err != nil {
			return fmt.Errorf("close before reversal: %w", err)
		}
		m.mu.Lock()
	}

	if m.inflight[intent.Symbol] {
		m.mu.Unlock()
		return ErrOrderInFlight
	}

	if ceil := m.cfg.RiskCeiling; ceil > 0 {
		sum := intent.RiskAmount
		for _, p := range m.positions {
			sum += p.RiskAmount
		}
		if sum > ceil+1e-9 {
			m.mu.Unlock()
			m.journal(journal.Entry{
				Kind: journal.KindReject, Symbol: intent.Symbol,
				Direction: intent.Direction.String(), Volume: intent.Volume,
				Reason: "risk ceiling",
			})
			return ErrRiskCeiling
		}
	}

	now := m.clk.Now()
	o := &Order{
		ID:        m.newID(),
		Symbol:    intent.Symbol,
		Direction: intent.Direction,
		Volume:    intent.Volume,
		Status:    StatusPending,
		Created:   now,
		Updated:   now,
	}
	if m.cfg.NativeStops {
		o.Stop = intent.Stop
		o.Target = intent.Target
	}
	m.orders[o.ID] = o
	m.inflight[intent.Symbol] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, intent.Symbol)
		m.mu.Unlock()
	}()

	// journaled before the network call: a crash here leaves a submit
	// entry with no fill, which reconciliation resolves against the venue
	m.journal(journal.Entry{
		ID: o.ID, Time: now, Kind: journal.KindSubmit, Symbol: o.Symbol,
		OrderID: o.ID, Direction: o.Direction.String(), Volume: o.Volume,
		Price: intent.Entry, Stop: intent.Stop, Target: intent.Target,
		Reason: intent.Reason,
	})

	m.mu.Lock()
	o.Status = StatusSubmitted
	o.Updated = now
	m.mu.Unlock()

	req := venue.Request{
		Symbol:  intent.Symbol,
		Volume:  intent.SignedVolume(),
		Price:   intent.Entry,
		Comment: intent.Reason,
	}
	if m.cfg.NativeStops {
		req.Stop = intent.Stop
		req.Target = intent.Target
	}

	res, err := m.submitWithRetry(ctx, intent, req, tick, info)
	if err != nil {
		m.finishFailed(o, intent, err)
		return err
	}

	m.openPosition(o, intent, info, res)
	return nil
}

// submitWithRetry sends the request, retrying transient venue errors with
// exponential backoff. Every attempt is re-validated against the current
// safeguards since market conditions may have changed since the last one.
func (m *Manager) submitWithRetry(ctx context.Context, intent risk.Intent, req venue.Request, tick market.Tick, info venue.SymbolInfo) (venue.Result, error) {
	var lastErr error
	for attempt := 0; attempt < m.cfg.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			m.sleep(m.cfg.Retry.Backoff(attempt - 1))
		}

		if m.chain != nil {
			sctx := safeguard.Context{
				Now:     m.clk.Now(),
				Tick:    tick,
				Info:    info,
				Account: m.Snapshot(),
				Intent:  intent,
			}
			if reason, veto := m.chain.Check(sctx); veto {
				return venue.Result{}, &VetoError{Reason: reason}
			}
		}

		res, err := m.submitOnce(ctx, req)
		if err == nil {
			return res, nil
		}
		if venue.IsUnknown(err) {
			// the venue may or may not have executed; ask it instead of
			// risking a duplicate submission
			if got, found := m.resolveUnknown(ctx, req); found {
				return got, nil
			}
			lastErr = err
			continue
		}
		if !venue.IsRetryable(err) {
			return venue.Result{}, err
		}
		m.log.Warn().
			Str("symbol", req.Symbol).
			Int("attempt", attempt+1).
			Str("code", string(venue.ErrCode(err))).
			Msg("transient venue error, retrying")
		lastErr = err
	}
	return venue.Result{}, fmt.Errorf("order: retry budget exhausted: %w", lastErr)
}

func (m *Manager) submitOnce(ctx context.Context, req venue.Request) (venue.Result, error) {
	callCtx := ctx
	var cancel context.CancelFunc
	if m.cfg.SubmitTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, m.cfg.SubmitTimeout)
		defer cancel()
	}
	res, err := m.venue.Submit(callCtx, req)
	if err != nil && callCtx.Err() != nil && ctx.Err() == nil {
		// our deadline fired, not the caller's: status unknown
		return venue.Result{}, venue.Transient(venue.CodeUnknown, "submit timed out")
	}
	return res, err
}

// resolveUnknown reconciles an unanswered submit against the venue's open
// orders: new exposure on the symbol that we are not tracking means the
// call executed.
func (m *Manager) resolveUnknown(ctx context.Context, req venue.Request) (venue.Result, bool) {
	open, err := m.venue.QueryOpen(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("reconciliation query after unknown submit failed")
		return venue.Result{}, false
	}

	m.mu.Lock()
	known := make(map[string]bool, len(m.positions))
	for _, p := range m.positions {
		known[p.Ticket] = true
	}
	m.mu.Unlock()

	for _, oo := range open {
		if oo.Symbol != req.Symbol || known[oo.Ticket] {
			continue
		}
		if sameVolume(oo.Volume, req.Volume) {
			m.log.Warn().
				Str("symbol", req.Symbol).
				Str("ticket", oo.Ticket).
				Msg("unanswered submit had executed at venue")
			vol := oo.Volume
			if vol < 0 {
				vol = -vol
			}
			return venue.Result{Ticket: oo.Ticket, FilledVolume: vol, AvgPrice: req.Price}, true
		}
	}
	return venue.Result{}, false
}

func sameVolume(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func (m *Manager) finishFailed(o *Order, intent risk.Intent, err error) {
	now := m.clk.Now()

	m.mu.Lock()
	var ve *VetoError
	if errors.As(err, &ve) {
		o.Status = StatusCancelled
	} else {
		o.Status = StatusRejected
	}
	o.Updated = now
	status := o.Status
	m.mu.Unlock()

	if status == StatusCancelled {
		m.journal(journal.Entry{
			Time: now, Kind: journal.KindCancel, Symbol: o.Symbol, OrderID: o.ID,
			Reason: string(ve.Reason),
		})
		return
	}
	m.journal(journal.Entry{
		Time: now, Kind: journal.KindReject, Symbol: o.Symbol, OrderID: o.ID,
		Reason: string(venue.ErrCode(err)),
	})
}

func (m *Manager) openPosition(o *Order, intent risk.Intent, info venue.SymbolInfo, res venue.Result) {
	now := m.clk.Now()

	m.mu.Lock()
	o.Status = StatusFilled
	o.Ticket = res.Ticket
	o.applyFill(res.FilledVolume, res.AvgPrice, now)

	margin := m.sizer.EstimateMargin(res.FilledVolume, res.AvgPrice, info)
	contract := info.ContractSize
	if contract <= 0 {
		contract = 1
	}

	pos := &Position{
		Symbol:     intent.Symbol,
		Direction:  intent.Direction,
		Volume:     res.FilledVolume,
		Entry:      res.AvgPrice,
		Stop:       intent.Stop,
		Target:     intent.Target,
		RiskAmount: intent.RiskAmount,
		Margin:     margin,
		Contract:   contract,
		OpenTime:   now,
		Ticket:     res.Ticket,
		OrderIDs:   []string{o.ID},
	}
	m.positions[intent.Symbol] = pos

	m.acct.TradesToday++
	m.acct.OpenPositions = len(m.positions)
	m.acct.MarginUsed += margin
	if res.Commission != 0 {
		m.acct.Apply(-res.Commission)
	}
	m.markLocked()
	m.mu.Unlock()

	m.journal(journal.Entry{
		Time: now, Kind: journal.KindFill, Symbol: pos.Symbol, OrderID: o.ID,
		Ticket: res.Ticket, Direction: pos.Direction.String(),
		Volume: res.FilledVolume, Price: res.AvgPrice,
		Stop: pos.Stop, Target: pos.Target, Reason: intent.Reason,
	})
	m.log.Info().
		Str("symbol", pos.Symbol).
		Str("direction", pos.Direction.String()).
		Float64("volume", pos.Volume).
		Float64("entry", pos.Entry).
		Str("ticket", pos.Ticket).
		Msg("position opened")
}

// ApplyFill processes an asynchronous fill notification for an order.
// Duplicate deliveries are ignored; the return value reports whether the
// notification advanced state.
func (m *Manager) ApplyFill(orderID string, filledVolume, price float64) bool {
	now := m.clk.Now()

	m.mu.Lock()
	o, ok := m.orders[orderID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	applied := o.applyFill(filledVolume, price, now)
	if applied {
		if pos, ok := m.positions[o.Symbol]; ok && pos.Ticket == o.Ticket && o.Status == StatusFilled {
			pos.Volume = filledVolume
			pos.Entry = price
		}
	}
	m.mu.Unlock()

	if applied {
		m.journal(journal.Entry{
			Time: now, Kind: journal.KindFill, Symbol: o.Symbol, OrderID: orderID,
			Ticket: o.Ticket, Volume: filledVolume, Price: price,
		})
	}
	return applied
}

// OnTick updates marks and enforces synthetic stop/target levels for the
// tick's symbol. When a level is crossed the position is closed through
// the venue; the close must fill before the position is marked closed.
func (m *Manager) OnTick(ctx context.Context, tick market.Tick) error {
	m.mu.Lock()
	m.ticks[tick.Symbol] = tick
	m.markLocked()

	pos, ok := m.positions[tick.Symbol]
	if !ok || m.closing[tick.Symbol] || m.cfg.NativeStops {
		m.mu.Unlock()
		return nil
	}
	reason, hit := pos.ExitReason(tick)
	m.mu.Unlock()

	if !hit {
		return nil
	}
	return m.Close(ctx, tick.Symbol, reason)
}

// Close flattens the open position on symbol by submitting an opposite
// side order against its ticket and waiting for the fill. On venue
// failure the position stays open; success is never assumed.
func (m *Manager) Close(ctx context.Context, symbol string, reason CloseReason) error {
	m.mu.Lock()
	pos, ok := m.positions[symbol]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	if m.closing[symbol] {
		m.mu.Unlock()
		return nil
	}
	m.closing[symbol] = true
	tick, haveTick := m.ticks[symbol]
	closeVol := pos.Volume
	if pos.Direction == strategy.Long {
		closeVol = -closeVol
	}
	ticket := pos.Ticket
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.closing, symbol)
		m.mu.Unlock()
	}()

	if !haveTick {
		return ErrNoQuote
	}

	now := m.clk.Now()
	o := &Order{
		ID:        m.newID(),
		Symbol:    symbol,
		Direction: pos.Direction.Opposite(),
		Volume:    pos.Volume,
		Status:    StatusPending,
		Created:   now,
		Updated:   now,
	}
	m.mu.Lock()
	m.orders[o.ID] = o
	m.mu.Unlock()

	m.journal(journal.Entry{
		ID: o.ID, Time: now, Kind: journal.KindSubmit, Symbol: symbol, OrderID: o.ID,
		Ticket: ticket, Direction: o.Direction.String(), Volume: o.Volume,
		Price: tick.Mid(), Reason: "close:" + string(reason),
	})

	m.mu.Lock()
	o.Status = StatusSubmitted
	o.Updated = now
	m.mu.Unlock()

	req := venue.Request{
		Symbol:      symbol,
		Volume:      closeVol,
		Price:       tick.Mid(),
		CloseTicket: ticket,
		Comment:     "close:" + string(reason),
	}

	// closes reduce risk: they bypass the safeguard chain but keep the
	// same bounded retry against transient venue errors
	res, err := m.closeWithRetry(ctx, req)
	if err != nil {
		m.mu.Lock()
		o.Status = StatusRejected
		o.Updated = m.clk.Now()
		m.mu.Unlock()
		m.journal(journal.Entry{
			Time: m.clk.Now(), Kind: journal.KindReject, Symbol: symbol, OrderID: o.ID,
			Ticket: ticket, Reason: string(venue.ErrCode(err)),
		})
		m.log.Error().Err(err).Str("symbol", symbol).Msg("close failed, position stays open")
		return err
	}

	m.settleClose(o, res, reason)
	return nil
}

func (m *Manager) closeWithRetry(ctx context.Context, req venue.Request) (venue.Result, error) {
	var lastErr error
	for attempt := 0; attempt < m.cfg.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			m.sleep(m.cfg.Retry.Backoff(attempt - 1))
		}
		res, err := m.submitOnce(ctx, req)
		if err == nil {
			return res, nil
		}
		if venue.IsUnknown(err) {
			if done, ok := m.resolveUnknownClose(ctx, req); ok {
				return done, nil
			}
			lastErr = err
			continue
		}
		if !venue.IsRetryable(err) {
			return venue.Result{}, err
		}
		lastErr = err
	}
	return venue.Result{}, fmt.Errorf("order: close retry budget exhausted: %w", lastErr)
}

// resolveUnknownClose checks whether an unanswered close executed: the
// ticket no longer appearing in the venue's open set means it did.
func (m *Manager) resolveUnknownClose(ctx context.Context, req venue.Request) (venue.Result, bool) {
	open, err := m.venue.QueryOpen(ctx)
	if err != nil {
		return venue.Result{}, false
	}
	for _, oo := range open {
		if oo.Ticket == req.CloseTicket {
			return venue.Result{}, false // still open, close did not execute
		}
	}
	vol := req.Volume
	if vol < 0 {
		vol = -vol
	}
	return venue.Result{Ticket: req.CloseTicket, FilledVolume: vol, AvgPrice: req.Price}, true
}

func (m *Manager) settleClose(o *Order, res venue.Result, reason CloseReason) {
	now := m.clk.Now()

	m.mu.Lock()
	pos, ok := m.positions[o.Symbol]
	if !ok {
		m.mu.Unlock()
		return
	}

	o.Status = StatusFilled
	o.Ticket = res.Ticket
	o.applyFill(res.FilledVolume, res.AvgPrice, now)

	exit := res.AvgPrice
	var pnl float64
	if pos.Direction == strategy.Long {
		pnl = (exit - pos.Entry) * pos.Volume * pos.Contract
	} else {
		pnl = (pos.Entry - exit) * pos.Volume * pos.Contract
	}
	pnl -= res.Commission

	delete(m.positions, o.Symbol)
	m.acct.Apply(pnl)
	m.acct.OpenPositions = len(m.positions)
	m.acct.MarginUsed -= pos.Margin
	if m.acct.MarginUsed < 0 {
		m.acct.MarginUsed = 0
	}
	m.markLocked()

	closed := ClosedTrade{
		Symbol:    pos.Symbol,
		Direction: pos.Direction,
		Volume:    pos.Volume,
		Entry:     pos.Entry,
		Exit:      exit,
		PnL:       pnl,
		Reason:    reason,
		Ticket:    pos.Ticket,
		OpenTime:  pos.OpenTime,
		CloseTime: now,
	}
	m.closed = append(m.closed, closed)
	m.mu.Unlock()

	m.journal(journal.Entry{
		Time: now, Kind: journal.KindClose, Symbol: closed.Symbol, OrderID: o.ID,
		Ticket: closed.Ticket, Direction: closed.Direction.String(),
		Volume: closed.Volume, Price: exit, PnL: pnl, Reason: string(reason),
	})
	m.log.Info().
		Str("symbol", closed.Symbol).
		Str("reason", string(reason)).
		Float64("pnl", pnl).
		Msg("position closed")
}

// CloseAll flattens every open position, symbols in sorted order so replay
// output is stable.
func (m *Manager) CloseAll(ctx context.Context, reason CloseReason) error {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.positions))
	for s := range m.positions {
		symbols = append(symbols, s)
	}
	m.mu.Unlock()
	sort.Strings(symbols)

	var firstErr error
	for _, s := range symbols {
		if err := m.Close(ctx, s, reason); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// markLocked recomputes equity and free margin from the latest ticks.
// Caller holds m.mu.
func (m *Manager) markLocked() {
	unreal := 0.0
	for _, p := range m.positions {
		if t, ok := m.ticks[p.Symbol]; ok {
			unreal += p.Unrealized(t)
		}
	}
	m.acct.Equity = m.acct.Balance + unreal
	m.acct.FreeMargin = m.acct.Equity - m.acct.MarginUsed
}

func (m *Manager) journal(e journal.Entry) {
	if m.jrnl == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = m.clk.Now()
	}
	if err := m.jrnl.Append(e); err != nil {
		m.log.Error().Err(err).Str("kind", string(e.Kind)).Msg("journal append failed")
		if m.cfg.HaltJournalFailure && m.chain != nil {
			m.chain.KillSwitch().Trip("journal failure")
		}
	}
}

// JournalVeto records a safeguard veto from the driver pipeline.
func (m *Manager) JournalVeto(intent risk.Intent, reason safeguard.Reason) {
	m.journal(journal.Entry{
		Kind: journal.KindVeto, Symbol: intent.Symbol,
		Direction: intent.Direction.String(), Volume: intent.Volume,
		Price: intent.Entry, Reason: string(reason),
	})
}

// JournalSignal records a generated signal.
func (m *Manager) JournalSignal(sig *strategy.Signal) {
	m.journal(journal.Entry{
		Time: sig.Time, Kind: journal.KindSignal, Symbol: sig.Symbol,
		Direction: sig.Direction.String(), Price: sig.Entry,
		Stop: sig.Stop, Target: sig.Target, Reason: sig.StrategyID,
	})
}

// JournalError records a component failure the driver survived.
func (m *Manager) JournalError(symbol string, err error) {
	m.journal(journal.Entry{
		Kind: journal.KindError, Symbol: symbol, Reason: err.Error(),
	})
}

// JournalReject records a sizing rejection.
func (m *Manager) JournalReject(sig *strategy.Signal, err error) {
	m.journal(journal.Entry{
		Kind: journal.KindReject, Symbol: sig.Symbol,
		Direction: sig.Direction.String(), Price: sig.Entry,
		Reason: err.Error(),
	})
}
