package order

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tradecore/journal"
	"github.com/rustyeddy/tradecore/strategy"
)

// Reconcile aligns local state with the venue's open orders and arms the
// manager. Until it has run once, Submit refuses new intents. The venue
// is the ground truth: untracked venue exposure is adopted, local
// positions the venue does not know about are dropped.
func (m *Manager) Reconcile(ctx context.Context) error {
	open, err := m.venue.QueryOpen(ctx)
	if err != nil {
		if m.chain != nil {
			m.chain.KillSwitch().Trip("reconciliation failed")
		}
		return fmt.Errorf("order: reconcile: %w", err)
	}
	now := m.clk.Now()

	m.mu.Lock()
	byTicket := make(map[string]*Position, len(m.positions))
	for _, p := range m.positions {
		byTicket[p.Ticket] = p
	}

	var adopted []Position
	venueTickets := make(map[string]bool, len(open))
	for _, oo := range open {
		venueTickets[oo.Ticket] = true
		if _, known := byTicket[oo.Ticket]; known {
			continue
		}
		dir := strategy.Long
		vol := oo.Volume
		if vol < 0 {
			dir = strategy.Short
			vol = -vol
		}
		pos := Position{
			Symbol:    oo.Symbol,
			Direction: dir,
			Volume:    vol,
			Stop:      oo.Stop,
			Target:    oo.Target,
			Contract:  1,
			OpenTime:  now,
			Ticket:    oo.Ticket,
		}
		m.positions[oo.Symbol] = &pos
		adopted = append(adopted, pos)
	}

	var dropped []Position
	for sym, p := range m.positions {
		if !venueTickets[p.Ticket] {
			dropped = append(dropped, *p)
			delete(m.positions, sym)
		}
	}

	m.acct.OpenPositions = len(m.positions)
	m.ready = true
	m.mu.Unlock()

	for _, p := range adopted {
		// entry price and risk metadata are gone; the position is managed
		// from here but flagged loudly
		m.log.Error().
			Str("symbol", p.Symbol).
			Str("ticket", p.Ticket).
			Float64("volume", p.Volume).
			Msg("adopted untracked venue position")
		m.journal(journal.Entry{
			Time: now, Kind: journal.KindReconcile, Symbol: p.Symbol,
			Ticket: p.Ticket, Direction: p.Direction.String(), Volume: p.Volume,
			Stop: p.Stop, Target: p.Target, Reason: "adopted from venue",
		})
	}
	for _, p := range dropped {
		m.log.Warn().
			Str("symbol", p.Symbol).
			Str("ticket", p.Ticket).
			Msg("local position absent at venue, dropped")
		m.journal(journal.Entry{
			Time: now, Kind: journal.KindReconcile, Symbol: p.Symbol,
			Ticket: p.Ticket, Reason: "absent at venue",
		})
	}

	m.log.Info().
		Int("venue_open", len(open)).
		Int("adopted", len(adopted)).
		Int("dropped", len(dropped)).
		Msg("venue reconciled")
	return nil
}

// Ready reports whether startup reconciliation has completed.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// SyncVenue is the periodic live-mode check against the venue. A failed
// query trips the kill switch so no new risk is taken while the
// connection is down; the first successful query after a connection trip
// releases it. Positions the venue closed on its side, native stops for
// example, are realized locally at the level that was hit.
func (m *Manager) SyncVenue(ctx context.Context) error {
	open, err := m.venue.QueryOpen(ctx)
	if err != nil {
		if m.chain != nil && !m.chain.KillSwitch().Active() {
			m.chain.KillSwitch().Trip("venue connection lost")
		}
		return fmt.Errorf("order: venue sync: %w", err)
	}
	if m.chain != nil && m.chain.KillSwitch().TripReason() == "venue connection lost" {
		m.chain.KillSwitch().Reset()
		m.log.Info().Msg("venue connection restored")
	}

	venueTickets := make(map[string]bool, len(open))
	for _, oo := range open {
		venueTickets[oo.Ticket] = true
	}

	now := m.clk.Now()

	m.mu.Lock()
	var settled []ClosedTrade
	for sym, pos := range m.positions {
		if venueTickets[pos.Ticket] || m.closing[sym] {
			continue
		}

		// closed venue-side; infer which level was hit from the last tick
		exit := pos.Entry
		reason := CloseVenue
		if t, ok := m.ticks[sym]; ok {
			if r, hit := pos.ExitReason(t); hit {
				if r == CloseStopped {
					exit = pos.Stop
					reason = CloseStopped
				} else {
					exit = pos.Target
					reason = CloseTarget
				}
			} else {
				exit = t.Mid()
			}
		}

		var pnl float64
		if pos.Direction == strategy.Long {
			pnl = (exit - pos.Entry) * pos.Volume * pos.Contract
		} else {
			pnl = (pos.Entry - exit) * pos.Volume * pos.Contract
		}

		delete(m.positions, sym)
		m.acct.Apply(pnl)
		m.acct.OpenPositions = len(m.positions)
		m.acct.MarginUsed -= pos.Margin
		if m.acct.MarginUsed < 0 {
			m.acct.MarginUsed = 0
		}
		ct := ClosedTrade{
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
		m.closed = append(m.closed, ct)
		settled = append(settled, ct)
	}
	m.markLocked()
	m.mu.Unlock()

	for _, ct := range settled {
		m.journal(journal.Entry{
			Time: now, Kind: journal.KindClose, Symbol: ct.Symbol,
			Ticket: ct.Ticket, Direction: ct.Direction.String(),
			Volume: ct.Volume, Price: ct.Exit, PnL: ct.PnL, Reason: string(ct.Reason),
		})
		m.log.Warn().
			Str("symbol", ct.Symbol).
			Str("reason", string(ct.Reason)).
			Float64("pnl", ct.PnL).
			Msg("position closed venue-side")
	}
	return nil
}
