// Package order owns the order lifecycle state machine, the open position
// set, and the account state. Everything mutable lives behind one mutex;
// the risk sizer and safeguard chain only ever see value snapshots.
package order

import (
	"errors"
	"time"

	"github.com/rustyeddy/tradecore/market"
	"github.com/rustyeddy/tradecore/strategy"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusSubmitted Status = "Submitted"
	StatusFilled    Status = "Filled"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

var (
	// ErrNotReconciled: Submit called before startup reconciliation
	// finished. New signals are refused until local state matches the
	// venue.
	ErrNotReconciled = errors.New("order: venue not reconciled")

	// ErrOrderInFlight: a submission for this symbol is still pending at
	// the venue. Per-symbol submissions are strictly serialized.
	ErrOrderInFlight = errors.New("order: submission already in flight for symbol")

	// ErrRiskCeiling: accepting the intent would push summed open risk
	// over the configured ceiling.
	ErrRiskCeiling = errors.New("order: open risk ceiling reached")

	// ErrNoQuote: no tick has been seen for the symbol yet.
	ErrNoQuote = errors.New("order: no quote for symbol")
)

// Order is one submission to the venue. The venue ticket is the only
// externally correlatable identifier.
type Order struct {
	ID           string
	Symbol       string
	Direction    strategy.Direction
	Volume       float64 // requested, positive
	FilledVolume float64 // cumulative, positive
	AvgPrice     float64
	Stop         float64
	Target       float64
	Status       Status
	Ticket       string
	Created      time.Time
	Updated      time.Time
}

// applyFill records a fill notification. Fill volume is cumulative, so a
// duplicate delivery (same or lower volume) is ignored; applying the same
// notification twice yields the same state as applying it once.
func (o *Order) applyFill(volume, price float64, now time.Time) bool {
	if volume <= o.FilledVolume+1e-12 {
		return false
	}
	o.FilledVolume = volume
	o.AvgPrice = price
	o.Updated = now
	return true
}

// CloseReason is why a position left the book.
type CloseReason string

const (
	CloseManual      CloseReason = "Closed"
	CloseStopped     CloseReason = "StoppedOut"
	CloseTarget      CloseReason = "TargetHit"
	CloseReversal    CloseReason = "Reversal"
	CloseEndOfReplay CloseReason = "EndOfReplay"
	CloseVenue       CloseReason = "VenueClosed"
)

// Position is the open exposure for one symbol. The invariant is at most
// one open position per symbol.
type Position struct {
	Symbol     string
	Direction  strategy.Direction
	Volume     float64
	Entry      float64
	Stop       float64
	Target     float64
	RiskAmount float64
	Margin     float64 // locked at open, released at close
	Contract   float64 // venue contract size captured at open
	OpenTime   time.Time
	Ticket     string
	OrderIDs   []string
}

// StopHit checks the protective stop against the closing side of the
// book: longs exit on bid, shorts on ask.
func (p *Position) StopHit(t market.Tick) bool {
	if p.Stop <= 0 {
		return false
	}
	if p.Direction == strategy.Long {
		return t.Bid <= p.Stop
	}
	return t.Ask >= p.Stop
}

func (p *Position) TargetHit(t market.Tick) bool {
	if p.Target <= 0 {
		return false
	}
	if p.Direction == strategy.Long {
		return t.Bid >= p.Target
	}
	return t.Ask <= p.Target
}

// ExitReason resolves which synthetic level a tick triggered. When both
// levels are inside the same tick the stop wins, assuming the worst case
// for the trader.
func (p *Position) ExitReason(t market.Tick) (CloseReason, bool) {
	if p.StopHit(t) {
		return CloseStopped, true
	}
	if p.TargetHit(t) {
		return CloseTarget, true
	}
	return "", false
}

// Unrealized marks the position against the closing side of the book.
func (p *Position) Unrealized(t market.Tick) float64 {
	contract := p.Contract
	if contract <= 0 {
		contract = 1
	}
	if p.Direction == strategy.Long {
		return (t.Bid - p.Entry) * p.Volume * contract
	}
	return (p.Entry - t.Ask) * p.Volume * contract
}

// ClosedTrade is the realized outcome of a position, net of commission.
type ClosedTrade struct {
	Symbol    string
	Direction strategy.Direction
	Volume    float64
	Entry     float64
	Exit      float64
	PnL       float64
	Reason    CloseReason
	Ticket    string
	OpenTime  time.Time
	CloseTime time.Time
}
