// Package journal is the append-only audit trail: one entry per state
// transition. It is the system of record for reconciling local state after
// a restart. A journal failure degrades observability but never blocks a
// trading decision.
package journal

import (
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindSignal    Kind = "signal"
	KindVeto      Kind = "veto"
	KindSubmit    Kind = "submit"
	KindFill      Kind = "fill"
	KindReject    Kind = "reject"
	KindCancel    Kind = "cancel"
	KindClose     Kind = "close"
	KindReconcile Kind = "reconcile"
	KindError     Kind = "error"
)

// Entry is one audit row. Fields not meaningful for a given kind stay
// zero. Entries are never mutated or deleted.
type Entry struct {
	ID        string
	Time      time.Time
	Kind      Kind
	Symbol    string
	OrderID   string
	Ticket    string
	Direction string
	Volume    float64
	Price     float64
	Stop      float64
	Target    float64
	PnL       float64
	Reason    string
}

type Journal interface {
	Append(Entry) error
	Close() error
}

// Encode renders an entry as a single stable line. Used by the in-memory
// journal to prove replay determinism: formatting must not depend on
// locale, map order, or float printing quirks.
func (e Entry) Encode() string {
	var b strings.Builder
	b.WriteString(e.Time.UTC().Format(time.RFC3339Nano))
	for _, s := range []string{
		string(e.Kind), e.ID, e.Symbol, e.OrderID, e.Ticket, e.Direction,
		f(e.Volume), f(e.Price), f(e.Stop), f(e.Target), f(e.PnL), e.Reason,
	} {
		b.WriteByte('|')
		b.WriteString(s)
	}
	return b.String()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
