// Package account holds the account snapshot shared by the risk sizer and
// the safeguard chain. The mutable copy lives inside the order manager and
// is only ever touched under its lock; everyone else receives a value copy.
package account

import "time"

type State struct {
	Currency      string
	Balance       float64
	Equity        float64
	MarginUsed    float64
	FreeMargin    float64
	RealizedToday float64 // realized P/L since the trading-day boundary
	TradesToday   int     // positions opened since the boundary
	OpenPositions int
	Day           string // trading-day key, YYYY-MM-DD
}

// Rollover resets the daily counters when now crosses into a new trading
// day. day is the session-local day key for now. Reports whether a reset
// happened.
func (s *State) Rollover(day string) bool {
	if day == s.Day {
		return false
	}
	s.Day = day
	s.RealizedToday = 0
	s.TradesToday = 0
	return true
}

// Apply settles a realized P/L (commission already deducted) into the
// balance and daily tally.
func (s *State) Apply(pnl float64) {
	s.Balance += pnl
	s.RealizedToday += pnl
}

// UTCDay is the fallback day key when no session timezone is configured.
func UTCDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
