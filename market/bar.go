package market

import "time"

// Timeframe is the bar duration in seconds (M1=60, H1=3600, ...).
type Timeframe int32

const (
	M1  Timeframe = 60
	M5  Timeframe = 300
	M15 Timeframe = 900
	M30 Timeframe = 1800
	H1  Timeframe = 3600
	H4  Timeframe = 14400
	D1  Timeframe = 86400
)

// ParseTimeframe maps the usual broker spellings ("M5", "H1", ...) to a
// Timeframe.
func ParseTimeframe(s string) (Timeframe, bool) {
	switch s {
	case "M1":
		return M1, true
	case "M5":
		return M5, true
	case "M15":
		return M15, true
	case "M30":
		return M30, true
	case "H1":
		return H1, true
	case "H4":
		return H4, true
	case "D1":
		return D1, true
	}
	return 0, false
}

func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf) * time.Second
}

// Bar is a single closed OHLCV bar. Bars are immutable once emitted and
// arrive in strictly increasing Time order per symbol. A forming bar is
// never represented as a Bar.
type Bar struct {
	Symbol    string
	Timeframe Timeframe
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Time      time.Time // close time, UTC
}

// Window is a fixed-capacity sliding window of recent bars for one symbol.
// Push drops the oldest bar once the capacity is reached and ignores bars
// that do not advance the timestamp, so the window stays strictly ordered.
type Window struct {
	bars []Bar
	cap  int
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{cap: capacity}
}

func (w *Window) Push(b Bar) bool {
	if n := len(w.bars); n > 0 && !b.Time.After(w.bars[n-1].Time) {
		return false
	}
	w.bars = append(w.bars, b)
	if len(w.bars) > w.cap {
		w.bars = w.bars[1:]
	}
	return true
}

func (w *Window) Len() int { return len(w.bars) }

// Bars returns the window contents, oldest first. The slice is shared;
// callers must not mutate it.
func (w *Window) Bars() []Bar { return w.bars }
