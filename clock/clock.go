// Package clock abstracts the time source so session checks and journal
// timestamps are identical whether the system runs live or in replay.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// Wall is the live clock. All timestamps are UTC.
type Wall struct{}

func (Wall) Now() time.Time { return time.Now().UTC() }

// Replay is a manually advanced clock driven by the backtest replayer.
type Replay struct {
	mu sync.Mutex
	t  time.Time
}

func NewReplay(start time.Time) *Replay {
	return &Replay{t: start.UTC()}
}

func (r *Replay) Now() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t
}

// Set advances the replay clock. Going backwards is allowed but bar feeds
// are expected to be strictly increasing per symbol.
func (r *Replay) Set(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t = t.UTC()
}
