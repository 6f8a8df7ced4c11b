package safeguard

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// KillSwitch halts new submissions when a sentinel file exists, or when
// the system trips it internally (venue connection lost, unresolved
// reconciliation). Active is re-evaluated on every call; the sentinel
// check is safety-critical and never cached.
type KillSwitch struct {
	path    string
	tripped atomic.Bool
	reason  atomic.Value // string
	log     zerolog.Logger
}

func NewKillSwitch(path string, log zerolog.Logger) *KillSwitch {
	k := &KillSwitch{path: path, log: log.With().Str("component", "killswitch").Logger()}
	k.reason.Store("")
	return k
}

// Active reports whether new submissions are halted.
func (k *KillSwitch) Active() bool {
	if k.tripped.Load() {
		return true
	}
	if k.path == "" {
		return false
	}
	_, err := os.Stat(k.path)
	return err == nil
}

// Trip halts submissions from inside the process. The sentinel file is
// untouched, so an operator can distinguish the two.
func (k *KillSwitch) Trip(reason string) {
	if k.tripped.CompareAndSwap(false, true) {
		k.reason.Store(reason)
		k.log.Warn().Str("reason", reason).Msg("kill switch tripped")
	}
}

// Reset clears an internal trip. A sentinel file still halts.
func (k *KillSwitch) Reset() {
	if k.tripped.CompareAndSwap(true, false) {
		k.reason.Store("")
		k.log.Info().Msg("kill switch reset")
	}
}

// TripReason returns the internal trip reason, empty when not tripped.
func (k *KillSwitch) TripReason() string {
	v, _ := k.reason.Load().(string)
	return v
}

// Watch logs sentinel file flips as they happen so an operator toggling
// the switch gets immediate confirmation. Gating does not depend on the
// watcher; Active stats the file directly. Blocks until ctx is done.
func (k *KillSwitch) Watch(ctx context.Context) error {
	if k.path == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// watch the parent: the sentinel itself usually doesn't exist yet
	if err := w.Add(filepath.Dir(k.path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != k.path {
				continue
			}
			switch {
			case ev.Op.Has(fsnotify.Create):
				k.log.Warn().Str("path", k.path).Msg("kill switch engaged")
			case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
				k.log.Info().Str("path", k.path).Msg("kill switch released")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			k.log.Error().Err(err).Msg("kill switch watcher")
		}
	}
}
