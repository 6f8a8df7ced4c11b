package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WindowSpec is the config-level form of a trading window, with times as
// "HH:MM" strings in the session timezone.
type WindowSpec struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type sessionWindow struct {
	name  string
	start int // minutes of day
	end   int
}

// Session answers "may we trade at time t?" for a set of daily windows in a
// single timezone. Windows crossing midnight (start > end) wrap around.
type Session struct {
	loc     *time.Location
	windows []sessionWindow
}

// NewSession parses the window specs. An empty window list means the
// session is always open.
func NewSession(timezone string, specs []WindowSpec) (*Session, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("session: load timezone %q: %w", timezone, err)
	}

	s := &Session{loc: loc}
	for _, spec := range specs {
		start, err := parseMinutes(spec.Start)
		if err != nil {
			return nil, fmt.Errorf("session %q: %w", spec.Name, err)
		}
		end, err := parseMinutes(spec.End)
		if err != nil {
			return nil, fmt.Errorf("session %q: %w", spec.Name, err)
		}
		name := spec.Name
		if name == "" {
			name = "session"
		}
		s.windows = append(s.windows, sessionWindow{name: name, start: start, end: end})
	}
	return s, nil
}

// Contains reports whether t falls inside any window.
func (s *Session) Contains(t time.Time) bool {
	if len(s.windows) == 0 {
		return true
	}
	local := t.In(s.loc)
	cur := local.Hour()*60 + local.Minute()
	for _, w := range s.windows {
		if w.start <= w.end {
			if cur >= w.start && cur <= w.end {
				return true
			}
		} else {
			// wraps midnight
			if cur >= w.start || cur <= w.end {
				return true
			}
		}
	}
	return false
}

// Day returns the trading-day key (YYYY-MM-DD in the session timezone)
// used for daily limit resets.
func (s *Session) Day(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02")
}

func parseMinutes(v string) (int, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad time %q, want HH:MM", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", v)
	}
	return h*60 + m, nil
}
