package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionContains(t *testing.T) {
	t.Parallel()

	sess, err := NewSession("UTC", []WindowSpec{
		{Name: "london", Start: "08:00", End: "17:00"},
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		at   string
		want bool
	}{
		{"inside", "2024-03-05T10:30:00Z", true},
		{"start edge", "2024-03-05T08:00:00Z", true},
		{"end edge", "2024-03-05T17:00:00Z", true},
		{"before open", "2024-03-05T07:59:00Z", false},
		{"after close", "2024-03-05T17:01:00Z", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			at, err := time.Parse(time.RFC3339, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sess.Contains(at))
		})
	}
}

func TestSessionWrapsMidnight(t *testing.T) {
	t.Parallel()

	sess, err := NewSession("UTC", []WindowSpec{
		{Name: "overnight", Start: "22:00", End: "02:00"},
	})
	require.NoError(t, err)

	late, _ := time.Parse(time.RFC3339, "2024-03-05T23:15:00Z")
	early, _ := time.Parse(time.RFC3339, "2024-03-06T01:45:00Z")
	midday, _ := time.Parse(time.RFC3339, "2024-03-05T12:00:00Z")

	assert.True(t, sess.Contains(late))
	assert.True(t, sess.Contains(early))
	assert.False(t, sess.Contains(midday))
}

func TestSessionEmptyAlwaysOpen(t *testing.T) {
	t.Parallel()

	sess, err := NewSession("", nil)
	require.NoError(t, err)
	assert.True(t, sess.Contains(time.Now()))
}

func TestSessionBadSpec(t *testing.T) {
	t.Parallel()

	_, err := NewSession("UTC", []WindowSpec{{Start: "25:00", End: "10:00"}})
	assert.Error(t, err)

	_, err = NewSession("Not/AZone", nil)
	assert.Error(t, err)
}

func TestWindowOrdering(t *testing.T) {
	t.Parallel()

	w := NewWindow(3)
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ok := w.Push(Bar{Symbol: "EURUSD", Time: base.Add(time.Duration(i) * time.Minute)})
		assert.True(t, ok)
	}
	assert.Equal(t, 3, w.Len())

	// stale bar must be rejected
	assert.False(t, w.Push(Bar{Symbol: "EURUSD", Time: base}))
	// duplicate timestamp must be rejected
	last := w.Bars()[w.Len()-1].Time
	assert.False(t, w.Push(Bar{Symbol: "EURUSD", Time: last}))
}

func TestTickSpreadPoints(t *testing.T) {
	t.Parallel()

	tick := Tick{Bid: 1.10500, Ask: 1.10520}
	assert.InDelta(t, 20.0, tick.SpreadPoints(0.00001), 1e-9)
	assert.InDelta(t, 1.10510, tick.Mid(), 1e-9)
}
