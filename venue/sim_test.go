package venue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradecore/market"
)

func eurusd() SymbolInfo {
	return SymbolInfo{
		Symbol:       "EURUSD",
		Point:        0.00001,
		ContractSize: 100000,
		MinVolume:    0.01,
		MaxVolume:    100,
		VolumeStep:   0.01,
		StopsLevel:   10,
		Tradable:     true,
	}
}

func TestSimFillSides(t *testing.T) {
	t.Parallel()

	s := NewSim(Costs{SlippagePoints: 2})
	s.AddSymbol(eurusd())
	s.SetTick(market.Tick{Symbol: "EURUSD", Bid: 1.10500, Ask: 1.10520, Time: time.Now()})

	buy, err := s.Submit(context.Background(), Request{Symbol: "EURUSD", Volume: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.10522, buy.AvgPrice, 1e-9) // ask + 2pt slippage
	assert.Equal(t, "SIM-000001", buy.Ticket)

	sell, err := s.Submit(context.Background(), Request{Symbol: "EURUSD", Volume: -1})
	require.NoError(t, err)
	assert.InDelta(t, 1.10498, sell.AvgPrice, 1e-9) // bid - 2pt slippage

	open, err := s.QueryOpen(context.Background())
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestSimCloseTicket(t *testing.T) {
	t.Parallel()

	s := NewSim(Costs{CommissionPerLot: 7})
	s.AddSymbol(eurusd())
	s.SetTick(market.Tick{Symbol: "EURUSD", Bid: 1.10500, Ask: 1.10520, Time: time.Now()})

	fill, err := s.Submit(context.Background(), Request{Symbol: "EURUSD", Volume: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, fill.Commission, 1e-9)

	res, err := s.Submit(context.Background(), Request{
		Symbol:      "EURUSD",
		Volume:      -0.5,
		CloseTicket: fill.Ticket,
	})
	require.NoError(t, err)
	assert.Equal(t, fill.Ticket, res.Ticket)
	assert.InDelta(t, 1.10500, res.AvgPrice, 1e-9)

	open, err := s.QueryOpen(context.Background())
	require.NoError(t, err)
	assert.Empty(t, open)

	// closing twice must fail
	_, err = s.Submit(context.Background(), Request{Symbol: "EURUSD", Volume: -0.5, CloseTicket: fill.Ticket})
	assert.Error(t, err)
}

func TestSimQueuedErrors(t *testing.T) {
	t.Parallel()

	s := NewSim(Costs{})
	s.AddSymbol(eurusd())
	s.SetTick(market.Tick{Symbol: "EURUSD", Bid: 1.1, Ask: 1.1001, Time: time.Now()})

	s.QueueError(Transient(CodeRequote, "price moved"))

	_, err := s.Submit(context.Background(), Request{Symbol: "EURUSD", Volume: 1})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, CodeRequote, ErrCode(err))

	_, err = s.Submit(context.Background(), Request{Symbol: "EURUSD", Volume: 1})
	assert.NoError(t, err)
}

func TestSimNotTradable(t *testing.T) {
	t.Parallel()

	info := eurusd()
	info.Tradable = false

	s := NewSim(Costs{})
	s.AddSymbol(info)
	s.SetTick(market.Tick{Symbol: "EURUSD", Bid: 1.1, Ask: 1.1001, Time: time.Now()})

	_, err := s.Submit(context.Background(), Request{Symbol: "EURUSD", Volume: 1})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, CodeTradeDisabled, ErrCode(err))
}

func TestCostsTickFor(t *testing.T) {
	t.Parallel()

	c := Costs{SpreadPoints: 20}
	bar := market.Bar{Symbol: "EURUSD", Close: 1.10510, Time: time.Now()}
	tick := c.TickFor(bar, 0.00001)

	assert.InDelta(t, 1.10500, tick.Bid, 1e-9)
	assert.InDelta(t, 1.10520, tick.Ask, 1e-9)
	assert.Equal(t, bar.Time, tick.Time)
}

func TestClampVolume(t *testing.T) {
	t.Parallel()

	info := eurusd()

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"exact step", 0.50, 0.50},
		{"rounds down", 0.519, 0.51},
		{"never up", 0.999, 0.99},
		{"below min", 0.004, 0},
		{"above max", 250, 100},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, ClampVolume(tt.in, info), 1e-9)
		})
	}
}

func TestRetryBackoff(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
	assert.Equal(t, 10*time.Second, p.Backoff(4)) // capped
	assert.Equal(t, 10*time.Second, p.Backoff(40))
	assert.Equal(t, time.Second, p.Backoff(-1))
}
