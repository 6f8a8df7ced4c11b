package oanda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradecore/market"
	"github.com/rustyeddy/tradecore/venue"
)

func testClient(serverURL string) *Client {
	return &Client{
		baseURL:    serverURL,
		token:      "test-token",
		accountID:  "001-001-1234567-001",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		log:        zerolog.Nop(),
	}
}

func TestNewClient(t *testing.T) {
	t.Run("practice mode", func(t *testing.T) {
		client := NewClient("test-token", "acct", true, zerolog.Nop())
		assert.Equal(t, PracticeURL, client.baseURL)
		assert.Equal(t, "test-token", client.token)
		assert.NotNil(t, client.httpClient)
	})

	t.Run("live mode", func(t *testing.T) {
		client := NewClient("test-token", "acct", false, zerolog.Nop())
		assert.Equal(t, LiveURL, client.baseURL)
	})
}

func TestHistorySkipsFormingCandle(t *testing.T) {
	mockResponse := candlesResponse{
		Instrument: "EUR_USD",
		Candles: []apiCandle{
			{
				Complete: true, Volume: 100, Time: "2024-01-01T10:00:00.000000000Z",
				Mid: candleData{O: "1.0850", H: "1.0860", L: "1.0840", C: "1.0855"},
			},
			{
				Complete: true, Volume: 150, Time: "2024-01-01T10:05:00.000000000Z",
				Mid: candleData{O: "1.0855", H: "1.0870", L: "1.0850", C: "1.0865"},
			},
			{
				Complete: false, Volume: 20, Time: "2024-01-01T10:10:00.000000000Z",
				Mid: candleData{O: "1.0865", H: "1.0866", L: "1.0864", C: "1.0865"},
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "M", r.URL.Query().Get("price"))
		assert.Equal(t, "M5", r.URL.Query().Get("granularity"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(mockResponse)
	}))
	defer server.Close()

	bars, err := testClient(server.URL).History(context.Background(), "EUR_USD", market.M5, 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, 1.0850, bars[0].Open)
	assert.Equal(t, 1.0860, bars[0].High)
	assert.Equal(t, 1.0840, bars[0].Low)
	assert.Equal(t, 1.0855, bars[0].Close)
	assert.Equal(t, 100.0, bars[0].Volume)
	// bar time is the close time, candle time is the open
	assert.Equal(t, time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, 1.0865, bars[1].Close)
}

func TestTick(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EUR_USD", r.URL.Query().Get("instruments"))
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(pricingResponse{Prices: []apiPrice{{
			Instrument: "EUR_USD",
			Time:       "2024-01-01T10:00:00.000000000Z",
			Bids:       []priceBucket{{Price: "1.0849"}},
			Asks:       []priceBucket{{Price: "1.0851"}},
			Tradeable:  true,
		}}})
	}))
	defer server.Close()

	tick, err := testClient(server.URL).Tick(context.Background(), "EUR_USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0849, tick.Bid)
	assert.Equal(t, 1.0851, tick.Ask)
	assert.Equal(t, "EUR_USD", tick.Symbol)
}

func TestSubmitFill(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body orderRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "MARKET", body.Order.Type)
		assert.Equal(t, "EUR_USD", body.Order.Instrument)
		assert.Equal(t, "10000", body.Order.Units)
		require.NotNil(t, body.Order.StopLoss)
		assert.Equal(t, "1.08300", body.Order.StopLoss.Price)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(orderResponse{FillTransaction: &fillTransaction{
			ID:         "6789",
			Price:      "1.08510",
			Units:      "10000",
			Commission: "0.35",
			TradeOpened: &struct {
				TradeID string `json:"tradeID"`
				Units   string `json:"units"`
			}{TradeID: "6790", Units: "10000"},
		}})
	}))
	defer server.Close()

	res, err := testClient(server.URL).Submit(context.Background(), venue.Request{
		Symbol: "EUR_USD",
		Volume: 10000,
		Price:  1.0851,
		Stop:   1.0830,
	})
	require.NoError(t, err)
	assert.Equal(t, "6790", res.Ticket)
	assert.Equal(t, 10000.0, res.FilledVolume)
	assert.Equal(t, 1.0851, res.AvgPrice)
	assert.Equal(t, 0.35, res.Commission)
}

func TestSubmitRejectMapsToVenueCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(orderResponse{CancelTransaction: &struct {
			Reason string `json:"reason"`
		}{Reason: "INSUFFICIENT_MARGIN"}})
	}))
	defer server.Close()

	_, err := testClient(server.URL).Submit(context.Background(), venue.Request{
		Symbol: "EUR_USD",
		Volume: 10000,
	})
	require.Error(t, err)
	assert.Equal(t, venue.CodeNoMoney, venue.ErrCode(err))
	assert.False(t, venue.IsRetryable(err))
}

func TestSubmitServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Submit(context.Background(), venue.Request{
		Symbol: "EUR_USD",
		Volume: 10000,
	})
	require.Error(t, err)
	assert.True(t, venue.IsRetryable(err))
	assert.Equal(t, venue.CodeBusy, venue.ErrCode(err))
}

func TestQueryOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openTradesResponse{Trades: []apiTrade{{
			ID:           "6790",
			Instrument:   "EUR_USD",
			CurrentUnits: "-5000",
			Price:        "1.0851",
			StopLossOrder: &struct {
				Price string `json:"price"`
			}{Price: "1.0900"},
		}}})
	}))
	defer server.Close()

	open, err := testClient(server.URL).QueryOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "6790", open[0].Ticket)
	assert.Equal(t, "EUR_USD", open[0].Symbol)
	assert.Equal(t, -5000.0, open[0].Volume)
	assert.Equal(t, 1.0900, open[0].Stop)
}

func TestSymbolInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v3/accounts/001-001-1234567-001/instruments":
			json.NewEncoder(w).Encode(instrumentsResponse{Instruments: []apiInstrument{{
				Name:                "EUR_USD",
				DisplayPrecision:    5,
				TradeUnitsPrecision: 0,
				MinimumTradeSize:    "1",
				MaximumOrderUnits:   "100000000",
			}}})
		default:
			json.NewEncoder(w).Encode(pricingResponse{Prices: []apiPrice{{
				Instrument: "EUR_USD",
				Bids:       []priceBucket{{Price: "1.0849"}},
				Asks:       []priceBucket{{Price: "1.0851"}},
				Tradeable:  true,
			}}})
		}
	}))
	defer server.Close()

	info, err := testClient(server.URL).SymbolInfo(context.Background(), "EUR_USD")
	require.NoError(t, err)
	assert.Equal(t, "EUR_USD", info.Symbol)
	assert.InDelta(t, 0.00001, info.Point, 1e-12)
	assert.Equal(t, 1.0, info.MinVolume)
	assert.Equal(t, 1e8, info.MaxVolume)
	assert.Equal(t, 1.0, info.VolumeStep)
	assert.True(t, info.Tradable)
}

func TestCloseTradeUsesTicketEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v3/accounts/001-001-1234567-001/trades/6790/close", r.URL.Path)
		json.NewEncoder(w).Encode(orderResponse{FillTransaction: &fillTransaction{
			ID:    "7001",
			Price: "1.08300",
			Units: "-10000",
		}})
	}))
	defer server.Close()

	res, err := testClient(server.URL).Submit(context.Background(), venue.Request{
		Symbol:      "EUR_USD",
		Volume:      -10000,
		CloseTicket: "6790",
	})
	require.NoError(t, err)
	assert.Equal(t, "6790", res.Ticket)
	assert.Equal(t, 10000.0, res.FilledVolume)
	assert.Equal(t, 1.0830, res.AvgPrice)
}
