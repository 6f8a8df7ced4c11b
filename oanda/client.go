// Package oanda is the live venue connector. It implements the bar and
// tick feeds plus the venue adapter against OANDA's v3 REST API, so the
// engine above it never sees an HTTP detail.
package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradecore/market"
)

const (
	// PracticeURL is OANDA's practice/demo environment
	PracticeURL = "https://api-fxpractice.oanda.com"
	// LiveURL is OANDA's live trading environment
	LiveURL = "https://api-fxtrade.oanda.com"
)

// granularity maps a timeframe to OANDA's candle granularity spelling.
func granularity(tf market.Timeframe) string {
	switch tf {
	case market.M1:
		return "M1"
	case market.M5:
		return "M5"
	case market.M15:
		return "M15"
	case market.M30:
		return "M30"
	case market.H1:
		return "H1"
	case market.H4:
		return "H4"
	case market.D1:
		return "D"
	}
	return "M5"
}

// Client talks to the OANDA v3 REST API. Instruments use OANDA naming
// ("EUR_USD").
type Client struct {
	baseURL    string
	token      string
	accountID  string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(token, accountID string, practice bool, log zerolog.Logger) *Client {
	baseURL := LiveURL
	if practice {
		baseURL = PracticeURL
	}
	return &Client{
		baseURL:   baseURL,
		token:     token,
		accountID: accountID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("component", "oanda").Logger(),
	}
}

// get performs an authorized GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	apiURL := c.baseURL + path
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type candleData struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type apiCandle struct {
	Complete bool       `json:"complete"`
	Volume   int        `json:"volume"`
	Time     string     `json:"time"`
	Mid      candleData `json:"mid"`
}

type candlesResponse struct {
	Instrument string      `json:"instrument"`
	Candles    []apiCandle `json:"candles"`
}

// History returns the last n CLOSED bars, oldest first. Incomplete
// candles are dropped so a forming bar never reaches a strategy.
func (c *Client) History(ctx context.Context, symbol string, tf market.Timeframe, n int) ([]market.Bar, error) {
	if n <= 0 || n > 5000 {
		return nil, fmt.Errorf("oanda: candle count %d out of range", n)
	}

	params := url.Values{}
	params.Set("price", "M")
	params.Set("granularity", granularity(tf))
	// one extra so dropping the forming candle still yields n
	params.Set("count", strconv.Itoa(n+1))

	var resp candlesResponse
	if err := c.get(ctx, "/v3/instruments/"+symbol+"/candles", params, &resp); err != nil {
		return nil, fmt.Errorf("oanda: candles %s: %w", symbol, err)
	}

	bars := make([]market.Bar, 0, len(resp.Candles))
	for _, ac := range resp.Candles {
		if !ac.Complete {
			continue
		}
		b, err := ac.toBar(symbol, tf)
		if err != nil {
			return nil, fmt.Errorf("oanda: candle %s: %w", symbol, err)
		}
		bars = append(bars, b)
	}
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

// Latest returns the most recent closed bar.
func (c *Client) Latest(ctx context.Context, symbol string, tf market.Timeframe) (market.Bar, error) {
	bars, err := c.History(ctx, symbol, tf, 1)
	if err != nil {
		return market.Bar{}, err
	}
	if len(bars) == 0 {
		return market.Bar{}, fmt.Errorf("oanda: no closed candle for %s", symbol)
	}
	return bars[0], nil
}

func (ac apiCandle) toBar(symbol string, tf market.Timeframe) (market.Bar, error) {
	t, err := time.Parse(time.RFC3339, ac.Time)
	if err != nil {
		return market.Bar{}, fmt.Errorf("parse time %s: %w", ac.Time, err)
	}
	open, err := parseFloat(ac.Mid.O)
	if err != nil {
		return market.Bar{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := parseFloat(ac.Mid.H)
	if err != nil {
		return market.Bar{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := parseFloat(ac.Mid.L)
	if err != nil {
		return market.Bar{}, fmt.Errorf("parse low: %w", err)
	}
	cl, err := parseFloat(ac.Mid.C)
	if err != nil {
		return market.Bar{}, fmt.Errorf("parse close: %w", err)
	}
	return market.Bar{
		Symbol:    symbol,
		Timeframe: tf,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cl,
		Volume:    float64(ac.Volume),
		// OANDA reports the candle open time; bars carry close time
		Time: t.UTC().Add(tf.Duration()),
	}, nil
}

type priceBucket struct {
	Price string `json:"price"`
}

type apiPrice struct {
	Instrument string        `json:"instrument"`
	Time       string        `json:"time"`
	Bids       []priceBucket `json:"bids"`
	Asks       []priceBucket `json:"asks"`
	Tradeable  bool          `json:"tradeable"`
}

type pricingResponse struct {
	Prices []apiPrice `json:"prices"`
}

// Tick returns the current top-of-book quote for symbol.
func (c *Client) Tick(ctx context.Context, symbol string) (market.Tick, error) {
	params := url.Values{}
	params.Set("instruments", symbol)

	var resp pricingResponse
	if err := c.get(ctx, "/v3/accounts/"+c.accountID+"/pricing", params, &resp); err != nil {
		return market.Tick{}, fmt.Errorf("oanda: pricing %s: %w", symbol, err)
	}
	if len(resp.Prices) == 0 {
		return market.Tick{}, fmt.Errorf("oanda: no price for %s", symbol)
	}

	p := resp.Prices[0]
	if len(p.Bids) == 0 || len(p.Asks) == 0 {
		return market.Tick{}, fmt.Errorf("oanda: empty book for %s", symbol)
	}
	bid, err := parseFloat(p.Bids[0].Price)
	if err != nil {
		return market.Tick{}, fmt.Errorf("oanda: parse bid: %w", err)
	}
	ask, err := parseFloat(p.Asks[0].Price)
	if err != nil {
		return market.Tick{}, fmt.Errorf("oanda: parse ask: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, p.Time)
	if err != nil {
		ts = time.Now()
	}
	return market.Tick{Symbol: symbol, Bid: bid, Ask: ask, Time: ts.UTC()}, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
