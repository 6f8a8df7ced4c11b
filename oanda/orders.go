package oanda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/rustyeddy/tradecore/venue"
)

// precision caches per-instrument display precision for price formatting.
// OANDA rejects prices with more decimals than the instrument allows.
var (
	precMu    sync.Mutex
	precision = map[string]int{}
)

func setPrecision(symbol string, p int) {
	precMu.Lock()
	defer precMu.Unlock()
	precision[symbol] = p
}

func formatPrice(symbol string, v float64) string {
	precMu.Lock()
	p, ok := precision[symbol]
	precMu.Unlock()
	if !ok {
		p = 5
	}
	return strconv.FormatFloat(v, 'f', p, 64)
}

type marketOrder struct {
	Type         string     `json:"type"`
	Instrument   string     `json:"instrument"`
	Units        string     `json:"units"`
	TimeInForce  string     `json:"timeInForce"`
	PositionFill string     `json:"positionFill"`
	StopLoss     *orderStop `json:"stopLossOnFill,omitempty"`
	TakeProfit   *orderStop `json:"takeProfitOnFill,omitempty"`
}

type orderStop struct {
	Price string `json:"price"`
}

type orderRequestBody struct {
	Order marketOrder `json:"order"`
}

type fillTransaction struct {
	ID          string `json:"id"`
	Price       string `json:"price"`
	Units       string `json:"units"`
	Commission  string `json:"commission"`
	TradeOpened *struct {
		TradeID string `json:"tradeID"`
		Units   string `json:"units"`
	} `json:"tradeOpened"`
}

type orderResponse struct {
	FillTransaction   *fillTransaction `json:"orderFillTransaction"`
	CancelTransaction *struct {
		Reason string `json:"reason"`
	} `json:"orderCancelTransaction"`
	RejectTransaction *struct {
		RejectReason string `json:"rejectReason"`
	} `json:"orderRejectTransaction"`
	ErrorMessage string `json:"errorMessage"`
}

// Submit places a market order, or closes an open trade when
// req.CloseTicket is set. Satisfies venue.Adapter.
func (c *Client) Submit(ctx context.Context, req venue.Request) (venue.Result, error) {
	if req.CloseTicket != "" {
		return c.closeTrade(ctx, req)
	}

	order := marketOrder{
		Type:         "MARKET",
		Instrument:   req.Symbol,
		Units:        strconv.FormatFloat(req.Volume, 'f', -1, 64),
		TimeInForce:  "FOK",
		PositionFill: "DEFAULT",
	}
	if req.Stop > 0 {
		order.StopLoss = &orderStop{Price: formatPrice(req.Symbol, req.Stop)}
	}
	if req.Target > 0 {
		order.TakeProfit = &orderStop{Price: formatPrice(req.Symbol, req.Target)}
	}

	var resp orderResponse
	if err := c.post(ctx, http.MethodPost, "/v3/accounts/"+c.accountID+"/orders",
		orderRequestBody{Order: order}, &resp); err != nil {
		return venue.Result{}, err
	}
	return c.resultFrom(req, resp)
}

func (c *Client) closeTrade(ctx context.Context, req venue.Request) (venue.Result, error) {
	body := struct {
		Units string `json:"units"`
	}{Units: "ALL"}

	var resp orderResponse
	path := "/v3/accounts/" + c.accountID + "/trades/" + req.CloseTicket + "/close"
	if err := c.post(ctx, http.MethodPut, path, body, &resp); err != nil {
		return venue.Result{}, err
	}
	res, err := c.resultFrom(req, resp)
	if err != nil {
		return venue.Result{}, err
	}
	res.Ticket = req.CloseTicket
	return res, nil
}

func (c *Client) resultFrom(req venue.Request, resp orderResponse) (venue.Result, error) {
	if resp.FillTransaction == nil {
		reason := resp.ErrorMessage
		if resp.CancelTransaction != nil {
			reason = resp.CancelTransaction.Reason
		} else if resp.RejectTransaction != nil {
			reason = resp.RejectTransaction.RejectReason
		}
		return venue.Result{}, classifyReject(reason)
	}

	ft := resp.FillTransaction
	price, err := parseFloat(ft.Price)
	if err != nil {
		return venue.Result{}, venue.Permanent(venue.CodeRejected, "unparseable fill price")
	}
	units, _ := parseFloat(ft.Units)
	commission, _ := parseFloat(ft.Commission)

	ticket := ft.ID
	if ft.TradeOpened != nil {
		ticket = ft.TradeOpened.TradeID
	}
	c.log.Info().
		Str("symbol", req.Symbol).
		Str("ticket", ticket).
		Float64("price", price).
		Msg("order filled")
	return venue.Result{
		Ticket:       ticket,
		FilledVolume: math.Abs(units),
		AvgPrice:     price,
		Commission:   commission,
	}, nil
}

// classifyReject maps OANDA cancel/reject reasons onto venue error codes.
func classifyReject(reason string) error {
	switch reason {
	case "INSUFFICIENT_MARGIN", "INSUFFICIENT_LIQUIDITY":
		return venue.Permanent(venue.CodeNoMoney, reason)
	case "MARKET_HALTED":
		return venue.Permanent(venue.CodeMarketClosed, reason)
	case "FIFO_VIOLATION", "POSITION_SIZE_EXCEEDED":
		return venue.Permanent(venue.CodeInvalidVolume, reason)
	case "STOP_LOSS_ON_FILL_LOSS", "TAKE_PROFIT_ON_FILL_LOSS":
		return venue.Permanent(venue.CodeInvalidStops, reason)
	case "PRICE_BOUND_VIOLATION":
		// FOK missed the price; retryable at the next quote
		return venue.Transient(venue.CodePriceChanged, reason)
	default:
		return venue.Permanent(venue.CodeRejected, reason)
	}
}

// post sends a JSON body and classifies transport failures so the order
// manager's retry logic can tell "safe to retry" from "status unknown".
func (c *Client) post(ctx context.Context, method, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return venue.Permanent(venue.CodeRejected, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return venue.Permanent(venue.CodeRejected, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusCreated:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			// the venue answered but we lost the answer
			return venue.Transient(venue.CodeUnknown, "undecodable response: "+err.Error())
		}
		return nil
	case resp.StatusCode >= 500:
		return venue.Transient(venue.CodeBusy, fmt.Sprintf("status %d", resp.StatusCode))
	default:
		raw, _ := io.ReadAll(resp.Body)
		var oresp orderResponse
		if json.Unmarshal(raw, &oresp) == nil && (oresp.RejectTransaction != nil || oresp.ErrorMessage != "") {
			reason := oresp.ErrorMessage
			if oresp.RejectTransaction != nil {
				reason = oresp.RejectTransaction.RejectReason
			}
			return classifyReject(reason)
		}
		return venue.Permanent(venue.CodeRejected, fmt.Sprintf("status %d: %s", resp.StatusCode, raw))
	}
}

// classifyTransport: a request that may have reached the venue must come
// back as Unknown so the caller reconciles instead of resubmitting.
func classifyTransport(err error) error {
	var uerr interface{ Timeout() bool }
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return venue.Transient(venue.CodeUnknown, err.Error())
	case errors.As(err, &uerr) && uerr.Timeout():
		return venue.Transient(venue.CodeUnknown, err.Error())
	default:
		// connection never established; the order cannot have executed
		return venue.Transient(venue.CodeBusy, err.Error())
	}
}

// Cancel closes the trade behind ticket at market. OANDA market orders
// fill or fail synchronously, so cancel only ever applies to open trades.
func (c *Client) Cancel(ctx context.Context, ticket string) error {
	var resp orderResponse
	path := "/v3/accounts/" + c.accountID + "/trades/" + ticket + "/close"
	if err := c.post(ctx, http.MethodPut, path, struct {
		Units string `json:"units"`
	}{Units: "ALL"}, &resp); err != nil {
		return err
	}
	if resp.FillTransaction == nil {
		return venue.Permanent(venue.CodeRejected, "trade not closed")
	}
	return nil
}

type apiTrade struct {
	ID            string `json:"id"`
	Instrument    string `json:"instrument"`
	CurrentUnits  string `json:"currentUnits"`
	Price         string `json:"price"`
	StopLossOrder *struct {
		Price string `json:"price"`
	} `json:"stopLossOrder"`
	TakeProfitOrder *struct {
		Price string `json:"price"`
	} `json:"takeProfitOrder"`
}

type openTradesResponse struct {
	Trades []apiTrade `json:"trades"`
}

// QueryOpen lists the venue's open trades, the ground truth used by
// reconciliation.
func (c *Client) QueryOpen(ctx context.Context) ([]venue.OpenOrder, error) {
	var resp openTradesResponse
	if err := c.get(ctx, "/v3/accounts/"+c.accountID+"/openTrades", nil, &resp); err != nil {
		return nil, fmt.Errorf("oanda: open trades: %w", err)
	}

	out := make([]venue.OpenOrder, 0, len(resp.Trades))
	for _, t := range resp.Trades {
		units, err := parseFloat(t.CurrentUnits)
		if err != nil {
			return nil, fmt.Errorf("oanda: trade %s units: %w", t.ID, err)
		}
		oo := venue.OpenOrder{
			Ticket: t.ID,
			Symbol: t.Instrument,
			Volume: units,
		}
		if t.StopLossOrder != nil {
			oo.Stop, _ = parseFloat(t.StopLossOrder.Price)
		}
		if t.TakeProfitOrder != nil {
			oo.Target, _ = parseFloat(t.TakeProfitOrder.Price)
		}
		out = append(out, oo)
	}
	return out, nil
}

type apiInstrument struct {
	Name                string `json:"name"`
	DisplayPrecision    int    `json:"displayPrecision"`
	TradeUnitsPrecision int    `json:"tradeUnitsPrecision"`
	MinimumTradeSize    string `json:"minimumTradeSize"`
	MaximumOrderUnits   string `json:"maximumOrderUnits"`
}

type instrumentsResponse struct {
	Instruments []apiInstrument `json:"instruments"`
}

// SymbolInfo fetches instrument metadata and the current tradeable flag.
func (c *Client) SymbolInfo(ctx context.Context, symbol string) (venue.SymbolInfo, error) {
	params := url.Values{}
	params.Set("instruments", symbol)

	var resp instrumentsResponse
	if err := c.get(ctx, "/v3/accounts/"+c.accountID+"/instruments", params, &resp); err != nil {
		return venue.SymbolInfo{}, fmt.Errorf("oanda: instruments %s: %w", symbol, err)
	}
	if len(resp.Instruments) == 0 {
		return venue.SymbolInfo{}, fmt.Errorf("oanda: unknown instrument %s", symbol)
	}

	inst := resp.Instruments[0]
	setPrecision(symbol, inst.DisplayPrecision)

	minSize, err := parseFloat(inst.MinimumTradeSize)
	if err != nil {
		minSize = 1
	}
	maxUnits, err := parseFloat(inst.MaximumOrderUnits)
	if err != nil {
		maxUnits = 0
	}

	info := venue.SymbolInfo{
		Symbol:       symbol,
		Point:        math.Pow(10, -float64(inst.DisplayPrecision)),
		ContractSize: 1, // OANDA trades in base currency units
		MinVolume:    minSize,
		MaxVolume:    maxUnits,
		VolumeStep:   math.Pow(10, -float64(inst.TradeUnitsPrecision)),
		Tradable:     true,
	}

	// tradability is live state, not metadata
	var prices pricingResponse
	pp := url.Values{}
	pp.Set("instruments", symbol)
	if err := c.get(ctx, "/v3/accounts/"+c.accountID+"/pricing", pp, &prices); err == nil && len(prices.Prices) > 0 {
		info.Tradable = prices.Prices[0].Tradeable
	}
	return info, nil
}
