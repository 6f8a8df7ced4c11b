package venue

import (
	"context"
	"fmt"
	"sync"

	"github.com/rustyeddy/tradecore/market"
)

// Costs is the backtest cost model: a constant spread, a fixed adverse
// slippage on every fill, and a per-lot commission.
type Costs struct {
	SpreadPoints     float64 `yaml:"spread_points"`
	SlippagePoints   float64 `yaml:"slippage_points"`
	CommissionPerLot float64 `yaml:"commission_per_lot"`
}

// TickFor synthesizes a bid/ask quote around a bar close using the
// configured spread. The replayer feeds these to the shared pipeline so
// spread handling is exercised in backtests too.
func (c Costs) TickFor(b market.Bar, point float64) market.Tick {
	half := c.SpreadPoints * point / 2
	return market.Tick{
		Symbol: b.Symbol,
		Bid:    b.Close - half,
		Ask:    b.Close + half,
		Time:   b.Time,
	}
}

// Sim is the backtest fill simulator. It satisfies Adapter and fills
// market orders instantly at the current quote plus modeled costs.
// Ticket numbers are a plain counter, so identical inputs produce
// identical tickets run after run.
type Sim struct {
	mu      sync.Mutex
	costs   Costs
	symbols map[string]SymbolInfo
	ticks   *market.TickStore
	open    map[string]OpenOrder
	queued  []error
	seq     int
}

func NewSim(costs Costs) *Sim {
	return &Sim{
		costs:   costs,
		symbols: make(map[string]SymbolInfo),
		ticks:   market.NewTickStore(),
		open:    make(map[string]OpenOrder),
	}
}

func (s *Sim) AddSymbol(info SymbolInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols[info.Symbol] = info
}

func (s *Sim) SetTick(t market.Tick) { s.ticks.Set(t) }

// QueueError makes the next Submit call fail with err. Queued errors are
// consumed in order; used to script requote/busy sequences in tests.
func (s *Sim) QueueError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, err)
}

func (s *Sim) Submit(ctx context.Context, req Request) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, Transient(CodeTimeout, err.Error())
	}
	if len(s.queued) > 0 {
		err := s.queued[0]
		s.queued = s.queued[1:]
		return Result{}, err
	}

	info, ok := s.symbols[req.Symbol]
	if !ok {
		return Result{}, Permanent(CodeRejected, fmt.Sprintf("unknown symbol %q", req.Symbol))
	}
	if !info.Tradable {
		return Result{}, Permanent(CodeTradeDisabled, req.Symbol)
	}
	if req.Volume == 0 {
		return Result{}, Permanent(CodeInvalidVolume, "zero volume")
	}

	tick, err := s.ticks.Get(req.Symbol)
	if err != nil {
		return Result{}, Permanent(CodeMarketClosed, "no quote")
	}

	slip := s.costs.SlippagePoints * info.Point
	fill := tick.Ask + slip // buys pay up
	if req.Volume < 0 {
		fill = tick.Bid - slip // sells hit the bid
	}

	volume := req.Volume
	if volume < 0 {
		volume = -volume
	}
	commission := s.costs.CommissionPerLot * volume

	if req.CloseTicket != "" {
		if _, ok := s.open[req.CloseTicket]; !ok {
			return Result{}, Permanent(CodeRejected, fmt.Sprintf("unknown ticket %q", req.CloseTicket))
		}
		delete(s.open, req.CloseTicket)
		return Result{
			Ticket:       req.CloseTicket,
			FilledVolume: volume,
			AvgPrice:     fill,
			Commission:   commission,
		}, nil
	}

	s.seq++
	ticket := fmt.Sprintf("SIM-%06d", s.seq)
	s.open[ticket] = OpenOrder{
		Ticket: ticket,
		Symbol: req.Symbol,
		Volume: req.Volume,
		Stop:   req.Stop,
		Target: req.Target,
	}

	return Result{
		Ticket:       ticket,
		FilledVolume: volume,
		AvgPrice:     fill,
		Commission:   commission,
	}, nil
}

func (s *Sim) Cancel(ctx context.Context, ticket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[ticket]; !ok {
		return Permanent(CodeRejected, fmt.Sprintf("unknown ticket %q", ticket))
	}
	delete(s.open, ticket)
	return nil
}

func (s *Sim) QueryOpen(ctx context.Context) ([]OpenOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]OpenOrder, 0, len(s.open))
	// ticket order is deterministic because tickets are sequential
	for i := 1; i <= s.seq; i++ {
		t := fmt.Sprintf("SIM-%06d", i)
		if o, ok := s.open[t]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Sim) SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.symbols[symbol]
	if !ok {
		return SymbolInfo{}, Permanent(CodeRejected, fmt.Sprintf("unknown symbol %q", symbol))
	}
	return info, nil
}

// Inject places exposure directly into the simulator's book, bypassing
// Submit. Used to stage venue state for reconciliation tests.
func (s *Sim) Inject(o OpenOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if o.Ticket == "" {
		o.Ticket = fmt.Sprintf("SIM-%06d", s.seq)
	}
	s.open[o.Ticket] = o
}
