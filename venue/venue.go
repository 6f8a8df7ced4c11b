// Package venue defines the single capability contract through which the
// system talks to an execution venue. The live broker connector and the
// backtest fill simulator both satisfy Adapter, so everything above this
// boundary runs identical code in both modes.
package venue

import "context"

// SymbolInfo is the venue-reported trading metadata for one symbol.
type SymbolInfo struct {
	Symbol       string
	Point        float64 // minimal price increment (0.00001 for 5-digit FX)
	ContractSize float64 // units of base per 1.0 of volume
	MinVolume    float64
	MaxVolume    float64
	VolumeStep   float64
	StopsLevel   float64 // minimum stop/target distance in points
	Tradable     bool
}

// Request is a market order submission. Volume is signed: positive buys,
// negative sells. If CloseTicket is set the order closes that ticket
// instead of opening new exposure.
type Request struct {
	Symbol      string
	Volume      float64
	Price       float64 // reference price the caller decided on
	Stop        float64 // 0 = no venue-native stop
	Target      float64 // 0 = no venue-native target
	CloseTicket string
	Comment     string
}

// Result reports the fill. FilledVolume is unsigned.
type Result struct {
	Ticket       string
	FilledVolume float64
	AvgPrice     float64
	Commission   float64
}

// OpenOrder is one row of the venue's view of open exposure, used for
// reconciliation after a restart. Volume is signed like Request.Volume.
type OpenOrder struct {
	Ticket string
	Symbol string
	Volume float64
	Stop   float64
	Target float64
}

// Adapter is the only component allowed to block on the network.
type Adapter interface {
	Submit(ctx context.Context, req Request) (Result, error)
	Cancel(ctx context.Context, ticket string) error
	QueryOpen(ctx context.Context) ([]OpenOrder, error)
	SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
}

// ClampVolume rounds v down to the symbol's volume step and bounds it to
// [MinVolume, MaxVolume]. Rounding is always down, never up, so a risk
// budget can't be exceeded by rounding. Returns 0 when the result would
// fall below MinVolume.
func ClampVolume(v float64, info SymbolInfo) float64 {
	if v <= 0 {
		return 0
	}
	if info.VolumeStep > 0 {
		v = stepDown(v, info.VolumeStep)
	}
	if info.MaxVolume > 0 && v > info.MaxVolume {
		v = info.MaxVolume
		if info.VolumeStep > 0 {
			v = stepDown(v, info.VolumeStep)
		}
	}
	if v < info.MinVolume-1e-9 {
		return 0
	}
	return v
}

func stepDown(v, step float64) float64 {
	// epsilon guards against 0.50/0.01 landing just below 50
	steps := int64(v/step + 1e-9)
	return float64(steps) * step
}
