package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradecore/market"
)

// LoadBarsCSV reads a bar series from a CSV file with rows of
// time,symbol,open,high,low,close,volume. A header row is detected and
// skipped. Times are RFC3339 and must be strictly increasing per symbol.
func LoadBarsCSV(path string, tf market.Timeframe) ([]market.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var bars []market.Bar
	last := make(map[string]time.Time)
	line := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}

		b, err := parseBarRow(row, tf)
		if err != nil {
			return nil, fmt.Errorf("backtest: %s line %d: %w", path, line, err)
		}
		if prev, ok := last[b.Symbol]; ok && !b.Time.After(prev) {
			return nil, fmt.Errorf("backtest: %s line %d: bar time %s does not advance", path, line, b.Time.Format(time.RFC3339))
		}
		last[b.Symbol] = b.Time
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("backtest: %s holds no bars", path)
	}
	return bars, nil
}

func parseBarRow(row []string, tf market.Timeframe) (market.Bar, error) {
	if len(row) < 7 {
		return market.Bar{}, fmt.Errorf("need 7 columns time,symbol,open,high,low,close,volume, got %d", len(row))
	}

	ts := strings.TrimSpace(row[0])
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return market.Bar{}, fmt.Errorf("bad time %q", ts)
		}
	}

	vals := make([]float64, 5)
	for i, col := range row[2:7] {
		v, err := strconv.ParseFloat(strings.TrimSpace(col), 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("bad number %q", col)
		}
		vals[i] = v
	}

	b := market.Bar{
		Symbol:    strings.TrimSpace(row[1]),
		Timeframe: tf,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
		Time:      t.UTC(),
	}
	if b.Symbol == "" {
		return market.Bar{}, fmt.Errorf("empty symbol")
	}
	if b.High < b.Low || b.Close > b.High || b.Close < b.Low || b.Open > b.High || b.Open < b.Low {
		return market.Bar{}, fmt.Errorf("inconsistent OHLC %v", vals[:4])
	}
	return b, nil
}
