package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSV writes the audit trail to a flat file, flushed per entry so a crash
// loses at most the row being written.
type CSV struct {
	w *csv.Writer
	f *os.File
}

var csvHeader = []string{
	"id", "time", "kind", "symbol", "order_id", "ticket", "direction",
	"volume", "price", "stop", "target", "pnl", "reason",
}

func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}
	return &CSV{w: w, f: f}, nil
}

func (j *CSV) Append(e Entry) error {
	err := j.w.Write([]string{
		e.ID,
		e.Time.UTC().Format(time.RFC3339Nano),
		string(e.Kind),
		e.Symbol,
		e.OrderID,
		e.Ticket,
		e.Direction,
		strconv.FormatFloat(e.Volume, 'f', -1, 64),
		strconv.FormatFloat(e.Price, 'f', -1, 64),
		strconv.FormatFloat(e.Stop, 'f', -1, 64),
		strconv.FormatFloat(e.Target, 'f', -1, 64),
		strconv.FormatFloat(e.PnL, 'f', -1, 64),
		e.Reason,
	})
	if err != nil {
		return err
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSV) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}
