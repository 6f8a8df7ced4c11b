package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id TEXT NOT NULL,
	time DATETIME NOT NULL,
	kind TEXT NOT NULL,
	symbol TEXT NOT NULL,
	order_id TEXT NOT NULL,
	ticket TEXT NOT NULL,
	direction TEXT NOT NULL,
	volume REAL NOT NULL,
	price REAL NOT NULL,
	stop REAL NOT NULL,
	target REAL NOT NULL,
	pnl REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_time ON entries(time);
CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);
CREATE INDEX IF NOT EXISTS idx_entries_order ON entries(order_id);
`

// SQLite is the durable journal sink for live trading.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) Append(e Entry) error {
	_, err := j.db.Exec(`
		INSERT INTO entries
		(id, time, kind, symbol, order_id, ticket, direction, volume, price, stop, target, pnl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Time.UTC(), string(e.Kind), e.Symbol, e.OrderID, e.Ticket,
		e.Direction, e.Volume, e.Price, e.Stop, e.Target, e.PnL, e.Reason,
	)
	return err
}

// ByKind loads entries of one kind in time order. Used for post-run
// summaries and by reconciliation to find the most recent order state.
func (j *SQLite) ByKind(k Kind) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, time, kind, symbol, order_id, ticket, direction, volume, price, stop, target, pnl, reason
		FROM entries WHERE kind = ? ORDER BY time, rowid`, string(k))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind string
		var ts time.Time
		if err := rows.Scan(&e.ID, &ts, &kind, &e.Symbol, &e.OrderID, &e.Ticket,
			&e.Direction, &e.Volume, &e.Price, &e.Stop, &e.Target, &e.PnL, &e.Reason); err != nil {
			return nil, err
		}
		e.Time = ts.UTC()
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error { return j.db.Close() }
