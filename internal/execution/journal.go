package execution

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"algocore/internal/model"
)

// Journal persists applied fills to SQLite for analysis and audit.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) a SQLite journal database.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS fills (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id    TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		symbol      TEXT NOT NULL,
		side        TEXT NOT NULL,
		qty         INTEGER NOT NULL,
		price       INTEGER NOT NULL,
		realized    INTEGER NOT NULL DEFAULT 0,
		filled_at   DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (order_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);
	CREATE INDEX IF NOT EXISTS idx_fills_filled_at ON fills(filled_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	log.Printf("[journal] opened fill journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// RecordFill persists one applied fill. realized is the realized PnL delta
// this fill produced, in cents.
func (j *Journal) RecordFill(ord model.Order, u model.OrderUpdate, realized int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT OR IGNORE INTO fills (order_id, seq, symbol, side, qty, price, realized, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.OrderID,
		u.Seq,
		ord.Symbol,
		string(ord.Side),
		u.FilledQty,
		u.FillPrice,
		realized,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// FillRecord represents a row from the fills table.
type FillRecord struct {
	ID       int64  `json:"id"`
	OrderID  string `json:"order_id"`
	Seq      int64  `json:"seq"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Qty      int64  `json:"qty"`
	Price    int64  `json:"price"`
	Realized int64  `json:"realized"`
	FilledAt string `json:"filled_at"`
}

// Fills returns the last limit fills, newest first.
func (j *Journal) Fills(limit int) ([]FillRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, order_id, seq, symbol, side, qty, price, realized, filled_at
		 FROM fills ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fills []FillRecord
	for rows.Next() {
		var f FillRecord
		if err := rows.Scan(&f.ID, &f.OrderID, &f.Seq, &f.Symbol, &f.Side,
			&f.Qty, &f.Price, &f.Realized, &f.FilledAt); err != nil {
			continue
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// DB returns the underlying handle for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
