package history

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists candles to a sqlite database. A single file holds any
// number of instrument/resolution series keyed by candle open time.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the sqlite database at path and ensures the
// candle table exists. Use ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTable(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS candles (
			instrument TEXT NOT NULL,
			resolution TEXT NOT NULL,
			ts_ms      INTEGER NOT NULL,
			open       REAL NOT NULL,
			high       REAL NOT NULL,
			low        REAL NOT NULL,
			close      REAL NOT NULL,
			volume     REAL NOT NULL,
			cost       REAL NOT NULL,
			PRIMARY KEY (instrument, resolution, ts_ms)
		)
	`)
	if err != nil {
		return fmt.Errorf("history: create table: %w", err)
	}
	return nil
}

// Save upserts candles for one instrument/resolution series inside a single
// transaction. Re-fetching an overlapping window is safe.
func (s *Store) Save(ctx context.Context, instrument, resolution string, candles []OHLCV) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles
			(instrument, resolution, ts_ms, open, high, low, close, volume, cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, instrument, resolution,
			c.TsMs, c.Open, c.High, c.Low, c.Close, c.Volume, c.Cost); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Load returns candles for instrument/resolution with ts_ms in [fromMs, toMs],
// ordered chronologically.
func (s *Store) Load(ctx context.Context, instrument, resolution string, fromMs, toMs int64) ([]OHLCV, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts_ms, open, high, low, close, volume, cost
		FROM candles
		WHERE instrument = ? AND resolution = ? AND ts_ms BETWEEN ? AND ?
		ORDER BY ts_ms ASC
	`, instrument, resolution, fromMs, toMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OHLCV
	for rows.Next() {
		var c OHLCV
		if err := rows.Scan(&c.TsMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Cost); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of stored candles for one series.
func (s *Store) Count(ctx context.Context, instrument, resolution string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM candles WHERE instrument = ? AND resolution = ?
	`, instrument, resolution).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteCSV writes candles to w with a header row. Timestamps stay in
// milliseconds so the output round-trips losslessly.
func WriteCSV(w io.Writer, candles []OHLCV) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ts_ms", "open", "high", "low", "close", "volume", "cost"}); err != nil {
		return err
	}
	for _, c := range candles {
		rec := []string{
			strconv.FormatInt(c.TsMs, 10),
			strconv.FormatFloat(c.Open, 'g', -1, 64),
			strconv.FormatFloat(c.High, 'g', -1, 64),
			strconv.FormatFloat(c.Low, 'g', -1, 64),
			strconv.FormatFloat(c.Close, 'g', -1, 64),
			strconv.FormatFloat(c.Volume, 'g', -1, 64),
			strconv.FormatFloat(c.Cost, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
