package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"stockstream/internal/backtest"
	"stockstream/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy          TEXT NOT NULL,
	start_date        TEXT NOT NULL,
	end_date          TEXT NOT NULL,
	initial_cash      REAL NOT NULL,
	commission_rate   REAL NOT NULL,
	slippage_rate     REAL NOT NULL,
	final_cash        REAL NOT NULL,
	final_equity      REAL NOT NULL,
	total_return      REAL NOT NULL,
	annualized_return REAL NOT NULL,
	volatility        REAL NOT NULL,
	sharpe_ratio      REAL NOT NULL,
	sortino_ratio     REAL NOT NULL,
	max_drawdown      REAL NOT NULL,
	total_trades      INTEGER NOT NULL,
	win_rate          REAL NOT NULL,
	profit_factor     REAL,
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_trades (
	run_id     INTEGER NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	symbol     TEXT NOT NULL,
	entry_date TEXT NOT NULL,
	exit_date  TEXT NOT NULL,
	entry_px   REAL NOT NULL,
	exit_px    REAL NOT NULL,
	qty        INTEGER NOT NULL,
	pnl        REAL NOT NULL,
	return_pct REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a completed run and its trade log in one transaction and
// returns the assigned run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, res *backtest.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	m := res.Metrics
	out, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			strategy, start_date, end_date,
			initial_cash, commission_rate, slippage_rate,
			final_cash, final_equity,
			total_return, annualized_return, volatility,
			sharpe_ratio, sortino_ratio, max_drawdown,
			total_trades, win_rate, profit_factor, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Strategy,
		res.Start.Format("2006-01-02"),
		res.End.Format("2006-01-02"),
		res.InitialCash,
		res.CommissionRate,
		res.SlippageRate,
		res.FinalCash,
		res.FinalEquity,
		m.TotalReturn,
		m.AnnualizedReturn,
		m.Volatility,
		m.SharpeRatio,
		m.SortinoRatio,
		m.MaxDrawdown,
		m.TotalTrades,
		m.WinRate,
		finiteOrNull(m.ProfitFactor),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := out.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, tr := range res.Trades {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_trades (
				run_id, seq, symbol, entry_date, exit_date,
				entry_px, exit_px, qty, pnl, return_pct
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, tr.Symbol,
			tr.EntryDate.Format("2006-01-02"),
			tr.ExitDate.Format("2006-01-02"),
			tr.EntryPx, tr.ExitPx, tr.Qty, tr.PnL, tr.ReturnPct,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// GetRun retrieves a single run summary by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, start_date, end_date, initial_cash,
		       final_equity, total_return, sharpe_ratio, max_drawdown,
		       total_trades, created_at
		FROM runs WHERE id = ?`, id)

	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, start_date, end_date, initial_cash,
		       final_equity, total_return, sharpe_ratio, max_drawdown,
		       total_trades, created_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// ListRunTrades returns the closed trades recorded for a run.
func (s *SQLiteStore) ListRunTrades(ctx context.Context, runID int64) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, entry_date, exit_date, entry_px, exit_px, qty, pnl, return_pct
		FROM run_trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var tr domain.Trade
		var entry, exit string
		if err := rows.Scan(&tr.Symbol, &entry, &exit,
			&tr.EntryPx, &tr.ExitPx, &tr.Qty, &tr.PnL, &tr.ReturnPct); err != nil {
			return nil, err
		}
		if tr.EntryDate, err = time.Parse("2006-01-02", entry); err != nil {
			return nil, fmt.Errorf("parsing entry date %q: %w", entry, err)
		}
		if tr.ExitDate, err = time.Parse("2006-01-02", exit); err != nil {
			return nil, fmt.Errorf("parsing exit date %q: %w", exit, err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var start, end, created string
	if err := row.Scan(&rec.ID, &rec.Strategy, &start, &end, &rec.InitialCash,
		&rec.FinalEquity, &rec.TotalReturn, &rec.SharpeRatio, &rec.MaxDrawdown,
		&rec.TotalTrades, &created); err != nil {
		return nil, err
	}

	var err error
	if rec.Start, err = time.Parse("2006-01-02", start); err != nil {
		return nil, fmt.Errorf("parsing start date %q: %w", start, err)
	}
	if rec.End, err = time.Parse("2006-01-02", end); err != nil {
		return nil, fmt.Errorf("parsing end date %q: %w", end, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	return &rec, nil
}

// finiteOrNull maps non-finite metric values (an all-winning run has an
// infinite profit factor) to NULL, which SQLite can store.
func finiteOrNull(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
