// Package store persists simulation results so runs can be listed and
// compared later. SQLite is the default; PostgreSQL is supported through the
// same schema.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/psychodicenamic/dicesim/internal/sim"
)

// ErrNotFound is returned when a run id is not stored.
var ErrNotFound = errors.New("run not found")

// Run kinds.
const (
	KindSimulate   = "simulate"
	KindTournament = "tournament"
	KindDiceTest   = "dicetest"
)

// Run is one stored result. Result holds the full JSON document; the other
// fields are copied out of it for listing.
type Run struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	A         string    `json:"a"`
	B         string    `json:"b"`
	Seed      int64     `json:"seed"`
	Trials    int64     `json:"trials"`
	WinRateA  float64   `json:"win_rate_a"`
	WinRateB  float64   `json:"win_rate_b"`
	TieRate   float64   `json:"tie_rate"`
	Result    []byte    `json:"-"`
}

// Store is a handle on the runs database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Open connects to the database and applies the schema. For SQLite the dsn
// is a file path whose directory is created if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := NewDialect(DialectType(driver))
	if err != nil {
		return nil, err
	}
	if _, ok := dialect.(sqliteDialect); ok && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, ok := dialect.(sqliteDialect); ok {
		// one writer keeps SQLite from returning SQLITE_BUSY under the web server
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db, dialect: dialect, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := append([]string{}, s.dialect.InitStatements()...)
	stmts = append(stmts,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			a TEXT NOT NULL DEFAULT '',
			b TEXT NOT NULL DEFAULT '',
			seed BIGINT NOT NULL,
			trials BIGINT NOT NULL,
			win_rate_a DOUBLE PRECISION NOT NULL DEFAULT 0,
			win_rate_b DOUBLE PRECISION NOT NULL DEFAULT 0,
			tie_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			result TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	)
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveRun stores r, assigning an id and timestamp when they are unset.
func (s *Store) SaveRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, rebind(s.dialect,
		`INSERT INTO runs (id, kind, created_at, a, b, seed, trials, win_rate_a, win_rate_b, tie_rate, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.Kind, r.CreatedAt.UnixMilli(), r.A, r.B, r.Seed, r.Trials,
		r.WinRateA, r.WinRateB, r.TieRate, string(r.Result))
	if err != nil {
		if s.dialect.IsDuplicateKeyError(err) {
			return fmt.Errorf("run %s already stored: %w", r.ID, err)
		}
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// SaveStats stores a head-to-head simulation.
func (s *Store) SaveStats(ctx context.Context, stats *sim.Stats) (*Run, error) {
	data, err := stats.JSON()
	if err != nil {
		return nil, err
	}
	r := &Run{
		Kind:     KindSimulate,
		A:        stats.Players[0].Name,
		B:        stats.Players[1].Name,
		Seed:     stats.Seed,
		Trials:   stats.Trials,
		WinRateA: stats.WinRate(0),
		WinRateB: stats.WinRate(1),
		TieRate:  stats.TieRate(),
		Result:   data,
	}
	if err := s.SaveRun(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

const runColumns = `id, kind, created_at, a, b, seed, trials, win_rate_a, win_rate_b, tie_rate, result`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r       Run
		created int64
		result  string
	)
	if err := row.Scan(&r.ID, &r.Kind, &created, &r.A, &r.B, &r.Seed, &r.Trials,
		&r.WinRateA, &r.WinRateB, &r.TieRate, &result); err != nil {
		return nil, err
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.Result = []byte(result)
	return &r, nil
}

// GetRun loads one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.dialect, `SELECT `+runColumns+` FROM runs WHERE id = ?`), id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns up to limit runs, newest first. Result is not loaded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, rebind(s.dialect,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		r.Result = nil
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run. Deleting an unknown id is ErrNotFound.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, rebind(s.dialect, `DELETE FROM runs WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}
