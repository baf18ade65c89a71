// Package sink mirrors load tables and facility positions into SQL.
package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/engine/load"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var sqlOpen = sql.Open

// SQLSink writes cycle data to a relational database.
type SQLSink struct {
	db      *sql.DB
	dialect string
}

// ParseURL maps sqlite://path and postgres://... onto a driver and DSN.
func ParseURL(raw string) (driver, dsn, dialect string, err error) {
	switch {
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return "", "", "", fmt.Errorf("invalid sqlite url %q: missing path", raw)
		}
		return "sqlite", path, DialectSQLite, nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return "pgx", raw, DialectPostgres, nil
	}
	return "", "", "", fmt.Errorf("unsupported sql url %q (want sqlite:// or postgres://)", raw)
}

// Open connects and creates the tables if needed.
func Open(ctx context.Context, raw string) (*SQLSink, error) {
	driver, dsn, dialect, err := ParseURL(raw)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	s := &SQLSink{db: db, dialect: dialect}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLSink) ensureSchema(ctx context.Context) error {
	floatType := "REAL"
	if s.dialect == DialectPostgres {
		floatType = "DOUBLE PRECISION"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cycle_loads (
			run_id TEXT NOT NULL,
			cycle INTEGER NOT NULL,
			facility TEXT NOT NULL,
			load INTEGER NOT NULL,
			overloaded INTEGER NOT NULL,
			PRIMARY KEY (run_id, cycle, facility)
		)`,
		`CREATE TABLE IF NOT EXISTS facility_positions (
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			facility TEXT NOT NULL,
			latitude ` + floatType + ` NOT NULL,
			longitude ` + floatType + ` NOT NULL,
			overloaded INTEGER NOT NULL,
			load INTEGER NOT NULL,
			PRIMARY KEY (run_id, stage, facility)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// placeholders renders n bind parameters for the dialect.
func (s *SQLSink) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = s.nth(i + 1)
	}
	return strings.Join(ps, ", ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RecordLoads upserts one cycle's loads.
func (s *SQLSink) RecordLoads(ctx context.Context, runID string, cycle int, facilities []airspace.Facility) error {
	q := `INSERT INTO cycle_loads (run_id, cycle, facility, load, overloaded) VALUES (` + s.placeholders(5) + `)
		ON CONFLICT (run_id, cycle, facility) DO UPDATE SET load = excluded.load, overloaded = excluded.overloaded`
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, f := range facilities {
			if _, err := tx.ExecContext(ctx, q, runID, cycle, f.Name, f.Load, boolInt(f.Overloaded)); err != nil {
				return fmt.Errorf("insert load %s: %w", f.Name, err)
			}
		}
		return nil
	})
}

// RecordPositions upserts the facility table for a stage ("initial", "final").
func (s *SQLSink) RecordPositions(ctx context.Context, runID, stage string, facilities []airspace.Facility) error {
	q := `INSERT INTO facility_positions (run_id, stage, facility, latitude, longitude, overloaded, load) VALUES (` + s.placeholders(7) + `)
		ON CONFLICT (run_id, stage, facility) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude,
		overloaded = excluded.overloaded, load = excluded.load`
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, f := range facilities {
			if _, err := tx.ExecContext(ctx, q, runID, stage, f.Name, f.Position.X, f.Position.Y, boolInt(f.Overloaded), f.Load); err != nil {
				return fmt.Errorf("insert position %s: %w", f.Name, err)
			}
		}
		return nil
	})
}

// Loads reads back one cycle's load table.
func (s *SQLSink) Loads(ctx context.Context, runID string, cycle int) (load.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT facility, load FROM cycle_loads WHERE run_id = `+s.nth(1)+` AND cycle = `+s.nth(2),
		runID, cycle)
	if err != nil {
		return nil, fmt.Errorf("select loads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	t := load.Table{}
	for rows.Next() {
		var name string
		var l int
		if err := rows.Scan(&name, &l); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		t[name] = l
	}
	return t, rows.Err()
}

func (s *SQLSink) nth(i int) string {
	if s.dialect == DialectPostgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

func (s *SQLSink) inTx(ctx context.Context, fn func(*sql.Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Close releases the connection pool.
func (s *SQLSink) Close() error {
	return s.db.Close()
}
