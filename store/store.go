// Package store keeps dataset snapshots in SQLite so the server can start
// without the source CSVs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/zalepa/nycdiscovery/dataset"
)

// ErrNoSnapshot is returned by Load when nothing has been imported yet.
var ErrNoSnapshot = errors.New("no snapshot imported")

const (
	kindStandardized = "standardized"
	kindNumeric      = "numeric"
)

// Store wraps SQLite access for dataset snapshots.
type Store struct {
	db *sql.DB
}

// Import describes one saved snapshot.
type Import struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	ImportedAt time.Time `json:"importedAt"`
	Years      int       `json:"years"`
	Columns    int       `json:"columns"`
	Complaints int       `json:"complaints"`
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS imports (
			id TEXT PRIMARY KEY,
			source TEXT,
			imported_at TIMESTAMP,
			years INTEGER,
			columns INTEGER,
			complaints INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS series_columns (
			kind TEXT,
			position INTEGER,
			name TEXT,
			PRIMARY KEY (kind, position)
		);`,
		`CREATE TABLE IF NOT EXISTS series_years (
			kind TEXT,
			position INTEGER,
			year INTEGER,
			PRIMARY KEY (kind, position)
		);`,
		`CREATE TABLE IF NOT EXISTS series_values (
			kind TEXT,
			name TEXT,
			position INTEGER,
			value REAL,
			PRIMARY KEY (kind, name, position)
		);`,
		`CREATE TABLE IF NOT EXISTS complaints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			received TEXT,
			borough TEXT,
			type TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_complaints_received ON complaints(received);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save replaces the stored snapshot with ds in one transaction. source
// records where the data came from.
func (s *Store) Save(ctx context.Context, ds *dataset.Store, source string) (Import, error) {
	imp := Import{
		ID:         uuid.New().String(),
		Source:     source,
		ImportedAt: time.Now().UTC(),
		Years:      ds.Numeric().Len(),
		Columns:    len(ds.Numeric().Columns()),
		Complaints: len(ds.Complaints()),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return imp, err
	}
	defer tx.Rollback()

	for _, table := range []string{"imports", "series_columns", "series_years", "series_values", "complaints"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return imp, fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := saveSeries(ctx, tx, kindStandardized, ds.Standardized()); err != nil {
		return imp, err
	}
	if err := saveSeries(ctx, tx, kindNumeric, ds.Numeric()); err != nil {
		return imp, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO complaints(received, borough, type) VALUES(?, ?, ?)`)
	if err != nil {
		return imp, err
	}
	defer stmt.Close()
	for _, c := range ds.Complaints() {
		var received sql.NullString
		if c.HasDate() {
			received = sql.NullString{String: c.Received.Format(time.RFC3339Nano), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, received, c.Borough, c.Type); err != nil {
			return imp, fmt.Errorf("insert complaint: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO imports(id, source, imported_at, years, columns, complaints) VALUES(?,?,?,?,?,?)`,
		imp.ID, imp.Source, imp.ImportedAt, imp.Years, imp.Columns, imp.Complaints); err != nil {
		return imp, err
	}
	return imp, tx.Commit()
}

func saveSeries(ctx context.Context, tx *sql.Tx, kind string, series *dataset.Series) error {
	for i, name := range series.Columns() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO series_columns(kind, position, name) VALUES(?,?,?)`, kind, i, name); err != nil {
			return fmt.Errorf("insert %s column %s: %w", kind, name, err)
		}
	}
	for i, year := range series.Years() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO series_years(kind, position, year) VALUES(?,?,?)`, kind, i, year); err != nil {
			return fmt.Errorf("insert %s year %d: %w", kind, year, err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO series_values(kind, name, position, value) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, name := range series.Columns() {
		vals, _ := series.Column(name)
		for i, v := range vals {
			var value sql.NullFloat64
			if !math.IsNaN(v) {
				value = sql.NullFloat64{Float64: v, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, kind, name, i, value); err != nil {
				return fmt.Errorf("insert %s value %s[%d]: %w", kind, name, i, err)
			}
		}
	}
	return nil
}

// LastImport returns the metadata of the stored snapshot.
func (s *Store) LastImport(ctx context.Context) (Import, error) {
	var imp Import
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, imported_at, years, columns, complaints FROM imports ORDER BY imported_at DESC LIMIT 1`).
		Scan(&imp.ID, &imp.Source, &imp.ImportedAt, &imp.Years, &imp.Columns, &imp.Complaints)
	if errors.Is(err, sql.ErrNoRows) {
		return imp, ErrNoSnapshot
	}
	return imp, err
}

// Load rebuilds the stored snapshot.
func (s *Store) Load(ctx context.Context) (*dataset.Store, error) {
	if _, err := s.LastImport(ctx); err != nil {
		return nil, err
	}
	stan, err := s.loadSeries(ctx, kindStandardized)
	if err != nil {
		return nil, err
	}
	num, err := s.loadSeries(ctx, kindNumeric)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT received, borough, type FROM complaints ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var complaints []dataset.Complaint
	for rows.Next() {
		var received sql.NullString
		var c dataset.Complaint
		if err := rows.Scan(&received, &c.Borough, &c.Type); err != nil {
			return nil, err
		}
		if received.Valid {
			t, err := time.Parse(time.RFC3339Nano, received.String)
			if err != nil {
				return nil, fmt.Errorf("complaint received %q: %w", received.String, err)
			}
			c.Received = t
		}
		complaints = append(complaints, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dataset.NewStore(stan, num, complaints), nil
}

func (s *Store) loadSeries(ctx context.Context, kind string) (*dataset.Series, error) {
	var columns []string
	if err := s.collect(ctx, `SELECT name FROM series_columns WHERE kind = ? ORDER BY position`, kind, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		columns = append(columns, name)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%s columns: %w", kind, err)
	}

	var years []int
	if err := s.collect(ctx, `SELECT year FROM series_years WHERE kind = ? ORDER BY position`, kind, func(rows *sql.Rows) error {
		var y int
		if err := rows.Scan(&y); err != nil {
			return err
		}
		years = append(years, y)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%s years: %w", kind, err)
	}

	values := make(map[string][]float64, len(columns))
	for _, c := range columns {
		vals := make([]float64, len(years))
		for i := range vals {
			vals[i] = math.NaN()
		}
		values[c] = vals
	}
	if err := s.collect(ctx, `SELECT name, position, value FROM series_values WHERE kind = ?`, kind, func(rows *sql.Rows) error {
		var name string
		var pos int
		var v sql.NullFloat64
		if err := rows.Scan(&name, &pos, &v); err != nil {
			return err
		}
		vals, ok := values[name]
		if !ok || pos < 0 || pos >= len(vals) {
			return fmt.Errorf("value %s[%d] outside the stored shape", name, pos)
		}
		if v.Valid {
			vals[pos] = v.Float64
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%s values: %w", kind, err)
	}
	return dataset.NewSeries(years, columns, values), nil
}

func (s *Store) collect(ctx context.Context, query, kind string, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, kind)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
