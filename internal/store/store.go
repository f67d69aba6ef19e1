// Package store persists adopted calibrations in a SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"pv-curve/pkg/pv"
)

const schema = `
CREATE TABLE IF NOT EXISTS calibrations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	module     TEXT NOT NULL,
	n          REAL NOT NULL,
	rs         REAL NOT NULL,
	rsh        REAL NOT NULL,
	score      REAL NOT NULL,
	created_at TIMESTAMP NOT NULL
)`

// Store is a SQLite-backed calibration archive.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the calibration database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save records an adopted calibration for the named module.
func (s *Store) Save(module string, params pv.DiodeParams, score float64) error {
	_, err := s.db.Exec(
		`INSERT INTO calibrations (module, n, rs, rsh, score, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		module, params.N, params.Rs, params.Rsh, score, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save calibration: %w", err)
	}
	return nil
}

// Last returns the most recent calibration for the named module. The bool
// reports whether one exists.
func (s *Store) Last(module string) (pv.DiodeParams, float64, bool, error) {
	var params pv.DiodeParams
	var score float64
	err := s.db.QueryRow(
		`SELECT n, rs, rsh, score FROM calibrations WHERE module = ? ORDER BY id DESC LIMIT 1`,
		module,
	).Scan(&params.N, &params.Rs, &params.Rsh, &score)
	if err == sql.ErrNoRows {
		return pv.DiodeParams{}, 0, false, nil
	}
	if err != nil {
		return pv.DiodeParams{}, 0, false, fmt.Errorf("failed to query calibration: %w", err)
	}
	return params, score, true, nil
}
