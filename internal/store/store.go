package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store wraps the SQLite handle behind typed accessors. A single Store backs
// the whole server; SQLite serializes writers internally and the wallet keeps
// the authoritative balances in memory, so the store only sees settled
// absolute values.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS players (
			login        TEXT PRIMARY KEY,
			balance      INTEGER NOT NULL DEFAULT 0,
			role         TEXT NOT NULL DEFAULT 'player',
			display_name TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id            TEXT PRIMARY KEY,
			login         TEXT NOT NULL,
			amount        INTEGER NOT NULL,
			balance_after INTEGER NOT NULL,
			kind          TEXT NOT NULL,
			reference     TEXT,
			created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (login) REFERENCES players(login)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_login ON transactions(login)`,
		`CREATE TABLE IF NOT EXISTS tournaments (
			id             TEXT PRIMARY KEY,
			game           TEXT NOT NULL,
			state          TEXT NOT NULL,
			starting_chips INTEGER NOT NULL,
			table_size     INTEGER NOT NULL,
			cutoffs        TEXT NOT NULL,
			current_level  INTEGER NOT NULL DEFAULT 0,
			current_round  INTEGER NOT NULL DEFAULT 0,
			created_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS blind_levels (
			tournament_id TEXT NOT NULL,
			level         INTEGER NOT NULL,
			small         INTEGER NOT NULL,
			big           INTEGER NOT NULL,
			seconds       INTEGER NOT NULL,
			PRIMARY KEY (tournament_id, level),
			FOREIGN KEY (tournament_id) REFERENCES tournaments(id)
		)`,
		`CREATE TABLE IF NOT EXISTS tournament_players (
			tournament_id   TEXT NOT NULL,
			login           TEXT NOT NULL,
			seat            INTEGER NOT NULL,
			chips           INTEGER NOT NULL,
			eliminated_rank INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (tournament_id, login),
			FOREIGN KEY (tournament_id) REFERENCES tournaments(id)
		)`,
		`CREATE TABLE IF NOT EXISTS bracket_seats (
			tournament_id TEXT NOT NULL,
			round         INTEGER NOT NULL,
			table_no      INTEGER NOT NULL,
			seat_no       INTEGER NOT NULL,
			login         TEXT NOT NULL,
			PRIMARY KEY (tournament_id, round, table_no, seat_no),
			FOREIGN KEY (tournament_id) REFERENCES tournaments(id)
		)`,
		`CREATE TABLE IF NOT EXISTS round_results (
			tournament_id TEXT NOT NULL,
			round         INTEGER NOT NULL,
			login         TEXT NOT NULL,
			chips_end     INTEGER NOT NULL,
			rank          INTEGER NOT NULL,
			advanced      INTEGER NOT NULL,
			PRIMARY KEY (tournament_id, round, login),
			FOREIGN KEY (tournament_id) REFERENCES tournaments(id)
		)`,
		`CREATE TABLE IF NOT EXISTS bot_channels (
			channel TEXT NOT NULL,
			persona TEXT NOT NULL,
			PRIMARY KEY (channel, persona)
		)`,
		`CREATE TABLE IF NOT EXISTS round_history (
			id         TEXT PRIMARY KEY,
			channel    TEXT NOT NULL,
			mode       TEXT NOT NULL,
			round_no   INTEGER NOT NULL,
			seed       INTEGER NOT NULL,
			settled_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			summary    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_round_history_channel ON round_history(channel, round_no)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}
