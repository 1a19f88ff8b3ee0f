package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration is one user_version step applied on top of schema.sql.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations must stay sorted by version. The last entry is the version a
// freshly opened journal reports.
var migrations = []migration{
	{1, "deliveries by kind", `CREATE INDEX IF NOT EXISTS idx_deliveries_battle_kind
		ON deliveries(battle_id, kind)`},
	{2, "deliveries by agent", `CREATE INDEX IF NOT EXISTS idx_deliveries_battle_agent
		ON deliveries(battle_id, agent, round, seq)`},
}

func schemaVersion() int { return migrations[len(migrations)-1].version }

// journalPragmas are applied on every connection open. busy_timeout covers a
// reader (arena trace) opening a journal while a battle still writes it.
var journalPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// ErrNoJournal is returned by OpenExisting when the file is missing.
var ErrNoJournal = errors.New("journal not found")

// Store is the battle journal: one SQLite file holding battles and the
// events each agent was handed, in delivery order.
type Store struct {
	db *sql.DB
}

// Open creates the journal at path if needed, then brings its schema up to
// date. ":memory:" gives a private in-process journal.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal %s: %w", path, err)
	}

	// Agent goroutines record concurrently; SQLite takes one writer, so they
	// queue on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare journal %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenExisting is Open for readers: it refuses to create a new file.
func OpenExisting(path string) (*Store, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoJournal, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat journal %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("journal %s is a directory", path)
	}
	return Open(path)
}

// Close releases the connection. Safe on a zero Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func prepare(db *sql.DB) error {
	for _, p := range journalPragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return migrate(db)
}

// migrate applies every migration above the journal's user_version.
func migrate(db *sql.DB) error {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	if current >= schemaVersion() {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion())); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

// pragma reads a pragma's current value as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
