// Package index provides the SQLite-backed metadata index: denormalized
// note summaries, categories, and profiles, with observable queries.
package index

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dagaz/internal/models"
)

// TimeFormat is the sortable timestamp layout used for last-modified and
// last-used fields. Lexicographic order matches chronological order.
const TimeFormat = "2006-01-02 15:04:05.000"

// FormatTime renders t in the index timestamp layout (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// DB wraps a sql.DB with index-specific operations and a change hub that
// backs the observable queries.
type DB struct {
	conn *sql.DB
	hub  *hub
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn, hub: newHub()}, nil
}

var (
	sharedOnce sync.Once
	sharedDB   *DB
	sharedErr  error
)

// Shared returns the process-wide index instance, constructing it on first
// call. Concurrent first access constructs exactly one instance; every later
// call returns it regardless of dsn.
func Shared(dsn string) (*DB, error) {
	sharedOnce.Do(func() {
		sharedDB, sharedErr = Open(dsn)
	})
	return sharedDB, sharedErr
}

// Close stops the change hub and closes the database connection.
func (db *DB) Close() error {
	db.hub.close()
	return db.conn.Close()
}

// Store defines the metadata index contract. Consumers should depend on
// this interface rather than the concrete *DB type to facilitate testing.
type Store interface {
	UpsertNote(rec models.NoteRecord) error
	GetNote(username, fileName string) (*models.NoteRecord, error)
	DeleteNote(username, fileName string) error
	ListNotes(username string) ([]models.NoteRecord, error)
	ListNotesByCategory(username, category string) ([]models.NoteRecord, error)
	FilterNotes(username, query string) ([]models.NoteRecord, error)
	TouchCategory(username, category string) error
	ListCategories(username string) ([]models.CategoryRecord, error)
	DeleteCategory(username, category string) error
	GetProfile(username string) (*models.ProfileRecord, error)
	UpsertProfile(rec models.ProfileRecord) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
