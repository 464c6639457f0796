package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

const noteColumns = `id, username, file_name, category, title, keyword, cover_image, last_modified`

// UpsertNote inserts or replaces the summary record for (username, file_name).
// Replace semantics: a conflicting insert updates the existing row in place,
// so the uniqueness invariant always resolves to exactly one record.
func (db *DB) UpsertNote(rec models.NoteRecord) error {
	return db.upsertNote(rec, "")
}

// UpsertNoteFingerprint is UpsertNote with the content fingerprint recorded,
// used by save and reconciliation paths that have the encoded bytes at hand.
func (db *DB) UpsertNoteFingerprint(rec models.NoteRecord, fingerprint string) error {
	return db.upsertNote(rec, fingerprint)
}

func (db *DB) upsertNote(rec models.NoteRecord, fingerprint string) error {
	_, err := db.conn.Exec(`
		INSERT INTO notes (username, file_name, category, title, keyword, cover_image, last_modified, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username, file_name) DO UPDATE SET
			category      = excluded.category,
			title         = excluded.title,
			keyword       = excluded.keyword,
			cover_image   = excluded.cover_image,
			last_modified = excluded.last_modified,
			fingerprint   = excluded.fingerprint
	`, rec.Username, rec.FileName, rec.Category, rec.Title, rec.Keyword, rec.CoverImage, rec.LastModified, fingerprint)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}
	db.hub.publish(Change{Kind: ChangeNoteSaved, Username: rec.Username, FileName: rec.FileName})
	return nil
}

// GetNote returns the record for (username, fileName), or apperr.ErrNotFound.
func (db *DB) GetNote(username, fileName string) (*models.NoteRecord, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE username = ? AND file_name = ?`,
		username, fileName)
	rec, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("index: note %s/%s: %w", username, fileName, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return rec, nil
}

// DeleteNote removes the record for (username, fileName). Deleting a record
// that does not exist is a no-op.
func (db *DB) DeleteNote(username, fileName string) error {
	_, err := db.conn.Exec(`DELETE FROM notes WHERE username = ? AND file_name = ?`, username, fileName)
	if err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	db.hub.publish(Change{Kind: ChangeNoteDeleted, Username: username, FileName: fileName})
	return nil
}

// ListNotes returns every record for a user, most recently modified first.
func (db *DB) ListNotes(username string) ([]models.NoteRecord, error) {
	return db.queryNotes(`SELECT `+noteColumns+` FROM notes WHERE username = ? ORDER BY last_modified DESC`,
		username)
}

// ListNotesByCategory returns a user's records in one category, most
// recently modified first.
func (db *DB) ListNotesByCategory(username, category string) ([]models.NoteRecord, error) {
	return db.queryNotes(`SELECT `+noteColumns+` FROM notes WHERE username = ? AND category = ? ORDER BY last_modified DESC`,
		username, category)
}

// FilterNotes returns records whose title contains query as a substring
// (SQLite LIKE: case-insensitive for ASCII), most recently modified first.
// This searches the index only; it never reads note files.
func (db *DB) FilterNotes(username, query string) ([]models.NoteRecord, error) {
	like := "%" + escapeLike(query) + "%"
	return db.queryNotes(`SELECT `+noteColumns+` FROM notes WHERE username = ? AND title LIKE ? ESCAPE '\' ORDER BY last_modified DESC`,
		username, like)
}

// AllFingerprints returns the stored fingerprint for every record of a user,
// keyed by file name. Used by reconciliation to skip unchanged files.
func (db *DB) AllFingerprints(username string) (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT file_name, fingerprint FROM notes WHERE username = ?`, username)
	if err != nil {
		return nil, fmt.Errorf("index: all fingerprints: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, fp string
		if err := rows.Scan(&name, &fp); err != nil {
			return nil, err
		}
		out[name] = fp
	}
	return out, rows.Err()
}

// Usernames returns every username that has at least one note record.
func (db *DB) Usernames() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT username FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: usernames: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (db *DB) queryNotes(q string, args ...any) ([]models.NoteRecord, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query notes: %w", err)
	}
	defer rows.Close()

	var out []models.NoteRecord
	for rows.Next() {
		rec, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan note: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanNote(s scannable) (*models.NoteRecord, error) {
	var rec models.NoteRecord
	err := s.Scan(&rec.ID, &rec.Username, &rec.FileName, &rec.Category,
		&rec.Title, &rec.Keyword, &rec.CoverImage, &rec.LastModified)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// escapeLike escapes LIKE wildcards so query text matches literally.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
