package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

// TouchCategory creates the category if absent and stamps its last-used
// time. Categories are created lazily and never cascade-deleted; one with
// zero notes is a valid persisted state.
func (db *DB) TouchCategory(username, category string) error {
	now := FormatTime(time.Now())
	_, err := db.conn.Exec(`
		INSERT INTO categories (username, category, last_used)
		VALUES (?, ?, ?)
		ON CONFLICT(username, category) DO UPDATE SET last_used = excluded.last_used
	`, username, category, now)
	if err != nil {
		return fmt.Errorf("index: touch category: %w", err)
	}
	db.hub.publish(Change{Kind: ChangeCategory, Username: username})
	return nil
}

// ListCategories returns a user's categories, most recently used first.
func (db *DB) ListCategories(username string) ([]models.CategoryRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, username, category, last_used FROM categories
		WHERE username = ? ORDER BY last_used DESC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("index: list categories: %w", err)
	}
	defer rows.Close()

	var out []models.CategoryRecord
	for rows.Next() {
		var rec models.CategoryRecord
		if err := rows.Scan(&rec.ID, &rec.Username, &rec.Category, &rec.LastUsed); err != nil {
			return nil, fmt.Errorf("index: scan category: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteCategory removes a category record. Notes in the category are not
// touched; their records keep the category string they were saved with.
func (db *DB) DeleteCategory(username, category string) error {
	_, err := db.conn.Exec(`DELETE FROM categories WHERE username = ? AND category = ?`, username, category)
	if err != nil {
		return fmt.Errorf("index: delete category: %w", err)
	}
	db.hub.publish(Change{Kind: ChangeCategory, Username: username})
	return nil
}

// GetProfile returns the profile record for a user, or apperr.ErrNotFound.
func (db *DB) GetProfile(username string) (*models.ProfileRecord, error) {
	var rec models.ProfileRecord
	err := db.conn.QueryRow(`
		SELECT id, username, nickname, motto, avatar FROM profiles WHERE username = ?
	`, username).Scan(&rec.ID, &rec.Username, &rec.Nickname, &rec.Motto, &rec.Avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("index: profile %s: %w", username, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("index: get profile: %w", err)
	}
	return &rec, nil
}

// UpsertProfile inserts or replaces the profile record for rec.Username.
func (db *DB) UpsertProfile(rec models.ProfileRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO profiles (username, nickname, motto, avatar)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			nickname = excluded.nickname,
			motto    = excluded.motto,
			avatar   = excluded.avatar
	`, rec.Username, rec.Nickname, rec.Motto, rec.Avatar)
	if err != nil {
		return fmt.Errorf("index: upsert profile: %w", err)
	}
	db.hub.publish(Change{Kind: ChangeProfile, Username: rec.Username})
	return nil
}
