package index

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/codec"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/storage"
)

// Fingerprint identifies note file content, letting reconciliation and the
// save path skip or detect unchanged files.
func Fingerprint(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Reconcile walks every user's note files and brings the index up to date:
//   - new or changed files are decoded and their records upserted
//   - records whose backing file is gone are removed
//
// The file is canonical; a record is only ever a derived summary. Files
// that fail to decode are logged and skipped, leaving any existing record
// as-is.
func Reconcile(db *DB, store storage.Provider, logger *slog.Logger) error {
	users, err := store.ListDirs(storage.NotesRoot())
	if err != nil {
		return err
	}

	// Users with records but no directory on disk still need their stale
	// records dropped.
	indexed, err := db.Usernames()
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		seen[u] = struct{}{}
	}
	for _, u := range indexed {
		if _, ok := seen[u]; !ok {
			users = append(users, u)
		}
	}

	for _, user := range users {
		if err := reconcileUser(db, store, user, logger); err != nil {
			logger.Warn("reconcile: user failed",
				slog.String("username", user), slog.String("error", err.Error()))
		}
	}
	return nil
}

func reconcileUser(db *DB, store storage.Provider, username string, logger *slog.Logger) error {
	blocksDir, err := storage.UserBlocksPath(username)
	if err != nil {
		return err
	}
	names, err := store.ListFiles(blocksDir)
	if err != nil {
		return err
	}

	fps, err := db.AllFingerprints(username)
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(names))
	for _, name := range names {
		disk[name] = struct{}{}

		rel, err := storage.RelPath(storage.KindNoteBlock, username, name)
		if err != nil {
			continue
		}
		data, err := store.Read(rel)
		if err != nil {
			logger.Warn("reconcile: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		fp := Fingerprint(data)
		if fps[name] == fp {
			continue
		}
		if err := refreshRecord(db, username, name, data, fp); err != nil {
			logger.Warn("reconcile: refresh failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			logger.Debug("reconcile: refreshed", slog.String("path", rel))
		}
	}

	// Remove records whose file no longer exists.
	for name := range fps {
		if _, ok := disk[name]; !ok {
			if err := db.DeleteNote(username, name); err != nil {
				logger.Warn("reconcile: delete failed",
					slog.String("username", username), slog.String("file", name),
					slog.String("error", err.Error()))
			} else {
				logger.Debug("reconcile: removed stale",
					slog.String("username", username), slog.String("file", name))
			}
		}
	}
	return nil
}

// refreshRecord re-derives a note's summary record from its file content.
// An existing record keeps its category; a freshly discovered file starts
// uncategorized.
func refreshRecord(db *DB, username, name string, data []byte, fp string) error {
	note, err := codec.Decode(data)
	if err != nil {
		return err
	}
	category := ""
	if existing, err := db.GetNote(username, name); err == nil {
		category = existing.Category
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return db.UpsertNoteFingerprint(models.NoteRecord{
		Username:     username,
		FileName:     name,
		Category:     category,
		Title:        note.Title,
		Keyword:      note.Keyword(),
		CoverImage:   note.CoverImage(),
		LastModified: FormatTime(time.Now()),
	}, fp)
}
