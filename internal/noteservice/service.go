// Package noteservice composes the file store, codec, and metadata index
// into the note lifecycle operations.
package noteservice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/codec"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/storage"
)

// Service coordinates storage and index operations. The note file is always
// canonical; the index record is a derived summary that the next successful
// save self-heals if the two ever diverge.
type Service struct {
	store  storage.Provider
	db     *index.DB
	logger *slog.Logger
}

// NewService creates a new note service.
func NewService(store storage.Provider, db *index.DB, logger *slog.Logger) *Service {
	return &Service{store: store, db: db, logger: logger}
}

// SaveNote encodes the note, writes its file, then upserts the derived
// metadata record and stamps the category. The file write and the record
// upsert are two separate writes with no transaction spanning them; a crash
// in between leaves the record stale, which the next save repairs.
func (s *Service) SaveNote(_ context.Context, username, category, fileName string, note models.Note) (*models.NoteRecord, error) {
	data, err := codec.Encode(note)
	if err != nil {
		return nil, err
	}
	rel, err := storage.RelPath(storage.KindNoteBlock, username, fileName)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(rel, data); err != nil {
		return nil, err
	}

	rec := models.NoteRecord{
		Username:     username,
		FileName:     fileName,
		Category:     category,
		Title:        note.Title,
		Keyword:      note.Keyword(),
		CoverImage:   note.CoverImage(),
		LastModified: index.FormatTime(time.Now()),
	}
	if err := s.db.UpsertNoteFingerprint(rec, index.Fingerprint(data)); err != nil {
		return nil, err
	}
	if category != "" {
		if err := s.db.TouchCategory(username, category); err != nil {
			return nil, err
		}
	}

	saved, err := s.db.GetNote(username, fileName)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// LoadNote reads and decodes a note file. A missing file is
// apperr.ErrNotFound, which callers present as a new, empty note; a file
// that will not decode is apperr.ErrCorruptNote, presented as a load error.
func (s *Service) LoadNote(_ context.Context, username, fileName string) (models.Note, error) {
	rel, err := storage.RelPath(storage.KindNoteBlock, username, fileName)
	if err != nil {
		return models.Note{}, err
	}
	data, err := s.store.Read(rel)
	if err != nil {
		return models.Note{}, err
	}
	return codec.Decode(data)
}

// DeleteNote removes a note's resource files, then its note file, then its
// metadata record, in that order, so a record never outlives its backing
// file except transiently. The resource cascade is best-effort: a missing
// resource is not an error, and a note file that fails to decode still has
// its file and record removed.
func (s *Service) DeleteNote(_ context.Context, username, fileName string) error {
	rel, err := storage.RelPath(storage.KindNoteBlock, username, fileName)
	if err != nil {
		return err
	}

	data, readErr := s.store.Read(rel)
	switch {
	case readErr == nil:
		note, decErr := codec.Decode(data)
		if decErr != nil {
			s.logger.Warn("delete: note undecodable, skipping resource cascade",
				slog.String("username", username), slog.String("file", fileName),
				slog.String("error", decErr.Error()))
		} else {
			s.deleteResources(username, note)
		}
	case errors.Is(readErr, apperr.ErrNotFound):
		// File already gone; still drop the record below.
	default:
		return readErr
	}

	if err := s.store.Delete(rel); err != nil {
		return err
	}
	return s.db.DeleteNote(username, fileName)
}

func (s *Service) deleteResources(username string, note models.Note) {
	for _, b := range note.Resources() {
		kind := storage.KindImage
		if b.Type == models.BlockAudio {
			kind = storage.KindAudio
		}
		rel, err := storage.RelPath(kind, username, b.Data)
		if err != nil {
			s.logger.Warn("delete: bad resource reference",
				slog.String("username", username), slog.String("resource", b.Data))
			continue
		}
		if err := s.store.Delete(rel); err != nil {
			s.logger.Warn("delete: resource removal failed",
				slog.String("path", rel), slog.String("error", err.Error()))
		}
	}
}

// FilterNotes searches record titles in the index, most recently modified
// first. It never reads note files, so it reflects the index's best-effort
// view rather than guaranteed file content.
func (s *Service) FilterNotes(_ context.Context, username, query string) ([]models.NoteRecord, error) {
	return s.db.FilterNotes(username, query)
}

// ListNotes returns a user's records, most recently modified first.
func (s *Service) ListNotes(_ context.Context, username string) ([]models.NoteRecord, error) {
	return s.db.ListNotes(username)
}

// ListNotesByCategory returns a user's records in one category.
func (s *Service) ListNotesByCategory(_ context.Context, username, category string) ([]models.NoteRecord, error) {
	return s.db.ListNotesByCategory(username, category)
}

// SaveCategory creates the category if absent and stamps its last-used time.
func (s *Service) SaveCategory(_ context.Context, username, category string) error {
	return s.db.TouchCategory(username, category)
}

// ListCategories returns a user's categories, most recently used first.
func (s *Service) ListCategories(_ context.Context, username string) ([]models.CategoryRecord, error) {
	return s.db.ListCategories(username)
}

// DeleteCategory removes a category record without touching its notes.
func (s *Service) DeleteCategory(_ context.Context, username, category string) error {
	return s.db.DeleteCategory(username, category)
}

// SaveResource persists resource bytes (image, audio, or avatar) under the
// owning user's directory for that kind.
func (s *Service) SaveResource(_ context.Context, kind storage.Kind, username, name string, data []byte) error {
	rel, err := storage.RelPath(kind, username, name)
	if err != nil {
		return err
	}
	return s.store.Write(rel, data)
}

// LoadResource reads resource bytes previously stored with SaveResource.
func (s *Service) LoadResource(_ context.Context, kind storage.Kind, username, name string) ([]byte, error) {
	rel, err := storage.RelPath(kind, username, name)
	if err != nil {
		return nil, err
	}
	return s.store.Read(rel)
}

// Profile returns the user's profile record.
func (s *Service) Profile(_ context.Context, username string) (*models.ProfileRecord, error) {
	return s.db.GetProfile(username)
}

// SaveProfile inserts or replaces the user's profile record.
func (s *Service) SaveProfile(_ context.Context, rec models.ProfileRecord) error {
	return s.db.UpsertProfile(rec)
}
