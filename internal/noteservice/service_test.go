package noteservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/storage"
	"github.com/starford/dagaz/internal/testutil"
)

func testService(t *testing.T) (*Service, storage.Provider) {
	t.Helper()
	_, store := testutil.TestStore(t)
	db := testutil.TestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, db, logger), store
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	note := models.Note{
		Title: "Trip",
		Blocks: []models.Block{
			{Type: models.BlockBody, Data: "pack the bags"},
			{Type: models.BlockImage, Data: "map.png"},
			{Type: models.BlockAudio, Data: "memo.m4a"},
		},
	}
	rec, err := svc.SaveNote(ctx, "anna", "travel", "trip", note)
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	if rec.Title != "Trip" || rec.Category != "travel" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Keyword != "pack the bags" {
		t.Errorf("keyword = %q, want first body block", rec.Keyword)
	}
	if rec.CoverImage != "map.png" {
		t.Errorf("cover_image = %q, want first image block", rec.CoverImage)
	}
	if rec.LastModified == "" {
		t.Error("last_modified not stamped")
	}

	got, err := svc.LoadNote(ctx, "anna", "trip")
	if err != nil {
		t.Fatalf("LoadNote: %v", err)
	}
	if !reflect.DeepEqual(got, note) {
		t.Errorf("loaded = %+v, want %+v", got, note)
	}
}

func TestSaveNoteReplacesAndSelfHeals(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	first := models.Note{Title: "v1", Blocks: []models.Block{{Type: models.BlockBody, Data: "one"}}}
	if _, err := svc.SaveNote(ctx, "anna", "work", "n", first); err != nil {
		t.Fatal(err)
	}
	second := models.Note{Title: "v2", Blocks: []models.Block{{Type: models.BlockBody, Data: "two"}}}
	rec, err := svc.SaveNote(ctx, "anna", "work", "n", second)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Title != "v2" || rec.Keyword != "two" {
		t.Errorf("record not refreshed: %+v", rec)
	}

	recs, err := svc.ListNotes(ctx, "anna")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("len = %d, want exactly one record per (user, file)", len(recs))
	}
}

func TestSaveNoteTouchesCategory(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.SaveNote(ctx, "anna", "travel", "n", models.Note{Title: "t"}); err != nil {
		t.Fatal(err)
	}
	cats, err := svc.ListCategories(ctx, "anna")
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0].Category != "travel" {
		t.Errorf("categories = %+v, want [travel]", cats)
	}

	// Uncategorized saves create no category.
	if _, err := svc.SaveNote(ctx, "anna", "", "n2", models.Note{Title: "t2"}); err != nil {
		t.Fatal(err)
	}
	cats, err = svc.ListCategories(ctx, "anna")
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 {
		t.Errorf("categories = %+v, uncategorized save must not add one", cats)
	}
}

func TestLoadNoteMissing(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.LoadNote(context.Background(), "anna", "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadNoteCorrupt(t *testing.T) {
	svc, store := testService(t)
	rel, err := storage.RelPath(storage.KindNoteBlock, "anna", "bad")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(rel, []byte("title: [unclosed")); err != nil {
		t.Fatal(err)
	}

	_, err = svc.LoadNote(context.Background(), "anna", "bad")
	if !errors.Is(err, apperr.ErrCorruptNote) {
		t.Errorf("err = %v, want ErrCorruptNote", err)
	}
}

func TestDeleteNoteCascadesResources(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	note := models.Note{
		Title: "media",
		Blocks: []models.Block{
			{Type: models.BlockImage, Data: "present.png"},
			{Type: models.BlockImage, Data: "missing.png"},
			{Type: models.BlockAudio, Data: "clip.m4a"},
		},
	}
	if _, err := svc.SaveNote(ctx, "anna", "", "media", note); err != nil {
		t.Fatal(err)
	}
	// Only some of the referenced resources exist on disk.
	if err := svc.SaveResource(ctx, storage.KindImage, "anna", "present.png", []byte("png")); err != nil {
		t.Fatal(err)
	}
	if err := svc.SaveResource(ctx, storage.KindAudio, "anna", "clip.m4a", []byte("m4a")); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteNote(ctx, "anna", "media"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}

	// Resources, file, and record are all gone.
	if _, err := svc.LoadResource(ctx, storage.KindImage, "anna", "present.png"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("image err = %v, want ErrNotFound", err)
	}
	if _, err := svc.LoadResource(ctx, storage.KindAudio, "anna", "clip.m4a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("audio err = %v, want ErrNotFound", err)
	}
	if _, err := svc.LoadNote(ctx, "anna", "media"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("note err = %v, want ErrNotFound", err)
	}
	recs, err := svc.ListNotes(ctx, "anna")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("records remain: %+v", recs)
	}

	rel, err := storage.RelPath(storage.KindNoteBlock, "anna", "media")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read(rel); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("file err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNoteMissingFileStillDropsRecord(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	if _, err := svc.SaveNote(ctx, "anna", "", "n", models.Note{Title: "t"}); err != nil {
		t.Fatal(err)
	}
	rel, err := storage.RelPath(storage.KindNoteBlock, "anna", "n")
	if err != nil {
		t.Fatal(err)
	}
	// File vanishes out from under the record.
	if err := store.Delete(rel); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteNote(ctx, "anna", "n"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	recs, err := svc.ListNotes(ctx, "anna")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("record survived delete: %+v", recs)
	}
}

func TestDeleteNoteUndecodableFile(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()

	rel, err := storage.RelPath(storage.KindNoteBlock, "anna", "bad")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(rel, []byte("not: [valid")); err != nil {
		t.Fatal(err)
	}

	// Delete proceeds without a resource cascade.
	if err := svc.DeleteNote(ctx, "anna", "bad"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := store.Read(rel); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("file err = %v, want ErrNotFound", err)
	}
}

func TestFilterNotesScenario(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	for _, n := range []struct{ file, title string }{
		{"n1", "Groceries for Monday"},
		{"n2", "Weekly groceries"},
		{"n3", "Call the plumber"},
	} {
		if _, err := svc.SaveNote(ctx, "anna", "", n.file, models.Note{Title: n.title}); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := svc.FilterNotes(ctx, "anna", "groceries")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Errorf("got %d results, want 2 (ASCII match is case-insensitive)", len(recs))
	}
}

func TestProfileRoundTrip(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.Profile(ctx, "anna"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound before save", err)
	}

	rec := models.ProfileRecord{Username: "anna", Nickname: "An", Motto: "onward", Avatar: "a.png"}
	if err := svc.SaveProfile(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Profile(ctx, "anna")
	if err != nil {
		t.Fatal(err)
	}
	if got.Nickname != "An" || got.Motto != "onward" || got.Avatar != "a.png" {
		t.Errorf("profile = %+v", got)
	}
}

func TestResourceRoundTrip(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	data := []byte{0x89, 0x50, 0x4e, 0x47}
	if err := svc.SaveResource(ctx, storage.KindAvatar, "anna", "me.png", data); err != nil {
		t.Fatal(err)
	}
	got, err := svc.LoadResource(ctx, storage.KindAvatar, "anna", "me.png")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, data) {
		t.Errorf("got %v, want %v", got, data)
	}
}
