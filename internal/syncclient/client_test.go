package syncclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/codec"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/storage"
	"github.com/starford/dagaz/internal/testutil"
)

type recordedUpload struct {
	path string
	body []byte
	auth string
}

// uploadRecorder is a fake remote that captures PUT bodies and can fail
// selected paths.
type uploadRecorder struct {
	mu       sync.Mutex
	uploads  []recordedUpload
	failPath map[string]bool
}

func (u *uploadRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		u.mu.Lock()
		u.uploads = append(u.uploads, recordedUpload{
			path: r.URL.Path,
			body: body,
			auth: r.Header.Get("Authorization"),
		})
		fail := u.failPath[r.URL.Path]
		u.mu.Unlock()

		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (u *uploadRecorder) paths() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, 0, len(u.uploads))
	for _, up := range u.uploads {
		out = append(out, up.path)
	}
	return out
}

func testClient(t *testing.T, baseURL string) (*Client, storage.Provider, *index.DB) {
	t.Helper()
	_, store := testutil.TestStore(t)
	db := testutil.TestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(baseURL, "secret", 5*time.Second, store, db, logger)
	t.Cleanup(func() { c.Close() })
	return c, store, db
}

func writeNoteFile(t *testing.T, store storage.Provider, username, name string, note models.Note) {
	t.Helper()
	data, err := codec.Encode(note)
	if err != nil {
		t.Fatal(err)
	}
	rel, err := storage.RelPath(storage.KindNoteBlock, username, name)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(rel, data); err != nil {
		t.Fatal(err)
	}
}

func contains(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

func TestUploadNotePushesFileAndResources(t *testing.T) {
	rec := &uploadRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	c, store, _ := testClient(t, srv.URL)
	writeNoteFile(t, store, "anna", "trip", models.Note{
		Title: "Trip",
		Blocks: []models.Block{
			{Type: models.BlockBody, Data: "notes"},
			{Type: models.BlockImage, Data: "map.png"},
			{Type: models.BlockAudio, Data: "memo.m4a"},
		},
	})
	imgRel, _ := storage.RelPath(storage.KindImage, "anna", "map.png")
	audRel, _ := storage.RelPath(storage.KindAudio, "anna", "memo.m4a")
	if err := store.Write(imgRel, []byte("png-bytes")); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(audRel, []byte("m4a-bytes")); err != nil {
		t.Fatal(err)
	}

	if err := c.UploadNote(context.Background(), "anna", "trip"); err != nil {
		t.Fatalf("UploadNote: %v", err)
	}

	paths := rec.paths()
	for _, want := range []string{
		"/api/files/notes/anna/blocks/trip",
		"/api/files/notes/anna/image/map.png",
		"/api/files/notes/anna/audio/memo.m4a",
	} {
		if !contains(paths, want) {
			t.Errorf("missing upload %s, got %v", want, paths)
		}
	}

	// The note file goes first, before any resource.
	if len(paths) == 0 || paths[0] != "/api/files/notes/anna/blocks/trip" {
		t.Errorf("first upload = %v, want the note file", paths)
	}

	rec.mu.Lock()
	auth := rec.uploads[0].auth
	rec.mu.Unlock()
	if auth != "Bearer secret" {
		t.Errorf("auth header = %q", auth)
	}
}

func TestUploadNoteResourceFailureIsSwallowed(t *testing.T) {
	rec := &uploadRecorder{failPath: map[string]bool{
		"/api/files/notes/anna/image/broken.png": true,
	}}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	c, store, _ := testClient(t, srv.URL)
	writeNoteFile(t, store, "anna", "n", models.Note{
		Title:  "n",
		Blocks: []models.Block{{Type: models.BlockImage, Data: "broken.png"}},
	})
	imgRel, _ := storage.RelPath(storage.KindImage, "anna", "broken.png")
	if err := store.Write(imgRel, []byte("x")); err != nil {
		t.Fatal(err)
	}

	if err := c.UploadNote(context.Background(), "anna", "n"); err != nil {
		t.Errorf("resource failure must not surface, got %v", err)
	}
}

func TestUploadNoteMissingResourceIsSwallowed(t *testing.T) {
	rec := &uploadRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	c, store, _ := testClient(t, srv.URL)
	writeNoteFile(t, store, "anna", "n", models.Note{
		Title:  "n",
		Blocks: []models.Block{{Type: models.BlockImage, Data: "nowhere.png"}},
	})

	if err := c.UploadNote(context.Background(), "anna", "n"); err != nil {
		t.Errorf("missing resource must not surface, got %v", err)
	}
	if contains(rec.paths(), "/api/files/notes/anna/image/nowhere.png") {
		t.Error("unexpected upload attempt for unreadable resource")
	}
}

func TestUploadNoteFileFailureSurfaces(t *testing.T) {
	rec := &uploadRecorder{failPath: map[string]bool{
		"/api/files/notes/anna/blocks/n": true,
	}}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	c, store, _ := testClient(t, srv.URL)
	writeNoteFile(t, store, "anna", "n", models.Note{Title: "n"})

	err := c.UploadNote(context.Background(), "anna", "n")
	if !errors.Is(err, apperr.ErrRemote) {
		t.Errorf("err = %v, want ErrRemote", err)
	}
}

func TestUploadNoteMissingFile(t *testing.T) {
	srv := httptest.NewServer((&uploadRecorder{}).handler())
	defer srv.Close()

	c, _, _ := testClient(t, srv.URL)
	err := c.UploadNote(context.Background(), "anna", "ghost")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSyncProfileStoresRecordAndAvatar(t *testing.T) {
	avatar := []byte{0x89, 0x50, 0x4e, 0x47}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/profile/anna" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RemoteProfile{
			Nickname:   "An",
			Motto:      "onward",
			Avatar:     "me.png",
			AvatarData: base64.StdEncoding.EncodeToString(avatar),
		})
	}))
	defer srv.Close()

	c, store, _ := testClient(t, srv.URL)
	rec, err := c.SyncProfile(context.Background(), "anna")
	if err != nil {
		t.Fatalf("SyncProfile: %v", err)
	}
	if rec.Nickname != "An" || rec.Motto != "onward" || rec.Avatar != "me.png" {
		t.Errorf("record = %+v", rec)
	}

	rel, _ := storage.RelPath(storage.KindAvatar, "anna", "me.png")
	got, err := store.Read(rel)
	if err != nil {
		t.Fatalf("avatar not persisted: %v", err)
	}
	if string(got) != string(avatar) {
		t.Errorf("avatar bytes = %v, want %v", got, avatar)
	}
}

func TestSyncProfileWithoutAvatarData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RemoteProfile{Nickname: "An", Avatar: "me.png"})
	}))
	defer srv.Close()

	c, store, _ := testClient(t, srv.URL)
	rec, err := c.SyncProfile(context.Background(), "anna")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Avatar != "me.png" {
		t.Errorf("record = %+v", rec)
	}

	// No bytes included, so no avatar file appears.
	rel, _ := storage.RelPath(storage.KindAvatar, "anna", "me.png")
	if _, err := store.Read(rel); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSyncProfileRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _, db := testClient(t, srv.URL)
	_, err := c.SyncProfile(context.Background(), "anna")
	if !errors.Is(err, apperr.ErrRemote) {
		t.Errorf("err = %v, want ErrRemote", err)
	}
	// Local state untouched on remote failure.
	if _, err := db.GetProfile("anna"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("profile err = %v, want ErrNotFound", err)
	}
}
