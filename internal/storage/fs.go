package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/dagaz/internal/apperr"
)

const (
	noteBase    = "notes"
	profileBase = "profile"
	blocksDir   = "blocks"
	imageDir    = "image"
	audioDir    = "audio"
	avatarDir   = "avatar"
)

// RelPath maps a logical (kind, username, name) address to its store-relative
// path. Pure function of its inputs; every layout decision lives here, so
// changing the directory scheme touches nothing else.
func RelPath(kind Kind, username, name string) (string, error) {
	if err := checkSegment("username", username); err != nil {
		return "", err
	}
	if err := checkSegment("name", name); err != nil {
		return "", err
	}
	switch kind {
	case KindNoteBlock:
		return path.Join(noteBase, username, blocksDir, name), nil
	case KindImage:
		return path.Join(noteBase, username, imageDir, name), nil
	case KindAudio:
		return path.Join(noteBase, username, audioDir, name), nil
	case KindAvatar:
		return path.Join(profileBase, username, avatarDir, name), nil
	}
	return "", fmt.Errorf("storage: unknown kind %q", kind)
}

// NotesRoot returns the store-relative directory holding all per-user note
// data; its immediate children are usernames.
func NotesRoot() string {
	return noteBase
}

// UserNotesPath returns the store-relative root of a user's note data.
func UserNotesPath(username string) (string, error) {
	if err := checkSegment("username", username); err != nil {
		return "", err
	}
	return path.Join(noteBase, username), nil
}

// UserBlocksPath returns the store-relative directory of a user's note files.
func UserBlocksPath(username string) (string, error) {
	if err := checkSegment("username", username); err != nil {
		return "", err
	}
	return path.Join(noteBase, username, blocksDir), nil
}

// SplitNoteBlockPath reports whether rel (slash-separated, store-relative)
// addresses a note block file, returning the owning username and file name.
func SplitNoteBlockPath(rel string) (username, name string, ok bool) {
	parts := strings.Split(rel, "/")
	if len(parts) != 4 || parts[0] != noteBase || parts[2] != blocksDir {
		return "", "", false
	}
	if checkSegment("username", parts[1]) != nil || checkSegment("name", parts[3]) != nil {
		return "", "", false
	}
	return parts[1], parts[3], true
}

// checkSegment rejects empty names and anything that is not a plain path
// segment. Caller-supplied names have no format guarantee beyond that.
func checkSegment(field, v string) error {
	if v == "" {
		return fmt.Errorf("storage: %s is required", field)
	}
	if v != filepath.Base(v) || v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
		return fmt.Errorf("storage: invalid %s: %q", field, v)
	}
	return nil
}

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the data directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// safePath resolves a relative path against the store root and rejects any
// result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes store root: %s", rel)
	}
	return abs, nil
}

// CreateFile ensures parent directories exist and touches the file.
func (f *FS) CreateFile(rel string) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for %s: %v: %w", rel, err, apperr.ErrIO)
	}
	file, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create %s: %v: %w", rel, err, apperr.ErrIO)
	}
	return file.Close()
}

// Write replaces file contents: tmp file → fsync → rename, so readers never
// observe a partial write.
func (f *FS) Write(rel string, data []byte) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %v: %w", err, apperr.ErrIO)
	}

	tmp, err := os.CreateTemp(dir, ".dagaz-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %v: %w", err, apperr.ErrIO)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %v: %w", err, apperr.ErrIO)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %v: %w", err, apperr.ErrIO)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %v: %w", err, apperr.ErrIO)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %v: %w", err, apperr.ErrIO)
	}
	success = true
	return nil
}

// Read returns the raw bytes of a store file.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage: read %s: %w", rel, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s: %v: %w", rel, err, apperr.ErrIO)
	}
	return data, nil
}

// Delete removes a file, or a directory recursively. Nothing to remove is
// not an error.
func (f *FS) Delete(rel string) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: refusing to delete store root")
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %v: %w", rel, err, apperr.ErrIO)
	}
	return nil
}

// ListFiles returns the immediate child file names of a directory.
func (f *FS) ListFiles(rel string) ([]string, error) {
	return f.list(rel, false)
}

// ListDirs returns the immediate child directory names of a directory.
func (f *FS) ListDirs(rel string) ([]string, error) {
	return f.list(rel, true)
}

func (f *FS) list(rel string, dirs bool) ([]string, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Nonexistent reads as empty. Callers must not use listing as
			// an existence check.
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list %s: %v: %w", rel, err, apperr.ErrIO)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() == dirs {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
