package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/dagaz/internal/apperr"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestRelPathTemplates(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{KindNoteBlock, "notes/alice/blocks/n1"},
		{KindImage, "notes/alice/image/pic.jpg"},
		{KindAudio, "notes/alice/audio/memo.m4a"},
		{KindAvatar, "profile/alice/avatar/me.png"},
	}
	names := []string{"n1", "pic.jpg", "memo.m4a", "me.png"}
	for i, tc := range cases {
		got, err := RelPath(tc.kind, "alice", names[i])
		if err != nil {
			t.Fatalf("RelPath(%s): %v", tc.kind, err)
		}
		if got != tc.want {
			t.Errorf("RelPath(%s) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestRelPathRejectsBadSegments(t *testing.T) {
	cases := []struct {
		username, name string
	}{
		{"", "n1"},
		{"alice", ""},
		{"../bob", "n1"},
		{"alice", "../../etc/passwd"},
		{"alice", "a/b"},
		{"alice", ".."},
	}
	for _, tc := range cases {
		if _, err := RelPath(KindNoteBlock, tc.username, tc.name); err == nil {
			t.Errorf("RelPath(%q, %q) should fail", tc.username, tc.name)
		}
	}
}

func TestCreateFileIdempotent(t *testing.T) {
	s := tempStore(t)
	rel := "notes/alice/blocks/n1"
	if err := s.CreateFile(rel); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := s.CreateFile(rel); err != nil {
		t.Fatalf("CreateFile (second call): %v", err)
	}
	data, err := s.Read(rel)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("new file should be empty, got %d bytes", len(data))
	}
}

func TestCreateFileKeepsContent(t *testing.T) {
	s := tempStore(t)
	rel := "notes/alice/blocks/n1"
	_ = s.Write(rel, []byte("content"))
	if err := s.CreateFile(rel); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	data, _ := s.Read(rel)
	if string(data) != "content" {
		t.Errorf("CreateFile truncated existing file: %q", data)
	}
}

func TestWriteAndRead(t *testing.T) {
	s := tempStore(t)
	content := []byte("title: Hello\nblocks: []\n")
	if err := s.Write("notes/alice/blocks/n1", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("notes/alice/blocks/n1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteReplacesWholeFile(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("f", []byte("a longer original body"))
	if err := s.Write("f", []byte("short")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("f")
	if string(got) != "short" {
		t.Errorf("content = %q, want full replacement", got)
	}
	// No leftover temp files from the rename dance.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".dagaz-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestReadMissingIsNotFound(t *testing.T) {
	s := tempStore(t)
	_, err := s.Read("notes/alice/blocks/absent")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := tempStore(t)
	if err := s.Delete("does/not/exist"); err != nil {
		t.Fatalf("Delete of nonexistent path: %v", err)
	}
	_ = s.Write("del", []byte("bye"))
	if err := s.Delete("del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("del"); err != nil {
		t.Fatalf("Delete (second call): %v", err)
	}
}

func TestDeleteDirectoryRecursive(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("notes/alice/blocks/n1", []byte("a"))
	_ = s.Write("notes/alice/image/p.jpg", []byte("b"))
	if err := s.Delete("notes/alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("notes/alice/blocks/n1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound after recursive delete, got %v", err)
	}
}

func TestListPartitionsChildren(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("notes/alice/blocks/n1", []byte("a"))
	_ = s.Write("notes/alice/blocks/n2", []byte("b"))
	_ = s.Write("notes/alice/image/p.jpg", []byte("c"))

	files, err := s.ListFiles("notes/alice/blocks")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("files = %v, want 2 entries", files)
	}

	dirs, err := s.ListDirs("notes/alice")
	if err != nil {
		t.Fatalf("ListDirs: %v", err)
	}
	if len(dirs) != 2 {
		t.Errorf("dirs = %v, want [blocks image]", dirs)
	}

	// Immediate children only: no recursion into subdirectories.
	top, _ := s.ListFiles("notes/alice")
	if len(top) != 0 {
		t.Errorf("ListFiles should not recurse, got %v", top)
	}
}

func TestListNonexistentIsEmpty(t *testing.T) {
	s := tempStore(t)
	files, err := s.ListFiles("no/such/dir")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("files = %v, want empty", files)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)
	cases := []string{
		"../../etc/passwd",
		"../outside",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
		if err := s.Delete(p); err == nil {
			t.Errorf("expected error for delete of %q", p)
		}
	}
}

func TestNewFSNonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/dagaz-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFSFileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "dagaz-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
