// Package storage defines the per-user file-store abstraction.
package storage

// Kind selects the base-path template a logical name resolves under.
type Kind string

const (
	KindNoteBlock Kind = "note-block" // notes/<user>/blocks/<name>
	KindImage     Kind = "image"      // notes/<user>/image/<name>
	KindAudio     Kind = "audio"      // notes/<user>/audio/<name>
	KindAvatar    Kind = "avatar"     // profile/<user>/avatar/<name>
)

// Provider is the interface for on-device file operations. All paths are
// relative to the store root; RelPath produces them from logical addresses.
type Provider interface {
	// CreateFile ensures parent directories and the file itself exist.
	// Idempotent: calling twice is a no-op on the second call.
	CreateFile(rel string) error
	// Write fully replaces the file contents, creating parents as needed.
	// Failures wrap apperr.ErrIO.
	Write(rel string, data []byte) error
	// Read returns the file bytes; wraps apperr.ErrNotFound when absent.
	Read(rel string) ([]byte, error)
	// Delete removes a file, or a directory and all its contents. A
	// nonexistent path is a no-op, not an error.
	Delete(rel string) error
	// ListFiles returns the immediate child file names of a directory.
	// A nonexistent directory yields an empty list, same as an empty one.
	ListFiles(rel string) ([]string, error)
	// ListDirs returns the immediate child directory names of a directory,
	// with the same nonexistent-is-empty behavior as ListFiles.
	ListDirs(rel string) ([]string, error)
}
