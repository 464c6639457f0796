// Package apperr defines the sentinel errors shared across the core.
package apperr

import "errors"

var (
	// ErrNotFound marks an expected file or record that is absent.
	// Callers decide the fallback; a missing note presents as new/empty.
	ErrNotFound = errors.New("not found")

	// ErrCorruptNote marks a note file whose encoding could not be decoded.
	// Recoverable: surfaced as a load failure, never a crash.
	ErrCorruptNote = errors.New("corrupt note")

	// ErrIO marks a failed disk write or delete. The failed operation is
	// aborted at the call site; whole-file writes keep unrelated data intact.
	ErrIO = errors.New("io failure")

	// ErrRemote marks a network or service failure during sync. Logged and
	// swallowed at the sync boundary; local state is unaffected.
	ErrRemote = errors.New("remote failure")
)
