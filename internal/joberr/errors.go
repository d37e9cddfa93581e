// Package joberr defines the error kinds surfaced at the core boundary
// (spec §7). Each kind is a comparable sentinel usable with errors.Is;
// call sites wrap it with context via fmt.Errorf("...: %w", kind).
package joberr

import "errors"

var (
	// ErrInvalidInput covers malformed filename regex, duplicate
	// experiment id, and plate collisions.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound covers an image file name absent from the store, or a
	// class id referenced by a column but absent from the project.
	ErrNotFound = errors.New("not found")

	// ErrCorrupted covers a parent object id recorded without a matching
	// parent class id; migrations self-heal this, but it is reported if
	// seen outside a migration.
	ErrCorrupted = errors.New("corrupted")

	// ErrResourceExhausted covers an out-of-memory tile; the tile is
	// marked invalid and skipped rather than aborting the job.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrCancelled covers a job stopped by the caller before
	// finishJob — no finished-ts is recorded.
	ErrCancelled = errors.New("cancelled")
)
