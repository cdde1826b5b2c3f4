package manifest

import (
	"errors"

	"github.com/papapumpkin/constellation/internal/inventory"
)

// Sentinel errors for manifest generation and persistence.
var (
	// ErrEmptyPath indicates a module without a path.
	ErrEmptyPath = errors.New("module path is empty")
	// ErrInvalidPath indicates a module path that is absolute or escapes its lane.
	ErrInvalidPath = errors.New("module path must be relative and stay within its lane")
	// ErrDuplicateModule indicates a second module with an already-seen lane and path.
	ErrDuplicateModule = errors.New("duplicate module in lane")
	// ErrConfidence indicates a classifier confidence outside [0, 1].
	ErrConfidence = errors.New("confidence out of range [0,1]")
	// ErrUnknownFormat indicates an unsupported manifest encoding.
	ErrUnknownFormat = errors.New("unknown manifest format")
)

// Failure records a module whose manifest could not be generated. Failures
// are collected per module and never abort the batch.
type Failure struct {
	Path string
	Lane inventory.Lane
	Err  error
}

// Error returns the lane, path and cause.
func (f *Failure) Error() string {
	return string(f.Lane) + ":" + f.Path + ": " + f.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (f *Failure) Unwrap() error {
	return f.Err
}
