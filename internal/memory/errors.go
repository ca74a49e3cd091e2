package memory

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrAllocation       = errors.New("memory: allocation failure")
	ErrSizeMismatch     = errors.New("memory: size mismatch")
	ErrReleased         = errors.New("memory: buffer already released")
	ErrInvalidSpace     = errors.New("memory: invalid memory space")
	ErrInvalidOwnership = errors.New("memory: invalid ownership operation")
)

// AllocError reports a failed allocation with the space and size that were requested.
// It matches ErrAllocation and the underlying cause with errors.Is.
type AllocError struct {
	Space Space
	Bytes int
	Err   error
}

// Error implements the error interface.
func (e *AllocError) Error() string {
	return fmt.Sprintf("memory: failed to allocate %s in %s space: %v", HumanSize(int64(e.Bytes)), e.Space, e.Err)
}

// Unwrap exposes both ErrAllocation and the cause.
func (e *AllocError) Unwrap() []error {
	return []error{ErrAllocation, e.Err}
}
