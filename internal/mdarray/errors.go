package mdarray

import (
	"errors"
	"fmt"

	"github.com/born-ml/mdarray/internal/device"
	"github.com/born-ml/mdarray/internal/index"
	"github.com/born-ml/mdarray/internal/logging"
	"github.com/born-ml/mdarray/internal/memory"
)

// Errors reported by arrays. All of them are fail-fast: nothing is retried.
var (
	ErrAllocation       = memory.ErrAllocation
	ErrSizeMismatch     = memory.ErrSizeMismatch
	ErrReleased         = memory.ErrReleased
	ErrInvalidOwnership = memory.ErrInvalidOwnership
	ErrOutOfBounds      = index.ErrOutOfBounds
	ErrRankMismatch     = index.ErrRankMismatch
	ErrTooLarge         = index.ErrTooLarge
	ErrNoDevice         = device.ErrNoDevice
	ErrNotShaped        = errors.New("mdarray: array has no elements")
)

// AllocError reports a failed allocation with its space and size.
type AllocError = memory.AllocError

// mismatch logs and returns a size mismatch error.
func mismatch(label, format string, args ...any) error {
	err := fmt.Errorf("%w: %s", ErrSizeMismatch, fmt.Sprintf(format, args...))
	logging.L().WithField("label", label).WithError(err).Error("array copy rejected")
	return err
}
