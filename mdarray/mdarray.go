// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package mdarray

import (
	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/mdarray/internal/device"
	"github.com/born-ml/mdarray/internal/index"
	"github.com/born-ml/mdarray/internal/linalg"
	"github.com/born-ml/mdarray/internal/mdarray"
	"github.com/born-ml/mdarray/internal/memory"
	"github.com/born-ml/mdarray/internal/parallel"
)

// Elem is the constraint for element types:
// float32, float64, complex64, complex128, int32, int64, int, uint8.
type Elem = mdarray.Elem

// Rank is implemented by the rank markers R1 through R6.
type Rank = mdarray.Rank

// Rank markers.
type (
	R1 = mdarray.R1
	R2 = mdarray.R2
	R3 = mdarray.R3
	R4 = mdarray.R4
	R5 = mdarray.R5
	R6 = mdarray.R6
)

// Array is a dense column-major array of rank R.
// See the package documentation for ownership rules.
type Array[T Elem, R Rank] = mdarray.Array[T, R]

// Descriptor is one dimension's inclusive [begin, end] range.
type Descriptor = index.Descriptor

// Space selects memory spaces.
type Space = memory.Space

// Memory spaces.
const (
	Host       = memory.Host
	Device     = memory.Device
	HostDevice = memory.HostDevice
)

// Ownership describes what an array owns.
type Ownership = mdarray.Ownership

// Ownership states.
const (
	NotOwned    = mdarray.NotOwned
	OwnedHost   = mdarray.OwnedHost
	OwnedDevice = mdarray.OwnedDevice
	OwnedBoth   = mdarray.OwnedBoth
)

// Tracker accounts live allocations per memory space.
type Tracker = memory.Tracker

// Stats is a snapshot of a Tracker.
type Stats = memory.Stats

// Option configures array construction.
type Option = mdarray.Option

// AllocError reports a failed allocation with its space and size.
type AllocError = mdarray.AllocError

// Errors. Match them with errors.Is.
var (
	ErrAllocation       = mdarray.ErrAllocation
	ErrSizeMismatch     = mdarray.ErrSizeMismatch
	ErrReleased         = mdarray.ErrReleased
	ErrInvalidOwnership = mdarray.ErrInvalidOwnership
	ErrOutOfBounds      = mdarray.ErrOutOfBounds
	ErrRankMismatch     = mdarray.ErrRankMismatch
	ErrTooLarge         = mdarray.ErrTooLarge
	ErrNoDevice         = mdarray.ErrNoDevice
	ErrNotShaped        = mdarray.ErrNotShaped
	ErrInvalidRange     = index.ErrInvalidRange
)

// Dim returns the descriptor [begin, end].
func Dim(begin, end int) (Descriptor, error) { return index.New(begin, end) }

// MustDim is like Dim but panics on an invalid range.
func MustDim(begin, end int) Descriptor { return index.Must(begin, end) }

// New creates an array with zero-based dimensions of the given sizes.
func New[T Elem, R Rank](sizes []int, opts ...Option) (*Array[T, R], error) {
	return mdarray.New[T, R](sizes, opts...)
}

// NewWithDims creates an array with explicit per-dimension bounds.
func NewWithDims[T Elem, R Rank](dims []Descriptor, opts ...Option) (*Array[T, R], error) {
	return mdarray.NewWithDims[T, R](dims, opts...)
}

// MustNew is like New but panics on error.
func MustNew[T Elem, R Rank](sizes []int, opts ...Option) *Array[T, R] {
	return mdarray.MustNew[T, R](sizes, opts...)
}

// MustNewWithDims is like NewWithDims but panics on error.
func MustNewWithDims[T Elem, R Rank](dims []Descriptor, opts ...Option) *Array[T, R] {
	return mdarray.MustNewWithDims[T, R](dims, opts...)
}

// Empty returns an unshaped array.
func Empty[T Elem, R Rank]() *Array[T, R] { return mdarray.Empty[T, R]() }

// Wrap creates a non-owning host view over data.
func Wrap[T Elem, R Rank](data []T, sizes []int) (*Array[T, R], error) {
	return mdarray.Wrap[T, R](data, sizes)
}

// WrapWithDims creates a non-owning host view with explicit bounds.
func WrapWithDims[T Elem, R Rank](data []T, dims []Descriptor) (*Array[T, R], error) {
	return mdarray.WrapWithDims[T, R](data, dims)
}

// WithSpace selects which memory spaces are allocated at construction.
func WithSpace(space Space) Option { return mdarray.WithSpace(space) }

// WithLabel attaches a diagnostic label.
func WithLabel(label string) Option { return mdarray.WithLabel(label) }

// WithTracker accounts allocations in t.
func WithTracker(t *Tracker) Option { return mdarray.WithTracker(t) }

// WithBackend allocates device memory from b.
func WithBackend(b device.Backend) Option { return mdarray.WithBackend(b) }

// WithAllocator allocates host memory from a.
func WithAllocator(a arrowmem.Allocator) Option { return mdarray.WithAllocator(a) }

// WithWorkers bounds the goroutines used by Zero and Checksum; 1 disables parallelism.
func WithWorkers(n int) Option {
	cfg := parallel.DefaultConfig()
	cfg.NumWorkers = max(n, 1)
	cfg.Enabled = n > 1
	return mdarray.WithParallel(cfg)
}

// NewTracker returns an empty tracker, for isolated accounting.
func NewTracker() *Tracker { return memory.NewTracker() }

// DefaultTracker returns the process-wide tracker.
func DefaultTracker() *Tracker { return memory.Default() }

// Matrix returns a zero-copy gonum view of a matrix's host storage.
func Matrix(a *Array[float64, R2]) (mat.Matrix, error) { return linalg.Matrix(a) }

// Gemm computes c = alpha*a*b + beta*c.
func Gemm(alpha float64, a, b *Array[float64, R2], beta float64, c *Array[float64, R2]) error {
	return linalg.Gemm(alpha, a, b, beta, c)
}
