package mdarray

import (
	"fmt"
	"runtime"

	"github.com/born-ml/mdarray/internal/device"
	"github.com/born-ml/mdarray/internal/index"
	"github.com/born-ml/mdarray/internal/memory"
)

// Array is a dense column-major array of rank R that can hold its data in
// host memory, device memory, or both.
//
// An Array is either the exclusive owner of its buffers or a non-owning view.
// Owning arrays must be handled through the *Array returned by the
// constructors: copying one by value is reported by `go vet` and panics with
// ErrInvalidOwnership on first use of the copy. Ownership moves only through
// Move and Assign; contents are duplicated only by Clone and CopyFrom.
//
// Arrays are not safe for concurrent mutation. Each goroutine owns its arrays.
//
// Release is the only way to free an owning array. One that becomes
// unreachable while still owning buffers is logged as a leak, and its buffers
// stay counted by the tracker.
//
// Example:
//
//	a := mdarray.MustNew[float64, mdarray.R2]([]int{100, 100}, mdarray.WithSpace(mdarray.HostDevice))
//	defer a.Release()
//	a.Set(1.5, 0, 0)
//	if err := a.Copy(mdarray.Host, mdarray.Device); err != nil { ... }
type Array[T Elem, R Rank] struct {
	_       noCopy
	addr    *Array[T, R]
	layout  index.Layout
	label   string
	host    []T
	res     *resources
	cfg     settings
	cleanup bool
}

// New creates an array with zero-based dimensions of the given sizes.
// The requested memory spaces (default Host) are allocated immediately and zeroed.
func New[T Elem, R Rank](sizes []int, opts ...Option) (*Array[T, R], error) {
	dims, err := index.Extents(sizes...)
	if err != nil {
		return nil, err
	}
	return NewWithDims[T, R](dims, opts...)
}

// NewWithDims creates an array with explicit per-dimension bounds.
func NewWithDims[T Elem, R Rank](dims []index.Descriptor, opts ...Option) (*Array[T, R], error) {
	layout, err := newLayout[R](dims)
	if err != nil {
		return nil, err
	}
	o := buildOptions(defaultSettings(), "", opts)

	a := &Array[T, R]{layout: layout, label: o.label, cfg: o.settings, res: &resources{label: o.label}}
	a.addr = a
	if err := a.allocate(o.space); err != nil {
		a.res.release()
		return nil, err
	}
	return a, nil
}

// MustNew is like New but panics on error.
func MustNew[T Elem, R Rank](sizes []int, opts ...Option) *Array[T, R] {
	a, err := New[T, R](sizes, opts...)
	if err != nil {
		panic(err)
	}
	return a
}

// MustNewWithDims is like NewWithDims but panics on error.
func MustNewWithDims[T Elem, R Rank](dims []index.Descriptor, opts ...Option) *Array[T, R] {
	a, err := NewWithDims[T, R](dims, opts...)
	if err != nil {
		panic(err)
	}
	return a
}

// Empty returns an unshaped array: every dimension has size 0 and nothing is allocated.
func Empty[T Elem, R Rank]() *Array[T, R] {
	a := &Array[T, R]{layout: index.Empty(rankOf[R]()), res: &resources{}, cfg: defaultSettings()}
	a.addr = a
	return a
}

// Wrap creates a non-owning host view over external storage.
func Wrap[T Elem, R Rank](data []T, sizes []int) (*Array[T, R], error) {
	dims, err := index.Extents(sizes...)
	if err != nil {
		return nil, err
	}
	return WrapWithDims[T, R](data, dims)
}

// WrapWithDims creates a non-owning host view with explicit bounds.
func WrapWithDims[T Elem, R Rank](data []T, dims []index.Descriptor) (*Array[T, R], error) {
	layout, err := newLayout[R](dims)
	if err != nil {
		return nil, err
	}
	if len(data) < layout.Size() {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d", ErrSizeMismatch, layout.String(), layout.Size(), len(data))
	}
	data = data[:layout.Size()]
	a := &Array[T, R]{layout: layout, host: data, cfg: defaultSettings(), res: &resources{view: true}}
	if len(data) > 0 {
		a.res.host = memory.Borrow(raw(data))
	}
	a.addr = a
	return a, nil
}

// View returns a non-owning view of a's storage (host and device) and shape.
// The view is valid as long as a keeps its buffers.
func (a *Array[T, R]) View() *Array[T, R] {
	a.copyCheck()
	v := &Array[T, R]{layout: a.layout, label: a.label, host: a.host, cfg: a.cfg, res: &resources{view: true}}
	v.res.host, v.res.device = a.res.host, a.res.device
	v.addr = v
	return v
}

func newLayout[R Rank](dims []index.Descriptor) (index.Layout, error) {
	if rank := rankOf[R](); len(dims) != rank {
		return index.Layout{}, fmt.Errorf("%w: rank %d array given %d dimensions", ErrRankMismatch, rank, len(dims))
	}
	return index.NewLayout(dims)
}

// copyCheck panics if an owning array is used through a by-value copy.
// Copies of arrays that own nothing (views, empty arrays) adopt themselves.
func (a *Array[T, R]) copyCheck() {
	if a.res == nil {
		a.res = &resources{}
		a.layout = index.Empty(rankOf[R]())
		a.cfg = defaultSettings()
	}
	if a.addr == a {
		return
	}
	if a.addr != nil && a.res.ownership() != NotOwned {
		panic(fmt.Errorf("%w: owning array %q copied by value", ErrInvalidOwnership, a.label))
	}
	a.addr = a
}

// ensureCleanup registers the leak report once the array owns buffers.
func (a *Array[T, R]) ensureCleanup() {
	if a.cleanup || a.res.view {
		return
	}
	runtime.AddCleanup(a, reportLeaked, a.res)
	a.cleanup = true
}

// Rank returns the number of dimensions.
func (a *Array[T, R]) Rank() int { return rankOf[R]() }

// Size returns the total number of elements. It is 0 for an unshaped array.
func (a *Array[T, R]) Size() int { return a.layout.Size() }

// Dim returns the descriptor of dimension k; unshaped arrays report empty descriptors.
func (a *Array[T, R]) Dim(k int) index.Descriptor { return a.layout.Dim(k) }

// Dims returns all descriptors.
func (a *Array[T, R]) Dims() []index.Descriptor {
	if a.layout.Rank() == 0 {
		return make([]index.Descriptor, rankOf[R]())
	}
	return a.layout.Dims()
}

// LD returns the leading dimension (the size of dimension 0).
func (a *Array[T, R]) LD() int { return a.layout.Dim(0).Size() }

// ByteSize returns the footprint of one representation in bytes.
func (a *Array[T, R]) ByteSize() int { return a.layout.Size() * sizeOf[T]() }

// Label returns the diagnostic label.
func (a *Array[T, R]) Label() string { return a.label }

// Ownership returns what the array owns.
func (a *Array[T, R]) Ownership() Ownership {
	if a.res == nil {
		return NotOwned
	}
	return a.res.ownership()
}

// IsView reports whether the array is a non-owning view.
func (a *Array[T, R]) IsView() bool { return a.res != nil && a.res.view }

// Spaces returns the memory spaces that currently hold a representation.
func (a *Array[T, R]) Spaces() Space {
	if a.res == nil {
		return 0
	}
	return a.res.spaces()
}

// Offset maps coordinates to the linear offset. Bounds are checked only in
// builds with the "bounds" tag.
func (a *Array[T, R]) Offset(idx ...int) int {
	if boundsChecks {
		a.checkIndex(idx)
	}
	return a.layout.Offset(idx)
}

// At returns the element at the given coordinates.
func (a *Array[T, R]) At(idx ...int) T {
	if boundsChecks {
		a.checkIndex(idx)
	}
	return a.host[a.layout.Offset(idx)]
}

// Set writes the element at the given coordinates.
func (a *Array[T, R]) Set(v T, idx ...int) {
	if boundsChecks {
		a.checkIndex(idx)
	}
	a.host[a.layout.Offset(idx)] = v
}

// Ptr returns a pointer to the element at the given coordinates.
func (a *Array[T, R]) Ptr(idx ...int) *T {
	if boundsChecks {
		a.checkIndex(idx)
	}
	return &a.host[a.layout.Offset(idx)]
}

// Index returns element i of the flat storage, independent of per-dimension bounds.
func (a *Array[T, R]) Index(i int) T {
	return a.host[i]
}

// SetIndex writes element i of the flat storage.
func (a *Array[T, R]) SetIndex(i int, v T) {
	a.host[i] = v
}

// Host returns the host storage, or nil without a host representation.
// WARNING: Direct access to underlying memory.
func (a *Array[T, R]) Host() []T {
	a.copyCheck()
	return a.host
}

// HostAt returns host storage starting at the given element, for routines
// that take a pointer into the middle of an array.
func (a *Array[T, R]) HostAt(idx ...int) []T {
	a.copyCheck()
	return a.host[a.Offset(idx...):]
}

// Device returns the device backend and handle, or (nil, device.Nil) without
// a device representation.
func (a *Array[T, R]) Device() (device.Backend, device.Ptr) {
	a.copyCheck()
	if a.res.device == nil {
		return nil, device.Nil
	}
	return a.res.device.Backend(), a.res.device.Ptr()
}

// DeviceAt returns the device handle and the byte offset of the given element.
func (a *Array[T, R]) DeviceAt(idx ...int) (device.Ptr, int) {
	_, p := a.Device()
	return p, a.Offset(idx...) * sizeOf[T]()
}

// String returns a human-readable description.
func (a *Array[T, R]) String() string {
	var zero T
	label := ""
	if a.label != "" {
		label = fmt.Sprintf(" %q", a.label)
	}
	return fmt.Sprintf("Array[%T]%s%s on %s (%s)", zero, a.layout.String(), label, a.Spaces(), a.Ownership())
}
