package memory

import (
	"fmt"
	"sync/atomic"

	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/sirupsen/logrus"

	"github.com/born-ml/mdarray/internal/device"
	"github.com/born-ml/mdarray/internal/logging"
)

// zeroChunk is uploaded repeatedly to clear device buffers.
var zeroChunk [64 << 10]byte

// Buffer is a single exclusive allocation in one memory space.
// Host storage comes from an arrow allocator (64-byte aligned); device storage
// comes from a device backend and is only reachable through copies.
type Buffer struct {
	space    Space
	size     int
	host     []byte
	dev      device.Ptr
	backend  device.Backend
	alloc    arrowmem.Allocator
	tracker  *Tracker
	borrowed bool
	released atomic.Bool
}

// Borrow wraps externally owned host memory so it can take part in copies.
// Nothing is tracked, and releasing a borrowed buffer only detaches it.
func Borrow(b []byte) *Buffer {
	return &Buffer{space: Host, size: len(b), host: b, borrowed: true}
}

type options struct {
	tracker *Tracker
	backend device.Backend
	alloc   arrowmem.Allocator
}

// Option configures Allocate.
type Option func(*options)

// WithTracker accounts the buffer in t instead of the default tracker.
func WithTracker(t *Tracker) Option {
	return func(o *options) {
		if t != nil {
			o.tracker = t
		}
	}
}

// WithBackend allocates device storage from b instead of the default backend.
func WithBackend(b device.Backend) Option {
	return func(o *options) {
		if b != nil {
			o.backend = b
		}
	}
}

// WithAllocator allocates host storage from a instead of arrow's default allocator.
func WithAllocator(a arrowmem.Allocator) Option {
	return func(o *options) {
		if a != nil {
			o.alloc = a
		}
	}
}

// Allocate reserves n bytes in a single memory space and registers them with the tracker.
// Failures are logged and returned as *AllocError.
func Allocate(space Space, n int, opts ...Option) (*Buffer, error) {
	o := options{tracker: defaultTracker, backend: device.Default(), alloc: arrowmem.DefaultAllocator}
	for _, opt := range opts {
		opt(&o)
	}
	if !space.Single() {
		return nil, fail(space, n, fmt.Errorf("%w: %v", ErrInvalidSpace, space))
	}
	if n < 0 {
		return nil, fail(space, n, fmt.Errorf("negative size"))
	}

	b := &Buffer{space: space, size: n, backend: o.backend, alloc: o.alloc, tracker: o.tracker}
	switch space {
	case Host:
		host, err := allocHost(o.alloc, n)
		if err != nil {
			return nil, fail(space, n, err)
		}
		b.host = host
	case Device:
		p, err := o.backend.Alloc(n)
		if err != nil {
			return nil, fail(space, n, err)
		}
		b.dev = p
	}
	o.tracker.add(space, n)
	return b, nil
}

func allocHost(a arrowmem.Allocator, n int) (buf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host allocator: %v", r)
		}
	}()
	buf = a.Allocate(n)
	if len(buf) < n {
		return nil, fmt.Errorf("host allocator returned %d bytes", len(buf))
	}
	// Allocators that recycle memory may hand back dirty bytes.
	clear(buf[:n])
	return buf[:n], nil
}

func fail(space Space, n int, err error) error {
	e := &AllocError{Space: space, Bytes: n, Err: err}
	logging.L().WithFields(logrus.Fields{"space": space, "bytes": n}).WithError(err).Error("allocation failed")
	return e
}

// Space returns the buffer's memory space.
func (b *Buffer) Space() Space { return b.space }

// Size returns the recorded size in bytes.
func (b *Buffer) Size() int { return b.size }

// Bytes returns host storage, or nil for device buffers and released buffers.
// WARNING: Direct access to underlying memory.
func (b *Buffer) Bytes() []byte {
	if b.released.Load() {
		return nil
	}
	return b.host
}

// Ptr returns the device handle, or device.Nil for host buffers.
func (b *Buffer) Ptr() device.Ptr { return b.dev }

// Backend returns the backend that owns device storage.
func (b *Buffer) Backend() device.Backend { return b.backend }

// Borrowed reports whether the buffer wraps memory it does not own.
func (b *Buffer) Borrowed() bool { return b.borrowed }

// Released reports whether Release has been called.
func (b *Buffer) Released() bool { return b.released.Load() }

// Release frees the storage and subtracts its size from the tracker.
// Calling it more than once is a no-op.
func (b *Buffer) Release() {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return
	}
	if b.borrowed {
		b.host = nil
		return
	}
	switch b.space {
	case Host:
		b.alloc.Free(b.host)
		b.host = nil
	case Device:
		if err := b.backend.Free(b.dev); err != nil {
			logging.L().WithFields(logrus.Fields{"space": b.space, "ptr": b.dev}).WithError(err).Error("device free failed")
		}
		b.dev = device.Nil
	}
	b.tracker.sub(b.space, b.size)
}

// Zero fills the buffer with zero bytes.
func (b *Buffer) Zero() error {
	if b.released.Load() {
		return ErrReleased
	}
	if b.space == Host {
		clear(b.host)
		return nil
	}
	for off := 0; off < b.size; off += len(zeroChunk) {
		n := min(len(zeroChunk), b.size-off)
		if err := b.backend.CopyToDevice(b.dev, off, zeroChunk[:n]); err != nil {
			return fmt.Errorf("memory: zero device buffer: %w", err)
		}
	}
	return nil
}

// Copy transfers n bytes from the start of src to the start of dst.
func Copy(dst, src *Buffer, n int) error {
	return CopyAt(dst, 0, src, 0, n)
}

// CopyAt transfers n bytes from src+srcOff to dst+dstOff. Both buffers must
// cover the requested range; the copy is complete when CopyAt returns.
func CopyAt(dst *Buffer, dstOff int, src *Buffer, srcOff int, n int) error {
	if dst == nil || src == nil || dst.Released() || src.Released() {
		return ErrReleased
	}
	if n < 0 || dstOff < 0 || srcOff < 0 || dstOff+n > dst.size || srcOff+n > src.size {
		err := fmt.Errorf("%w: copy of %d bytes from %s buffer of %d (offset %d) to %s buffer of %d (offset %d)",
			ErrSizeMismatch, n, src.space, src.size, srcOff, dst.space, dst.size, dstOff)
		logging.L().WithError(err).Error("copy rejected")
		return err
	}
	if n == 0 {
		return nil
	}

	var err error
	switch {
	case src.space == Host && dst.space == Host:
		copy(dst.host[dstOff:dstOff+n], src.host[srcOff:srcOff+n])
	case src.space == Host && dst.space == Device:
		err = dst.backend.CopyToDevice(dst.dev, dstOff, src.host[srcOff:srcOff+n])
	case src.space == Device && dst.space == Host:
		err = src.backend.CopyToHost(dst.host[dstOff:dstOff+n], src.dev, srcOff)
	default:
		staging := make([]byte, n)
		if err = src.backend.CopyToHost(staging, src.dev, srcOff); err == nil {
			err = dst.backend.CopyToDevice(dst.dev, dstOff, staging)
		}
	}
	if err != nil {
		return fmt.Errorf("memory: copy %s to %s: %w", src.space, dst.space, err)
	}
	return nil
}
