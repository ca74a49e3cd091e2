package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrOutOfMemory is returned when an emulated device runs out of capacity.
var ErrOutOfMemory = errors.New("device: out of memory")

// Emulated simulates device memory with host allocations that are only
// reachable through handles, so host code cannot touch them without a copy.
// It is safe for concurrent use; handle lookup goes through a sync.Map and the
// usage counters are atomic.
type Emulated struct {
	capacity int64
	next     atomic.Uint64
	used     atomic.Int64
	live     atomic.Int64
	mem      sync.Map // Ptr -> []byte
}

// Verify that Emulated implements Backend.
var _ Backend = (*Emulated)(nil)

// NewEmulated creates an emulated device. capacity bounds total live bytes (0 = unlimited).
func NewEmulated(capacity int) *Emulated {
	return &Emulated{capacity: int64(capacity)}
}

// Name returns the backend name.
func (e *Emulated) Name() string { return "emulated" }

// Alloc reserves n bytes of device memory.
func (e *Emulated) Alloc(n int) (Ptr, error) {
	if n < 0 {
		return Nil, fmt.Errorf("device: negative allocation %d", n)
	}
	if e.capacity > 0 {
		for {
			used := e.used.Load()
			if used+int64(n) > e.capacity {
				return Nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use",
					ErrOutOfMemory, n, used, e.capacity)
			}
			if e.used.CompareAndSwap(used, used+int64(n)) {
				break
			}
		}
	} else {
		e.used.Add(int64(n))
	}
	p := Ptr(e.next.Add(1))
	e.mem.Store(p, make([]byte, n))
	e.live.Add(1)
	return p, nil
}

// Free releases a handle returned by Alloc.
func (e *Emulated) Free(p Ptr) error {
	v, ok := e.mem.LoadAndDelete(p)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidPointer, p)
	}
	e.used.Add(-int64(len(v.([]byte))))
	e.live.Add(-1)
	return nil
}

// CopyToDevice copies src into device memory at dst+dstOff.
func (e *Emulated) CopyToDevice(dst Ptr, dstOff int, src []byte) error {
	mem, err := e.lookup(dst, dstOff, len(src))
	if err != nil {
		return err
	}
	copy(mem, src)
	return nil
}

// CopyToHost copies len(dst) bytes from device memory at src+srcOff.
func (e *Emulated) CopyToHost(dst []byte, src Ptr, srcOff int) error {
	mem, err := e.lookup(src, srcOff, len(dst))
	if err != nil {
		return err
	}
	copy(dst, mem)
	return nil
}

func (e *Emulated) lookup(p Ptr, off, n int) ([]byte, error) {
	v, ok := e.mem.Load(p)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPointer, p)
	}
	mem := v.([]byte)
	if off < 0 || n < 0 || off+n > len(mem) {
		return nil, fmt.Errorf("device: range [%d, %d) outside allocation of %d bytes", off, off+n, len(mem))
	}
	return mem[off : off+n], nil
}

// Used returns the number of live bytes.
func (e *Emulated) Used() int64 { return e.used.Load() }

// Live returns the number of live allocations.
func (e *Emulated) Live() int64 { return e.live.Load() }
