// Package device defines the capability interface through which arrays reach
// accelerator memory, plus the backends that do not need an accelerator.
package device

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoDevice is returned by backends that have no accelerator behind them.
var ErrNoDevice = errors.New("device: no accelerator available")

// ErrInvalidPointer is returned for handles a backend did not issue or already freed.
var ErrInvalidPointer = errors.New("device: invalid pointer")

// Ptr is an opaque device memory handle. It is not a Go pointer and cannot be
// dereferenced on the host.
type Ptr uint64

// Nil is the zero handle.
const Nil Ptr = 0

func (p Ptr) String() string {
	return fmt.Sprintf("0x%x", uint64(p))
}

// Backend is the minimal set of device memory operations.
//
// Implementations:
//   - Emulated: device memory simulated in separate host allocations
//   - Unavailable: every operation fails with ErrNoDevice
//   - webgpu: GPU storage buffers (windows builds)
//
// Copies are synchronous: when they return, the destination holds the data.
type Backend interface {
	Name() string
	Alloc(n int) (Ptr, error)
	Free(p Ptr) error
	CopyToDevice(dst Ptr, dstOff int, src []byte) error
	CopyToHost(dst []byte, src Ptr, srcOff int) error
}

var (
	defaultMu      sync.RWMutex
	defaultBackend Backend = Unavailable{}
)

// Default returns the process default backend.
func Default() Backend {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultBackend
}

// SetDefault replaces the process default backend and returns the previous one.
func SetDefault(b Backend) Backend {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultBackend
	defaultBackend = b
	return prev
}

// Opener constructs a backend by name.
type Opener func(capacity int) (Backend, error)

var openers = map[string]Opener{
	"emulated": func(capacity int) (Backend, error) { return NewEmulated(capacity), nil },
	"none":     func(int) (Backend, error) { return Unavailable{}, nil },
}

// Register makes a backend available to Open. Platform backends call it from init.
func Register(name string, open Opener) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	openers[name] = open
}

// Open constructs the named backend. capacity limits emulated device memory (0 = unlimited).
func Open(name string, capacity int) (Backend, error) {
	defaultMu.RLock()
	open, ok := openers[name]
	defaultMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("device: unknown backend %q", name)
	}
	return open(capacity)
}

// Unavailable is the backend used when no accelerator is configured.
type Unavailable struct{}

// Name returns the backend name.
func (Unavailable) Name() string { return "none" }

// Alloc always fails.
func (Unavailable) Alloc(int) (Ptr, error) { return Nil, ErrNoDevice }

// Free always fails.
func (Unavailable) Free(Ptr) error { return ErrNoDevice }

// CopyToDevice always fails.
func (Unavailable) CopyToDevice(Ptr, int, []byte) error { return ErrNoDevice }

// CopyToHost always fails.
func (Unavailable) CopyToHost([]byte, Ptr, int) error { return ErrNoDevice }
