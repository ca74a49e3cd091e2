// Package mdarray implements dense N-dimensional arrays that live in host
// memory, device memory, or both, with explicit synchronization between them.
package mdarray

import (
	"unsafe"

	"github.com/born-ml/mdarray/internal/memory"
)

// Elem is the constraint for array element types.
type Elem interface {
	~float32 | ~float64 | ~complex64 | ~complex128 | ~int32 | ~int64 | ~int | ~uint8
}

// Rank is implemented by the marker types R1 through R6. The rank of an
// array is part of its type: Array[float64, R2] is a matrix.
type Rank interface {
	rank() int
}

// Rank markers.
type (
	R1 struct{}
	R2 struct{}
	R3 struct{}
	R4 struct{}
	R5 struct{}
	R6 struct{}
)

func (R1) rank() int { return 1 }
func (R2) rank() int { return 2 }
func (R3) rank() int { return 3 }
func (R4) rank() int { return 4 }
func (R5) rank() int { return 5 }
func (R6) rank() int { return 6 }

func rankOf[R Rank]() int {
	var r R
	return r.rank()
}

func sizeOf[T Elem]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Space selects memory spaces.
type Space = memory.Space

// Memory spaces.
const (
	Host       = memory.Host
	Device     = memory.Device
	HostDevice = memory.HostDevice
)

// typed reinterprets b as n elements of T.
func typed[T Elem](b []byte, n int) []T {
	if n == 0 || len(b) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, len(b) >= n*sizeof(T) by construction
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
}

// raw reinterprets a typed slice as bytes.
func raw[T Elem](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*sizeOf[T]())
}
