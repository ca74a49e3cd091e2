// Package index implements per-dimension index descriptors and the column-major
// layout shared by every array rank.
package index

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when a descriptor is built with begin > end.
	ErrInvalidRange = errors.New("index: invalid range")

	// ErrOutOfBounds indicates an index outside a descriptor's declared range.
	ErrOutOfBounds = errors.New("index: index out of bounds")

	// ErrRankMismatch indicates a wrong number of indices or dimensions.
	ErrRankMismatch = errors.New("index: rank mismatch")

	// ErrTooLarge indicates a shape whose element count does not fit in an int.
	ErrTooLarge = errors.New("index: shape too large")
)

// Descriptor is one dimension's inclusive [begin, end] range.
// The zero value is the empty descriptor (0, -1) with size 0.
type Descriptor struct {
	begin int
	size  int
}

// New returns the descriptor [begin, end]. begin > end is rejected.
func New(begin, end int) (Descriptor, error) {
	if begin > end {
		return Descriptor{}, fmt.Errorf("%w: [%d:%d]", ErrInvalidRange, begin, end)
	}
	size := end - begin + 1
	if size <= 0 {
		return Descriptor{}, fmt.Errorf("%w: [%d:%d]", ErrTooLarge, begin, end)
	}
	return Descriptor{begin: begin, size: size}, nil
}

// Must is like New but panics on an invalid range.
func Must(begin, end int) Descriptor {
	d, err := New(begin, end)
	if err != nil {
		panic(err)
	}
	return d
}

// Extent returns the zero-based descriptor [0, n-1]. Extent(0) is empty.
func Extent(n int) (Descriptor, error) {
	if n < 0 {
		return Descriptor{}, fmt.Errorf("%w: negative extent %d", ErrInvalidRange, n)
	}
	return Descriptor{size: n}, nil
}

// Extents converts sizes into zero-based descriptors.
func Extents(sizes ...int) ([]Descriptor, error) {
	dims := make([]Descriptor, len(sizes))
	for i, n := range sizes {
		d, err := Extent(n)
		if err != nil {
			return nil, fmt.Errorf("dimension %d: %w", i, err)
		}
		dims[i] = d
	}
	return dims, nil
}

// Begin returns the lower bound.
func (d Descriptor) Begin() int { return d.begin }

// End returns the inclusive upper bound.
func (d Descriptor) End() int { return d.begin + d.size - 1 }

// Size returns end - begin + 1.
func (d Descriptor) Size() int { return d.size }

// Contains reports whether i lies within [begin, end].
func (d Descriptor) Contains(i int) bool {
	return i >= d.begin && i-d.begin < d.size
}

func (d Descriptor) String() string {
	return fmt.Sprintf("[%d:%d]", d.Begin(), d.End())
}
