package index

import (
	"fmt"
	"math"
)

// MaxRank is the largest supported number of dimensions.
const MaxRank = 6

// Layout is the column-major mapping from coordinates to linear offsets:
//
//	offset = Σ_k (i_k - begin_k) * stride_k,  stride_0 = 1,  stride_k = stride_{k-1} * size_{k-1}
//
// The lower bounds are folded into base so Offset is a single dot product.
type Layout struct {
	rank    int
	dims    [MaxRank]Descriptor
	strides [MaxRank]int
	base    int
	size    int
}

// NewLayout builds the layout for the given dimensions.
func NewLayout(dims []Descriptor) (Layout, error) {
	if len(dims) > MaxRank {
		return Layout{}, fmt.Errorf("%w: %d dimensions (max %d)", ErrRankMismatch, len(dims), MaxRank)
	}
	l := Layout{rank: len(dims)}
	stride := 1
	for k, d := range dims {
		l.dims[k] = d
		l.strides[k] = stride
		l.base -= d.begin * stride
		if d.size > 0 && stride > math.MaxInt/d.size {
			return Layout{}, fmt.Errorf("%w: %v overflows int", ErrTooLarge, dims)
		}
		stride *= d.size
	}
	l.size = stride
	if len(dims) == 0 {
		l.size = 0
	}
	return l, nil
}

// Empty returns the layout of an unshaped array of the given rank: every dimension has size 0.
func Empty(rank int) Layout {
	return Layout{rank: rank}
}

// Rank returns the number of dimensions.
func (l *Layout) Rank() int { return l.rank }

// Size returns the product of all dimension sizes.
func (l *Layout) Size() int { return l.size }

// Dim returns the descriptor of dimension k. Dimensions beyond the rank are empty.
func (l *Layout) Dim(k int) Descriptor {
	if k < 0 || k >= l.rank {
		return Descriptor{}
	}
	return l.dims[k]
}

// Dims returns a copy of the descriptors.
func (l *Layout) Dims() []Descriptor {
	return append([]Descriptor(nil), l.dims[:l.rank]...)
}

// Stride returns the stride of dimension k.
func (l *Layout) Stride(k int) int { return l.strides[k] }

// Offset maps coordinates to a linear offset. It performs no validation.
func (l *Layout) Offset(idx []int) int {
	off := l.base
	for k, i := range idx {
		off += i * l.strides[k]
	}
	return off
}

// Check validates idx against the rank and each dimension's bounds.
func (l *Layout) Check(idx []int) error {
	if len(idx) != l.rank {
		return fmt.Errorf("%w: expected %d indices, got %d", ErrRankMismatch, l.rank, len(idx))
	}
	for k, i := range idx {
		if !l.dims[k].Contains(i) {
			return fmt.Errorf("%w: index %d in dimension %d outside %v", ErrOutOfBounds, i, k, l.dims[k])
		}
	}
	return nil
}

// Equal reports whether two layouts have identical descriptors.
func (l *Layout) Equal(other *Layout) bool {
	return l.rank == other.rank && l.dims == other.dims
}

func (l *Layout) String() string {
	s := "("
	for k := 0; k < l.rank; k++ {
		if k > 0 {
			s += ", "
		}
		s += l.dims[k].String()
	}
	return s + ")"
}
