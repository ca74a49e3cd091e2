package index

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor(t *testing.T) {
	tests := []struct {
		name       string
		begin, end int
		wantSize   int
		wantErr    bool
	}{
		{"zero based", 0, 9, 10, false},
		{"non-zero lower bound", -3, 3, 7, false},
		{"single element", 5, 5, 1, false},
		{"begin after end", 4, 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.begin, tt.end)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, d.Size())
			assert.Equal(t, tt.begin, d.Begin())
			assert.Equal(t, tt.end, d.End())
			assert.True(t, d.Contains(tt.begin))
			assert.True(t, d.Contains(tt.end))
			assert.False(t, d.Contains(tt.end+1))
			assert.False(t, d.Contains(tt.begin-1))
		})
	}
}

func TestDescriptorZeroValueIsEmpty(t *testing.T) {
	var d Descriptor
	assert.Equal(t, 0, d.Size())
	assert.Equal(t, 0, d.Begin())
	assert.Equal(t, -1, d.End())
	assert.False(t, d.Contains(0))
	assert.Equal(t, "[0:-1]", d.String())
}

func TestExtent(t *testing.T) {
	d, err := Extent(0)
	require.NoError(t, err)
	assert.Equal(t, Descriptor{}, d)

	_, err = Extent(-1)
	assert.ErrorIs(t, err, ErrInvalidRange)

	dims, err := Extents(2, 3, 4)
	require.NoError(t, err)
	require.Len(t, dims, 3)
	assert.Equal(t, 3, dims[1].Size())
}

func TestMustPanics(t *testing.T) {
	assert.Panics(t, func() { Must(1, 0) })
	assert.NotPanics(t, func() { Must(0, 0) })
}

func TestLayoutColumnMajor(t *testing.T) {
	dims, err := Extents(2, 3, 4)
	require.NoError(t, err)
	l, err := NewLayout(dims)
	require.NoError(t, err)

	assert.Equal(t, 24, l.Size())
	assert.Equal(t, 1, l.Stride(0))
	assert.Equal(t, 2, l.Stride(1))
	assert.Equal(t, 6, l.Stride(2))

	// Dimension 0 varies fastest.
	assert.Equal(t, 0, l.Offset([]int{0, 0, 0}))
	assert.Equal(t, 1, l.Offset([]int{1, 0, 0}))
	assert.Equal(t, 2, l.Offset([]int{0, 1, 0}))
	assert.Equal(t, 23, l.Offset([]int{1, 2, 3}))
}

func TestLayoutLowerBounds(t *testing.T) {
	l, err := NewLayout([]Descriptor{Must(1, 3), Must(-2, 2)})
	require.NoError(t, err)

	assert.Equal(t, 15, l.Size())
	assert.Equal(t, 0, l.Offset([]int{1, -2}))
	assert.Equal(t, 2, l.Offset([]int{3, -2}))
	assert.Equal(t, 3, l.Offset([]int{1, -1}))
	assert.Equal(t, 14, l.Offset([]int{3, 2}))

	// Every coordinate maps to a distinct offset covering [0, size).
	seen := make(map[int]bool)
	for j := -2; j <= 2; j++ {
		for i := 1; i <= 3; i++ {
			seen[l.Offset([]int{i, j})] = true
		}
	}
	assert.Len(t, seen, 15)
}

func TestLayoutCheck(t *testing.T) {
	l, err := NewLayout([]Descriptor{Must(0, 10), Must(0, 10)})
	require.NoError(t, err)

	assert.NoError(t, l.Check([]int{0, 10}))
	assert.True(t, errors.Is(l.Check([]int{11, 0}), ErrOutOfBounds))
	assert.True(t, errors.Is(l.Check([]int{0, -1}), ErrOutOfBounds))
	assert.True(t, errors.Is(l.Check([]int{0}), ErrRankMismatch))
}

func TestLayoutEmpty(t *testing.T) {
	l := Empty(3)
	assert.Equal(t, 3, l.Rank())
	assert.Equal(t, 0, l.Size())
	for k := 0; k < 3; k++ {
		assert.Equal(t, 0, l.Dim(k).Size())
	}
	assert.Equal(t, 0, l.Dim(7).Size())

	_, err := NewLayout(make([]Descriptor, MaxRank+1))
	assert.ErrorIs(t, err, ErrRankMismatch)
}

func TestLayoutZeroSizedDimension(t *testing.T) {
	l, err := NewLayout([]Descriptor{Must(0, 3), {}})
	require.NoError(t, err)
	assert.Equal(t, 0, l.Size())
}

func TestLayoutRejectsOverflow(t *testing.T) {
	half := math.MaxInt/2 + 1
	tests := []struct {
		name string
		dims []Descriptor
	}{
		{"product", []Descriptor{Must(0, half-1), Must(0, 1)}},
		{"three dimensions", []Descriptor{Must(0, 1<<20), Must(0, 1<<20), Must(0, math.MaxInt/(1<<40))}},
		{"before an empty dimension", []Descriptor{Must(0, half-1), Must(0, 2), {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayout(tt.dims)
			assert.ErrorIs(t, err, ErrTooLarge)
		})
	}

	l, err := NewLayout([]Descriptor{Must(0, half-2), Must(0, 1)})
	require.NoError(t, err)
	assert.Equal(t, 2*(half-1), l.Size())

	_, err = New(math.MinInt, math.MaxInt)
	assert.ErrorIs(t, err, ErrTooLarge)
}
