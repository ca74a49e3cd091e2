package mdarray

import "fmt"

// checkIndex panics with ErrOutOfBounds or ErrRankMismatch for an invalid index.
func (a *Array[T, R]) checkIndex(idx []int) {
	if err := a.layout.Check(idx); err != nil {
		panic(fmt.Errorf("mdarray: %q: %w", a.label, err))
	}
}
