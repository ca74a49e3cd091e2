package mdarray

import (
	"fmt"

	"github.com/born-ml/mdarray/internal/memory"
	"github.com/born-ml/mdarray/internal/parallel"
)

// Copy synchronizes the dst representation with the src representation.
// Both must exist. The data is in dst when Copy returns.
func (a *Array[T, R]) Copy(src, dst Space) error {
	return a.CopyN(src, dst, a.Size())
}

// CopyN synchronizes the first n elements from the src representation to dst.
func (a *Array[T, R]) CopyN(src, dst Space, n int) error {
	a.copyCheck()
	if !src.Single() || !dst.Single() {
		return fmt.Errorf("%w: copy %v to %v", memory.ErrInvalidSpace, src, dst)
	}
	if n < 0 || n > a.Size() {
		return mismatch(a.label, "copy of %d elements in array of %d", n, a.Size())
	}
	from, to := a.res.buffer(src), a.res.buffer(dst)
	if from == nil || to == nil {
		return mismatch(a.label, "copy %v to %v on array with %v", src, dst, a.Spaces())
	}
	if src == dst {
		return nil
	}
	return memory.Copy(to, from, n*sizeOf[T]())
}

// CopyFrom copies the contents of src's srcSpace representation into a's
// dstSpace representation. Both arrays must have the same number of elements.
// Shapes may differ; the data is copied in storage order.
func (a *Array[T, R]) CopyFrom(src *Array[T, R], srcSpace, dstSpace Space) error {
	a.copyCheck()
	src.copyCheck()
	if !srcSpace.Single() || !dstSpace.Single() {
		return fmt.Errorf("%w: copy %v to %v", memory.ErrInvalidSpace, srcSpace, dstSpace)
	}
	if src.Size() != a.Size() {
		return mismatch(a.label, "copy from %q of %d elements into %d", src.label, src.Size(), a.Size())
	}
	if a.Size() == 0 {
		return nil
	}
	from, to := src.res.buffer(srcSpace), a.res.buffer(dstSpace)
	if from == nil || to == nil {
		return mismatch(a.label, "copy from %v of %q into %v, arrays hold %v and %v",
			srcSpace, src.label, dstSpace, src.Spaces(), a.Spaces())
	}
	if from == to {
		return nil
	}
	return memory.Copy(to, from, a.ByteSize())
}

// Zero fills the host representation with zeros.
func (a *Array[T, R]) Zero() {
	a.copyCheck()
	host := a.host
	parallel.ForChunks(len(host), func(start, end int) {
		clear(host[start:end])
	}, a.cfg.par)
}

// ZeroSpace fills the representations in the given spaces with zeros.
func (a *Array[T, R]) ZeroSpace(space Space) error {
	a.copyCheck()
	if space.Has(Host) {
		a.Zero()
	}
	if space.Has(Device) && a.res.device != nil {
		return a.res.device.Zero()
	}
	return nil
}
