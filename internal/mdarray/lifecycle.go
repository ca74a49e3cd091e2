package mdarray

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/mdarray/internal/index"
	"github.com/born-ml/mdarray/internal/logging"
	"github.com/born-ml/mdarray/internal/memory"
)

// allocate reserves every requested space that is not present yet. Zero-size
// arrays never hold buffers.
func (a *Array[T, R]) allocate(space Space) error {
	size := a.layout.Size()
	if size == 0 {
		return nil
	}
	if size > math.MaxInt/sizeOf[T]() {
		first := Host
		if ss := space.Spaces(); len(ss) > 0 {
			first = ss[0]
		}
		err := &AllocError{Space: first, Bytes: math.MaxInt,
			Err: fmt.Errorf("%w: %d elements of %d bytes", index.ErrTooLarge, size, sizeOf[T]())}
		logging.L().WithFields(logrus.Fields{"label": a.label, "space": first}).WithError(err).Error("allocation failed")
		return err
	}
	n := a.ByteSize()
	for _, s := range space.Spaces() {
		if a.res.buffer(s) != nil {
			continue
		}
		buf, err := memory.Allocate(s, n, a.cfg.memoryOptions()...)
		if err != nil {
			return err
		}
		a.res.set(s, buf)
		if s == Host {
			a.host = typed[T](buf.Bytes(), a.layout.Size())
		}
		a.ensureCleanup()
	}
	return nil
}

// Allocate adds representations in the given spaces. Spaces that are already
// present are kept as they are; new ones are zeroed.
func (a *Array[T, R]) Allocate(space Space) error {
	a.copyCheck()
	if a.res.view {
		return fmt.Errorf("%w: cannot allocate through a view", ErrInvalidOwnership)
	}
	if a.layout.Size() == 0 {
		return ErrNotShaped
	}
	return a.allocate(space)
}

// Deallocate frees the representations in the given spaces. When no
// representation is left the array becomes unshaped.
func (a *Array[T, R]) Deallocate(space Space) {
	a.copyCheck()
	for _, s := range space.Spaces() {
		buf := a.res.buffer(s)
		if buf == nil {
			continue
		}
		if !a.res.view {
			buf.Release()
		}
		a.res.set(s, nil)
		if s == Host {
			a.host = nil
		}
	}
	if a.res.spaces() == 0 {
		a.reset()
	}
}

// Release frees everything the array owns and leaves it unshaped. A view only
// drops its references. Release is idempotent.
func (a *Array[T, R]) Release() {
	if a == nil {
		return
	}
	a.copyCheck()
	a.res.release()
	a.reset()
}

// reset returns a to the unshaped state. The resources struct is kept because
// the GC cleanup refers to it.
func (a *Array[T, R]) reset() {
	*a.res = resources{view: a.res.view, label: a.label}
	a.layout = index.Empty(rankOf[R]())
	a.host = nil
}

// Move transfers everything a owns to a new array and leaves a unshaped.
// No memory is allocated or copied.
func (a *Array[T, R]) Move() *Array[T, R] {
	a.copyCheck()
	dst := &Array[T, R]{layout: a.layout, label: a.label, host: a.host, cfg: a.cfg, res: &resources{}}
	dst.addr = dst
	dst.res.takeFrom(a.res)
	a.res.view = dst.res.view
	if dst.res.ownership() != NotOwned {
		dst.ensureCleanup()
	}
	a.layout = index.Empty(rankOf[R]())
	a.host = nil
	a.label = ""
	return dst
}

// Assign releases what a owns and takes over src's storage, shape and label,
// leaving src unshaped. Assigning an array to itself does nothing.
func (a *Array[T, R]) Assign(src *Array[T, R]) {
	if a == src {
		return
	}
	a.copyCheck()
	src.copyCheck()
	a.res.release()
	a.res.takeFrom(src.res)
	a.layout, a.label, a.host, a.cfg = src.layout, src.label, src.host, src.cfg
	src.layout = index.Empty(rankOf[R]())
	src.host = nil
	src.label = ""
	if a.res.ownership() != NotOwned {
		a.ensureCleanup()
	}
}

// Reallocate releases the current storage and allocates a new shape in the
// given spaces (Host if none). Label and settings are kept. On a failed
// shape validation the array is left untouched.
func (a *Array[T, R]) Reallocate(sizes []int, space ...Space) error {
	dims, err := index.Extents(sizes...)
	if err != nil {
		return err
	}
	return a.ReallocateWithDims(dims, space...)
}

// ReallocateWithDims is Reallocate with explicit per-dimension bounds.
func (a *Array[T, R]) ReallocateWithDims(dims []index.Descriptor, space ...Space) error {
	a.copyCheck()
	if a.res.view {
		return fmt.Errorf("%w: cannot reallocate a view", ErrInvalidOwnership)
	}
	layout, err := newLayout[R](dims)
	if err != nil {
		return err
	}
	want := Host
	if len(space) > 0 {
		want = 0
		for _, s := range space {
			want |= s
		}
	}

	a.res.release()
	a.reset()
	a.layout = layout
	if err := a.allocate(want); err != nil {
		a.res.release()
		a.reset()
		return err
	}
	logging.L().WithFields(logrus.Fields{"label": a.label, "layout": layout.String(), "space": want}).Debug("array reallocated")
	return nil
}

// Clone returns an owning deep copy with the same shape, label and
// representations as a. Cloning a view produces an owning array.
func (a *Array[T, R]) Clone() (*Array[T, R], error) {
	a.copyCheck()
	c := &Array[T, R]{layout: a.layout, label: a.label, cfg: a.cfg, res: &resources{label: a.label}}
	c.addr = c
	if err := c.allocate(a.res.spaces()); err != nil {
		c.res.release()
		return nil, err
	}
	for _, s := range a.res.spaces().Spaces() {
		if err := memory.Copy(c.res.buffer(s), a.res.buffer(s), a.ByteSize()); err != nil {
			c.Release()
			return nil, err
		}
	}
	return c, nil
}
