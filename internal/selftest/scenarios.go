package selftest

import (
	"context"

	"github.com/born-ml/mdarray/internal/index"
	"github.com/born-ml/mdarray/internal/mdarray"
)

func (o Options) arrayOptions(extra ...mdarray.Option) []mdarray.Option {
	return append([]mdarray.Option{
		mdarray.WithTracker(o.Tracker),
		mdarray.WithBackend(o.Backend),
		mdarray.WithParallel(o.Parallel),
	}, extra...)
}

type shaped interface {
	Size() int
	Rank() int
	Dim(k int) index.Descriptor
	ByteSize() int
	Release()
}

func checkShape(a shaped, sizes []int) error {
	want := 1
	for k, n := range sizes {
		want *= n
		if err := check(a.Dim(k).Size() == n, "rank %d dim %d: size %d, want %d", a.Rank(), k, a.Dim(k).Size(), n); err != nil {
			return err
		}
	}
	return check(a.Size() == want, "rank %d: size %d, want %d", a.Rank(), a.Size(), want)
}

func sizes(_ context.Context, o Options) error {
	shapes := [][]int{{7}, {3, 4}, {2, 3, 4}, {2, 1, 3, 2}, {1, 2, 1, 2, 3}, {2, 2, 2, 2, 2, 2}}
	arrays := make([]shaped, 0, len(shapes))
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	build := []func([]int) (shaped, error){
		func(s []int) (shaped, error) { return mdarray.New[float64, mdarray.R1](s, o.arrayOptions()...) },
		func(s []int) (shaped, error) { return mdarray.New[float32, mdarray.R2](s, o.arrayOptions()...) },
		func(s []int) (shaped, error) { return mdarray.New[complex128, mdarray.R3](s, o.arrayOptions()...) },
		func(s []int) (shaped, error) { return mdarray.New[int32, mdarray.R4](s, o.arrayOptions()...) },
		func(s []int) (shaped, error) { return mdarray.New[int64, mdarray.R5](s, o.arrayOptions()...) },
		func(s []int) (shaped, error) { return mdarray.New[uint8, mdarray.R6](s, o.arrayOptions()...) },
	}
	footprint := 0
	for i, s := range shapes {
		a, err := build[i](s)
		if err != nil {
			return err
		}
		arrays = append(arrays, a)
		if err := checkShape(a, s); err != nil {
			return err
		}
		footprint += a.ByteSize()
	}
	return check(o.Tracker.Allocated(mdarray.Host) >= int64(footprint), "tracker below footprint %d", footprint)
}

func empty(_ context.Context, o Options) error {
	before := o.Tracker.Stats()
	arrays := []shaped{
		mdarray.Empty[float64, mdarray.R1](),
		mdarray.Empty[float64, mdarray.R2](),
		mdarray.Empty[float64, mdarray.R3](),
		mdarray.Empty[float64, mdarray.R4](),
		mdarray.Empty[float64, mdarray.R5](),
		mdarray.Empty[float64, mdarray.R6](),
	}
	for _, a := range arrays {
		if err := checkShape(a, make([]int, a.Rank())); err != nil {
			return err
		}
	}
	return check(o.Tracker.Stats() == before, "empty arrays allocated memory")
}

func move(_ context.Context, o Options) error {
	a, err := mdarray.New[float64, mdarray.R2]([]int{10, 20}, o.arrayOptions(mdarray.WithLabel("move"))...)
	if err != nil {
		return err
	}
	for i := range a.Size() {
		a.SetIndex(i, float64(i))
	}
	want := a.Checksum()
	before := o.Tracker.Stats()

	b := a.Move()
	defer b.Release()
	if err := checkShape(b, []int{10, 20}); err != nil {
		return err
	}
	if err := check(b.Checksum() == want && b.At(9, 19) == 199, "moved contents differ"); err != nil {
		return err
	}
	if err := check(a.Size() == 0 && a.Ownership() == mdarray.NotOwned, "source not empty after move: %v", a); err != nil {
		return err
	}
	c := a.Move()
	if err := check(c.Size() == 0 && a.Size() == 0, "second move from an empty source is not empty"); err != nil {
		return err
	}
	return check(o.Tracker.Stats() == before, "move changed the tracker")
}

func reassign(_ context.Context, o Options) error {
	base := o.Tracker.Allocated(mdarray.Host)
	a, err := mdarray.New[float64, mdarray.R2]([]int{10, 10}, o.arrayOptions()...)
	if err != nil {
		return err
	}
	defer a.Release()

	b, err := mdarray.New[float64, mdarray.R2]([]int{20, 30}, o.arrayOptions()...)
	if err != nil {
		return err
	}
	a.Assign(b)
	if err := check(o.Tracker.Allocated(mdarray.Host)-base == int64(a.ByteSize()),
		"after reassign tracker holds %d bytes, want %d", o.Tracker.Allocated(mdarray.Host)-base, a.ByteSize()); err != nil {
		return err
	}

	if err := a.Reallocate([]int{5, 5}); err != nil {
		return err
	}
	return check(o.Tracker.Allocated(mdarray.Host)-base == int64(a.ByteSize()),
		"after reallocate tracker holds %d bytes, want %d", o.Tracker.Allocated(mdarray.Host)-base, a.ByteSize())
}

func lowerBounds(_ context.Context, o Options) error {
	for _, d := range []index.Descriptor{index.Must(0, 10), index.Must(-3, 4)} {
		a, err := mdarray.NewWithDims[float64, mdarray.R3]([]index.Descriptor{d, d, d}, o.arrayOptions()...)
		if err != nil {
			return err
		}
		mid := (d.Begin() + d.End()) / 2
		points := [][]int{
			{d.Begin(), d.Begin(), d.Begin()},
			{d.End(), d.End(), d.End()},
			{mid, d.Begin(), d.End()},
			{d.End(), mid, d.Begin()},
		}
		for i, p := range points {
			a.Set(float64(i+1), p...)
		}
		for i, p := range points {
			if err := check(a.At(p...) == float64(i+1), "%v at %v: got %v", d, p, a.At(p...)); err != nil {
				a.Release()
				return err
			}
		}
		a.Release()
	}
	return nil
}

func roundTrip(_ context.Context, o Options) error {
	opts := o.arrayOptions(mdarray.WithSpace(mdarray.HostDevice))
	a, err := mdarray.New[float64, mdarray.R2]([]int{64, 48}, opts...)
	if err != nil {
		return err
	}
	defer a.Release()
	b, err := mdarray.New[float64, mdarray.R2]([]int{64, 48}, opts...)
	if err != nil {
		return err
	}
	defer b.Release()

	for i := range a.Size() {
		a.SetIndex(i, float64(i)*0.5-7)
	}
	if err := a.Copy(mdarray.Host, mdarray.Device); err != nil {
		return err
	}
	if err := b.CopyFrom(a, mdarray.Device, mdarray.Device); err != nil {
		return err
	}
	if err := b.Copy(mdarray.Device, mdarray.Host); err != nil {
		return err
	}
	for i := range a.Size() {
		if err := check(a.Index(i) == b.Index(i), "element %d: %v != %v", i, b.Index(i), a.Index(i)); err != nil {
			return err
		}
	}
	return nil
}
