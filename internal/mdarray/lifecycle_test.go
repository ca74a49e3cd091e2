package mdarray

import (
	"context"
	"runtime"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/mdarray/internal/device"
	"github.com/born-ml/mdarray/internal/logging"
	"github.com/born-ml/mdarray/internal/memory"
	"github.com/born-ml/mdarray/internal/parallel"
)

func TestMove(t *testing.T) {
	tracker := memory.NewTracker()
	a := MustNew[float64, R2]([]int{10, 10}, WithTracker(tracker), WithLabel("a"))
	a.Set(3, 4, 5)
	before := tracker.Stats()

	b := a.Move()
	defer b.Release()

	assert.Equal(t, before, tracker.Stats(), "move neither allocates nor frees")
	assert.Equal(t, 0, a.Size())
	assert.Equal(t, NotOwned, a.Ownership())
	assert.Nil(t, a.Host())
	assert.Empty(t, a.Label())

	assert.Equal(t, 100, b.Size())
	assert.Equal(t, OwnedHost, b.Ownership())
	assert.Equal(t, "a", b.Label())
	assert.Equal(t, 3.0, b.At(4, 5))

	c := b.Move()
	defer c.Release()
	assert.Equal(t, 0, b.Size())
	assert.Equal(t, 3.0, c.At(4, 5))
	assert.Equal(t, int64(800), tracker.Allocated(Host))

	d := a.Move()
	assert.Equal(t, 0, d.Size())
	assert.Equal(t, NotOwned, d.Ownership())

	c.Release()
	assert.Equal(t, int64(0), tracker.Allocated(Host))
}

func TestAssign(t *testing.T) {
	tracker := memory.NewTracker()
	dst := MustNew[float64, R2]([]int{10, 10}, WithTracker(tracker))
	defer dst.Release()
	src := MustNew[float64, R2]([]int{20, 20}, WithTracker(tracker), WithLabel("big"))
	src.Set(1, 19, 19)
	require.Equal(t, int64(800+3200), tracker.Allocated(Host))

	dst.Assign(src)
	assert.Equal(t, int64(3200), tracker.Allocated(Host), "only the new footprint remains")
	assert.Equal(t, int64(1), tracker.Live(Host))
	assert.Equal(t, 400, dst.Size())
	assert.Equal(t, "big", dst.Label())
	assert.Equal(t, 1.0, dst.At(19, 19))
	assert.Equal(t, 0, src.Size())
	assert.Equal(t, NotOwned, src.Ownership())

	dst.Assign(dst)
	assert.Equal(t, 400, dst.Size())
	assert.Equal(t, int64(3200), tracker.Allocated(Host))

	dst.Assign(Empty[float64, R2]())
	assert.Equal(t, 0, dst.Size())
	assert.Equal(t, int64(0), tracker.Allocated(Host))
}

func TestAllocateAndDeallocate(t *testing.T) {
	tracker := memory.NewTracker()
	emu := device.NewEmulated(0)
	a := MustNew[int64, R1]([]int{8}, WithTracker(tracker), WithBackend(emu))
	defer a.Release()
	for i := range a.Host() {
		a.Host()[i] = int64(i)
	}

	require.NoError(t, a.Allocate(Device))
	assert.Equal(t, OwnedBoth, a.Ownership())
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7}, a.Host(), "existing data is preserved")
	require.NoError(t, a.Allocate(HostDevice), "present spaces are kept")
	assert.Equal(t, int64(1), tracker.Live(Device))

	require.NoError(t, a.Copy(Host, Device))
	a.Deallocate(Host)
	assert.Equal(t, OwnedDevice, a.Ownership())
	assert.Nil(t, a.Host())
	assert.Equal(t, 8, a.Size())
	assert.Equal(t, int64(28), a.Checksum(), "device-only data is staged through host")

	require.NoError(t, a.Allocate(Host))
	require.NoError(t, a.Copy(Device, Host))
	assert.Equal(t, int64(7), a.At(7))

	a.Deallocate(HostDevice)
	assert.Equal(t, 0, a.Size())
	assert.Equal(t, NotOwned, a.Ownership())
	assert.Equal(t, memory.Stats{
		Host:   memory.SpaceStats{Allocations: 3, Peak: 64},
		Device: memory.SpaceStats{Allocations: 1, Peak: 64},
	}, tracker.Stats())
	assert.Equal(t, int64(0), emu.Live())
}

func TestReallocate(t *testing.T) {
	tracker := memory.NewTracker()
	a := MustNew[float64, R2]([]int{100, 100}, WithTracker(tracker), WithLabel("grid"))
	defer a.Release()

	require.NoError(t, a.Reallocate([]int{200, 200}))
	assert.Equal(t, 40000, a.Size())
	assert.Equal(t, "grid", a.Label())
	assert.Equal(t, int64(320000), tracker.Allocated(Host))
	assert.Equal(t, int64(320000), tracker.Peak(Host), "old and new footprints never coexist")

	assert.ErrorIs(t, a.Reallocate([]int{5}), ErrRankMismatch)
	assert.Equal(t, 40000, a.Size(), "failed validation leaves the array untouched")

	emu := device.NewEmulated(0)
	b := MustNew[float64, R1]([]int{4}, WithTracker(tracker), WithBackend(emu))
	defer b.Release()
	require.NoError(t, b.Reallocate([]int{6}, HostDevice))
	assert.Equal(t, OwnedBoth, b.Ownership())
	assert.Equal(t, int64(48), tracker.Allocated(Device))
}

func TestClone(t *testing.T) {
	tracker := memory.NewTracker()
	emu := device.NewEmulated(0)
	a := MustNew[complex128, R2]([]int{3, 2}, WithTracker(tracker), WithBackend(emu), WithSpace(HostDevice), WithLabel("orig"))
	defer a.Release()
	for i := range a.Host() {
		a.Host()[i] = complex(float64(i), -1)
	}
	require.NoError(t, a.Copy(Host, Device))

	c, err := a.Clone()
	require.NoError(t, err)
	defer c.Release()

	assert.Equal(t, OwnedBoth, c.Ownership())
	assert.Equal(t, "orig", c.Label())
	assert.Equal(t, a.Host(), c.Host())
	c.Set(100, 0, 0)
	assert.Equal(t, complex(0, -1), a.At(0, 0), "clone storage is independent")

	_, pa := a.Device()
	_, pc := c.Device()
	assert.NotEqual(t, pa, pc)
	c.Zero()
	require.NoError(t, c.Copy(Device, Host))
	assert.Equal(t, a.Host(), c.Host(), "device contents were cloned")

	external := []float64{1, 2, 3}
	v, err := Wrap[float64, R1](external, []int{3})
	require.NoError(t, err)
	o, err := v.Clone()
	require.NoError(t, err)
	defer o.Release()
	assert.Equal(t, OwnedHost, o.Ownership())
	o.Set(9, 0)
	assert.Equal(t, 1.0, external[0])
}

func TestConcurrentWorkers(t *testing.T) {
	tracker := memory.NewTracker()
	emu := device.NewEmulated(0)
	const workers, rounds = 8, 100

	err := parallel.Workers(context.Background(), workers, func(_ context.Context, w int) error {
		for i := 0; i < rounds; i++ {
			a, err := New[float64, R2]([]int{100, 100}, WithTracker(tracker), WithBackend(emu), WithSpace(HostDevice))
			if err != nil {
				return err
			}
			a.Set(float64(w), 99, 99)
			if err := a.Copy(Host, Device); err != nil {
				a.Release()
				return err
			}
			b := a.Move()
			b.Release()
		}
		return nil
	})
	require.NoError(t, err)

	stats := tracker.Stats()
	assert.Equal(t, int64(0), stats.Host.Bytes)
	assert.Equal(t, int64(0), stats.Device.Bytes)
	assert.Equal(t, int64(workers*rounds), stats.Host.Allocations)
	assert.Equal(t, int64(workers*rounds), stats.Device.Allocations)
	assert.Equal(t, int64(0), emu.Used())
}

func TestLeakedArrayKeepsStorage(t *testing.T) {
	hook := logtest.NewLocal(logging.L())
	defer hook.Reset()
	tracker := memory.NewTracker()
	emu := device.NewEmulated(0)

	host := func() []float64 {
		a := MustNew[float64, R1]([]int{1024}, WithTracker(tracker), WithBackend(emu),
			WithSpace(HostDevice), WithLabel("leaked"))
		a.Set(1, 0)
		return a.Host()
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		n := 0
		for _, e := range hook.AllEntries() {
			if e.Message == "array leaked without Release" && e.Data["label"] == "leaked" {
				n++
			}
		}
		return n == 2
	}, 5*time.Second, 10*time.Millisecond)

	host[0] = 42
	assert.Equal(t, 42.0, host[0])
	assert.Equal(t, int64(1), tracker.Live(Host))
	assert.Equal(t, int64(8192), tracker.Allocated(Host))
	assert.Equal(t, int64(8192), tracker.Allocated(Device))
	assert.Equal(t, int64(1), emu.Live(), "device storage is not freed behind the caller")
}

func TestReleasedArrayIsNotReportedAsLeaked(t *testing.T) {
	hook := logtest.NewLocal(logging.L())
	defer hook.Reset()
	tracker := memory.NewTracker()

	func() {
		a := MustNew[float64, R1]([]int{16}, WithTracker(tracker), WithLabel("released"))
		b := a.Move()
		b.Release()
	}()
	for range 5 {
		runtime.GC()
	}
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, "released", e.Data["label"])
	}
	assert.Equal(t, int64(0), tracker.Live(Host))
}
