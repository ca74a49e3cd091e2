package mdarray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/mdarray/internal/device"
	"github.com/born-ml/mdarray/internal/memory"
	"github.com/born-ml/mdarray/internal/parallel"
)

func TestHostDeviceRoundTrip(t *testing.T) {
	tracker := memory.NewTracker()
	emu := device.NewEmulated(0)
	opts := []Option{WithTracker(tracker), WithBackend(emu), WithSpace(HostDevice)}

	a := MustNew[float64, R2]([]int{100, 100}, opts...)
	defer a.Release()
	b := MustNew[float64, R2]([]int{100, 100}, opts...)
	defer b.Release()

	for j := 0; j < 100; j++ {
		for i := 0; i < 100; i++ {
			a.Set(float64(i*100+j)/7, i, j)
		}
	}
	require.NoError(t, a.Copy(Host, Device))
	require.NoError(t, b.CopyFrom(a, Device, Device))
	require.NoError(t, b.Copy(Device, Host))
	assert.Equal(t, a.Host(), b.Host())

	b.Zero()
	require.NoError(t, b.CopyFrom(a, Device, Host))
	assert.Equal(t, a.Host(), b.Host())
}

func TestCopyN(t *testing.T) {
	emu := device.NewEmulated(0)
	a := MustNew[int32, R1]([]int{6}, WithTracker(memory.NewTracker()), WithBackend(emu), WithSpace(HostDevice))
	defer a.Release()

	copy(a.Host(), []int32{1, 2, 3, 4, 5, 6})
	require.NoError(t, a.CopyN(Host, Device, 3))
	a.Zero()
	require.NoError(t, a.Copy(Device, Host))
	assert.Equal(t, []int32{1, 2, 3, 0, 0, 0}, a.Host())
	require.NoError(t, a.Copy(Host, Host))
}

func TestCopyErrors(t *testing.T) {
	tracker := memory.NewTracker()
	a := MustNew[float64, R1]([]int{4}, WithTracker(tracker), WithBackend(device.NewEmulated(0)))
	defer a.Release()

	assert.ErrorIs(t, a.Copy(Host, Device), ErrSizeMismatch, "missing device representation")
	assert.ErrorIs(t, a.Copy(Device, Host), ErrSizeMismatch)
	assert.ErrorIs(t, a.CopyN(Host, Host, 5), ErrSizeMismatch)
	assert.ErrorIs(t, a.Copy(HostDevice, Host), memory.ErrInvalidSpace)

	other := MustNew[float64, R2]([]int{2, 3}, WithTracker(tracker))
	defer other.Release()
	src := MustNew[float64, R1]([]int{6}, WithTracker(tracker))
	defer src.Release()
	assert.ErrorIs(t, a.CopyFrom(src, Host, Host), ErrSizeMismatch)

	dst := MustNew[float64, R1]([]int{6}, WithTracker(tracker))
	defer dst.Release()
	assert.ErrorIs(t, dst.CopyFrom(src, Device, Host), ErrSizeMismatch)
}

func TestCopyFromIntoView(t *testing.T) {
	tracker := memory.NewTracker()
	src := MustNew[float64, R1]([]int{6}, WithTracker(tracker))
	defer src.Release()
	copy(src.Host(), []float64{1, 2, 3, 4, 5, 6})

	flat, err := Wrap[float64, R1](make([]float64, 6), []int{6})
	require.NoError(t, err)
	require.NoError(t, flat.CopyFrom(src, Host, Host))
	assert.Equal(t, src.Host(), flat.Host())
	require.NoError(t, src.CopyFrom(src, Host, Host))
}

func TestZeroSpace(t *testing.T) {
	emu := device.NewEmulated(0)
	a := MustNew[float32, R2]([]int{300, 300}, WithTracker(memory.NewTracker()), WithBackend(emu), WithSpace(HostDevice))
	defer a.Release()

	for i := range a.Host() {
		a.Host()[i] = 1
	}
	require.NoError(t, a.Copy(Host, Device))
	require.NoError(t, a.ZeroSpace(HostDevice))
	assert.Zero(t, a.Checksum())

	a.Set(5, 0, 0)
	require.NoError(t, a.Copy(Device, Host))
	assert.Zero(t, a.Checksum())
}

func TestChecksumDeterministic(t *testing.T) {
	tracker := memory.NewTracker()
	const n = 100_003

	sums := make([]float64, 0, 4)
	for _, workers := range []int{1, 2, 7, 16} {
		cfg := parallel.Config{Enabled: workers > 1, NumWorkers: workers, MinChunkSize: 1}
		a := MustNew[float64, R1]([]int{n}, WithTracker(tracker), WithParallel(cfg))
		for i := range a.Host() {
			a.Host()[i] = 1 / float64(i+1)
		}
		sums = append(sums, a.Checksum())
		sums = append(sums, a.Checksum())
		a.Release()
	}
	for _, s := range sums[1:] {
		assert.Equal(t, sums[0], s)
	}

	b := MustNew[int64, R2]([]int{3, 4}, WithTracker(tracker))
	defer b.Release()
	for i := range b.Host() {
		b.SetIndex(i, int64(i))
	}
	assert.Equal(t, int64(66), b.Checksum())
	assert.Zero(t, Empty[int64, R2]().Checksum())
}
