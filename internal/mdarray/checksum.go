package mdarray

import (
	"fmt"

	"github.com/born-ml/mdarray/internal/memory"
	"github.com/born-ml/mdarray/internal/parallel"
)

// checksumChunk is the fixed reduction block. Partial sums are combined in
// block order, so the result does not depend on the number of workers.
const checksumChunk = 1 << 14

// Checksum returns the elementwise sum of the array. Host data is used when
// present; a device-only array is staged through host memory first.
// A failed staging copy panics.
func (a *Array[T, R]) Checksum() T {
	a.copyCheck()
	data := a.host
	if data == nil && a.res.device != nil {
		staged, err := memory.Allocate(Host, a.ByteSize(), a.cfg.memoryOptions()...)
		if err != nil {
			panic(fmt.Errorf("mdarray: checksum of %q: %w", a.label, err))
		}
		defer staged.Release()
		if err := memory.Copy(staged, a.res.device, a.ByteSize()); err != nil {
			panic(fmt.Errorf("mdarray: checksum of %q: %w", a.label, err))
		}
		data = typed[T](staged.Bytes(), a.Size())
	}
	return sum(data, a.cfg.par)
}

func sum[T Elem](data []T, cfg parallel.Config) T {
	blocks := (len(data) + checksumChunk - 1) / checksumChunk
	partial := make([]T, blocks)
	cfg.MinChunkSize = 1
	parallel.For(blocks, func(b int) {
		start := b * checksumChunk
		end := min(start+checksumChunk, len(data))
		var s T
		for _, v := range data[start:end] {
			s += v
		}
		partial[b] = s
	}, cfg)

	var total T
	for _, s := range partial {
		total += s
	}
	return total
}
