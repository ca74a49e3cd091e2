// Package parallel provides fork-join helpers for array kernels and worker pools.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4096,
	}
}

// Chunks partitions [0, n) into contiguous [start, end) ranges.
// The partition depends only on n and cfg, never on scheduling, so
// reductions that combine per-chunk results in order are deterministic.
func Chunks(n int, cfg Config) [][2]int {
	if n <= 0 {
		return nil
	}
	workers := max(cfg.NumWorkers, 1)
	size := max((n+workers-1)/workers, cfg.MinChunkSize, 1)
	if !cfg.Enabled {
		size = n
	}
	chunks := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		chunks = append(chunks, [2]int{start, min(start+size, n)})
	}
	return chunks
}

// ForChunks executes f once per chunk of [0, n), concurrently when there is more than one.
func ForChunks(n int, f func(start, end int), cfg Config) {
	chunks := Chunks(n, cfg)
	if len(chunks) <= 1 {
		for _, c := range chunks {
			f(c[0], c[1])
		}
		return
	}

	var wg sync.WaitGroup
	for _, c := range chunks {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(c[0], c[1])
	}
	wg.Wait()
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	ForChunks(n, func(s, e int) {
		for i := s; i < e; i++ {
			f(i)
		}
	}, cfg)
}

// Workers runs f for w in [0, n) on n goroutines and waits for all of them.
// The first error cancels ctx for the others and is returned.
func Workers(ctx context.Context, n int, f func(ctx context.Context, w int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < n; w++ {
		g.Go(func() error {
			return f(ctx, w)
		})
	}
	return g.Wait()
}
