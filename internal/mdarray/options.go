package mdarray

import (
	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/born-ml/mdarray/internal/device"
	"github.com/born-ml/mdarray/internal/memory"
	"github.com/born-ml/mdarray/internal/parallel"
)

// settings are the allocation and execution parameters an array keeps for its lifetime.
type settings struct {
	tracker *memory.Tracker
	backend device.Backend
	alloc   arrowmem.Allocator
	par     parallel.Config
}

func defaultSettings() settings {
	return settings{
		tracker: memory.Default(),
		backend: device.Default(),
		alloc:   arrowmem.DefaultAllocator,
		par:     parallel.DefaultConfig(),
	}
}

func (s settings) memoryOptions() []memory.Option {
	return []memory.Option{
		memory.WithTracker(s.tracker),
		memory.WithBackend(s.backend),
		memory.WithAllocator(s.alloc),
	}
}

type options struct {
	space Space
	label string
	settings
}

// Option configures array construction.
type Option func(*options)

func buildOptions(base settings, label string, opts []Option) options {
	o := options{space: Host, label: label, settings: base}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSpace selects which memory spaces are allocated at construction. Default: Host.
func WithSpace(space Space) Option {
	return func(o *options) { o.space = space }
}

// WithLabel attaches a diagnostic label.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithTracker accounts allocations in t instead of the process tracker.
func WithTracker(t *memory.Tracker) Option {
	return func(o *options) {
		if t != nil {
			o.tracker = t
		}
	}
}

// WithBackend uses b for device memory instead of the process default backend.
func WithBackend(b device.Backend) Option {
	return func(o *options) {
		if b != nil {
			o.backend = b
		}
	}
}

// WithAllocator allocates host memory from a.
func WithAllocator(a arrowmem.Allocator) Option {
	return func(o *options) {
		if a != nil {
			o.alloc = a
		}
	}
}

// WithParallel sets the parallel configuration used by Zero and Checksum.
func WithParallel(cfg parallel.Config) Option {
	return func(o *options) { o.par = cfg }
}
