package memory

import (
	"fmt"
	"sync/atomic"
)

// counters for one memory space. Padded so the two spaces do not share a cache line.
type counters struct {
	bytes  atomic.Int64
	live   atomic.Int64
	allocs atomic.Int64
	peak   atomic.Int64
	_      [32]byte
}

// Tracker accounts for live buffers per memory space. All updates are atomic;
// there is no lock, so concurrent allocations from unrelated goroutines never
// contend on anything but the counters themselves.
type Tracker struct {
	spaces [numSpaces]counters
}

var defaultTracker = NewTracker()

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Default returns the process-wide tracker.
func Default() *Tracker {
	return defaultTracker
}

func (t *Tracker) add(s Space, n int) {
	c := &t.spaces[s.index()]
	cur := c.bytes.Add(int64(n))
	c.live.Add(1)
	c.allocs.Add(1)
	for {
		peak := c.peak.Load()
		if cur <= peak || c.peak.CompareAndSwap(peak, cur) {
			return
		}
	}
}

func (t *Tracker) sub(s Space, n int) {
	c := &t.spaces[s.index()]
	c.bytes.Add(-int64(n))
	c.live.Add(-1)
}

// Allocated returns the live bytes in the given space(s).
func (t *Tracker) Allocated(s Space) int64 {
	var n int64
	for _, sp := range s.Spaces() {
		n += t.spaces[sp.index()].bytes.Load()
	}
	return n
}

// Live returns the number of live buffers in the given space(s).
func (t *Tracker) Live(s Space) int64 {
	var n int64
	for _, sp := range s.Spaces() {
		n += t.spaces[sp.index()].live.Load()
	}
	return n
}

// Allocations returns the cumulative number of successful allocations in a single space.
func (t *Tracker) Allocations(s Space) int64 {
	return t.spaces[s.index()].allocs.Load()
}

// Peak returns the high-water mark of live bytes in a single space.
func (t *Tracker) Peak(s Space) int64 {
	return t.spaces[s.index()].peak.Load()
}

// SpaceStats is a snapshot of one space's counters.
type SpaceStats struct {
	Bytes       int64
	Live        int64
	Allocations int64
	Peak        int64
}

// Stats is a snapshot of all counters.
type Stats struct {
	Host   SpaceStats
	Device SpaceStats
}

// Stats returns a snapshot of the counters. Each field is read atomically;
// the snapshot as a whole is only consistent once concurrent work has joined.
func (t *Tracker) Stats() Stats {
	read := func(s Space) SpaceStats {
		c := &t.spaces[s.index()]
		return SpaceStats{
			Bytes:       c.bytes.Load(),
			Live:        c.live.Load(),
			Allocations: c.allocs.Load(),
			Peak:        c.peak.Load(),
		}
	}
	return Stats{Host: read(Host), Device: read(Device)}
}

func (s SpaceStats) String() string {
	return fmt.Sprintf("%s in %d buffers (peak %s, %d allocations)",
		HumanSize(s.Bytes), s.Live, HumanSize(s.Peak), s.Allocations)
}

func (s Stats) String() string {
	return fmt.Sprintf("host: %v; device: %v", s.Host, s.Device)
}
