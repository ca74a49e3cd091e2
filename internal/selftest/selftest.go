// Package selftest runs the library's acceptance scenarios against a live
// configuration: sizes, empty arrays, move, reassignment, lower-bound
// indexing, host/device round trips and a concurrent stress run.
package selftest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/mdarray/internal/device"
	"github.com/born-ml/mdarray/internal/logging"
	"github.com/born-ml/mdarray/internal/memory"
	"github.com/born-ml/mdarray/internal/parallel"
)

// ErrCheck is wrapped by every failed scenario check.
var ErrCheck = errors.New("selftest: check failed")

func check(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrCheck, fmt.Sprintf(format, args...))
}

// Options configure a run. Zero fields take defaults.
type Options struct {
	Tracker  *memory.Tracker // private tracker; a fresh one when nil
	Backend  device.Backend  // device backend; device.Default() when nil
	Parallel parallel.Config
	Workers  int   // stress workers (default 4)
	Rounds   int   // stress rounds (default 100)
	Shape    []int // stress array shape (default 100x100)
}

func (o Options) withDefaults() Options {
	if o.Tracker == nil {
		o.Tracker = memory.NewTracker()
	}
	if o.Backend == nil {
		o.Backend = device.Default()
	}
	if o.Parallel == (parallel.Config{}) {
		o.Parallel = parallel.DefaultConfig()
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Rounds <= 0 {
		o.Rounds = 100
	}
	if len(o.Shape) == 0 {
		o.Shape = []int{100, 100}
	}
	return o
}

// Scenario is one named acceptance check.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, o Options) error
}

// Result is the outcome of one scenario.
type Result struct {
	Name     string
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Passed reports whether the scenario ran and succeeded.
func (r Result) Passed() bool { return r.Err == nil && !r.Skipped }

// Scenarios returns every scenario in execution order.
func Scenarios() []Scenario {
	return []Scenario{
		{"sizes", sizes},
		{"empty", empty},
		{"move", move},
		{"reassign", reassign},
		{"lower-bounds", lowerBounds},
		{"round-trip", roundTrip},
		{"stress", func(ctx context.Context, o Options) error {
			_, err := Stress(ctx, o)
			return err
		}},
	}
}

// Run executes every scenario and returns their results. A scenario that
// needs a device is skipped when the backend has none. The tracker must be
// back at its starting point after each scenario.
func Run(ctx context.Context, opts Options) []Result {
	o := opts.withDefaults()
	results := make([]Result, 0, len(Scenarios()))
	for _, s := range Scenarios() {
		if ctx.Err() != nil {
			results = append(results, Result{Name: s.Name, Err: ctx.Err()})
			continue
		}
		before := o.Tracker.Stats()
		start := time.Now()
		err := s.Run(ctx, o)
		r := Result{Name: s.Name, Err: err, Duration: time.Since(start)}
		if errors.Is(err, device.ErrNoDevice) {
			r.Err, r.Skipped = nil, true
		}
		if after := o.Tracker.Stats(); r.Err == nil && (after.Host.Bytes != before.Host.Bytes || after.Device.Bytes != before.Device.Bytes) {
			r.Err = check(false, "%s leaked: %v", s.Name, after)
		}

		entry := logging.L().WithFields(logrus.Fields{"scenario": s.Name, "duration": r.Duration})
		switch {
		case r.Skipped:
			entry.Info("scenario skipped: no device")
		case r.Err != nil:
			entry.WithError(r.Err).Error("scenario failed")
		default:
			entry.Info("scenario passed")
		}
		results = append(results, r)
	}
	return results
}
