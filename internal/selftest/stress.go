package selftest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/mdarray/internal/logging"
	"github.com/born-ml/mdarray/internal/mdarray"
	"github.com/born-ml/mdarray/internal/memory"
	"github.com/born-ml/mdarray/internal/parallel"
)

// StressReport summarizes a stress run.
type StressReport struct {
	Workers  int
	Rounds   int
	Arrays   int64
	Stats    memory.Stats
	Duration time.Duration
}

func (r StressReport) String() string {
	return fmt.Sprintf("%d workers x %d rounds, %d arrays in %v; %v", r.Workers, r.Rounds, r.Arrays, r.Duration, r.Stats)
}

// Stress runs o.Rounds rounds in which each of o.Workers goroutines builds an
// array of o.Shape, writes it and releases it. After every round the tracker
// must be back at its starting footprint. Cancelling ctx stops scheduling
// new rounds.
func Stress(ctx context.Context, opts Options) (StressReport, error) {
	o := opts.withDefaults()
	round, err := stressRound(o)
	if err != nil {
		return StressReport{}, err
	}

	report := StressReport{Workers: o.Workers, Rounds: o.Rounds}
	baseHost, baseDevice := o.Tracker.Allocated(mdarray.Host), o.Tracker.Allocated(mdarray.Device)
	start := time.Now()
	for r := 0; r < o.Rounds; r++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := parallel.Workers(ctx, o.Workers, round); err != nil {
			return report, fmt.Errorf("round %d: %w", r, err)
		}
		report.Arrays += int64(o.Workers)
		host, dev := o.Tracker.Allocated(mdarray.Host), o.Tracker.Allocated(mdarray.Device)
		if err := check(host == baseHost && dev == baseDevice, "round %d left %d host and %d device bytes", r, host-baseHost, dev-baseDevice); err != nil {
			return report, err
		}
	}
	report.Duration = time.Since(start)
	report.Stats = o.Tracker.Stats()
	logging.L().WithFields(logrus.Fields{
		"workers": o.Workers, "rounds": o.Rounds, "arrays": report.Arrays, "duration": report.Duration,
	}).Info("stress run complete")
	return report, nil
}

func stressRound(o Options) (func(ctx context.Context, w int) error, error) {
	switch len(o.Shape) {
	case 1:
		return stressWorker[mdarray.R1](o), nil
	case 2:
		return stressWorker[mdarray.R2](o), nil
	case 3:
		return stressWorker[mdarray.R3](o), nil
	case 4:
		return stressWorker[mdarray.R4](o), nil
	case 5:
		return stressWorker[mdarray.R5](o), nil
	case 6:
		return stressWorker[mdarray.R6](o), nil
	default:
		return nil, fmt.Errorf("%w: stress shape %v", mdarray.ErrRankMismatch, o.Shape)
	}
}

func stressWorker[R mdarray.Rank](o Options) func(ctx context.Context, w int) error {
	opts := o.arrayOptions(mdarray.WithParallel(parallel.Config{}))
	return func(_ context.Context, w int) error {
		a, err := mdarray.New[float64, R](o.Shape, opts...)
		if err != nil {
			return err
		}
		defer a.Release()
		for i := range a.Size() {
			a.SetIndex(i, float64(w))
		}
		return check(a.Checksum() == float64(w*a.Size()), "worker %d checksum", w)
	}
}
