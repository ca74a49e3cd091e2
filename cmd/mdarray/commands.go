package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/born-ml/mdarray/internal/memory"
	"github.com/born-ml/mdarray/internal/selftest"
)

// needsDevice marks commands that open the configured device backend.
var needsDevice = map[string]string{"device": "true"}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mdarray %s\n", version)
		},
	}
}

func newSelftestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "selftest",
		Short:       "Run the acceptance scenarios",
		Args:        cobra.NoArgs,
		Annotations: needsDevice,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tracker := memory.NewTracker()
			results := selftest.Run(ctx, a.options(tracker))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			failed := 0
			for _, r := range results {
				status := "ok"
				switch {
				case r.Skipped:
					status = "skip (no device)"
				case r.Err != nil:
					status = "FAIL: " + r.Err.Error()
					failed++
				}
				fmt.Fprintf(w, "%s\t%v\t%s\n", r.Name, r.Duration.Round(time.Microsecond), status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tracker: %v\n", tracker.Stats())
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
			}
			return nil
		},
	}
}

func newStressCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "stress",
		Short:       "Allocate and release arrays from concurrent workers",
		Args:        cobra.NoArgs,
		Annotations: needsDevice,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := selftest.Stress(ctx, a.options(memory.NewTracker()))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Int("workers", 0, "Concurrent workers (overrides config)")
	flags.Int("rounds", 0, "Rounds per worker (overrides config)")
	flags.IntSlice("shape", nil, "Array shape, e.g. 100,100 (overrides config)")
	for key, flag := range map[string]string{"stress.workers": "workers", "stress.rounds": "rounds", "stress.shape": "shape"} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func (a *app) options(tracker *memory.Tracker) selftest.Options {
	return selftest.Options{
		Tracker:  tracker,
		Backend:  a.backend,
		Parallel: a.cfg.ParallelConfig(),
		Workers:  a.cfg.Stress.Workers,
		Rounds:   a.cfg.Stress.Rounds,
		Shape:    a.cfg.Stress.Shape,
	}
}
