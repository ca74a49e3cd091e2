package selftest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/mdarray/internal/device"
	"github.com/born-ml/mdarray/internal/memory"
)

func TestRunAllScenarios(t *testing.T) {
	tracker := memory.NewTracker()
	results := Run(context.Background(), Options{
		Tracker: tracker,
		Backend: device.NewEmulated(0),
		Workers: 4,
		Rounds:  10,
		Shape:   []int{20, 20},
	})

	require.Len(t, results, len(Scenarios()))
	for _, r := range results {
		assert.True(t, r.Passed(), "%s: %v", r.Name, r.Err)
	}
	assert.Equal(t, int64(0), tracker.Allocated(memory.Host))
	assert.Equal(t, int64(0), tracker.Allocated(memory.Device))
}

func TestRunSkipsDeviceScenariosWithoutDevice(t *testing.T) {
	results := Run(context.Background(), Options{Backend: device.Unavailable{}, Rounds: 2, Shape: []int{8}})
	for _, r := range results {
		if r.Name == "round-trip" {
			assert.True(t, r.Skipped)
			assert.NoError(t, r.Err)
			continue
		}
		assert.True(t, r.Passed(), "%s: %v", r.Name, r.Err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, r := range Run(ctx, Options{}) {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestStress(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
	}{
		{"vector", []int{1000}},
		{"matrix", []int{100, 100}},
		{"rank 6", []int{2, 3, 2, 3, 2, 3}},
		{"zero size", []int{0, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := memory.NewTracker()
			report, err := Stress(context.Background(), Options{Tracker: tracker, Workers: 8, Rounds: 100, Shape: tt.shape})
			require.NoError(t, err)
			assert.Equal(t, int64(800), report.Arrays)
			assert.Equal(t, int64(0), report.Stats.Host.Bytes)
			assert.Equal(t, int64(0), report.Stats.Host.Live)
			assert.Contains(t, report.String(), "8 workers x 100 rounds")
		})
	}
}

func TestStressRejectsRank(t *testing.T) {
	_, err := Stress(context.Background(), Options{Shape: []int{1, 1, 1, 1, 1, 1, 1}})
	assert.Error(t, err)
}

func TestStressCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := Stress(ctx, Options{Rounds: 5})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Arrays)
}
