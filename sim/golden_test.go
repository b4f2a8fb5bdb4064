package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/queue-sim/sim/internal/testutil"
)

// TestSimulator_GoldenDataset runs every scenario of testdata/goldendataset.json
// and compares the long-run metrics with their M/M/1/(S+1) values.
func TestSimulator_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)

	for _, tc := range dataset.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.BufferSize = tc.BufferSize
			cfg.Rho = tc.Rho
			cfg.InterArrivalTime = tc.InterArrivalTime
			cfg.SimTime = tc.SimTime
			cfg.Seed = tc.Seed
			s, err := NewSimulator(cfg)
			require.NoError(t, err)

			r, err := s.Run()
			require.NoError(t, err)

			testutil.AssertFloat64Equal(t, "blocking_probability", tc.Metrics.BlockingProbability, r.BlockingProbability, tc.RelTol)
			testutil.AssertFloat64Equal(t, "system_utilization", tc.Metrics.SystemUtilization, r.SystemUtilization, tc.RelTol)
			testutil.AssertFloat64Equal(t, "mean_queue_length", tc.Metrics.MeanQueueLength, r.MeanQueueLength, tc.RelTol)
			testutil.AssertFloat64Equal(t, "mean_waiting_time_ms", tc.Metrics.MeanWaitingTimeMs, r.MeanWaitingTime, tc.RelTol)
		})
	}
}
