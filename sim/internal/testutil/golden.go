// Package testutil loads the analytic golden dataset that long simulated runs
// are checked against, and compares metrics with a relative tolerance.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one simulated scenario with its closed-form M/M/1/(S+1) reference.
type GoldenTestCase struct {
	Name             string        `json:"name"`
	BufferSize       int           `json:"buffer_size"`
	Rho              float64       `json:"rho"`
	InterArrivalTime float64       `json:"inter_arrival_time"`
	SimTime          float64       `json:"sim_time"`
	Seed             int64         `json:"seed"`
	RelTol           float64       `json:"rel_tol"`
	Metrics          GoldenMetrics `json:"metrics"`
}

// GoldenMetrics represents the expected long-run metrics of a scenario.
type GoldenMetrics struct {
	BlockingProbability float64 `json:"blocking_probability"`
	SystemUtilization   float64 `json:"system_utilization"`
	MeanQueueLength     float64 `json:"mean_queue_length"`
	MeanWaitingTimeMs   float64 `json:"mean_waiting_time_ms"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
