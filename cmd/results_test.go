package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/trace"
)

func smallConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.SimTime = 20000
	cfg.Runs = 10
	return cfg
}

func TestRunSimulation_SingleReplication(t *testing.T) {
	// GIVEN the default model over 20 s
	cfg := smallConfig()

	// WHEN one replication runs
	out, err := runSimulation(cfg, 0, 1)
	require.NoError(t, err)

	// THEN the output carries an xid, the result and the analytic reference
	_, err = xid.FromString(out.RunID)
	assert.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, 20000.0, out.Results[0].EndTime)
	require.NotNil(t, out.Analytic)
	assert.Greater(t, out.Analytic.BlockingProbability, 0.0)
	assert.Contains(t, out.CountersReport, "waiting time")
	assert.Nil(t, out.TraceSummary)
}

func TestRunSimulation_ReportsHistograms(t *testing.T) {
	// GIVEN one replication of the default model
	out, err := runSimulation(smallConfig(), 0, 1)
	require.NoError(t, err)

	// THEN both per-run histograms are finalized into the output
	require.NotNil(t, out.WaitingTimeHistogram)
	require.NotNil(t, out.QueueLengthHistogram)
	assert.Len(t, out.WaitingTimeHistogram.Edges, len(out.WaitingTimeHistogram.Counts)+1)
	assert.NotEmpty(t, out.QueueLengthHistogram.Counts)

	// AND they are printed and serialized
	var buf bytes.Buffer
	printRun(&buf, out)
	assert.Contains(t, buf.String(), "=== Histogram: Waiting Time (ms) ===")
	assert.Contains(t, buf.String(), "=== Histogram: Queue Length ===")

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"queue_length_histogram":{"edges":[`)
}

func TestRunSimulation_ReplicationsAreIndependent(t *testing.T) {
	out, err := runSimulation(smallConfig(), 0, 3)
	require.NoError(t, err)

	require.Len(t, out.Results, 3)
	assert.NotEqual(t, out.Results[0], out.Results[1])
	assert.NotEqual(t, out.Results[1], out.Results[2])
}

func TestRunSimulation_CountLimited(t *testing.T) {
	out, err := runSimulation(smallConfig(), 250, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(250), out.Results[0].PacketsCompleted)
}

func TestRunSimulation_TraceAndNonExponential(t *testing.T) {
	// GIVEN uniform service with event tracing
	cfg := smallConfig()
	cfg.ServiceDist = sim.DistUniform
	cfg.TraceLevel = string(trace.LevelEvents)

	out, err := runSimulation(cfg, 0, 1)
	require.NoError(t, err)

	// THEN the trace is summarized and no M/M/1/K reference is claimed
	require.NotNil(t, out.TraceSummary)
	assert.Equal(t, int(out.Results[0].Arrivals), out.TraceSummary.Arrivals)
	assert.Nil(t, out.Analytic)
}

func TestRunSimulation_InvalidArguments(t *testing.T) {
	_, err := runSimulation(smallConfig(), 0, 0)
	assert.Error(t, err)
	_, err = runSimulation(smallConfig(), -1, 1)
	assert.Error(t, err)

	cfg := smallConfig()
	cfg.Rho = 0
	_, err = runSimulation(cfg, 0, 1)
	assert.Error(t, err)
}

func TestPrintRun_Sections(t *testing.T) {
	cfg := smallConfig()
	cfg.TraceLevel = string(trace.LevelEvents)
	out, err := runSimulation(cfg, 0, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	printRun(&buf, out)

	text := buf.String()
	assert.Contains(t, text, "=== Simulation Results ===")
	assert.Contains(t, text, out.RunID)
	assert.Contains(t, text, "=== M/M/1/K Reference ===")
	assert.Contains(t, text, "=== Trace Summary ===")
	assert.Contains(t, text, "=== Counters ===")
}

func TestWriteResults_JSONRoundTrip(t *testing.T) {
	// GIVEN a run output
	out, err := runSimulation(smallConfig(), 0, 2)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "results.json")

	// WHEN written to disk
	require.NoError(t, writeResults(path, out))

	// THEN the file holds the run id, the config and every replication
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded RunOutput
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, out.RunID, decoded.RunID)
	assert.Equal(t, out.Config, decoded.Config)
	assert.Equal(t, out.Results, decoded.Results)
	assert.Contains(t, string(data), `"blocking_probability"`)
}

func TestWriteResults_BadPath(t *testing.T) {
	err := writeResults(filepath.Join(t.TempDir(), "missing", "results.json"), map[string]int{"a": 1})
	assert.Error(t, err)
}
