package study

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/queue-sim/sim"
)

func highLoad(c *sim.Config) {
	c.BufferSize = 4
	c.Rho = 0.9
}

func TestReplicateUntilConfident_Converges(t *testing.T) {
	// GIVEN S=4, rho=0.9 over 100 s runs
	s := newStudySimulator(t, highLoad)

	// WHEN replicating until the 90% interval is at most 2*0.01 wide
	r, err := ReplicateUntilConfident(s, 0.1, 0.01, 1000)
	require.NoError(t, err)

	// THEN the criterion holds and every run covered the full horizon
	assert.True(t, r.Converged)
	assert.GreaterOrEqual(t, r.Samples, 2)
	assert.LessOrEqual(t, r.BlockingProbability.HalfWidth, 0.02)
	assert.InDelta(t, float64(r.Samples)*100000, r.SimulatedTime, 1e-6)
	assert.LessOrEqual(t, r.BootstrapLower, r.BootstrapUpper)
	assert.Greater(t, r.BlockingProbability.Mean, 0.0)
	assert.Less(t, r.BlockingProbability.Mean, 0.3)
}

func TestReplicateUntilConfident_TighterTargetNeedsMoreRuns(t *testing.T) {
	s := newStudySimulator(t, highLoad)

	loose, err := ReplicateUntilConfident(s, 0.1, 0.01, 1000)
	require.NoError(t, err)
	tight, err := ReplicateUntilConfident(s, 0.1, 0.005, 1000)
	require.NoError(t, err)

	// common random numbers: the tight run replays the loose one and may go on
	assert.GreaterOrEqual(t, tight.Samples, loose.Samples)
	assert.LessOrEqual(t, tight.BlockingProbability.HalfWidth, 0.01)
}

func TestReplicateUntilConfident_RunLimit(t *testing.T) {
	s := newStudySimulator(t, highLoad)

	r, err := ReplicateUntilConfident(s, 0.1, 1e-9, 3)
	require.NoError(t, err)

	assert.False(t, r.Converged)
	assert.Equal(t, 3, r.Samples)
}

func TestBatchMeans_Converges(t *testing.T) {
	// GIVEN batches of 100 packets at S=4, rho=0.9
	s := newStudySimulator(t, highLoad)

	// WHEN batching until the interval is narrow enough
	r, err := BatchMeans(s, 100, 0.1, 0.01, 10000)
	require.NoError(t, err)

	// THEN it converged on a single trajectory
	assert.True(t, r.Converged)
	assert.GreaterOrEqual(t, r.Samples, 2)
	assert.LessOrEqual(t, r.BlockingProbability.HalfWidth, 0.02)
	assert.Greater(t, r.SimulatedTime, 0.0)
	assert.Greater(t, r.BlockingProbability.Mean, 0.0)
	assert.Less(t, r.BlockingProbability.Mean, 0.3)
}

func TestBatchMeans_Deterministic(t *testing.T) {
	a, err := BatchMeans(newStudySimulator(t, highLoad), 50, 0.1, 0.01, 10000)
	require.NoError(t, err)
	b, err := BatchMeans(newStudySimulator(t, highLoad), 50, 0.1, 0.01, 10000)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSequentialStudies_InvalidArguments(t *testing.T) {
	s := newStudySimulator(t, nil)

	_, err := ReplicateUntilConfident(s, 0, 0.01, 10)
	assert.Error(t, err)
	_, err = ReplicateUntilConfident(s, 0.1, 0, 10)
	assert.Error(t, err)
	_, err = ReplicateUntilConfident(s, 0.1, 0.01, 1)
	assert.Error(t, err)
	_, err = BatchMeans(s, 0, 0.1, 0.01, 10)
	assert.Error(t, err)
	_, err = BatchMeans(s, 10, 0.1, 0.01, 1)
	assert.Error(t, err)
}
