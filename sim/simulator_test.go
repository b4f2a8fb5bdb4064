package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/queue-sim/sim/analytic"
	"github.com/inference-sim/queue-sim/sim/trace"
)

func newTestSimulator(t *testing.T, mutate func(*Config)) *Simulator {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewSimulator(cfg)
	require.NoError(t, err)
	return s
}

func highLoad(c *Config) {
	c.BufferSize = 4
	c.Rho = 0.9
}

func TestNewSimulator_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rho = -1

	_, err := NewSimulator(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rho")
}

func TestSimulator_Run_Deterministic(t *testing.T) {
	// GIVEN two simulators with identical config and seed (S=4, rho=0.9, 100000 ms)
	a := newTestSimulator(t, func(c *Config) { highLoad(c); c.TraceLevel = "events" })
	b := newTestSimulator(t, func(c *Config) { highLoad(c); c.TraceLevel = "events" })

	// WHEN both run
	ra, err := a.Run()
	require.NoError(t, err)
	rb, err := b.Run()
	require.NoError(t, err)

	// THEN results and traces are bit-for-bit identical
	assert.Equal(t, ra, rb)
	assert.Equal(t, a.Trace().Events, b.Trace().Events)
	assert.Greater(t, ra.PacketsDropped, int64(0), "rho=0.9 with S=4 should drop packets")
}

func TestSimulator_Run_Conservation(t *testing.T) {
	for _, bufferSize := range []int{0, 1, 4, 20} {
		s := newTestSimulator(t, func(c *Config) { highLoad(c); c.BufferSize = bufferSize })

		r, err := s.Run()
		require.NoError(t, err)

		assert.Equal(t, r.Arrivals, r.PacketsAccepted+r.PacketsDropped, "S=%d", bufferSize)
		assert.LessOrEqual(t, r.PacketsCompleted, r.PacketsAccepted, "S=%d", bufferSize)
		inSystem := r.PacketsAccepted - r.PacketsCompleted
		assert.LessOrEqual(t, inSystem, int64(bufferSize+1), "S=%d", bufferSize)
	}
}

func TestSimulator_Run_BufferInvariantAtEveryEvent(t *testing.T) {
	// GIVEN a traced run under heavy load
	s := newTestSimulator(t, func(c *Config) {
		c.BufferSize = 3
		c.Rho = 1.5
		c.TraceLevel = string(trace.LevelEvents)
	})

	// WHEN it runs
	_, err := s.Run()
	require.NoError(t, err)

	// THEN 0 <= queue length <= S and a non-empty queue implies a busy server
	events := s.Trace().Events
	require.NotEmpty(t, events)
	prevClock := 0.0
	for _, e := range events {
		assert.GreaterOrEqual(t, e.QueueLength, 0)
		assert.LessOrEqual(t, e.QueueLength, 3)
		if e.QueueLength > 0 {
			assert.True(t, e.ServerBusy, "queue non-empty with idle server at %g", e.Clock)
		}
		assert.GreaterOrEqual(t, e.Clock, prevClock, "clock regression")
		prevClock = e.Clock
	}
	summary := trace.Summarize(s.Trace())
	assert.Equal(t, 3, summary.MaxQueueLength)
	assert.Equal(t, 1, summary.EventsByKind["termination"])
}

func TestSimulator_Run_TerminatesAtHorizon(t *testing.T) {
	s := newTestSimulator(t, func(c *Config) { c.SimTime = 5000 })

	r, err := s.Run()
	require.NoError(t, err)

	assert.Equal(t, 5000.0, r.EndTime)
	assert.Equal(t, 5000.0, s.Clock())
	assert.Equal(t, 5000.0, s.Counters().QueueLength.LastTimestamp())
}

func TestSimulator_Run_Twice_RequiresReset(t *testing.T) {
	s := newTestSimulator(t, nil)
	_, err := s.Run()
	require.NoError(t, err)

	_, err = s.Run()
	assert.True(t, errors.Is(err, ErrNotReset))
	_, err = s.RunPackets(10, false)
	assert.True(t, errors.Is(err, ErrNotReset))
}

func TestSimulator_Reset_PristineStateSameConfig(t *testing.T) {
	// GIVEN a simulator after a run
	s := newTestSimulator(t, highLoad)
	first, err := s.Run()
	require.NoError(t, err)
	cfg := s.Config()

	// WHEN reset
	s.Reset()

	// THEN config survives and state, chain, clock and counters are pristine
	assert.Equal(t, cfg, s.Config())
	assert.Equal(t, 0.0, s.Clock())
	assert.Equal(t, 0, s.State().QueueLength())
	assert.False(t, s.State().ServerBusy())
	assert.Equal(t, 0, s.Counters().WaitingTime.Len())
	assert.Equal(t, 0, s.Counters().QueueLength.Len())
	assert.Equal(t, 1, s.Replication())

	// THEN the next run is a new, independent replication
	second, err := s.Run()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, second.Arrivals, second.PacketsAccepted+second.PacketsDropped)
}

func TestSimulator_Replications_Reproducible(t *testing.T) {
	// GIVEN two simulators reset the same number of times
	a := newTestSimulator(t, nil)
	b := newTestSimulator(t, nil)
	for i := 0; i < 3; i++ {
		a.Reset()
		b.Reset()
	}

	ra, err := a.Run()
	require.NoError(t, err)
	rb, err := b.Run()
	require.NoError(t, err)

	// THEN replication 3 is identical on both
	assert.Equal(t, ra, rb)
}

func TestSimulator_SetConfig_AppliesAndResets(t *testing.T) {
	s := newTestSimulator(t, nil)
	_, err := s.Run()
	require.NoError(t, err)

	cfg := s.Config()
	cfg.BufferSize = 9
	require.NoError(t, s.SetConfig(cfg))

	assert.Equal(t, 9, s.State().Capacity())
	assert.Equal(t, 0, s.Replication())
	_, err = s.Run()
	assert.NoError(t, err)

	cfg.Alpha = 2
	assert.Error(t, s.SetConfig(cfg))
	assert.Equal(t, 9, s.Config().BufferSize, "rejected config must not be applied")
}

func TestSimulator_Run_MatchesMM1K(t *testing.T) {
	// GIVEN S=4, rho=0.9 over a long horizon
	s := newTestSimulator(t, func(c *Config) { highLoad(c); c.SimTime = 2e7 })
	cfg := s.Config()

	// WHEN simulated
	r, err := s.Run()
	require.NoError(t, err)

	// THEN blocking and utilization agree with M/M/1/(S+1)
	model := analytic.NewMM1K(cfg.BufferSize + 1)
	require.NoError(t, model.Solve(cfg.ArrivalRate(), cfg.ServiceRate()))
	pb, _ := model.BlockingProbability()
	util, _ := model.Utilization()
	lq, _ := model.MeanQueueLength()

	assert.InDelta(t, pb, r.BlockingProbability, 0.02)
	assert.InDelta(t, util, r.SystemUtilization, 0.02)
	assert.InDelta(t, lq, r.MeanQueueLength, 0.1)
}

func TestSimulator_ZeroBuffer_ErlangLoss(t *testing.T) {
	// GIVEN no waiting room: blocking is rho/(1+rho)
	s := newTestSimulator(t, func(c *Config) { c.BufferSize = 0; c.SimTime = 1e7 })

	r, err := s.Run()
	require.NoError(t, err)

	assert.InDelta(t, 0.5/1.5, r.BlockingProbability, 0.02)
	assert.Equal(t, 0.0, r.MeanWaitingTime)
	assert.Equal(t, 0.0, r.MeanQueueLength)
}

func TestSimulator_ConstantStreams_NoQueueing(t *testing.T) {
	// GIVEN deterministic arrivals every 490 ms and 245 ms service
	s := newTestSimulator(t, func(c *Config) {
		c.ArrivalDist = DistConstant
		c.ServiceDist = DistConstant
	})

	r, err := s.Run()
	require.NoError(t, err)

	// THEN nobody waits or is dropped and the server is busy half the time
	assert.Equal(t, int64(0), r.PacketsDropped)
	assert.Equal(t, 0.0, r.MeanWaitingTime)
	assert.Equal(t, 0.0, r.MeanQueueLength)
	assert.InDelta(t, 0.5, r.SystemUtilization, 0.01)
	assert.Equal(t, int64(204), r.Arrivals)
}

func TestSimulator_RunPackets_CountLimited(t *testing.T) {
	s := newTestSimulator(t, nil)

	r, err := s.RunPackets(500, false)
	require.NoError(t, err)

	assert.Equal(t, int64(500), r.PacketsCompleted)
	assert.Equal(t, 500, s.Counters().WaitingTime.Len())
	assert.Equal(t, r.EndTime, s.Clock())

	_, err = s.RunPackets(0, true)
	assert.Error(t, err)
}

func TestSimulator_Batches_ContinueStateAndClock(t *testing.T) {
	// GIVEN a first batch of 100 packets
	s := newTestSimulator(t, highLoad)
	first, err := s.RunPackets(100, false)
	require.NoError(t, err)
	queueAtBoundary := s.State().QueueLength()

	// WHEN a new batch starts and continues from the current state
	require.NoError(t, s.BeginBatch())
	assert.Equal(t, queueAtBoundary, s.State().QueueLength(), "BeginBatch must keep the state")
	second, err := s.RunPackets(100, true)
	require.NoError(t, err)

	// THEN the clock moved on monotonically and statistics cover the second batch only
	assert.Greater(t, second.EndTime, first.EndTime)
	assert.Equal(t, int64(100), second.PacketsCompleted)
	assert.Equal(t, 100, s.Counters().WaitingTime.Len())
	assert.Equal(t, first.EndTime, s.Counters().QueueLength.FirstTimestamp())
	assert.Equal(t, second.Arrivals, second.PacketsAccepted+second.PacketsDropped)
}

func TestSimulator_ContinueWithoutBeginBatch_Accumulates(t *testing.T) {
	s := newTestSimulator(t, nil)
	_, err := s.RunPackets(50, false)
	require.NoError(t, err)

	r, err := s.RunPackets(50, true)
	require.NoError(t, err)

	assert.Equal(t, int64(100), r.PacketsCompleted)
	assert.Equal(t, 100, s.Counters().WaitingTime.Len())
}

func TestSimulator_Batches_MatchSingleRun(t *testing.T) {
	// GIVEN the same seed run once for 300 packets and in three batches of 100
	whole := newTestSimulator(t, highLoad)
	w, err := whole.RunPackets(300, false)
	require.NoError(t, err)

	batched := newTestSimulator(t, highLoad)
	_, err = batched.RunPackets(100, false)
	require.NoError(t, err)
	_, err = batched.RunPackets(100, true)
	require.NoError(t, err)
	b, err := batched.RunPackets(100, true)
	require.NoError(t, err)

	// THEN the trajectory is the same
	assert.Equal(t, w.EndTime, b.EndTime)
	assert.Equal(t, whole.Counters().WaitingTime.Values(), batched.Counters().WaitingTime.Values())
}

func TestSimulator_CountersReport(t *testing.T) {
	s := newTestSimulator(t, func(c *Config) { c.MaxLag = 3 })
	_, err := s.RunPackets(200, false)
	require.NoError(t, err)

	report := s.Counters().Report()

	assert.Contains(t, report, "waiting time")
	assert.Contains(t, report, "IAT-ST")
	assert.Contains(t, report, "Lag = 3")
	assert.NotContains(t, report, "Lag = 4")
}

func TestSimulator_Termination_DiscardsPendingEvents(t *testing.T) {
	// GIVEN a time-limited run of 1000 ms
	s := newTestSimulator(t, func(c *Config) { c.SimTime = 1000 })
	_, err := s.Run()
	require.NoError(t, err)

	// THEN nothing is left on the chain
	assert.Equal(t, 0, s.chain.Len())

	// WHEN the run is continued
	_, err = s.RunPackets(10, true)

	// THEN it is refused and the clock stays at the horizon
	assert.ErrorIs(t, err, ErrNotReset)
	assert.Equal(t, 1000.0, s.Clock())

	// WHEN the simulator is reset
	s.Reset()

	// THEN a count-limited run starts again
	r, err := s.RunPackets(10, false)
	require.NoError(t, err)
	assert.Equal(t, int64(10), r.PacketsCompleted)
}

func TestSimulator_SetConfig_ReusesSystemState(t *testing.T) {
	// GIVEN a simulator after a run with S=4
	s := newTestSimulator(t, highLoad)
	state := s.State()
	_, err := s.Run()
	require.NoError(t, err)

	// WHEN the buffer grows to 9
	cfg := s.Config()
	cfg.BufferSize = 9
	require.NoError(t, s.SetConfig(cfg))

	// THEN the same state is emptied and resized
	assert.Same(t, state, s.State())
	assert.Equal(t, 9, s.State().Capacity())
	assert.Equal(t, 0, s.State().QueueLength())
	assert.False(t, s.State().ServerBusy())
}

func TestSimulator_DroppedArrivals_StillSpaceInterArrivals(t *testing.T) {
	// GIVEN no waiting room, arrivals every 490 ms and 735 ms service
	s := newTestSimulator(t, func(c *Config) {
		c.ArrivalDist = DistConstant
		c.ServiceDist = DistConstant
		c.BufferSize = 0
		c.Rho = 1.5
		c.SimTime = 10000
	})

	r, err := s.Run()
	require.NoError(t, err)

	// THEN every second arrival is dropped
	assert.Equal(t, int64(20), r.Arrivals)
	assert.Equal(t, int64(10), r.PacketsAccepted)
	assert.Equal(t, int64(10), r.PacketsDropped)

	// AND admitted packets measure their inter-arrival time from the dropped arrival before them
	iats := s.Counters().IATService.X()
	require.Len(t, iats, 9)
	assert.Equal(t, 490.0, iats[0])
	for _, iat := range iats[1:] {
		assert.Equal(t, 980.0, iat)
	}
}

func TestSimulator_Histograms_FilledByRun(t *testing.T) {
	// GIVEN a default run
	s := newTestSimulator(t, nil)
	_, err := s.Run()
	require.NoError(t, err)

	// WHEN the histograms are finalized
	waiting, queue, err := s.Counters().Histograms()
	require.NoError(t, err)

	// THEN both carry bins; the queue-length weights span the whole horizon
	require.NotNil(t, waiting)
	require.NotNil(t, queue)
	assert.Len(t, waiting.Edges, 26)
	assert.Len(t, waiting.Counts, 25)
	assert.Len(t, queue.Counts, 50)
	var total float64
	for _, c := range queue.Counts {
		total += c
	}
	assert.InDelta(t, s.Config().SimTime, total, 1e-3)
}

func TestSimulator_Histograms_NilWithoutCompletions(t *testing.T) {
	s := newTestSimulator(t, nil)

	waiting, _, err := s.Counters().Histograms()

	require.NoError(t, err)
	assert.Nil(t, waiting)
}
