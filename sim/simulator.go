// sim/simulator.go
package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/queue-sim/sim/trace"
)

var (
	// ErrClockRegression is returned when an event is scheduled before the current clock.
	ErrClockRegression = errors.New("sim: event time before simulation clock")
	// ErrNotReset is returned when starting a run on a simulator that already
	// ran, or when continuing a run that reached its Termination event.
	ErrNotReset = errors.New("sim: simulator must be reset before the next run")
)

// Simulator owns the clock, the event chain, the system state and the
// statistics of a single-server finite-buffer queue.
//
// The clock is passed explicitly to the state and the counters; nothing holds
// a reference back to the simulator.
type Simulator struct {
	cfg   Config
	clock float64

	chain    *EventChain
	state    *SystemState
	counters *CounterCollection
	trace    *trace.SimulationTrace

	rng         *PartitionedRNG
	arrivals    RandomVariateSource
	service     RandomVariateSource
	replication int

	// per-run (or per-batch) tallies
	arrivalCount   int64
	acceptedCount  int64
	droppedCount   int64
	completedCount int64

	lastArrival     float64
	eventsProcessed int
	stop            bool
	started         bool
	terminated      bool
}

// NewSimulator validates cfg and returns a pristine simulator on replication 0.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Simulator{
		cfg:   cfg,
		chain: NewEventChain(),
		state: NewSystemState(cfg.BufferSize),
	}
	if err := s.restart(0); err != nil {
		return nil, err
	}
	return s, nil
}

// Config returns a copy of the active configuration.
func (s *Simulator) Config() Config { return s.cfg }

// Clock returns the current simulation time (ms).
func (s *Simulator) Clock() float64 { return s.clock }

// State exposes the system state for inspection. Callers MUST NOT mutate it.
func (s *Simulator) State() *SystemState { return s.state }

// Counters exposes the statistics of the current run or batch.
func (s *Simulator) Counters() *CounterCollection { return s.counters }

// Trace returns the recorded trace, nil when tracing is disabled.
func (s *Simulator) Trace() *trace.SimulationTrace { return s.trace }

// Replication returns the index of the current replication.
func (s *Simulator) Replication() int { return s.replication }

// RNG returns the partitioned RNG of the current replication.
func (s *Simulator) RNG() *PartitionedRNG { return s.rng }

// Reset restores a pristine state, event chain, clock and statistics while
// keeping the configuration. The random streams move on to the next
// replication so consecutive runs are independent.
func (s *Simulator) Reset() {
	// restart only fails on an invalid config, which SetConfig and NewSimulator rule out
	if err := s.restart(s.replication + 1); err != nil {
		panic(fmt.Sprintf("Reset: %v", err))
	}
}

// SetConfig validates and installs cfg, then resets the simulator to
// replication 0 of the new configuration.
func (s *Simulator) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	s.cfg = cfg
	return s.restart(0)
}

func (s *Simulator) restart(replication int) error {
	s.replication = replication
	s.rng = NewPartitionedRNG(NewSimulationKey(s.cfg.Seed).ForReplication(replication))
	arrivals, err := NewVariateSource(s.cfg.ArrivalDist, s.cfg.InterArrivalTime, s.rng.ForSubsystem(SubsystemArrival))
	if err != nil {
		return fmt.Errorf("arrival source: %w", err)
	}
	service, err := NewVariateSource(s.cfg.ServiceDist, s.cfg.MeanServiceTime(), s.rng.ForSubsystem(SubsystemService))
	if err != nil {
		return fmt.Errorf("service source: %w", err)
	}
	s.arrivals, s.service = arrivals, service

	s.clock = 0
	s.chain.Clear()
	s.state.Reset(s.cfg.BufferSize)
	s.counters = NewCounterCollection(s.cfg.MaxLag)
	s.trace = nil
	if tc := (trace.Config{Level: trace.Level(s.cfg.TraceLevel)}); tc.Enabled() {
		s.trace = trace.NewSimulationTrace(tc)
	}
	s.resetTallies()
	s.lastArrival = 0
	s.eventsProcessed = 0
	s.stop = false
	s.started = false
	s.terminated = false
	return nil
}

func (s *Simulator) resetTallies() {
	s.arrivalCount = 0
	s.acceptedCount = 0
	s.droppedCount = 0
	s.completedCount = 0
}

// BeginBatch starts a new batch: statistics and tallies are cleared and their
// windows restart at the current clock, while state, event chain and clock carry over.
func (s *Simulator) BeginBatch() error {
	s.resetTallies()
	s.counters.Reset(s.clock)
	return s.observe()
}

// Run performs a time-limited run up to Config.SimTime.
func (s *Simulator) Run() (SimResult, error) {
	if s.started {
		return SimResult{}, ErrNotReset
	}
	if err := s.prime(); err != nil {
		return SimResult{}, err
	}
	s.chain.Insert(Event{Time: s.cfg.SimTime, Kind: Termination})
	if err := s.loop(0); err != nil {
		return SimResult{}, err
	}
	return s.result(), nil
}

// RunPackets runs until n more packets completed service.
//
// With continueBatch false a fresh run is primed; the simulator must be
// pristine. With continueBatch true the run resumes from the current state,
// clock and event chain, and statistics keep accumulating (call BeginBatch to
// start a new batch window). A run that ended at its Termination event
// cannot be continued.
func (s *Simulator) RunPackets(n int, continueBatch bool) (SimResult, error) {
	if n < 1 {
		return SimResult{}, fmt.Errorf("packet count must be positive, got %d", n)
	}
	switch {
	case !continueBatch && s.started, s.terminated:
		return SimResult{}, ErrNotReset
	case !s.started:
		if err := s.prime(); err != nil {
			return SimResult{}, err
		}
	}
	if err := s.loop(int64(n)); err != nil {
		return SimResult{}, err
	}
	return s.result(), nil
}

// prime schedules the first arrival one inter-arrival time after the clock
// and opens the statistics windows.
func (s *Simulator) prime() error {
	s.started = true
	s.lastArrival = s.clock
	s.counters.Reset(s.clock)
	if err := s.observe(); err != nil {
		return err
	}
	s.chain.Insert(Event{Time: s.clock + s.arrivals.Next(), Kind: Arrival})
	logrus.Debugf("replication %d primed at %g ms (S=%d, rho=%g)", s.replication, s.clock, s.cfg.BufferSize, s.cfg.Rho)
	return nil
}

// loop processes events until a Termination, until target completions
// (when target > 0), or until the chain runs dry.
func (s *Simulator) loop(target int64) error {
	s.stop = false
	start := s.completedCount
	for !s.stop {
		ev, err := s.chain.RemoveOldest()
		if errors.Is(err, ErrEmptyEventChain) {
			break
		}
		if ev.Time < s.clock {
			return fmt.Errorf("%s with clock at %g: %w", ev, s.clock, ErrClockRegression)
		}
		s.clock = ev.Time
		if err := s.process(ev); err != nil {
			return fmt.Errorf("processing %s: %w", ev, err)
		}
		if target > 0 && s.completedCount-start >= target {
			s.stop = true
		}
	}
	logrus.Debugf("replication %d stopped at %g ms after %d events", s.replication, s.clock, s.eventsProcessed)
	return nil
}

// process applies one event to the system state.
func (s *Simulator) process(ev Event) error {
	var err error
	switch ev.Kind {
	case Arrival:
		err = s.arrive()
	case ServiceCompletion:
		err = s.complete()
	case Termination:
		s.stop = true
		s.terminated = true
		s.chain.Clear()
		err = s.counters.Advance(s.clock)
	default:
		return fmt.Errorf("unknown event kind %d", int(ev.Kind))
	}
	if err != nil {
		return err
	}
	logrus.Tracef("<< %s: queue=%d busy=%v", ev, s.state.QueueLength(), s.state.ServerBusy())
	if s.trace != nil {
		s.trace.RecordEvent(trace.EventRecord{
			Seq:         s.eventsProcessed,
			Clock:       s.clock,
			Kind:        ev.Kind.String(),
			QueueLength: s.state.QueueLength(),
			ServerBusy:  s.state.ServerBusy(),
		})
	}
	s.eventsProcessed++
	return nil
}

// arrive admits a new packet to the server or the buffer, or drops it,
// and always schedules the next arrival. Only admitted arrivals become packets.
func (s *Simulator) arrive() error {
	now := s.clock
	serviceTime := s.service.Next()
	iat := s.arrivals.Next()
	s.arrivalCount++

	interArrival := now - s.lastArrival
	s.lastArrival = now
	admit := func() *Packet {
		s.acceptedCount++
		return &Packet{ArrivalTime: now, InterArrival: interArrival, ServiceTime: serviceTime}
	}

	var reason string
	switch {
	case !s.state.ServerBusy():
		s.state.AddPacketToServer(admit(), now)
		s.chain.Insert(Event{Time: now + serviceTime, Kind: ServiceCompletion})
		reason = trace.ReasonServer
	case !s.state.BufferFull():
		s.state.AddPacketToQueue(admit())
		reason = trace.ReasonQueue
	default:
		s.droppedCount++
		reason = trace.ReasonBufferFull
	}
	if s.trace != nil {
		s.trace.RecordAdmission(trace.AdmissionRecord{
			Clock:    now,
			Admitted: reason != trace.ReasonBufferFull,
			Reason:   reason,
		})
	}

	s.chain.Insert(Event{Time: now + iat, Kind: Arrival})
	return s.observe()
}

// complete finishes the packet in service and pulls the head of the buffer.
func (s *Simulator) complete() error {
	now := s.clock
	p, err := s.state.CompleteService(now)
	if err != nil {
		return err
	}
	s.completedCount++
	s.counters.CountPacket(p)

	if next, ok := s.state.StartService(now); ok {
		s.chain.Insert(Event{Time: now + next.ServiceTime, Kind: ServiceCompletion})
	}
	return s.observe()
}

func (s *Simulator) observe() error {
	return s.counters.ObserveState(s.state.QueueLength(), s.state.ServerBusy(), s.clock)
}

// result snapshots the tallies and counter means. A counter without data
// (e.g. no completion yet) contributes 0.
func (s *Simulator) result() SimResult {
	r := SimResult{
		Arrivals:         s.arrivalCount,
		PacketsAccepted:  s.acceptedCount,
		PacketsDropped:   s.droppedCount,
		PacketsCompleted: s.completedCount,
		EndTime:          s.clock,
	}
	if s.arrivalCount > 0 {
		r.BlockingProbability = float64(s.droppedCount) / float64(s.arrivalCount)
	}
	r.MeanWaitingTime = meanOrZero(s.counters.WaitingTime)
	r.MeanQueueLength = meanOrZero(s.counters.QueueLength)
	r.SystemUtilization = meanOrZero(s.counters.Utilization)
	logrus.Debugf("replication %d: %s", s.replication, r)
	return r
}

type meaner interface {
	Name() string
	Mean() (float64, error)
}

func meanOrZero(c meaner) float64 {
	m, err := c.Mean()
	if err != nil {
		logrus.Debugf("%s undefined, reporting 0: %v", c.Name(), err)
		return 0
	}
	return m
}
