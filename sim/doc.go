// Package sim provides the discrete-event simulation engine for a single-server
// queue with a finite buffer.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - system_state.go: server and buffer state machine (Idle/Busy × occupancy 0..S)
//   - event.go: the closed set of event kinds and their tie-break priorities
//   - simulator.go: the event loop, time- and count-limited runs, batches and replications
//
// # Architecture
//
// The sim package owns the engine; supporting concerns live in sub-packages:
//   - sim/stats/: counters, confidence intervals, histograms, chi-square test
//   - sim/analytic/: closed-form M/M/1/K reference model
//   - sim/trace/: event and admission trace recording
//   - sim/study/: replication drivers (buffer sizing, load sweeps, sequential estimation)
//
// # Determinism
//
// Every random draw comes from a PartitionedRNG subsystem (arrival, service)
// keyed by Config.Seed and the replication index. Events at the same instant
// are ordered by kind (service completion, arrival, termination) and then by
// insertion. Identical configs therefore give bit-identical results.
package sim
