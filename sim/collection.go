package sim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inference-sim/queue-sim/sim/stats"
)

// CounterCollection owns every statistic a simulator gathers during a run.
type CounterCollection struct {
	WaitingTime *stats.TimeIndependentCounter
	SystemTime  *stats.TimeIndependentCounter
	ServiceTime *stats.TimeIndependentCounter

	QueueLength *stats.TimeDependentCounter
	Utilization *stats.TimeDependentCounter

	WaitingTimeAuto *stats.AutoCorrelationCounter

	IATWaiting    *stats.CrossCorrelationCounter
	IATService    *stats.CrossCorrelationCounter
	IATSystem     *stats.CrossCorrelationCounter
	ServiceSystem *stats.CrossCorrelationCounter

	WaitingTimeHistogram *stats.TimeIndependentHistogram
	QueueLengthHistogram *stats.TimeDependentHistogram
}

// NewCounterCollection creates empty counters; maxLag bounds the waiting-time auto correlation report.
func NewCounterCollection(maxLag int) *CounterCollection {
	return &CounterCollection{
		WaitingTime:          stats.NewTimeIndependentCounter("waiting time"),
		SystemTime:           stats.NewTimeIndependentCounter("system time"),
		ServiceTime:          stats.NewTimeIndependentCounter("service time"),
		QueueLength:          stats.NewTimeDependentCounter("queue length"),
		Utilization:          stats.NewTimeDependentCounter("server utilization"),
		WaitingTimeAuto:      stats.NewAutoCorrelationCounter("waiting time", maxLag),
		IATWaiting:           stats.NewCrossCorrelationCounter("IAT-WT"),
		IATService:           stats.NewCrossCorrelationCounter("IAT-ST"),
		IATSystem:            stats.NewCrossCorrelationCounter("IAT-SYST"),
		ServiceSystem:        stats.NewCrossCorrelationCounter("ST-SYST"),
		WaitingTimeHistogram: stats.WaitingTimeHistogram(),
		QueueLengthHistogram: stats.NewTimeDependentHistogram("queue length"),
	}
}

// Reset clears every counter and restarts the time-dependent windows at now.
func (c *CounterCollection) Reset(now float64) {
	c.WaitingTime.Reset()
	c.SystemTime.Reset()
	c.ServiceTime.Reset()
	c.QueueLength.ResetAt(now)
	c.Utilization.ResetAt(now)
	c.WaitingTimeAuto.Reset()
	c.IATWaiting.Reset()
	c.IATService.Reset()
	c.IATSystem.Reset()
	c.ServiceSystem.Reset()
	c.WaitingTimeHistogram.Reset()
	c.QueueLengthHistogram.ResetAt(now)
}

// CountPacket records the time statistics of a packet that finished service.
func (c *CounterCollection) CountPacket(p *Packet) {
	wt, st, syst := p.WaitingTime(), p.ServiceTime, p.SystemTime()
	c.WaitingTime.Count(wt)
	c.SystemTime.Count(syst)
	c.ServiceTime.Count(st)
	c.WaitingTimeAuto.Count(wt)
	c.IATWaiting.Count(p.InterArrival, wt)
	c.IATService.Count(p.InterArrival, st)
	c.IATSystem.Count(p.InterArrival, syst)
	c.ServiceSystem.Count(st, syst)
	c.WaitingTimeHistogram.Count(wt)
}

// ObserveState records queue length and server occupancy as in effect from now on.
func (c *CounterCollection) ObserveState(queueLength int, busy bool, now float64) error {
	busyValue := 0.0
	if busy {
		busyValue = 1
	}
	if err := c.QueueLength.Count(float64(queueLength), now); err != nil {
		return err
	}
	if err := c.Utilization.Count(busyValue, now); err != nil {
		return err
	}
	return c.QueueLengthHistogram.Count(float64(queueLength), now)
}

// Advance extends the current queue length and occupancy up to now.
func (c *CounterCollection) Advance(now float64) error {
	if err := c.QueueLength.Advance(now); err != nil {
		return err
	}
	if err := c.Utilization.Advance(now); err != nil {
		return err
	}
	return c.QueueLengthHistogram.Advance(now)
}

// Histograms finalizes the waiting-time and queue-length histograms of the
// current run. A histogram that received no value comes back nil.
func (c *CounterCollection) Histograms() (waiting, queue *stats.Bins, err error) {
	if waiting, err = finalizedOrNil(c.WaitingTimeHistogram); err != nil {
		return nil, nil, err
	}
	if queue, err = finalizedOrNil(c.QueueLengthHistogram); err != nil {
		return nil, nil, err
	}
	return waiting, queue, nil
}

func finalizedOrNil(h stats.Histogram) (*stats.Bins, error) {
	b, err := stats.Finalized(h)
	if errors.Is(err, stats.ErrNoValues) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s histogram: %w", h.Name(), err)
	}
	return &b, nil
}

// Report renders every counter, one block per line.
func (c *CounterCollection) Report() string {
	var sb strings.Builder
	for _, s := range []stats.Summary{
		c.WaitingTime.Summary(),
		c.SystemTime.Summary(),
		c.ServiceTime.Summary(),
		c.QueueLength.Summary(),
		c.Utilization.Summary(),
	} {
		fmt.Fprintln(&sb, s)
	}
	for _, cc := range []*stats.CrossCorrelationCounter{c.IATWaiting, c.IATService, c.IATSystem, c.ServiceSystem} {
		fmt.Fprintln(&sb, cc.Report())
	}
	sb.WriteString(c.WaitingTimeAuto.Report())
	return sb.String()
}
