package stats

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrNotFinalized is returned when histogram bins are read before Finalize.
var ErrNotFinalized = errors.New("stats: histogram not finalized")

// Histogram bins counted values for the reporting layer. Bins are only
// available after Finalize; rendering is left to the caller.
type Histogram interface {
	Name() string
	Len() int
	Reset()
	Finalize() error
	Edges() ([]float64, error)
	Counts() ([]float64, error)
	Mids() ([]float64, error)
}

// Bins is a finalized histogram: Counts[i] covers [Edges[i], Edges[i+1]].
type Bins struct {
	Edges  []float64 `json:"edges"`
	Counts []float64 `json:"counts"`
}

// Finalized finalizes h and returns a snapshot of its bins.
func Finalized(h Histogram) (Bins, error) {
	if err := h.Finalize(); err != nil {
		return Bins{}, err
	}
	edges, err := h.Edges()
	if err != nil {
		return Bins{}, err
	}
	counts, err := h.Counts()
	if err != nil {
		return Bins{}, err
	}
	return Bins{Edges: edges, Counts: counts}, nil
}

// binned holds the computed bins shared by both histogram kinds.
type binned struct {
	edges  []float64
	counts []float64
}

func (b *binned) clear() {
	b.edges = nil
	b.counts = nil
}

func (b *binned) Edges() ([]float64, error) {
	if b.counts == nil {
		return nil, ErrNotFinalized
	}
	return b.edges, nil
}

func (b *binned) Counts() ([]float64, error) {
	if b.counts == nil {
		return nil, ErrNotFinalized
	}
	return b.counts, nil
}

// Mids returns the bin centers.
func (b *binned) Mids() ([]float64, error) {
	if b.counts == nil {
		return nil, ErrNotFinalized
	}
	mids := make([]float64, len(b.counts))
	for i := range mids {
		mids[i] = (b.edges[i] + b.edges[i+1]) / 2
	}
	return mids, nil
}

// fill computes weighted counts over bins equal-width bins on [lo, hi].
// The last bin is closed on the right; values outside [lo, hi] are ignored.
func (b *binned) fill(values, weights []float64, bins int, lo, hi float64) error {
	if bins < 1 {
		return fmt.Errorf("histogram needs at least one bin, got %d", bins)
	}
	if !(hi > lo) {
		// degenerate range, as for a single repeated value
		lo, hi = lo-0.5, hi+0.5
	}
	edges := floats.Span(make([]float64, bins+1), lo, hi)
	counts := make([]float64, bins)
	width := (hi - lo) / float64(bins)
	for i, v := range values {
		if v < lo || v > hi {
			continue
		}
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx] += weights[i]
	}
	b.edges = edges
	b.counts = counts
	return nil
}

// TimeIndependentHistogram bins values over a fixed range; each value weighs 1/n.
type TimeIndependentHistogram struct {
	binned
	name   string
	bins   int
	lo, hi float64
	values []float64
}

// NewTimeIndependentHistogram creates a histogram of bins equal-width bins on [lo, hi].
func NewTimeIndependentHistogram(name string, bins int, lo, hi float64) *TimeIndependentHistogram {
	return &TimeIndependentHistogram{name: name, bins: bins, lo: lo, hi: hi}
}

// QueueLengthHistogram has one bin per integer queue length 0..maxQueue.
func QueueLengthHistogram(maxQueue int) *TimeIndependentHistogram {
	return NewTimeIndependentHistogram("queue length", maxQueue+1, -0.5, float64(maxQueue)+0.5)
}

// BlockingProbabilityHistogram bins probabilities into 25 bins on [0, 1].
func BlockingProbabilityHistogram() *TimeIndependentHistogram {
	return NewTimeIndependentHistogram("blocking probability", 25, 0, 1)
}

// WaitingTimeHistogram bins waiting times (ms) into 25 bins on [0, 3500].
func WaitingTimeHistogram() *TimeIndependentHistogram {
	return NewTimeIndependentHistogram("waiting time", 25, 0, 3500)
}

func (h *TimeIndependentHistogram) Name() string { return h.name }
func (h *TimeIndependentHistogram) Len() int     { return len(h.values) }

// Count adds a value; bins are stale until the next Finalize.
func (h *TimeIndependentHistogram) Count(value float64) {
	h.values = append(h.values, value)
	h.binned.clear()
}

func (h *TimeIndependentHistogram) Reset() {
	h.values = nil
	h.binned.clear()
}

// Finalize computes the bins as relative frequencies.
func (h *TimeIndependentHistogram) Finalize() error {
	if len(h.values) == 0 {
		return fmt.Errorf("%s: %w", h.name, ErrNoValues)
	}
	weights := make([]float64, len(h.values))
	for i := range weights {
		weights[i] = 1 / float64(len(h.values))
	}
	return h.fill(h.values, weights, h.bins, h.lo, h.hi)
}

// TimeDependentHistogram bins values weighted by the time they were in effect,
// over the observed value range.
type TimeDependentHistogram struct {
	binned
	bins    int
	counter *TimeDependentCounter
}

// NewTimeDependentHistogram creates a histogram with 50 bins.
func NewTimeDependentHistogram(name string) *TimeDependentHistogram {
	return &TimeDependentHistogram{bins: 50, counter: NewTimeDependentCounter(name)}
}

func (h *TimeDependentHistogram) Name() string { return h.counter.Name() }
func (h *TimeDependentHistogram) Len() int     { return h.counter.Len() }

// Count records value as in effect from now on.
func (h *TimeDependentHistogram) Count(value, now float64) error {
	h.binned.clear()
	return h.counter.Count(value, now)
}

// Advance extends the current value up to now.
func (h *TimeDependentHistogram) Advance(now float64) error {
	h.binned.clear()
	return h.counter.Advance(now)
}

func (h *TimeDependentHistogram) Reset() { h.ResetAt(0) }

// ResetAt clears the histogram and restarts its window at now.
func (h *TimeDependentHistogram) ResetAt(now float64) {
	h.counter.ResetAt(now)
	h.binned.clear()
}

// Finalize computes bins whose counts are the time spent at each value range.
func (h *TimeDependentHistogram) Finalize() error {
	values := h.counter.Values()
	if len(values) == 0 {
		return fmt.Errorf("%s: %w", h.Name(), ErrNoValues)
	}
	return h.fill(values, h.counter.Weights(), h.bins, floats.Min(values), floats.Max(values))
}
