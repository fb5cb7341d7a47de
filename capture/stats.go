// Package capture runs the frame loop. It reads frames from a camera source,
// detects the configured color region in each one, and persists annotated
// snapshots along the way.
package capture

import (
	"io"
	"sync"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
)

// Stats summarizes the per-frame processing times of a run.
type Stats struct {
	Frames   int     `json:"frames"`
	MeanMS   float64 `json:"mean_ms"`
	MedianMS float64 `json:"median_ms"`
	P95MS    float64 `json:"p95_ms"`
	MinMS    float64 `json:"min_ms"`
	MaxMS    float64 `json:"max_ms"`
	FPS      float64 `json:"fps"`
}

// Tracker accumulates per-frame processing times.
type Tracker struct {
	mu        sync.Mutex
	durations []float64 // milliseconds
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record adds one frame's processing time.
func (tr *Tracker) Record(d time.Duration) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.durations = append(tr.durations, float64(d)/float64(time.Millisecond))
}

// Snapshot computes the summary of everything recorded so far.
func (tr *Tracker) Snapshot() Stats {
	tr.mu.Lock()
	durations := make([]float64, len(tr.durations))
	copy(durations, tr.durations)
	tr.mu.Unlock()

	out := Stats{Frames: len(durations)}
	if len(durations) == 0 {
		return out
	}
	// each of these only errors on empty input, which is handled above
	out.MeanMS, _ = stats.Mean(durations)
	out.MedianMS, _ = stats.Median(durations)
	out.P95MS, _ = stats.Percentile(durations, 95)
	out.MinMS, _ = stats.Min(durations)
	out.MaxMS, _ = stats.Max(durations)
	if out.MeanMS > 0 {
		out.FPS = 1000 / out.MeanMS
	}
	return out
}

// WriteHistogram renders an ascii histogram of the recorded times in
// milliseconds, for end-of-run summaries.
func (tr *Tracker) WriteHistogram(w io.Writer) error {
	tr.mu.Lock()
	durations := make([]float64, len(tr.durations))
	copy(durations, tr.durations)
	tr.mu.Unlock()

	if len(durations) == 0 {
		return nil
	}
	bins := 9
	if len(durations) < bins {
		bins = len(durations)
	}
	hist := histogram.Hist(bins, durations)
	return histogram.Fprint(w, hist, histogram.Linear(40))
}
