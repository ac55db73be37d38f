package runner

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const maxRecordableUs = 600_000_000

// Stats collects attempt durations.
type Stats struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
}

// StatsSnapshot is a point-in-time view of the recorded durations.
type StatsSnapshot struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P99   time.Duration
}

// NewStats returns an empty collector covering 1µs to 10 minutes.
func NewStats() *Stats {
	return &Stats{
		histogram: hdrhistogram.New(1, maxRecordableUs, 3),
	}
}

// Record adds one attempt duration.
func (s *Stats) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if us > maxRecordableUs {
		us = maxRecordableUs
	}

	s.mu.Lock()
	_ = s.histogram.RecordValue(us)
	s.mu.Unlock()
}

// Snapshot returns the current percentiles.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.histogram
	if h.TotalCount() == 0 {
		return StatsSnapshot{}
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return StatsSnapshot{
		Count: h.TotalCount(),
		Min:   us(h.Min()),
		Max:   us(h.Max()),
		Mean:  time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:   us(h.ValueAtQuantile(50)),
		P90:   us(h.ValueAtQuantile(90)),
		P99:   us(h.ValueAtQuantile(99)),
	}
}
