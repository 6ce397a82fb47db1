package diag

import (
	"sync"
	"time"
)

// Metrics tracks timing spans and numeric counters across a run, per
// timing spans and numeric counters.
type Metrics struct {
	mu      sync.Mutex
	timings map[string][]time.Duration
	starts  map[string]time.Time
	counts  map[string]float64
	sums    map[string]float64
	mins    map[string]float64
	maxs    map[string]float64
	samples map[string]int
}

// NewMetrics returns an empty tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		timings: make(map[string][]time.Duration),
		starts:  make(map[string]time.Time),
		counts:  make(map[string]float64),
		sums:    make(map[string]float64),
		mins:    make(map[string]float64),
		maxs:    make(map[string]float64),
		samples: make(map[string]int),
	}
}

// StartTiming records the start of a named timing span.
func (m *Metrics) StartTiming(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts[name] = time.Now()
}

// EndTiming closes a named timing span started with StartTiming and
// returns its duration; it is a no-op returning 0 if no matching start
// was recorded.
func (m *Metrics) EndTiming(name string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	start, ok := m.starts[name]
	if !ok {
		return 0
	}
	delete(m.starts, name)
	d := time.Since(start)
	m.timings[name] = append(m.timings[name], d)
	return d
}

// Timings returns every recorded duration for name.
func (m *Metrics) Timings(name string) []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.timings[name]))
	copy(out, m.timings[name])
	return out
}

// Count increments a named counter by delta.
func (m *Metrics) Count(name string, delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name] += delta
}

// Observe records a numeric sample under name, maintaining sum/min/max/avg.
func (m *Metrics) Observe(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sums[name] += value
	m.samples[name]++
	if cur, ok := m.mins[name]; !ok || value < cur {
		m.mins[name] = value
	}
	if cur, ok := m.maxs[name]; !ok || value > cur {
		m.maxs[name] = value
	}
}

// Summary is a point-in-time snapshot of one named metric.
type Summary struct {
	Count float64
	Sum   float64
	Avg   float64
	Min   float64
	Max   float64
}

// Snapshot returns the current aggregate for name.
func (m *Metrics) Snapshot(name string) Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.samples[name]
	s := Summary{
		Count: m.counts[name],
		Sum:   m.sums[name],
		Min:   m.mins[name],
		Max:   m.maxs[name],
	}
	if n > 0 {
		s.Avg = m.sums[name] / float64(n)
	}
	return s
}
