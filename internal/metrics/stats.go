package metrics

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
	failed     bool
}

// StatsSnapshot is a point-in-time aggregate of latency samples.
type StatsSnapshot struct {
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// LatencyWindow tracks recent latencies within a rolling window.
type LatencyWindow struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewLatencyWindow(maxAge time.Duration) *LatencyWindow {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LatencyWindow{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (s *LatencyWindow) Record(d time.Duration, failed bool) {
	durationMs := d.Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		durationMs: durationMs,
		failed:     failed,
	})
}

func (s *LatencyWindow) Snapshot() StatsSnapshot {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	failures := 0
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		if sm.failed {
			failures++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count:    len(values),
		Failures: failures,
		MinMs:    values[0],
		MaxMs:    values[len(values)-1],
		AvgMs:    float64(sum) / float64(len(values)),
		P50Ms:    percentile(values, 50),
		P95Ms:    percentile(values, 95),
		P99Ms:    percentile(values, 99),
	}
}

func (s *LatencyWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

// ConversionStats keeps one LatencyWindow per conversion pair, keyed "from->to".
type ConversionStats struct {
	mu      sync.Mutex
	windows map[string]*LatencyWindow
	maxAge  time.Duration
}

func NewConversionStats(maxAge time.Duration) *ConversionStats {
	return &ConversionStats{
		windows: make(map[string]*LatencyWindow),
		maxAge:  maxAge,
	}
}

func PairKey(from, to string) string { return from + "->" + to }

func (c *ConversionStats) Record(from, to string, d time.Duration, failed bool) {
	key := PairKey(from, to)
	c.mu.Lock()
	w, ok := c.windows[key]
	if !ok {
		w = NewLatencyWindow(c.maxAge)
		c.windows[key] = w
	}
	c.mu.Unlock()
	w.Record(d, failed)
}

// Snapshot returns the stats of every pair seen so far. Pairs whose samples
// have all expired report a zero snapshot.
func (c *ConversionStats) Snapshot() map[string]StatsSnapshot {
	c.mu.Lock()
	windows := make(map[string]*LatencyWindow, len(c.windows))
	for k, w := range c.windows {
		windows[k] = w
	}
	c.mu.Unlock()

	out := make(map[string]StatsSnapshot, len(windows))
	for k, w := range windows {
		out[k] = w.Snapshot()
	}
	return out
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
