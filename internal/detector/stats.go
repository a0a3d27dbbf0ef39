package detector

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Stats collects per-run detection statistics for diagnostics: a bounded
// ring of recent chunk processing latencies plus counters per detection
// source and for dedup suppressions.
//
// Thread-safe for concurrent use.
type Stats struct {
	mu sync.Mutex

	chunk latencyBuffer

	detections map[Source]int64
	suppressed int64
	chunks     int64
	tails      int64
	failures   int64
}

// NewStats creates a Stats with the given latency window size (maximum
// number of chunk latency samples retained).
func NewStats(windowSize int) *Stats {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &Stats{
		chunk:      newLatencyBuffer(windowSize),
		detections: make(map[Source]int64),
	}
}

// RecordChunk records the processing latency of one full window.
func (s *Stats) RecordChunk(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunk.add(d)
	s.chunks++
}

// RecordTail increments the tail-window counter.
func (s *Stats) RecordTail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tails++
}

// RecordDetection increments the detection counter for source.
func (s *Stats) RecordDetection(source Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detections[source]++
}

// RecordSuppressed increments the dedup suppression counter.
func (s *Stats) RecordSuppressed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppressed++
}

// RecordFailure increments the recognizer failure counter.
func (s *Stats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
}

// LatencyPercentiles holds p50 and p95 values for chunk processing latency.
type LatencyPercentiles struct {
	P50 time.Duration
	P95 time.Duration
}

// Snapshot captures a point-in-time view of all detection statistics.
type Snapshot struct {
	ChunkLatency LatencyPercentiles
	Detections   map[Source]int64
	Suppressed   int64
	Chunks       int64
	Tails        int64
	Failures     int64
}

// Snapshot returns a point-in-time view of all detection statistics.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	det := make(map[Source]int64, len(s.detections))
	for k, v := range s.detections {
		det[k] = v
	}
	return Snapshot{
		ChunkLatency: s.chunk.percentiles(),
		Detections:   det,
		Suppressed:   s.suppressed,
		Chunks:       s.chunks,
		Tails:        s.tails,
		Failures:     s.failures,
	}
}

// latencyBuffer is a bounded ring buffer of duration samples.
type latencyBuffer struct {
	data []time.Duration
	size int
	pos  int
	full bool
}

func newLatencyBuffer(size int) latencyBuffer {
	return latencyBuffer{
		data: make([]time.Duration, size),
		size: size,
	}
}

func (lb *latencyBuffer) add(d time.Duration) {
	lb.data[lb.pos] = d
	lb.pos++
	if lb.pos >= lb.size {
		lb.pos = 0
		lb.full = true
	}
}

func (lb *latencyBuffer) percentiles() LatencyPercentiles {
	n := lb.pos
	if lb.full {
		n = lb.size
	}
	if n == 0 {
		return LatencyPercentiles{}
	}

	sorted := make([]time.Duration, n)
	copy(sorted, lb.data[:n])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencyPercentiles{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
	}
}

// percentile returns the value at the given percentile (0.0-1.0) from a
// sorted slice of durations using nearest-rank.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
