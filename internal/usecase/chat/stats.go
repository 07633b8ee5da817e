package chat

import (
	"sync"
	"time"
)

// StatsSnapshot is a point-in-time view of chat traffic.
type StatsSnapshot struct {
	TotalRequests int64
	AvgLatencyMS  float64
	SafetyBlocks  int64
	UptimeSeconds float64
}

// Stats aggregates chat requests since process start.
type Stats struct {
	mu           sync.Mutex
	total        int64
	totalLatency time.Duration
	blocks       int64
	started      time.Time
	now          func() time.Time
}

// NewStats creates a Stats starting now.
func NewStats() *Stats {
	return &Stats{started: time.Now(), now: time.Now}
}

// Record adds one request. flagged counts it as a safety block.
func (s *Stats) Record(latency time.Duration, flagged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.totalLatency += latency
	if flagged {
		s.blocks++
	}
}

// Snapshot returns the current aggregates.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var avg float64
	if s.total > 0 {
		avg = float64(s.totalLatency.Milliseconds()) / float64(s.total)
	}
	return StatsSnapshot{
		TotalRequests: s.total,
		AvgLatencyMS:  avg,
		SafetyBlocks:  s.blocks,
		UptimeSeconds: s.now().Sub(s.started).Seconds(),
	}
}
