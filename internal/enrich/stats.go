package enrich

import "sync"

// StatsSnapshot is a point-in-time copy of session counters.
type StatsSnapshot struct {
	Enriched int `json:"enriched"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Diff returns the counter deltas between s and an earlier snapshot.
func (s StatsSnapshot) Diff(prev StatsSnapshot) StatsSnapshot {
	return StatsSnapshot{
		Enriched: s.Enriched - prev.Enriched,
		Skipped:  s.Skipped - prev.Skipped,
		Failed:   s.Failed - prev.Failed,
	}
}

// Stats accumulates per-session enrichment counters. Not persisted; reset on
// demand.
type Stats struct {
	mu       sync.Mutex
	enriched int
	skipped  int
	failed   int
}

// NewStats creates zeroed session stats.
func NewStats() *Stats {
	return &Stats{}
}

// AddEnriched records a successful enrichment.
func (s *Stats) AddEnriched() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enriched++
}

// AddSkipped records a skipped or no-op attempt (cooldowns, not-found).
func (s *Stats) AddSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped++
}

// AddFailed records a failed attempt.
func (s *Stats) AddFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{Enriched: s.enriched, Skipped: s.skipped, Failed: s.failed}
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enriched, s.skipped, s.failed = 0, 0, 0
}
