package enrich

import (
	"sync"
	"testing"
)

func TestStatsCounters(t *testing.T) {
	s := NewStats()
	s.AddEnriched()
	s.AddEnriched()
	s.AddSkipped()
	s.AddFailed()

	snap := s.Snapshot()
	if snap.Enriched != 2 || snap.Skipped != 1 || snap.Failed != 1 {
		t.Errorf("Snapshot = %+v", snap)
	}

	s.Reset()
	if snap := s.Snapshot(); snap != (StatsSnapshot{}) {
		t.Errorf("after Reset: %+v", snap)
	}
}

func TestStatsConcurrent(t *testing.T) {
	s := NewStats()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddEnriched()
			s.AddSkipped()
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.Enriched != 50 || snap.Skipped != 50 {
		t.Errorf("Snapshot = %+v, want 50/50", snap)
	}
}
