package enrich

import (
	"testing"
	"time"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	tr := newBackoffTracker()
	now := time.Now()
	base := 30 * time.Second
	maxDelay := 4 * time.Minute

	var prev time.Duration
	for i := 0; i < 5; i++ {
		delay := tr.failure("t1", base, maxDelay, 0, now)
		if delay < prev {
			t.Fatalf("failure %d: delay %v shrank from %v", i+1, delay, prev)
		}
		if delay > maxDelay {
			t.Fatalf("failure %d: delay %v exceeds cap %v", i+1, delay, maxDelay)
		}
		prev = delay
	}
	// 30s, 60s, 120s, then pinned at the 4m cap.
	if prev != maxDelay {
		t.Errorf("delay after 5 failures = %v, want the cap %v", prev, maxDelay)
	}
	if tr.failureCount("t1") != 5 {
		t.Errorf("failureCount = %d, want 5", tr.failureCount("t1"))
	}
}

func TestBackoffHonorsRetryAfter(t *testing.T) {
	tr := newBackoffTracker()
	now := time.Now()

	// A server suggestion above the exponential step wins.
	delay := tr.failure("t1", 30*time.Second, time.Hour, 10*time.Minute, now)
	if delay != 10*time.Minute {
		t.Errorf("delay = %v, want the suggested 10m", delay)
	}

	// But never past the cap.
	delay = tr.failure("t2", 30*time.Second, time.Minute, 10*time.Minute, now)
	if delay != time.Minute {
		t.Errorf("delay = %v, want capped at 1m", delay)
	}
}

func TestBackoffDeferUntil(t *testing.T) {
	tr := newBackoffTracker()
	now := time.Now()

	if until := tr.deferUntil("t1"); !until.IsZero() {
		t.Errorf("deferUntil with no failures = %v, want zero", until)
	}

	delay := tr.failure("t1", 30*time.Second, time.Hour, 0, now)
	if until := tr.deferUntil("t1"); !until.Equal(now.Add(delay)) {
		t.Errorf("deferUntil = %v, want %v", until, now.Add(delay))
	}

	tr.clear("t1")
	if until := tr.deferUntil("t1"); !until.IsZero() {
		t.Errorf("deferUntil after clear = %v, want zero", until)
	}
	if tr.failureCount("t1") != 0 {
		t.Errorf("failureCount after clear = %d, want 0", tr.failureCount("t1"))
	}
}

func TestBackoffIndependentPerTrack(t *testing.T) {
	tr := newBackoffTracker()
	now := time.Now()

	tr.failure("a", 30*time.Second, time.Hour, 0, now)
	tr.failure("a", 30*time.Second, time.Hour, 0, now)
	tr.failure("b", 30*time.Second, time.Hour, 0, now)

	if tr.failureCount("a") != 2 || tr.failureCount("b") != 1 {
		t.Errorf("failure counts = %d/%d, want 2/1", tr.failureCount("a"), tr.failureCount("b"))
	}
}
