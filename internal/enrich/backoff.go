package enrich

import (
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// backoffState tracks consecutive transient failures for one track. The
// delay doubles per failure up to the configured cap, independent of the
// attempt counter used for the not-found cooldown.
type backoffState struct {
	backoff   retry.Backoff
	notBefore time.Time
	failures  int
}

// backoffTracker holds per-track backoff state.
type backoffTracker struct {
	mu     sync.Mutex
	states map[string]*backoffState
}

func newBackoffTracker() *backoffTracker {
	return &backoffTracker{states: make(map[string]*backoffState)}
}

// deferUntil returns the time before which the given track must not be
// retried, or the zero time if no backoff is pending.
func (t *backoffTracker) deferUntil(id string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[id]
	if !ok {
		return time.Time{}
	}
	return st.notBefore
}

// failure records a transient failure and returns the delay applied before
// the next attempt. suggested is a server-provided minimum (Retry-After);
// the larger of the exponential step and the suggestion wins.
func (t *backoffTracker) failure(id string, base, maxDelay, suggested time.Duration, now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[id]
	if !ok {
		st = &backoffState{
			backoff: retry.WithCappedDuration(maxDelay, retry.NewExponential(base)),
		}
		t.states[id] = st
	}

	delay, _ := st.backoff.Next()
	if suggested > delay {
		delay = suggested
	}
	if delay > maxDelay {
		delay = maxDelay
	}

	st.failures++
	st.notBefore = now.Add(delay)
	return delay
}

// clear drops backoff state after a successful or conclusive attempt.
func (t *backoffTracker) clear(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, id)
}

// failures returns the consecutive transient failure count for a track.
func (t *backoffTracker) failureCount(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[id]
	if !ok {
		return 0
	}
	return st.failures
}
