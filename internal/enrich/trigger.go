package enrich

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quillon/clearwater/internal/event"
)

// Trigger is the on-play adapter the playback engine calls when a track
// starts. OnTrackStarted never blocks: the actual enrichment runs on its own
// goroutine, and at most one interactive attempt is in flight at a time. A
// newer play supersedes the previous one.
type Trigger struct {
	orch   *Orchestrator
	bus    *event.Bus
	logger *slog.Logger

	baseCtx context.Context

	mu          sync.Mutex
	lastByTrack map[string]time.Time
	lastAny     time.Time
	cancelPrev  context.CancelFunc

	wg  sync.WaitGroup
	now func() time.Time
}

// NewTrigger creates the on-play trigger. baseCtx bounds the lifetime of all
// interactive attempts; canceling it stops any in-flight work.
func NewTrigger(baseCtx context.Context, orch *Orchestrator, bus *event.Bus, logger *slog.Logger) *Trigger {
	return &Trigger{
		orch:        orch,
		bus:         bus,
		logger:      logger.With(slog.String("component", "play-trigger")),
		baseCtx:     baseCtx,
		lastByTrack: make(map[string]time.Time),
		now:         time.Now,
	}
}

// OnTrackStarted requests enrichment for the track that just began playing.
// It returns immediately. Two cooldown gates apply: a per-track cooldown and
// a shorter global one that absorbs rapid track-skipping. force bypasses
// both cooldowns (explicit user refresh) but still passes through the
// orchestrator's own eligibility and the global rate budget.
func (tr *Trigger) OnTrackStarted(id string, force bool) {
	tr.mu.Lock()

	now := tr.now()
	p := tr.orch.Config().Pipeline

	if !force {
		if !tr.lastAny.IsZero() && now.Sub(tr.lastAny) < p.GlobalCooldown() {
			tr.mu.Unlock()
			tr.skip(id, ReasonRateLimited)
			return
		}
		if last, ok := tr.lastByTrack[id]; ok && now.Sub(last) < p.TrackCooldown() {
			tr.mu.Unlock()
			tr.skip(id, ReasonRateLimited)
			return
		}
	}

	// Supersede the previous interactive attempt. Only this trigger's
	// lineage is canceled; background batch work is untouched.
	if tr.cancelPrev != nil {
		tr.cancelPrev()
	}
	ctx, cancel := context.WithCancel(tr.baseCtx)
	tr.cancelPrev = cancel

	tr.lastAny = now
	tr.lastByTrack[id] = now
	tr.pruneLocked(now, p.TrackCooldown())

	tr.mu.Unlock()

	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		defer cancel()

		if _, err := tr.orch.EnrichTrack(ctx, id, PathInteractive); err != nil {
			tr.logger.Warn("interactive enrichment failed", "track_id", id, "error", err)
		}
	}()
}

// Close cancels any in-flight interactive attempt and waits for it to wind
// down.
func (tr *Trigger) Close() {
	tr.mu.Lock()
	if tr.cancelPrev != nil {
		tr.cancelPrev()
	}
	tr.mu.Unlock()
	tr.wg.Wait()
}

func (tr *Trigger) skip(id string, reason Reason) {
	tr.orch.Stats().AddSkipped()
	tr.logger.Debug("on-play enrichment skipped", "track_id", id, "reason", string(reason))
	tr.bus.Publish(event.Event{
		Type: event.EnrichSkipped,
		Data: map[string]any{"track_id": id, "reason": string(reason)},
	})
}

// pruneLocked drops per-track cooldown entries that have already expired.
// Caller holds tr.mu.
func (tr *Trigger) pruneLocked(now time.Time, cooldown time.Duration) {
	if len(tr.lastByTrack) < 1024 {
		return
	}
	for id, at := range tr.lastByTrack {
		if now.Sub(at) >= cooldown {
			delete(tr.lastByTrack, id)
		}
	}
}
