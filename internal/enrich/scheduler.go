package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quillon/clearwater/internal/event"
	"github.com/quillon/clearwater/internal/score"
	"github.com/quillon/clearwater/internal/track"
)

// Scheduler periodically pulls tracks needing enrichment and fans them out
// through a bounded worker pool. A fatal credential failure aborts the
// current batch; later ticks no-op until the orchestrator is reset.
type Scheduler struct {
	orch   *Orchestrator
	store  *track.Store
	bus    *event.Bus
	logger *slog.Logger
}

// NewScheduler creates a batch enrichment scheduler.
func NewScheduler(orch *Orchestrator, store *track.Store, bus *event.Bus, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		orch:   orch,
		store:  store,
		bus:    bus,
		logger: logger.With(slog.String("component", "batch-scheduler")),
	}
}

// Start blocks until the context is canceled, running a batch on each tick.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Error("batch scheduler not started: non-positive interval", "interval", interval.String())
		return
	}
	s.logger.Info("batch scheduler started", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("batch scheduler stopped")
			return
		case <-ticker.C:
			if err := s.RunBatch(ctx); err != nil {
				// The ticker keeps running while the fatal latch is set;
				// batches resume once the orchestrator is reconfigured.
				if errors.Is(err, ErrFatal) {
					s.logger.Error("batch enrichment halted until reconfigured", "error", err)
					continue
				}
				s.logger.Error("batch enrichment failed", "error", err)
			}
		}
	}
}

// RunBatch enriches one batch of candidate tracks. Respects the background
// enrichment flag, the batch size, and the worker pool limit from the
// current configuration.
func (s *Scheduler) RunBatch(ctx context.Context) error {
	p := s.orch.Config().Pipeline
	if !p.EnrichInBackground {
		return nil
	}
	if err := s.orch.Fatal(); err != nil {
		return err
	}

	retryCutoff := time.Now().UTC().Add(-p.RetryNotFound())
	candidates, err := s.store.NeedingEnrichment(ctx, p.BatchSize, p.MaxAttempts, retryCutoff)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	s.logger.Info("batch enrichment starting", "candidates", len(candidates))

	before := s.orch.Stats().Snapshot()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	for i := range candidates {
		id := candidates[i].ID
		g.Go(func() error {
			_, err := s.orch.EnrichTrack(gctx, id, PathBackground)
			if errors.Is(err, ErrFatal) {
				return err
			}
			if err != nil {
				s.logger.Warn("batch enrichment of track failed", "track_id", id, "error", err)
			}
			return nil
		})
	}

	err = g.Wait()

	// Report what this batch did, not the session totals.
	batch := s.orch.Stats().Snapshot().Diff(before)
	s.logger.Info("batch enrichment complete",
		"enriched", batch.Enriched,
		"skipped", batch.Skipped,
		"failed", batch.Failed)
	s.bus.Publish(event.Event{
		Type: event.BatchCompleted,
		Data: map[string]any{
			"candidates": len(candidates),
			"enriched":   batch.Enriched,
			"skipped":    batch.Skipped,
			"failed":     batch.Failed,
		},
	})

	return err
}

// ScanLocal sweeps dirty tracks that have never been through the pipeline,
// assigning each a local-only confidence score. Runs once at startup so
// tracks reflect their sanitized state before any network enrichment.
func (s *Scheduler) ScanLocal(ctx context.Context) error {
	p := s.orch.Config().Pipeline
	scanned := 0
	for {
		dirty, err := s.store.ListByStatus(ctx, track.StatusDirty, p.BatchSize)
		if err != nil {
			return err
		}
		if len(dirty) == 0 {
			break
		}
		for i := range dirty {
			t := &dirty[i]
			t.ConfidenceScore = score.LocalScore(t)
			t.MetadataStatus = track.StatusCleanedLocal
			if err := s.store.Update(ctx, t); err != nil {
				return fmt.Errorf("persisting local score for %s: %w", t.ID, err)
			}
			scanned++
		}
		if len(dirty) < p.BatchSize {
			break
		}
	}
	if scanned > 0 {
		s.logger.Info("local metadata scan complete", "tracks", scanned)
	}
	return nil
}
