package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/quillon/clearwater/internal/artwork"
	"github.com/quillon/clearwater/internal/config"
	"github.com/quillon/clearwater/internal/event"
	"github.com/quillon/clearwater/internal/lookup"
	"github.com/quillon/clearwater/internal/score"
	"github.com/quillon/clearwater/internal/track"
)

// Path identifies which caller lineage an enrichment attempt belongs to.
type Path string

// Enrichment paths.
const (
	PathInteractive Path = "interactive"
	PathBackground  Path = "background"
)

// Outcome classifies a completed EnrichTrack call.
type Outcome string

// Outcomes.
const (
	OutcomeEnriched Outcome = "enriched"
	OutcomeNotFound Outcome = "not_found"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Reason explains a skip or failure.
type Reason string

// Skip and failure reasons.
const (
	ReasonNone              Reason = ""
	ReasonDisabled          Reason = "enrichment disabled"
	ReasonAttemptsExhausted Reason = "attempt budget exhausted"
	ReasonAlreadyVerified   Reason = "already verified"
	ReasonNotFoundCooldown  Reason = "not-found cooldown"
	ReasonFailureCooldown   Reason = "failure cooldown"
	ReasonBackoff           Reason = "transient-failure backoff"
	ReasonInFlight          Reason = "attempt already in flight"
	ReasonRateLimited       Reason = "rate limited"
	ReasonCanceled          Reason = "canceled"
	ReasonFatal             Reason = "lookup service credentials rejected"
	ReasonTransient         Reason = "lookup service unavailable"
)

// Result describes what EnrichTrack did.
type Result struct {
	Outcome Outcome
	Reason  Reason
	Track   *track.Track
	Score   int
}

// ErrFatal wraps a credential failure that halts all enrichment process-wide.
var ErrFatal = errors.New("enrichment halted")

// albumConfirmThreshold is the album similarity above which the lookup
// result is treated as confirming the local album.
const albumConfirmThreshold = 0.8

// Orchestrator drives enrichment attempts: eligibility, the global rate
// budget, per-track serialization, retry backoff, scoring, and write-back.
type Orchestrator struct {
	store   *track.Store
	client  lookup.Client
	bus     *event.Bus
	logger  *slog.Logger
	stats   *Stats
	limiter *rate.Limiter

	// artClient fetches cover art headers for dimension probing. Nil falls
	// back to http.DefaultClient.
	artClient *http.Client

	cfg atomic.Pointer[config.Config]

	mu       sync.Mutex
	inFlight map[string]bool

	backoffs *backoffTracker

	fatalMu  sync.Mutex
	fatalErr error

	now func() time.Time
}

// NewOrchestrator creates an enrichment orchestrator.
func NewOrchestrator(cfg *config.Config, store *track.Store, client lookup.Client, bus *event.Bus, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		client:    client,
		bus:       bus,
		logger:    logger.With(slog.String("component", "orchestrator")),
		stats:     NewStats(),
		limiter:   rate.NewLimiter(perMinute(cfg.Pipeline.RequestsPerMinute), 1),
		artClient: &http.Client{Timeout: cfg.Lookup.Timeout()},
		inFlight:  make(map[string]bool),
		backoffs:  newBackoffTracker(),
		now:       time.Now,
	}
	o.cfg.Store(cfg)
	return o
}

func perMinute(rpm int) rate.Limit {
	return rate.Limit(float64(rpm) / 60.0)
}

// Config returns the current immutable configuration.
func (o *Orchestrator) Config() *config.Config {
	return o.cfg.Load()
}

// SetConfig swaps in a new validated configuration. The rate limiter is
// retuned in place so its admission accounting survives the swap.
func (o *Orchestrator) SetConfig(cfg *config.Config) {
	o.cfg.Store(cfg)
	o.limiter.SetLimit(perMinute(cfg.Pipeline.RequestsPerMinute))
	o.logger.Info("configuration swapped",
		"mode", string(cfg.Pipeline.Mode),
		"requests_per_minute", cfg.Pipeline.RequestsPerMinute)
}

// Stats returns the session statistics.
func (o *Orchestrator) Stats() *Stats {
	return o.stats
}

// Fatal returns an error wrapping ErrFatal if a credential failure has
// tripped the orchestrator, nil otherwise. No further attempts run until
// ResetFatal is called.
func (o *Orchestrator) Fatal() error {
	o.fatalMu.Lock()
	defer o.fatalMu.Unlock()
	if o.fatalErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrFatal, o.fatalErr)
}

// ResetFatal clears the halt latch after reconfiguration.
func (o *Orchestrator) ResetFatal() {
	o.fatalMu.Lock()
	defer o.fatalMu.Unlock()
	o.fatalErr = nil
}

func (o *Orchestrator) tripFatal(err error) {
	o.fatalMu.Lock()
	defer o.fatalMu.Unlock()
	if o.fatalErr == nil {
		o.fatalErr = err
	}
}

// Eligible reports whether a track snapshot currently qualifies for an
// enrichment attempt on the given path. Pure with respect to the snapshot
// and configuration; the transient-failure backoff gate is layered on top.
func (o *Orchestrator) Eligible(t *track.Track, path Path, now time.Time) (bool, Reason) {
	p := o.Config().Pipeline

	switch path {
	case PathInteractive:
		if !p.EnrichOnPlay {
			return false, ReasonDisabled
		}
	case PathBackground:
		if !p.EnrichInBackground {
			return false, ReasonDisabled
		}
	}

	if t.EnrichmentAttempts >= p.MaxAttempts {
		return false, ReasonAttemptsExhausted
	}
	if t.MetadataStatus.Terminal() {
		return false, ReasonAlreadyVerified
	}
	// api_not_found and failed share the long cooldown: both are conclusive
	// outcomes that only time, not retrying, can change.
	if t.MetadataStatus == track.StatusAPINotFound || t.MetadataStatus == track.StatusFailed {
		if t.LastEnrichmentAttemptAt != nil && now.Sub(*t.LastEnrichmentAttemptAt) < p.RetryNotFound() {
			if t.MetadataStatus == track.StatusFailed {
				return false, ReasonFailureCooldown
			}
			return false, ReasonNotFoundCooldown
		}
	}

	if until := o.backoffs.deferUntil(t.ID); now.Before(until) {
		return false, ReasonBackoff
	}

	return true, ReasonNone
}

// EnrichTrack runs one enrichment attempt for the given track ID. At most
// one attempt per track is in flight at any time; a second caller is skipped
// rather than queued. A fatal credential failure is returned as an error
// wrapping ErrFatal; every other outcome is reported in the Result.
func (o *Orchestrator) EnrichTrack(ctx context.Context, id string, path Path) (*Result, error) {
	if err := o.Fatal(); err != nil {
		return &Result{Outcome: OutcomeSkipped, Reason: ReasonFatal}, err
	}

	if !o.acquire(id) {
		o.stats.AddSkipped()
		o.publishSkipped(id, "", ReasonInFlight)
		return &Result{Outcome: OutcomeSkipped, Reason: ReasonInFlight}, nil
	}
	defer o.release(id)

	// Fresh snapshot; no cached row is ever reused.
	t, err := o.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading track: %w", err)
	}

	now := o.now()
	if ok, reason := o.Eligible(t, path, now); !ok {
		o.stats.AddSkipped()
		o.publishSkipped(id, t.Title, reason)
		return &Result{Outcome: OutcomeSkipped, Reason: reason, Track: t}, nil
	}

	// FIFO admission against the shared request budget. Deferral, not
	// failure: a canceled wait leaves the track untouched.
	if err := o.limiter.Wait(ctx); err != nil {
		o.stats.AddSkipped()
		o.publishSkipped(id, t.Title, ReasonCanceled)
		return &Result{Outcome: OutcomeSkipped, Reason: ReasonCanceled, Track: t}, nil
	}

	o.bus.Publish(event.Event{
		Type: event.EnrichStarted,
		Data: map[string]any{"track_id": t.ID, "title": t.Title, "path": string(path)},
	})

	cfg := o.Config()
	lctx, cancel := context.WithTimeout(ctx, cfg.Lookup.Timeout())
	defer cancel()

	res, err := o.client.Lookup(lctx, t.Title, t.Artist)
	if err != nil {
		return o.handleLookupError(ctx, t, err, now)
	}

	// The attempt may have been superseded while the call was in flight.
	// The response still consumed a rate token; only the write-back is
	// abandoned.
	if ctx.Err() != nil {
		o.stats.AddSkipped()
		o.publishSkipped(id, t.Title, ReasonCanceled)
		return &Result{Outcome: OutcomeSkipped, Reason: ReasonCanceled, Track: t}, nil
	}

	return o.applyResult(ctx, t, res, now)
}

func (o *Orchestrator) handleLookupError(ctx context.Context, t *track.Track, err error, now time.Time) (*Result, error) {
	var notFound *lookup.ErrNotFound
	var unavailable *lookup.ErrUnavailable
	var authRequired *lookup.ErrAuthRequired

	switch {
	case errors.As(err, &notFound):
		return o.applyNotFound(ctx, t, now)

	case errors.As(err, &authRequired):
		o.tripFatal(err)
		o.logger.Error("lookup credentials rejected, halting enrichment", "error", err)
		o.bus.Publish(event.Event{
			Type: event.EnrichFailed,
			Data: map[string]any{"track_id": t.ID, "title": t.Title, "error": err.Error(), "fatal": true},
		})
		return &Result{Outcome: OutcomeFailed, Reason: ReasonFatal, Track: t}, fmt.Errorf("%w: %w", ErrFatal, err)

	case errors.As(err, &unavailable):
		p := o.Config().Pipeline
		delay := o.backoffs.failure(t.ID, p.BackoffBase(), p.BackoffMax(), unavailable.RetryAfter, now)
		failures := o.backoffs.failureCount(t.ID)
		o.stats.AddFailed()

		// Enough consecutive transient failures exhaust the budget: the
		// track is parked as failed and re-evaluated after the long
		// cooldown instead of hammering a struggling upstream.
		if failures >= p.MaxAttempts {
			return o.applyFailed(ctx, t, err, now)
		}

		o.logger.Warn("lookup transiently unavailable",
			"track_id", t.ID,
			"consecutive_failures", failures,
			"retry_in", delay.String(),
			"error", err)
		o.bus.Publish(event.Event{
			Type: event.EnrichFailed,
			Data: map[string]any{"track_id": t.ID, "title": t.Title, "error": err.Error(), "retry_in": delay.String()},
		})
		return &Result{Outcome: OutcomeFailed, Reason: ReasonTransient, Track: t}, nil

	case errors.Is(err, context.Canceled):
		o.stats.AddSkipped()
		o.publishSkipped(t.ID, t.Title, ReasonCanceled)
		return &Result{Outcome: OutcomeSkipped, Reason: ReasonCanceled, Track: t}, nil

	default:
		o.stats.AddFailed()
		o.bus.Publish(event.Event{
			Type: event.EnrichFailed,
			Data: map[string]any{"track_id": t.ID, "title": t.Title, "error": err.Error()},
		})
		return nil, fmt.Errorf("lookup: %w", err)
	}
}

// applyNotFound records an upstream miss: bookkeeping only, no rescoring,
// since no new information arrived.
func (o *Orchestrator) applyNotFound(ctx context.Context, t *track.Track, now time.Time) (*Result, error) {
	t.MetadataStatus = track.StatusAPINotFound
	t.EnrichmentAttempts++
	t.LastEnrichmentAttemptAt = &now

	if err := o.store.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("persisting not-found result: %w", err)
	}

	o.backoffs.clear(t.ID)
	o.stats.AddSkipped()
	o.bus.Publish(event.Event{
		Type: event.EnrichNotFound,
		Data: map[string]any{"track_id": t.ID, "title": t.Title},
	})
	return &Result{Outcome: OutcomeNotFound, Track: t}, nil
}

func (o *Orchestrator) applyFailed(ctx context.Context, t *track.Track, cause error, now time.Time) (*Result, error) {
	t.MetadataStatus = track.StatusFailed
	t.LastEnrichmentAttemptAt = &now

	if err := o.store.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("persisting failed result: %w", err)
	}

	o.backoffs.clear(t.ID)
	o.logger.Warn("enrichment failed, parking track",
		"track_id", t.ID,
		"title", t.Title,
		"error", cause)
	o.bus.Publish(event.Event{
		Type: event.EnrichFailed,
		Data: map[string]any{"track_id": t.ID, "title": t.Title, "error": cause.Error()},
	})
	return &Result{Outcome: OutcomeFailed, Reason: ReasonTransient, Track: t}, nil
}

func (o *Orchestrator) applyResult(ctx context.Context, t *track.Track, res *lookup.Result, now time.Time) (*Result, error) {
	cfg := o.Config()
	p := cfg.Pipeline

	// The lookup only names where the art lives. Probe its header so the
	// scorer can place it in a resolution tier; a failed probe just means
	// no art bonus.
	if res.CoverArtURL != "" && res.CoverArtWidth == 0 {
		probeCtx, cancel := context.WithTimeout(ctx, cfg.Lookup.Timeout())
		width, err := artwork.FetchWidth(probeCtx, o.artClient, res.CoverArtURL)
		cancel()
		if err != nil {
			o.logger.Debug("cover art probe failed", "track_id", t.ID, "url", res.CoverArtURL, "error", err)
		} else {
			res.CoverArtWidth = width
		}
	}

	validation := o.buildValidation(t, res, p)

	if p.SnapshotsRequired {
		if prev, err := json.Marshal(t); err == nil {
			o.logger.Info("pre-enrichment snapshot", "track_id", t.ID, "snapshot", string(prev))
		}
	}

	merged := mergeResult(t, res)

	scored := score.Score(merged, validation, nil, p)
	merged.ConfidenceScore = scored.Score
	merged.MetadataStatus = scored.RecommendedStatus
	merged.EnrichmentAttempts++
	merged.LastEnrichmentAttemptAt = &now

	if ctx.Err() != nil {
		o.stats.AddSkipped()
		o.publishSkipped(t.ID, t.Title, ReasonCanceled)
		return &Result{Outcome: OutcomeSkipped, Reason: ReasonCanceled, Track: t}, nil
	}

	if err := o.store.Update(ctx, merged); err != nil {
		return nil, fmt.Errorf("persisting enrichment result: %w", err)
	}

	o.backoffs.clear(t.ID)
	o.stats.AddEnriched()
	o.logger.Info("track enriched",
		"track_id", merged.ID,
		"title", merged.Title,
		"score", scored.Score,
		"tier", string(scored.Tier),
		"status", string(merged.MetadataStatus))
	o.bus.Publish(event.Event{
		Type: event.EnrichSucceeded,
		Data: map[string]any{
			"track_id": merged.ID,
			"title":    merged.Title,
			"score":    scored.Score,
			"status":   string(merged.MetadataStatus),
		},
	})

	return &Result{Outcome: OutcomeEnriched, Track: merged, Score: scored.Score}, nil
}

// buildValidation cross-validates the local track against the lookup result.
func (o *Orchestrator) buildValidation(t *track.Track, res *lookup.Result, p config.Pipeline) *score.Validation {
	v := &score.Validation{
		TitleSimilarity:  score.HybridSimilarity(t.Title, res.Title, p.SimilarityWeights),
		ArtistSimilarity: score.HybridSimilarity(t.Artist, res.Artist, p.SimilarityWeights),
		MusicConfidence:  res.MusicConfidence,
	}

	if t.Album != "" && res.Album != "" {
		v.AlbumSimilarity = score.HybridSimilarity(t.Album, res.Album, p.SimilarityWeights)
		v.AlbumConfirmed = v.AlbumSimilarity >= albumConfirmThreshold
	} else if t.Album == "" && res.Album != "" {
		// Upstream supplies an album we lack; adopted during merge.
		v.AlbumConfirmed = true
	}

	if score.ValidYear(t.Year) && score.ValidYear(res.Year) && absInt(t.Year-res.Year) > 1 {
		v.Conflicts = true
		v.Warnings = append(v.Warnings,
			fmt.Sprintf("year mismatch: local %d, lookup %d", t.Year, res.Year))
	}
	if v.TitleSimilarity < p.TitleSimilarityMin {
		v.Warnings = append(v.Warnings, "title similarity below threshold")
	}
	if v.ArtistSimilarity < p.ArtistSimilarityMin {
		v.Warnings = append(v.Warnings, "artist similarity below threshold")
	}

	return v
}

// mergeResult fills gaps in the local track from the lookup result. Local
// values win when present; the lookup only supplies what is missing or
// strictly better (higher-resolution art, a specific genre over a generic
// one).
func mergeResult(t *track.Track, res *lookup.Result) *track.Track {
	merged := *t

	if merged.MusicBrainzID == "" {
		merged.MusicBrainzID = res.MusicBrainzID
	}
	if merged.Album == "" {
		merged.Album = res.Album
	}
	if !score.ValidYear(merged.Year) && score.ValidYear(res.Year) {
		merged.Year = res.Year
	}
	if len(res.Genres) > 0 && !score.HasSpecificGenre(merged.Genre) {
		for _, g := range res.Genres {
			if score.HasSpecificGenre(g) {
				merged.Genre = g
				break
			}
		}
		if merged.Genre == "" {
			merged.Genre = res.Genres[0]
		}
	}
	if merged.SpotifyID == "" {
		merged.SpotifyID = res.SpotifyID
	}
	if merged.DeezerID == "" {
		merged.DeezerID = res.DeezerID
	}
	if merged.YouTubeID == "" {
		merged.YouTubeID = res.YouTubeID
	}
	if merged.DiscogsURL == "" {
		merged.DiscogsURL = res.DiscogsURL
	}
	if merged.LastFMURL == "" {
		merged.LastFMURL = res.LastFMURL
	}
	if res.HasLyrics {
		merged.HasLyrics = true
	}
	if res.CoverArtWidth > merged.CoverArtWidth {
		merged.CoverArtWidth = res.CoverArtWidth
	}
	if creditsRank(res.Credits) > creditsRank(merged.Credits) {
		merged.Credits = res.Credits
	}

	return &merged
}

func creditsRank(c string) int {
	switch c {
	case track.CreditsFull:
		return 2
	case track.CreditsPartial:
		return 1
	default:
		return 0
	}
}

func (o *Orchestrator) acquire(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[id] {
		return false
	}
	o.inFlight[id] = true
	return true
}

func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, id)
}

func (o *Orchestrator) publishSkipped(id, title string, reason Reason) {
	o.bus.Publish(event.Event{
		Type: event.EnrichSkipped,
		Data: map[string]any{"track_id": id, "title": title, "reason": string(reason)},
	})
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
