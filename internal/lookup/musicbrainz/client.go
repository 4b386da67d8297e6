package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quillon/clearwater/internal/lookup"
)

const (
	defaultBaseURL  = "https://musicbrainz.org/ws/2"
	coverArtBaseURL = "https://coverartarchive.org/release"
)

// Adapter implements lookup.Client against the MusicBrainz recording search
// API. It performs no rate limiting of its own; the enrichment orchestrator
// owns the global request budget.
type Adapter struct {
	client    *http.Client
	logger    *slog.Logger
	baseURL   string
	userAgent string
}

// Options configures an Adapter.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// New creates a MusicBrainz adapter.
func New(opts Options, logger *slog.Logger) *Adapter {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "clearwater/1.0"
	}
	return &Adapter{
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With(slog.String("component", "musicbrainz")),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

// Lookup searches MusicBrainz for a recording matching the title and artist.
// The best-scoring hit is mapped to a lookup.Result.
func (a *Adapter) Lookup(ctx context.Context, title, artist string) (*lookup.Result, error) {
	query := fmt.Sprintf(`recording:%q AND artist:%q`, title, artist)
	params := url.Values{
		"query": {query},
		"fmt":   {"json"},
		"limit": {"5"},
	}
	reqURL := a.baseURL + "/recording?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, title, artist)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing recording search response: %w", err)
	}
	if len(resp.Recordings) == 0 {
		return nil, &lookup.ErrNotFound{Title: title, Artist: artist}
	}

	best := resp.Recordings[0]
	for _, r := range resp.Recordings[1:] {
		if r.Score > best.Score {
			best = r
		}
	}

	return mapRecording(&best), nil
}

// doRequest executes an HTTP GET and maps failures to the lookup error taxonomy.
func (a *Adapter) doRequest(ctx context.Context, reqURL, title, artist string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req)
	if err != nil {
		// Timeouts and network errors are transient; context cancellation
		// is surfaced as-is so callers can tell an abandoned attempt apart.
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &lookup.ErrUnavailable{Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		return io.ReadAll(io.LimitReader(resp.Body, 512*1024))

	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &lookup.ErrNotFound{Title: title, Artist: artist}

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &lookup.ErrAuthRequired{Cause: fmt.Errorf("HTTP %d", resp.StatusCode)}

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &lookup.ErrUnavailable{
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: retryAfter,
		}

	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &lookup.ErrUnavailable{Cause: fmt.Errorf("unexpected HTTP %d", resp.StatusCode)}
	}
}

// mapRecording converts a MusicBrainz recording to the common result type.
func mapRecording(r *MBRecording) *lookup.Result {
	result := &lookup.Result{
		Title:           r.Title,
		MusicBrainzID:   r.ID,
		MusicConfidence: float64(r.Score) / 100.0,
	}

	if len(r.ArtistCredit) > 0 {
		names := make([]string, 0, len(r.ArtistCredit))
		for _, ac := range r.ArtistCredit {
			names = append(names, ac.Name)
		}
		result.Artist = strings.Join(names, " & ")
	}

	if len(r.Releases) > 0 {
		result.Album = r.Releases[0].Title
		result.Year = parseYear(r.Releases[0].Date)
		if r.Releases[0].ID != "" {
			result.CoverArtURL = coverArtFrontURL(r.Releases[0].ID)
		}
	}

	for _, g := range r.Genres {
		result.Genres = append(result.Genres, g.Name)
	}
	if len(result.Genres) == 0 {
		for _, t := range r.Tags {
			result.Genres = append(result.Genres, t.Name)
		}
	}

	return result
}

// coverArtFrontURL builds the Cover Art Archive front-image URL for a
// release. The archive redirects to the actual image when one exists.
func coverArtFrontURL(releaseID string) string {
	return coverArtBaseURL + "/" + releaseID + "/front"
}

// parseYear extracts the year from a MusicBrainz date (YYYY or YYYY-MM-DD).
func parseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// parseRetryAfter handles the delay-seconds form of the Retry-After header.
func parseRetryAfter(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
