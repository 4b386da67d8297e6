package lookup

import (
	"context"
	"fmt"
	"time"
)

// Result is what the lookup service returned for a track: the upstream's own
// view of the metadata plus any external links it knows about.
type Result struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Year   int    `json:"year"`

	MusicBrainzID string   `json:"musicbrainz_id"`
	Genres        []string `json:"genres,omitempty"`

	SpotifyID  string `json:"spotify_id,omitempty"`
	DeezerID   string `json:"deezer_id,omitempty"`
	YouTubeID  string `json:"youtube_id,omitempty"`
	DiscogsURL string `json:"discogs_url,omitempty"`
	LastFMURL  string `json:"lastfm_url,omitempty"`

	HasLyrics     bool   `json:"has_lyrics"`
	CoverArtURL   string `json:"cover_art_url,omitempty"`
	CoverArtWidth int    `json:"cover_art_width,omitempty"`
	Credits       string `json:"credits,omitempty"`

	// MusicConfidence is the service's normalized match score in [0, 1].
	MusicConfidence float64 `json:"music_confidence"`
}

// Client is the lookup service abstraction the orchestrator depends on.
// Implementations must map upstream failures onto the error types below:
// 404 / no match to ErrNotFound, 429 and 5xx to ErrUnavailable, 401/403 to
// ErrAuthRequired.
type Client interface {
	Lookup(ctx context.Context, title, artist string) (*Result, error)
}

// ErrUnavailable indicates a transient failure (rate-limited upstream,
// timeout, server error). RetryAfter carries a server-suggested delay when
// one was provided.
type ErrUnavailable struct {
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("lookup service unavailable: %v", e.Cause)
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the service has no match for the requested track.
// This is a distinct non-error outcome, not a failure.
type ErrNotFound struct {
	Title  string
	Artist string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("no match for %q by %q", e.Title, e.Artist)
}

// ErrAuthRequired indicates invalid or missing credentials. This is fatal
// for the whole enrichment run, not just one track.
type ErrAuthRequired struct {
	Cause error
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("lookup service rejected credentials: %v", e.Cause)
}

func (e *ErrAuthRequired) Unwrap() error { return e.Cause }
