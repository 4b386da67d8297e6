package track

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// trackColumns is the ordered list of columns for SELECT queries.
const trackColumns = `id, title, artist, album, genre, year,
	musicbrainz_id, spotify_id, deezer_id, youtube_id, discogs_url, lastfm_url,
	has_lyrics, cover_art_width, credits,
	metadata_status, confidence_score, enrichment_attempts, last_enrichment_attempt_at,
	created_at, updated_at`

// ErrNotFound is returned when a requested track does not exist.
var ErrNotFound = errors.New("track not found")

// Store provides track persistence. Every read returns a fresh snapshot and
// every write replaces the full row; callers must not hold and re-flush
// long-lived copies.
type Store struct {
	db *sql.DB
}

// NewStore creates a track store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new track. A missing ID or status is filled in.
func (s *Store) Create(ctx context.Context, t *Track) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.MetadataStatus == "" {
		t.MetadataStatus = StatusDirty
	}
	if !t.MetadataStatus.Valid() {
		return fmt.Errorf("creating track: invalid status %q", t.MetadataStatus)
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (
			id, title, artist, album, genre, year,
			musicbrainz_id, spotify_id, deezer_id, youtube_id, discogs_url, lastfm_url,
			has_lyrics, cover_art_width, credits,
			metadata_status, confidence_score, enrichment_attempts, last_enrichment_attempt_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.Title, t.Artist, t.Album, t.Genre, t.Year,
		t.MusicBrainzID, t.SpotifyID, t.DeezerID, t.YouTubeID, t.DiscogsURL, t.LastFMURL,
		boolToInt(t.HasLyrics), t.CoverArtWidth, t.Credits,
		string(t.MetadataStatus), t.ConfidenceScore, t.EnrichmentAttempts,
		formatNullableTime(t.LastEnrichmentAttemptAt),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating track: %w", err)
	}
	return nil
}

// GetByID retrieves a track by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Track, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting track by id: %w", err)
	}
	return t, nil
}

// Update replaces the full row for the given track and bumps UpdatedAt.
// This is the single write path for enrichment results.
func (s *Store) Update(ctx context.Context, t *Track) error {
	if !t.MetadataStatus.Valid() {
		return fmt.Errorf("updating track: invalid status %q", t.MetadataStatus)
	}
	now := time.Now().UTC()
	t.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		UPDATE tracks SET
			title = ?, artist = ?, album = ?, genre = ?, year = ?,
			musicbrainz_id = ?, spotify_id = ?, deezer_id = ?, youtube_id = ?,
			discogs_url = ?, lastfm_url = ?,
			has_lyrics = ?, cover_art_width = ?, credits = ?,
			metadata_status = ?, confidence_score = ?, enrichment_attempts = ?,
			last_enrichment_attempt_at = ?, updated_at = ?
		WHERE id = ?
	`,
		t.Title, t.Artist, t.Album, t.Genre, t.Year,
		t.MusicBrainzID, t.SpotifyID, t.DeezerID, t.YouTubeID,
		t.DiscogsURL, t.LastFMURL,
		boolToInt(t.HasLyrics), t.CoverArtWidth, t.Credits,
		string(t.MetadataStatus), t.ConfidenceScore, t.EnrichmentAttempts,
		formatNullableTime(t.LastEnrichmentAttemptAt), now.Format(time.RFC3339),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating track: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating track: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, t.ID)
	}
	return nil
}

// NeedingEnrichment returns up to limit tracks that are candidates for
// background enrichment: not verified, not over the attempt budget, oldest
// attempts first so fresh failures sink to the back of the queue. Tracks in
// the api_not_found or failed states are excluded unless their last attempt
// predates retryCutoff.
func (s *Store) NeedingEnrichment(ctx context.Context, limit, maxAttempts int, retryCutoff time.Time) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+trackColumns+` FROM tracks
		WHERE metadata_status != ?
		  AND enrichment_attempts < ?
		  AND (metadata_status NOT IN (?, ?)
		       OR COALESCE(last_enrichment_attempt_at, '') < ?)
		ORDER BY enrichment_attempts ASC,
		         COALESCE(last_enrichment_attempt_at, '') ASC,
		         created_at ASC
		LIMIT ?
	`, string(StatusVerified), maxAttempts,
		string(StatusAPINotFound), string(StatusFailed),
		retryCutoff.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("querying tracks needing enrichment: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		tracks = append(tracks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tracks: %w", err)
	}
	return tracks, nil
}

// ListByStatus returns up to limit tracks with the given status, oldest
// first. Used by the local scoring scan to page through dirty records.
func (s *Store) ListByStatus(ctx context.Context, status Status, limit int) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+trackColumns+` FROM tracks
		WHERE metadata_status = ?
		ORDER BY created_at ASC
		LIMIT ?
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("querying tracks by status: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		tracks = append(tracks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tracks: %w", err)
	}
	return tracks, nil
}

// CountByStatus returns the number of tracks per metadata status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT metadata_status, COUNT(*) FROM tracks GROUP BY metadata_status`)
	if err != nil {
		return nil, fmt.Errorf("counting tracks by status: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[Status]int)
	for rows.Next() {
		var raw string
		var n int
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[Status(raw)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}
	return counts, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(row scanner) (*Track, error) {
	var t Track
	var status string
	var hasLyrics int
	var lastAttempt, createdAt, updatedAt string

	err := row.Scan(
		&t.ID, &t.Title, &t.Artist, &t.Album, &t.Genre, &t.Year,
		&t.MusicBrainzID, &t.SpotifyID, &t.DeezerID, &t.YouTubeID,
		&t.DiscogsURL, &t.LastFMURL,
		&hasLyrics, &t.CoverArtWidth, &t.Credits,
		&status, &t.ConfidenceScore, &t.EnrichmentAttempts, &lastAttempt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.MetadataStatus = Status(status)
	t.HasLyrics = hasLyrics != 0
	t.LastEnrichmentAttemptAt = parseNullableTime(lastAttempt)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatNullableTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullableTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
