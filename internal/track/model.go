package track

import "time"

// Credits level for a track's performer/writer credits.
const (
	CreditsNone    = ""
	CreditsPartial = "partial"
	CreditsFull    = "full"
)

// Track is the metadata record being purified. The store owns the mutable
// bookkeeping fields (score, status, attempt counters); everything else is
// descriptive metadata that enrichment may fill in.
type Track struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Genre  string `json:"genre"`
	Year   int    `json:"year"`

	MusicBrainzID string `json:"musicbrainz_id,omitempty"`
	SpotifyID     string `json:"spotify_id,omitempty"`
	DeezerID      string `json:"deezer_id,omitempty"`
	YouTubeID     string `json:"youtube_id,omitempty"`
	DiscogsURL    string `json:"discogs_url,omitempty"`
	LastFMURL     string `json:"lastfm_url,omitempty"`

	HasLyrics     bool   `json:"has_lyrics"`
	CoverArtWidth int    `json:"cover_art_width"`
	Credits       string `json:"credits,omitempty"`

	MetadataStatus          Status     `json:"metadata_status"`
	ConfidenceScore         int        `json:"confidence_score"`
	EnrichmentAttempts      int        `json:"enrichment_attempts"`
	LastEnrichmentAttemptAt *time.Time `json:"last_enrichment_attempt_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StreamingLinkCount reports how many streaming-service IDs are present.
func (t *Track) StreamingLinkCount() int {
	n := 0
	if t.SpotifyID != "" {
		n++
	}
	if t.DeezerID != "" {
		n++
	}
	return n
}

// VideoLinkCount reports how many video-service IDs are present.
func (t *Track) VideoLinkCount() int {
	if t.YouTubeID != "" {
		return 1
	}
	return 0
}
