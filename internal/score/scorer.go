package score

import (
	"github.com/quillon/clearwater/internal/config"
	"github.com/quillon/clearwater/internal/track"
)

// baseScore is the starting point every scoring run builds on.
const baseScore = 50

// Quality is the coarse trust bucket derived from a confidence score.
type Quality string

// Quality tiers.
const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
	QualityBad       Quality = "bad"
)

// QualityForScore buckets a confidence score.
func QualityForScore(score int) Quality {
	switch {
	case score >= 90:
		return QualityExcellent
	case score >= 80:
		return QualityGood
	case score >= 70:
		return QualityFair
	case score >= 60:
		return QualityPoor
	default:
		return QualityBad
	}
}

// Validation is the ephemeral cross-validation input to the scorer, built by
// comparing a local track against a lookup result. It is consumed once and
// never persisted.
type Validation struct {
	TitleSimilarity  float64
	ArtistSimilarity float64
	AlbumSimilarity  float64
	AlbumConfirmed   bool
	Conflicts        bool
	Warnings         []string

	// MusicConfidence is the upstream service's own confidence that the
	// matched entry is actually music content, in [0, 1]. Zero means the
	// service did not report one.
	MusicConfidence float64
}

// ArtistQuality carries optional artist-level signals.
type ArtistQuality struct {
	Verified bool
	HasImage bool
}

// Breakdown is the per-category point allocation behind a score. Recomputed
// fresh on every scoring call, never mutated incrementally.
type Breakdown struct {
	Base          int `json:"base"`
	APIValidation int `json:"api_validation"`
	Completeness  int `json:"completeness"`
	ArtistQuality int `json:"artist_quality"`
	ExternalLinks int `json:"external_links"`
	Penalties     int `json:"penalties"`
}

// Total sums the breakdown without clamping.
func (b Breakdown) Total() int {
	return b.Base + b.APIValidation + b.Completeness + b.ArtistQuality + b.ExternalLinks + b.Penalties
}

// Result is the outcome of a full scoring run.
type Result struct {
	Score             int
	Tier              Quality
	Breakdown         Breakdown
	RecommendedStatus track.Status
}

// Score computes the full confidence score for a track. validation and
// artistQuality are optional; absence of either simply contributes no points.
// The score is deterministic for a given set of inputs.
func Score(t *track.Track, validation *Validation, artistQuality *ArtistQuality, p config.Pipeline) Result {
	b := Breakdown{Base: baseScore}

	// Title/artist cross-validation, tiered not cumulative. Without
	// validation data, a lookup-service link is treated as a partial match.
	switch {
	case validation != nil && minFloat(validation.TitleSimilarity, validation.ArtistSimilarity) >= 0.8:
		b.APIValidation += 15
	case validation != nil && minFloat(validation.TitleSimilarity, validation.ArtistSimilarity) >= 0.6:
		b.APIValidation += 10
	case validation == nil && t.MusicBrainzID != "":
		b.APIValidation += 10
	}

	// Album.
	switch {
	case validation != nil && validation.AlbumConfirmed:
		b.APIValidation += 10
	case t.Album != "":
		b.Completeness += 5
	}

	// Completeness.
	switch {
	case HasSpecificGenre(t.Genre):
		b.Completeness += 5
	case HasGenericGenre(t.Genre):
		b.Completeness += 3
	}
	if ValidYear(t.Year) {
		b.Completeness += 5
	}
	switch CoverArtTier(t.CoverArtWidth) {
	case ArtHD:
		b.Completeness += 8
	case ArtNormal:
		b.Completeness += 5
	case ArtLow:
		b.Completeness += 2
	}
	if t.HasLyrics {
		b.Completeness += 7
	}
	switch t.Credits {
	case track.CreditsFull:
		b.Completeness += 5
	case track.CreditsPartial:
		b.Completeness += 3
	}

	// Artist-level signals, only when supplied.
	if artistQuality != nil {
		if artistQuality.Verified {
			b.ArtistQuality += 8
		}
		if artistQuality.HasImage {
			b.ArtistQuality += 7
		}
	}

	// External links are additive, not tiered.
	b.ExternalLinks += 3 * t.StreamingLinkCount()
	b.ExternalLinks += 3 * t.VideoLinkCount()
	if t.DiscogsURL != "" {
		b.ExternalLinks += 2
	}
	if t.LastFMURL != "" {
		b.ExternalLinks += 2
	}

	// Penalties are additive and independent of the positives above.
	if validation != nil {
		if validation.TitleSimilarity < p.TitleSimilarityMin {
			b.Penalties -= 15
		}
		if validation.ArtistSimilarity < p.ArtistSimilarityMin {
			b.Penalties -= 15
		}
		if validation.Conflicts {
			b.Penalties -= 5
		}
		if validation.MusicConfidence > 0 && validation.MusicConfidence < 0.7 {
			b.Penalties -= 2
		}
	}
	if t.Album == "" && (validation == nil || !validation.AlbumConfirmed) {
		b.Penalties -= 10
	}
	if HasGenericGenre(t.Genre) {
		b.Penalties -= 5
	}
	if IsJunkTitle(t.Title) {
		b.Penalties -= 3
	}

	final := clampScore(b.Total())

	return Result{
		Score:             final,
		Tier:              QualityForScore(final),
		Breakdown:         b,
		RecommendedStatus: DeriveStatus(final, t.MusicBrainzID != "", p),
	}
}

// DeriveStatus maps a score to a recommended metadata status using the
// configured thresholds. Kept separate from the scoring math so processing
// modes can retune thresholds without touching point tables.
func DeriveStatus(score int, hasLookupLink bool, p config.Pipeline) track.Status {
	switch {
	case score >= p.VerifiedThreshold:
		return track.StatusVerified
	case score >= p.PartialThreshold:
		return track.StatusPartialVerified
	case hasLookupLink:
		return track.StatusEnriched
	default:
		return track.StatusCleanedLocal
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
