package config

import "fmt"

// Mode is a named processing preset. Applying a mode constructs a complete
// Pipeline value; presets are never merged into an existing pipeline
// field-by-field.
type Mode string

// Known processing modes.
const (
	ModeFastLocalOnly  Mode = "fast_local_only"
	ModeBalanced       Mode = "balanced"
	ModeFullEnrichment Mode = "full_enrichment"
	ModeConservative   Mode = "conservative"
)

// ParseMode converts a string to a Mode.
func ParseMode(raw string) (Mode, error) {
	m := Mode(raw)
	switch m {
	case ModeFastLocalOnly, ModeBalanced, ModeFullEnrichment, ModeConservative:
		return m, nil
	}
	return "", fmt.Errorf("unknown processing mode: %q", raw)
}

// basePipeline is the balanced-mode pipeline every preset starts from.
func basePipeline() Pipeline {
	return Pipeline{
		Mode:              ModeBalanced,
		VerifiedThreshold: 80,
		PartialThreshold:  60,
		SimilarityWeights: SimilarityWeights{
			Levenshtein: 0.5,
			Jaccard:     0.3,
			Phonetic:    0.2,
		},
		TitleSimilarityMin:    0.5,
		ArtistSimilarityMin:   0.4,
		EnrichOnPlay:          true,
		EnrichInBackground:    true,
		BatchSize:             50,
		BatchIntervalMinutes:  15,
		RequestsPerMinute:     10,
		Workers:               4,
		MaxAttempts:           3,
		RetryNotFoundDays:     30,
		BackoffBaseSeconds:    30,
		BackoffMaxSeconds:     1800,
		TrackCooldownSeconds:  60,
		GlobalCooldownSeconds: 5,
		SnapshotsRequired:     false,
	}
}

// Pipeline returns the complete pipeline preset for the mode.
func (m Mode) Pipeline() Pipeline {
	p := basePipeline()
	switch m {
	case ModeFastLocalOnly:
		p.Mode = ModeFastLocalOnly
		p.EnrichOnPlay = false
		p.EnrichInBackground = false
		p.VerifiedThreshold = 60
		p.PartialThreshold = 50
	case ModeFullEnrichment:
		p.Mode = ModeFullEnrichment
		p.BatchSize = 100
		p.RequestsPerMinute = 15
	case ModeConservative:
		p.Mode = ModeConservative
		p.TitleSimilarityMin = 0.7
		p.ArtistSimilarityMin = 0.6
		p.VerifiedThreshold = 90
		p.MaxAttempts = 5
		p.SnapshotsRequired = true
	}
	return p
}

// DisplayName returns a human-readable name for the mode.
func (m Mode) DisplayName() string {
	switch m {
	case ModeFastLocalOnly:
		return "Fast (local only)"
	case ModeBalanced:
		return "Balanced"
	case ModeFullEnrichment:
		return "Full Enrichment"
	case ModeConservative:
		return "Conservative"
	default:
		return string(m)
	}
}
