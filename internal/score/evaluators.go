package score

import (
	"regexp"
	"strings"
)

// ArtTier buckets cover art by resolution.
type ArtTier int

// Cover art tiers, lowest to highest.
const (
	ArtNone ArtTier = iota
	ArtLow
	ArtNormal
	ArtHD
)

// genericGenres are labels too vague to say anything about a track.
var genericGenres = map[string]bool{
	"other":     true,
	"unknown":   true,
	"misc":      true,
	"various":   true,
	"music":     true,
	"pop":       true,
	"undefined": true,
	"none":      true,
}

// junkTitlePatterns match titles that are obviously filler rather than real
// metadata (ripper defaults, bare track numbers, embedded URLs).
var junkTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^track[ _-]?\d+$`),
	regexp.MustCompile(`^audiotrack[ _-]?\d*$`),
	regexp.MustCompile(`^(unknown|untitled|no title|new recording)( \d+)?$`),
	regexp.MustCompile(`https?://`),
	regexp.MustCompile(`\.(mp3|flac|m4a|ogg|wav|wma)$`),
}

// HasSpecificGenre reports whether the genre is present and meaningful.
func HasSpecificGenre(genre string) bool {
	g := normalizeText(genre)
	return g != "" && !genericGenres[g]
}

// HasGenericGenre reports whether the genre is present but too vague to trust.
func HasGenericGenre(genre string) bool {
	g := normalizeText(genre)
	return g != "" && genericGenres[g]
}

// ValidYear reports whether the year is plausible for recorded music.
func ValidYear(year int) bool {
	return year >= 1900 && year <= 2100
}

// CoverArtTier buckets a cover art width in pixels.
func CoverArtTier(width int) ArtTier {
	switch {
	case width >= 1000:
		return ArtHD
	case width >= 600:
		return ArtNormal
	case width > 0:
		return ArtLow
	default:
		return ArtNone
	}
}

// IsJunkTitle reports whether a title looks like filler text.
func IsJunkTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return false
	}
	for _, re := range junkTitlePatterns {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// ValidTitle reports whether a title is present and not junk.
func ValidTitle(title string) bool {
	return strings.TrimSpace(title) != "" && !IsJunkTitle(title)
}
