package score

import "github.com/quillon/clearwater/internal/track"

// LocalScore is the cheap scorer used for initial bulk scans, before any
// external validation exists. It is a deliberately simpler formula than the
// full scorer and the two are allowed to disagree: a track's score may drop
// after enrichment if cross-validation finds problems the local pass
// could not see.
func LocalScore(t *track.Track) int {
	s := baseScore

	if ValidTitle(t.Title) {
		s += 5
	}
	if t.Artist != "" {
		s += 5
	}
	if t.Album != "" {
		s += 3
	}
	if t.Genre != "" {
		s += 3
	}
	if ValidYear(t.Year) {
		s += 2
	}
	if t.CoverArtWidth > 0 {
		s += 2
	}

	if IsJunkTitle(t.Title) {
		s -= 5
	}
	if HasGenericGenre(t.Genre) {
		s -= 2
	}

	return clampScore(s)
}
