package score

import (
	"testing"

	"github.com/quillon/clearwater/internal/config"
	"github.com/quillon/clearwater/internal/track"
)

func TestLocalScore(t *testing.T) {
	tests := []struct {
		name  string
		track track.Track
		want  int
	}{
		{
			name:  "empty record keeps the base score",
			track: track.Track{},
			want:  50,
		},
		{
			name:  "title and artist only",
			track: track.Track{Title: "Karma Police", Artist: "Radiohead"},
			want:  60,
		},
		{
			name: "fully tagged local file",
			track: track.Track{
				Title: "Karma Police", Artist: "Radiohead", Album: "OK Computer",
				Genre: "alternative rock", Year: 1997, CoverArtWidth: 500,
			},
			want: 70,
		},
		{
			name:  "junk title earns no title point and a penalty",
			track: track.Track{Title: "Track 07", Artist: "Radiohead"},
			want:  50,
		},
		{
			name:  "generic genre still counts as present but is penalized",
			track: track.Track{Title: "Karma Police", Artist: "Radiohead", Genre: "pop"},
			want:  61,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LocalScore(&tt.track); got != tt.want {
				t.Errorf("LocalScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLocalScoreIdempotent(t *testing.T) {
	tr := &track.Track{Title: "Lateralus", Artist: "Tool", Album: "Lateralus", Genre: "metal", Year: 2001}
	first := LocalScore(tr)
	for i := 0; i < 3; i++ {
		if got := LocalScore(tr); got != first {
			t.Fatalf("rescoring an unchanged record changed the score: %d then %d", first, got)
		}
	}
}

// A track's score may legitimately drop after enrichment: the local pass
// trusts whatever tags are present, while cross-validation can expose that
// those tags disagree with the upstream record.
func TestFullScoreCanDropBelowLocalScore(t *testing.T) {
	tr := &track.Track{
		Title: "Greatest Hits Mix", Artist: "Unknwn Artst",
		Album: "Best Of", Genre: "rock", Year: 2005,
	}
	local := LocalScore(tr)

	v := &Validation{TitleSimilarity: 0.2, ArtistSimilarity: 0.3, Conflicts: true}
	full := Score(tr, v, nil, config.ModeBalanced.Pipeline())

	if full.Score >= local {
		t.Errorf("full score %d should fall below local score %d when validation finds mismatches", full.Score, local)
	}
}
