package score

import "testing"

func TestGenrePredicates(t *testing.T) {
	tests := []struct {
		genre        string
		wantSpecific bool
		wantGeneric  bool
	}{
		{"Progressive Rock", true, false},
		{"jazz", true, false},
		{"Pop", false, true},
		{"unknown", false, true},
		{"Other", false, true},
		{"", false, false},
		{"   ", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.genre, func(t *testing.T) {
			if got := HasSpecificGenre(tt.genre); got != tt.wantSpecific {
				t.Errorf("HasSpecificGenre(%q) = %v, want %v", tt.genre, got, tt.wantSpecific)
			}
			if got := HasGenericGenre(tt.genre); got != tt.wantGeneric {
				t.Errorf("HasGenericGenre(%q) = %v, want %v", tt.genre, got, tt.wantGeneric)
			}
		})
	}
}

func TestValidYear(t *testing.T) {
	tests := []struct {
		year int
		want bool
	}{
		{1900, true},
		{2100, true},
		{1975, true},
		{1899, false},
		{2101, false},
		{0, false},
		{-5, false},
	}
	for _, tt := range tests {
		if got := ValidYear(tt.year); got != tt.want {
			t.Errorf("ValidYear(%d) = %v, want %v", tt.year, got, tt.want)
		}
	}
}

func TestCoverArtTier(t *testing.T) {
	tests := []struct {
		width int
		want  ArtTier
	}{
		{1200, ArtHD},
		{1000, ArtHD},
		{999, ArtNormal},
		{600, ArtNormal},
		{599, ArtLow},
		{1, ArtLow},
		{0, ArtNone},
		{-10, ArtNone},
	}
	for _, tt := range tests {
		if got := CoverArtTier(tt.width); got != tt.want {
			t.Errorf("CoverArtTier(%d) = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestIsJunkTitle(t *testing.T) {
	junk := []string{
		"Track 01",
		"track_12",
		"AudioTrack 3",
		"Unknown",
		"untitled",
		"New Recording 42",
		"my song http://example.com/dl",
		"recording.mp3",
	}
	for _, title := range junk {
		if !IsJunkTitle(title) {
			t.Errorf("IsJunkTitle(%q) = false, want true", title)
		}
	}

	clean := []string{
		"",
		"Paranoid Android",
		"Track of My Tears", // contains "track" but is a real title
		"99 Problems",
	}
	for _, title := range clean {
		if IsJunkTitle(title) {
			t.Errorf("IsJunkTitle(%q) = true, want false", title)
		}
	}
}

func TestValidTitle(t *testing.T) {
	if ValidTitle("") {
		t.Error("empty title should not be valid")
	}
	if ValidTitle("Track 01") {
		t.Error("junk title should not be valid")
	}
	if !ValidTitle("Karma Police") {
		t.Error("real title should be valid")
	}
}
