package track

import "testing"

func TestStatusValid(t *testing.T) {
	for _, s := range AllStatuses() {
		if !s.Valid() {
			t.Errorf("%s reported invalid", s)
		}
	}
	for _, raw := range []string{"", "done", "VERIFIED"} {
		if Status(raw).Valid() {
			t.Errorf("%q reported valid", raw)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range AllStatuses() {
		want := s == StatusVerified
		if s.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, s.Terminal(), want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("api_not_found")
	if err != nil {
		t.Fatalf("ParseStatus: %v", err)
	}
	if s != StatusAPINotFound {
		t.Errorf("ParseStatus = %s", s)
	}

	if _, err := ParseStatus("nope"); err == nil {
		t.Error("ParseStatus accepted an unknown status")
	}
}

func TestLinkCounts(t *testing.T) {
	tr := Track{}
	if tr.StreamingLinkCount() != 0 || tr.VideoLinkCount() != 0 {
		t.Errorf("empty track link counts = %d/%d", tr.StreamingLinkCount(), tr.VideoLinkCount())
	}

	tr = Track{SpotifyID: "s", DeezerID: "d", YouTubeID: "y"}
	if tr.StreamingLinkCount() != 2 {
		t.Errorf("StreamingLinkCount = %d, want 2", tr.StreamingLinkCount())
	}
	if tr.VideoLinkCount() != 1 {
		t.Errorf("VideoLinkCount = %d, want 1", tr.VideoLinkCount())
	}
}
