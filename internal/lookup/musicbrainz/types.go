package musicbrainz

// MusicBrainz API response types.

// SearchResponse is the top-level response from the recording search endpoint.
type SearchResponse struct {
	Created    string        `json:"created"`
	Count      int           `json:"count"`
	Offset     int           `json:"offset"`
	Recordings []MBRecording `json:"recordings"`
}

// MBRecording represents a MusicBrainz recording entity.
type MBRecording struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Score        int              `json:"score"`
	Length       int              `json:"length"`
	ArtistCredit []MBArtistCredit `json:"artist-credit"`
	Releases     []MBRelease      `json:"releases"`
	Tags         []MBTag          `json:"tags"`
	Genres       []MBGenre        `json:"genres"`
}

// MBArtistCredit is one entry in a recording's artist credit list.
type MBArtistCredit struct {
	Name   string   `json:"name"`
	Artist MBArtist `json:"artist"`
}

// MBArtist is the artist entity embedded in an artist credit.
type MBArtist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
}

// MBRelease is a release (album) a recording appears on.
type MBRelease struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// MBTag represents a user-submitted tag.
type MBTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MBGenre represents a genre classification.
type MBGenre struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}
