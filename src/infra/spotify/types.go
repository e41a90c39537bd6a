package spotify

// Artist is an artist object as returned by the API.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AlbumRef is a simplified album from an artist's album listing.
type AlbumRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AlbumTrack is a track inside a full album object.
type AlbumTrack struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DiscNumber  int      `json:"disc_number"`
	TrackNumber int      `json:"track_number"`
	Artists     []Artist `json:"artists"`
}

// Album is a full album object, including its track listing.
type Album struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
	Tracks  struct {
		Items []AlbumTrack `json:"items"`
	} `json:"tracks"`
}

type followedArtistsResponse struct {
	Artists struct {
		Items   []Artist `json:"items"`
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
	} `json:"artists"`
}

type artistAlbumsResponse struct {
	Items []AlbumRef `json:"items"`
	Total int        `json:"total"`
}

type albumsResponse struct {
	Albums []*Album `json:"albums"`
}
