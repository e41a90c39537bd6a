package music

// Mapping rows tie canonical entities to the sources that back them.
// Canonical and mapping rows outlive source membership; only the
// association state (file path, source rows) is reclaimed when a source
// stops seeing an entity.

// LocalAlbum marks an album as present in a local source.
type LocalAlbum struct {
	AlbumID       int64
	LocalSourceID int64
}

// LocalTrack ties a track to a file in a local source. FilePath is nil
// once the file disappears from disk; the row and its hash are kept so a
// reappearing file is recognized as the same track.
type LocalTrack struct {
	TrackID       int64
	LocalSourceID int64
	FilePath      *string
	Hash          uint32
}

// LocalArtist marks an artist as present in a local source.
type LocalArtist struct {
	ArtistID      int64
	LocalSourceID int64
}

// SpotifyAlbum maps a Spotify album id to a canonical album.
type SpotifyAlbum struct {
	AlbumID   int64
	SpotifyID string
}

// SpotifyTrack maps a Spotify track id to a canonical track.
type SpotifyTrack struct {
	TrackID   int64
	SpotifyID string
}

// SpotifyArtist maps a Spotify artist id to a canonical artist.
type SpotifyArtist struct {
	ArtistID  int64
	SpotifyID string
}

// SpotifyAlbumSource records that a Spotify source currently sees an album.
type SpotifyAlbumSource struct {
	AlbumID         int64
	SpotifySourceID int64
}

// SpotifyTrackSource records that a Spotify source currently sees a track.
type SpotifyTrackSource struct {
	TrackID         int64
	SpotifySourceID int64
}

// SpotifyArtistSource records that a Spotify source currently sees an artist.
type SpotifyArtistSource struct {
	ArtistID        int64
	SpotifySourceID int64
}
