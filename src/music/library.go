package music

import (
	"context"
)

// AlbumView is an album with its artists resolved, for browsing.
type AlbumView struct {
	Album
	Artists []string
}

// TrackView is a track with its album, artists and source availability
// resolved, for browsing.
type TrackView struct {
	Track
	AlbumName     string
	Artists       []string
	FilePath      *string
	LocalSourceID *int64
	SpotifyID     *string
}

// Library is the read side of the catalog.
// It's our primary repository interface for browsing.
type Library interface {
	GetAlbumsPaginated(ctx context.Context, search string, limit, offset int) ([]*AlbumView, error)
	GetAlbumsCount(ctx context.Context) (int, error)
	GetAlbum(ctx context.Context, id int64) (*AlbumView, error)
	GetAlbumTracks(ctx context.Context, albumID int64) ([]*TrackView, error)

	GetTracksPaginated(ctx context.Context, search string, limit, offset int) ([]*TrackView, error)
	GetTracksCount(ctx context.Context) (int, error)
	GetTrack(ctx context.Context, id int64) (*TrackView, error)

	GetArtistsPaginated(ctx context.Context, search string, limit, offset int) ([]*Artist, error)
	GetArtistsCount(ctx context.Context) (int, error)
	GetArtist(ctx context.Context, id int64) (*Artist, error)
	GetArtistAlbums(ctx context.Context, artistID int64) ([]*AlbumView, error)
}
