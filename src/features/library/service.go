package library

import (
	"context"
	"log/slog"

	"github.com/arendse/melodium/src/music"
)

// Service is the domain service for the library feature.
type Service struct {
	library music.Library
}

// NewService creates a new library service.
func NewService(lib music.Library) *Service {
	return &Service{library: lib}
}

// GetAlbumsPaginated returns a page of albums, optionally filtered by name.
func (s *Service) GetAlbumsPaginated(ctx context.Context, search string, limit, offset int) ([]*music.AlbumView, error) {
	slog.Debug("GetAlbumsPaginated service called", "search", search, "limit", limit, "offset", offset)
	albums, err := s.library.GetAlbumsPaginated(ctx, search, limit, offset)
	if err != nil {
		slog.Error("GetAlbumsPaginated failed", "error", err)
		return nil, err
	}
	return albums, nil
}

// GetAlbumsCount returns the total count of albums in the library.
func (s *Service) GetAlbumsCount(ctx context.Context) (int, error) {
	count, err := s.library.GetAlbumsCount(ctx)
	if err != nil {
		slog.Error("GetAlbumsCount failed", "error", err)
		return 0, err
	}
	return count, nil
}

// GetAlbum returns a single album with its artists.
func (s *Service) GetAlbum(ctx context.Context, id int64) (*music.AlbumView, error) {
	return s.library.GetAlbum(ctx, id)
}

// GetAlbumTracks returns an album's track listing in disc and track order.
func (s *Service) GetAlbumTracks(ctx context.Context, albumID int64) ([]*music.TrackView, error) {
	return s.library.GetAlbumTracks(ctx, albumID)
}

// GetTracksPaginated returns a page of tracks, optionally filtered by
// title or album name.
func (s *Service) GetTracksPaginated(ctx context.Context, search string, limit, offset int) ([]*music.TrackView, error) {
	slog.Debug("GetTracksPaginated service called", "search", search, "limit", limit, "offset", offset)
	tracks, err := s.library.GetTracksPaginated(ctx, search, limit, offset)
	if err != nil {
		slog.Error("GetTracksPaginated failed", "error", err)
		return nil, err
	}
	return tracks, nil
}

// GetTracksCount returns the total count of tracks in the library.
func (s *Service) GetTracksCount(ctx context.Context) (int, error) {
	count, err := s.library.GetTracksCount(ctx)
	if err != nil {
		slog.Error("GetTracksCount failed", "error", err)
		return 0, err
	}
	return count, nil
}

// GetTrack returns a single track with its availability resolved.
func (s *Service) GetTrack(ctx context.Context, id int64) (*music.TrackView, error) {
	return s.library.GetTrack(ctx, id)
}

// GetArtistsPaginated returns a page of artists, optionally filtered by name.
func (s *Service) GetArtistsPaginated(ctx context.Context, search string, limit, offset int) ([]*music.Artist, error) {
	slog.Debug("GetArtistsPaginated service called", "search", search, "limit", limit, "offset", offset)
	artists, err := s.library.GetArtistsPaginated(ctx, search, limit, offset)
	if err != nil {
		slog.Error("GetArtistsPaginated failed", "error", err)
		return nil, err
	}
	return artists, nil
}

// GetArtistsCount returns the total count of artists in the library.
func (s *Service) GetArtistsCount(ctx context.Context) (int, error) {
	count, err := s.library.GetArtistsCount(ctx)
	if err != nil {
		slog.Error("GetArtistsCount failed", "error", err)
		return 0, err
	}
	return count, nil
}

// GetArtist returns a single artist.
func (s *Service) GetArtist(ctx context.Context, id int64) (*music.Artist, error) {
	return s.library.GetArtist(ctx, id)
}

// GetArtistAlbums returns the albums credited to an artist.
func (s *Service) GetArtistAlbums(ctx context.Context, artistID int64) ([]*music.AlbumView, error) {
	return s.library.GetArtistAlbums(ctx, artistID)
}
