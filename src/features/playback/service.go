package playback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arendse/melodium/src/infra/spotify"
	"github.com/arendse/melodium/src/music"
)

// Service plays catalog tracks, streaming local files directly and
// driving Spotify Connect for tracks that only exist remotely.
type Service struct {
	library music.Library
	sources music.SourceStore
	client  *spotify.Client
}

// NewService creates a new playback service
func NewService(library music.Library, sources music.SourceStore, client *spotify.Client) *Service {
	return &Service{
		library: library,
		sources: sources,
		client:  client,
	}
}

// OpenTrackFile returns a reader over the track's local audio file. The
// catalog stores paths relative to their source directory, so the
// source's directory is joined back in.
func (s *Service) OpenTrackFile(ctx context.Context, trackID int64) (io.ReadCloser, error) {
	track, err := s.library.GetTrack(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to get track: %w", err)
	}
	if track.FilePath == nil || track.LocalSourceID == nil {
		return nil, fmt.Errorf("track %d has no local file", trackID)
	}

	source, err := s.sources.GetLocalSource(ctx, *track.LocalSourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get local source: %w", err)
	}

	file, err := os.Open(filepath.Join(source.Directory, filepath.FromSlash(*track.FilePath)))
	if err != nil {
		return nil, fmt.Errorf("failed to open track file: %w", err)
	}
	return file, nil
}

// PlayOnSpotify starts playback of the track on a Spotify Connect
// device, using the first enabled linked account. Refreshed credentials
// are written back.
func (s *Service) PlayOnSpotify(ctx context.Context, trackID int64, deviceID string) error {
	track, err := s.library.GetTrack(ctx, trackID)
	if err != nil {
		return fmt.Errorf("failed to get track: %w", err)
	}
	if track.SpotifyID == nil {
		return fmt.Errorf("track %d is not available on Spotify", trackID)
	}

	source, err := s.pickSource(ctx)
	if err != nil {
		return err
	}

	session := s.client.NewSession(spotify.Credentials{
		AccessToken:  source.AccessToken,
		RefreshToken: source.RefreshToken,
		ExpiryDate:   source.ExpiryDate,
	})
	playErr := session.Play(ctx, deviceID, *track.SpotifyID)

	if creds, refreshed := session.Credentials(); refreshed {
		source.AccessToken = creds.AccessToken
		source.RefreshToken = creds.RefreshToken
		source.ExpiryDate = creds.ExpiryDate
		if err := s.sources.UpdateSpotifyCredentials(ctx, source); err != nil {
			slog.Error("Failed to persist refreshed credentials", "source", source.ID, "error", err)
		}
	}
	return playErr
}

func (s *Service) pickSource(ctx context.Context) (*music.SpotifySource, error) {
	sources, err := s.sources.GetSpotifySources(ctx)
	if err != nil {
		return nil, err
	}
	for _, source := range sources {
		if source.Enabled {
			return source, nil
		}
	}
	return nil, fmt.Errorf("no enabled Spotify source")
}
