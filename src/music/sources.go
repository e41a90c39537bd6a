package music

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LocalSource is a directory of audio files that feeds the catalog.
type LocalSource struct {
	ID        int64
	Enabled   bool
	Directory string
}

// Validate validates the local source fields.
func (s *LocalSource) Validate() error {
	if strings.TrimSpace(s.Directory) == "" {
		return fmt.Errorf("local source directory cannot be empty")
	}
	return nil
}

// SpotifySource is a linked Spotify account. Credentials live on the row
// and are rewritten whenever the client refreshes them during a sync.
type SpotifySource struct {
	ID           int64
	Enabled      bool
	RefreshToken string
	AccessToken  string
	ExpiryDate   time.Time
}

// CredentialsExpired reports whether the access token needs a refresh.
func (s *SpotifySource) CredentialsExpired(now time.Time) bool {
	return !now.Before(s.ExpiryDate)
}

// SourceStore manages the source rows of the catalog.
type SourceStore interface {
	GetLocalSources(ctx context.Context) ([]*LocalSource, error)
	GetLocalSource(ctx context.Context, id int64) (*LocalSource, error)
	AddLocalSource(ctx context.Context, source *LocalSource) (int64, error)
	SetLocalSourceEnabled(ctx context.Context, id int64, enabled bool) error
	DeleteLocalSource(ctx context.Context, id int64) error

	GetSpotifySources(ctx context.Context) ([]*SpotifySource, error)
	GetSpotifySource(ctx context.Context, id int64) (*SpotifySource, error)
	AddSpotifySource(ctx context.Context, source *SpotifySource) (int64, error)
	SetSpotifySourceEnabled(ctx context.Context, id int64, enabled bool) error
	UpdateSpotifyCredentials(ctx context.Context, source *SpotifySource) error
	DeleteSpotifySource(ctx context.Context, id int64) error
}
