package sources

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arendse/melodium/src/infra/spotify"
	"github.com/arendse/melodium/src/music"
)

// oauthStateTTL bounds how long a pending authorization is honored.
const oauthStateTTL = 10 * time.Minute

// Service manages the library's sources and the Spotify account link
// flow.
type Service struct {
	store  music.SourceStore
	client *spotify.Client

	mu     sync.Mutex
	states map[string]time.Time
}

// NewService creates a new sources service
func NewService(store music.SourceStore, client *spotify.Client) *Service {
	return &Service{
		store:  store,
		client: client,
		states: make(map[string]time.Time),
	}
}

// GetLocalSources lists all local sources
func (s *Service) GetLocalSources(ctx context.Context) ([]*music.LocalSource, error) {
	return s.store.GetLocalSources(ctx)
}

// AddLocalSource validates and stores a new local source
func (s *Service) AddLocalSource(ctx context.Context, directory string, enabled bool) (*music.LocalSource, error) {
	source := &music.LocalSource{Enabled: enabled, Directory: directory}
	if err := source.Validate(); err != nil {
		return nil, err
	}
	id, err := s.store.AddLocalSource(ctx, source)
	if err != nil {
		return nil, err
	}
	source.ID = id
	slog.Info("Added local source", "id", id, "directory", directory)
	return source, nil
}

// SetLocalSourceEnabled toggles a local source
func (s *Service) SetLocalSourceEnabled(ctx context.Context, id int64, enabled bool) error {
	return s.store.SetLocalSourceEnabled(ctx, id, enabled)
}

// DeleteLocalSource removes a local source and its mappings
func (s *Service) DeleteLocalSource(ctx context.Context, id int64) error {
	return s.store.DeleteLocalSource(ctx, id)
}

// GetSpotifySources lists all Spotify sources
func (s *Service) GetSpotifySources(ctx context.Context) ([]*music.SpotifySource, error) {
	return s.store.GetSpotifySources(ctx)
}

// SetSpotifySourceEnabled toggles a Spotify source
func (s *Service) SetSpotifySourceEnabled(ctx context.Context, id int64, enabled bool) error {
	return s.store.SetSpotifySourceEnabled(ctx, id, enabled)
}

// DeleteSpotifySource removes a Spotify source and its mappings
func (s *Service) DeleteSpotifySource(ctx context.Context, id int64) error {
	return s.store.DeleteSpotifySource(ctx, id)
}

// ConnectURL returns the Spotify authorization URL for linking a new
// account. The state is remembered and checked by the callback.
func (s *Service) ConnectURL() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := hex.EncodeToString(buf)

	s.mu.Lock()
	s.states[state] = time.Now().Add(oauthStateTTL)
	s.mu.Unlock()

	return s.client.AuthorizationURL(state), nil
}

// CompleteConnect exchanges the authorization code from the callback and
// stores the new account as an enabled Spotify source.
func (s *Service) CompleteConnect(ctx context.Context, state, code string) (*music.SpotifySource, error) {
	if !s.consumeState(state) {
		return nil, fmt.Errorf("unknown or expired authorization state")
	}

	creds, err := s.client.ExchangeAuthorizationCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	source := &music.SpotifySource{
		Enabled:      true,
		RefreshToken: creds.RefreshToken,
		AccessToken:  creds.AccessToken,
		ExpiryDate:   creds.ExpiryDate,
	}
	id, err := s.store.AddSpotifySource(ctx, source)
	if err != nil {
		return nil, err
	}
	source.ID = id
	slog.Info("Linked Spotify account", "id", id)
	return source, nil
}

func (s *Service) consumeState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)

	// Drop other stale entries while we hold the lock.
	now := time.Now()
	for k, d := range s.states {
		if now.After(d) {
			delete(s.states, k)
		}
	}
	return now.Before(deadline)
}
