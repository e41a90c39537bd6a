package syncing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/arendse/melodium/src/infra/spotify"
	"github.com/arendse/melodium/src/music"
)

// FetchResult is the snapshot of a Spotify account's followed catalog,
// ready to be reconciled.
type FetchResult struct {
	Artists            []music.FetchedArtist
	Albums             []music.FetchedAlbum
	Credentials        spotify.Credentials
	CredentialsChanged bool
}

// CatalogFetcher retrieves the followed catalog for a Spotify source.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context, source *music.SpotifySource, workers int) (*FetchResult, error)
}

// SpotifyFetcher fetches a source's catalog from the Spotify Web API.
// Album listings for the followed artists are fetched concurrently.
type SpotifyFetcher struct {
	client *spotify.Client
}

// NewSpotifyFetcher creates a fetcher backed by the given API client.
func NewSpotifyFetcher(client *spotify.Client) *SpotifyFetcher {
	return &SpotifyFetcher{client: client}
}

// FetchCatalog lists the account's followed artists, collects their
// album ids with a bounded worker pool, then fetches the full albums.
func (f *SpotifyFetcher) FetchCatalog(ctx context.Context, source *music.SpotifySource, workers int) (*FetchResult, error) {
	session := f.client.NewSession(spotify.Credentials{
		AccessToken:  source.AccessToken,
		RefreshToken: source.RefreshToken,
		ExpiryDate:   source.ExpiryDate,
	})

	artists, err := session.FollowedArtists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch followed artists: %w", err)
	}
	slog.Info("Fetched followed artists", "source", source.ID, "count", len(artists))

	albumIDs, err := f.fetchAlbumIDs(ctx, session, artists, workers)
	if err != nil {
		return nil, err
	}

	albums, err := session.Albums(ctx, albumIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch albums: %w", err)
	}

	result := &FetchResult{
		Artists: convertArtists(artists),
		Albums:  convertAlbums(albums),
	}
	result.Credentials, result.CredentialsChanged = session.Credentials()
	return result, nil
}

// fetchAlbumIDs lists every followed artist's albums and returns the
// deduplicated album ids in a stable order.
func (f *SpotifyFetcher) fetchAlbumIDs(ctx context.Context, session *spotify.Session, artists []spotify.Artist, workers int) ([]string, error) {
	if workers < 1 {
		workers = 1
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		seen     = make(map[string]bool)
		ids      []string
	)
	sem := make(chan struct{}, workers)

	for _, artist := range artists {
		wg.Add(1)
		go func(artist spotify.Artist) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			stop := firstErr != nil
			mu.Unlock()
			if stop {
				return
			}

			refs, err := session.ArtistAlbums(ctx, artist.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to fetch albums for artist %s: %w", artist.ID, err)
				}
				return
			}
			for _, ref := range refs {
				if !seen[ref.ID] {
					seen[ref.ID] = true
					ids = append(ids, ref.ID)
				}
			}
		}(artist)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	sort.Strings(ids)
	return ids, nil
}

func convertArtists(artists []spotify.Artist) []music.FetchedArtist {
	out := make([]music.FetchedArtist, 0, len(artists))
	for _, a := range artists {
		out = append(out, music.FetchedArtist{SpotifyID: a.ID, Name: a.Name})
	}
	return out
}

func convertAlbums(albums []spotify.Album) []music.FetchedAlbum {
	out := make([]music.FetchedAlbum, 0, len(albums))
	for _, album := range albums {
		fetched := music.FetchedAlbum{
			SpotifyID: album.ID,
			Name:      album.Name,
			Artists:   convertArtists(album.Artists),
		}
		for _, track := range album.Tracks.Items {
			fetched.Tracks = append(fetched.Tracks, music.FetchedTrack{
				SpotifyID:   track.ID,
				Title:       track.Name,
				DiscNumber:  track.DiscNumber,
				TrackNumber: track.TrackNumber,
				Artists:     convertArtists(track.Artists),
			})
		}
		out = append(out, fetched)
	}
	return out
}
