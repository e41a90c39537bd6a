package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func futureCreds() Credentials {
	return Credentials{
		AccessToken:  "valid-token",
		RefreshToken: "refresh-token",
		ExpiryDate:   time.Now().Add(time.Hour),
	}
}

func newTestClient(apiURL, accountsURL string) *Client {
	c := NewClient(Config{
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		RedirectURI:     "http://localhost/callback",
		APIBaseURL:      apiURL,
		AccountsBaseURL: accountsURL,
	})
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestAuthorizationURL(t *testing.T) {
	c := newTestClient("", "https://accounts.example.com")
	got := c.AuthorizationURL("xyzzy")

	if !strings.HasPrefix(got, "https://accounts.example.com/authorize?") {
		t.Fatalf("unexpected url: %s", got)
	}
	for _, want := range []string{"client_id=client-id", "response_type=code", "state=xyzzy", "scope=user-follow-read"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected url to contain %q, got %s", want, got)
		}
	}
}

func TestRefreshAccessTokenKeepsRefreshToken(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, _ := r.BasicAuth()
		if user != "client-id" || pass != "client-secret" {
			t.Error("expected basic auth with application credentials")
		}
		r.ParseForm()
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("expected refresh_token grant, got %s", got)
		}
		// Spotify often omits the refresh token on refresh.
		json.NewEncoder(w).Encode(map[string]any{"access_token": "new-token", "expires_in": 3600})
	}))
	defer accounts.Close()

	c := newTestClient("", accounts.URL)
	creds, err := c.RefreshAccessToken(context.Background(), Credentials{RefreshToken: "old-refresh"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if creds.AccessToken != "new-token" {
		t.Errorf("expected new access token, got %s", creds.AccessToken)
	}
	if creds.RefreshToken != "old-refresh" {
		t.Errorf("expected the old refresh token to be kept, got %s", creds.RefreshToken)
	}
	if !creds.ExpiryDate.After(time.Now()) {
		t.Error("expected a future expiry date")
	}
}

func TestSessionRefreshesExpiredCredentialsUpfront(t *testing.T) {
	var tokenCalls atomic.Int32
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "fresh", "expires_in": 3600})
	}))
	defer accounts.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer fresh" {
			t.Errorf("expected refreshed bearer token, got %q", got)
		}
		json.NewEncoder(w).Encode(followedArtistsResponse{})
	}))
	defer api.Close()

	c := newTestClient(api.URL, accounts.URL)
	session := c.NewSession(Credentials{
		AccessToken:  "stale",
		RefreshToken: "refresh-token",
		ExpiryDate:   time.Now().Add(-time.Minute),
	})

	if _, err := session.FollowedArtists(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tokenCalls.Load() != 1 {
		t.Errorf("expected 1 token call, got %d", tokenCalls.Load())
	}
	creds, refreshed := session.Credentials()
	if !refreshed || creds.AccessToken != "fresh" {
		t.Errorf("expected refreshed credentials, got %+v refreshed=%v", creds, refreshed)
	}
}

func TestSessionConcurrentRequestsShareOneRefresh(t *testing.T) {
	var tokenCalls atomic.Int32
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "fresh", "expires_in": 3600})
	}))
	defer accounts.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer fresh" {
			t.Errorf("expected refreshed bearer token, got %q", got)
		}
		json.NewEncoder(w).Encode(followedArtistsResponse{})
	}))
	defer api.Close()

	c := newTestClient(api.URL, accounts.URL)
	session := c.NewSession(Credentials{
		AccessToken:  "stale",
		RefreshToken: "refresh-token",
		ExpiryDate:   time.Now().Add(-time.Minute),
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := session.FollowedArtists(context.Background()); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		}()
	}
	wg.Wait()

	if tokenCalls.Load() != 1 {
		t.Errorf("expected a single shared token call, got %d", tokenCalls.Load())
	}
	creds, refreshed := session.Credentials()
	if !refreshed || creds.AccessToken != "fresh" {
		t.Errorf("expected refreshed credentials, got %+v refreshed=%v", creds, refreshed)
	}
}

func TestSessionRetriesOnUnauthorized(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "fresh", "expires_in": 3600})
	}))
	defer accounts.Close()

	var apiCalls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(followedArtistsResponse{})
	}))
	defer api.Close()

	c := newTestClient(api.URL, accounts.URL)
	session := c.NewSession(futureCreds())

	if _, err := session.FollowedArtists(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if apiCalls.Load() != 2 {
		t.Errorf("expected 2 api calls, got %d", apiCalls.Load())
	}
}

func TestSessionBacksOffOnRateLimit(t *testing.T) {
	var apiCalls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiCalls.Add(1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(followedArtistsResponse{})
	}))
	defer api.Close()

	var slept time.Duration
	c := newTestClient(api.URL, "")
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = d
		return nil
	}
	session := c.NewSession(futureCreds())

	if _, err := session.FollowedArtists(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// Retry-After plus one plus the attempt number.
	if slept != 4*time.Second {
		t.Errorf("expected a 4s backoff, got %v", slept)
	}
}

func TestSessionGivesUpAfterMaxRetries(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer api.Close()

	c := newTestClient(api.URL, "")
	session := c.NewSession(futureCreds())

	_, err := session.FollowedArtists(context.Background())
	if !errors.Is(err, ErrMaxRetries) {
		t.Fatalf("expected ErrMaxRetries, got %v", err)
	}
}

func TestSessionReportsUnexpectedStatus(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "insufficient scope"}})
	}))
	defer api.Close()

	c := newTestClient(api.URL, "")
	session := c.NewSession(futureCreds())

	_, err := session.FollowedArtists(context.Background())
	var statusErr *UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected UnexpectedStatusError, got %v", err)
	}
	if statusErr.Status != http.StatusForbidden || statusErr.Message != "insufficient scope" {
		t.Errorf("unexpected error details: %+v", statusErr)
	}
}

func TestFollowedArtistsPagesWithCursor(t *testing.T) {
	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var page followedArtistsResponse
		switch calls.Add(1) {
		case 1:
			if r.URL.Query().Get("after") != "" {
				t.Error("expected no cursor on the first page")
			}
			page.Artists.Items = []Artist{{ID: "a1", Name: "First"}}
			page.Artists.Cursors.After = "a1"
		default:
			if got := r.URL.Query().Get("after"); got != "a1" {
				t.Errorf("expected cursor a1, got %q", got)
			}
			page.Artists.Items = []Artist{{ID: "a2", Name: "Second"}}
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer api.Close()

	c := newTestClient(api.URL, "")
	session := c.NewSession(futureCreds())

	artists, err := session.FollowedArtists(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(artists) != 2 || artists[0].ID != "a1" || artists[1].ID != "a2" {
		t.Errorf("unexpected artists: %v", artists)
	}
}

func TestArtistAlbumsPagesWithOffset(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		var page artistAlbumsResponse
		page.Total = 3
		if offset == "0" {
			page.Items = []AlbumRef{{ID: "al1"}, {ID: "al2"}}
		} else {
			page.Items = []AlbumRef{{ID: "al3"}}
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer api.Close()

	c := newTestClient(api.URL, "")
	session := c.NewSession(futureCreds())

	albums, err := session.ArtistAlbums(context.Background(), "artist-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(albums) != 3 {
		t.Errorf("expected 3 albums, got %d", len(albums))
	}
}

func TestAlbumsBatchesAndSkipsNulls(t *testing.T) {
	var batches [][]string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		batches = append(batches, ids)

		resp := albumsResponse{}
		for _, id := range ids {
			if id == "gone" {
				resp.Albums = append(resp.Albums, nil)
				continue
			}
			resp.Albums = append(resp.Albums, &Album{ID: id, Name: "Album " + id})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer api.Close()

	ids := make([]string, 0, albumsBatchSize+2)
	for i := 0; i < albumsBatchSize+1; i++ {
		ids = append(ids, fmt.Sprintf("id%d", i))
	}
	ids = append(ids, "gone")

	c := newTestClient(api.URL, "")
	session := c.NewSession(futureCreds())

	albums, err := session.Albums(context.Background(), ids)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0]) != albumsBatchSize {
		t.Errorf("expected a full first batch, got %d ids", len(batches[0]))
	}
	if len(albums) != albumsBatchSize+1 {
		t.Errorf("expected null albums to be skipped, got %d albums", len(albums))
	}
}

func TestPlaySendsTrackURI(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/me/player/play" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("device_id"); got != "device-9" {
			t.Errorf("expected device id, got %q", got)
		}
		var body playRequest
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.URIs) != 1 || body.URIs[0] != "spotify:track:track-1" {
			t.Errorf("unexpected play body: %+v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	c := newTestClient(api.URL, "")
	session := c.NewSession(futureCreds())

	if err := session.Play(context.Background(), "device-9", "track-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestPlayRetriesWithReplayableBody(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "fresh", "expires_in": 3600})
	}))
	defer accounts.Close()

	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body playRequest
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.URIs) != 1 {
			t.Errorf("expected the body to be replayed, got %+v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	c := newTestClient(api.URL, accounts.URL)
	session := c.NewSession(futureCreds())

	if err := session.Play(context.Background(), "", "track-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 api calls, got %d", calls.Load())
	}
}
