package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultAPIBaseURL      = "https://api.spotify.com/v1"
	defaultAccountsBaseURL = "https://accounts.spotify.com"

	// Spotify caps both cursor and offset pages at 50 items, and full
	// album lookups at 20 ids per request.
	pageLimit       = 50
	albumsBatchSize = 20

	maxRetries = 2

	authorizeScopes = "user-follow-read user-read-playback-state user-modify-playback-state"
)

// ErrCannotRetry is returned when a request needs a retry but its body
// cannot be replayed.
var ErrCannotRetry = errors.New("spotify: request body cannot be replayed")

// ErrMaxRetries is returned when a request keeps failing after the retry
// budget is spent.
var ErrMaxRetries = errors.New("spotify: maximum retries reached")

// UnexpectedStatusError is returned for API responses outside the handled
// status codes.
type UnexpectedStatusError struct {
	Status  int
	Message string
}

func (e *UnexpectedStatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify: unexpected status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("spotify: unexpected status %d", e.Status)
}

// Credentials are the per-account tokens stored on a spotify source row.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiryDate   time.Time
}

// Expired reports whether the access token needs a refresh.
func (c Credentials) Expired(now time.Time) bool {
	return !now.Before(c.ExpiryDate)
}

// Config carries the application credentials and optional overrides.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Overridable for tests.
	APIBaseURL      string
	AccountsBaseURL string
	HTTPClient      *http.Client
}

// Client talks to the Spotify Web API. It is safe for concurrent use; the
// shared limiter paces requests across all sessions.
type Client struct {
	httpClient      *http.Client
	limiter         *rate.Limiter
	apiBaseURL      string
	accountsBaseURL string
	clientID        string
	clientSecret    string
	redirectURI     string
	now             func() time.Time
	sleep           func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	c := &Client{
		httpClient:      cfg.HTTPClient,
		limiter:         rate.NewLimiter(rate.Limit(10), 10),
		apiBaseURL:      cfg.APIBaseURL,
		accountsBaseURL: cfg.AccountsBaseURL,
		clientID:        cfg.ClientID,
		clientSecret:    cfg.ClientSecret,
		redirectURI:     cfg.RedirectURI,
		now:             time.Now,
		sleep:           sleepContext,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.apiBaseURL == "" {
		c.apiBaseURL = defaultAPIBaseURL
	}
	if c.accountsBaseURL == "" {
		c.accountsBaseURL = defaultAccountsBaseURL
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AuthorizationURL builds the user consent URL for the authorization code
// flow.
func (c *Client) AuthorizationURL(state string) string {
	query := url.Values{}
	query.Set("client_id", c.clientID)
	query.Set("response_type", "code")
	query.Set("redirect_uri", c.redirectURI)
	query.Set("scope", authorizeScopes)
	query.Set("state", state)
	return c.accountsBaseURL + "/authorize?" + query.Encode()
}

// ExchangeAuthorizationCode trades an authorization code for credentials.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code string) (Credentials, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	return c.requestToken(ctx, form)
}

// RefreshAccessToken trades a refresh token for a fresh access token. The
// refresh token itself is kept unless Spotify rotates it.
func (c *Client) RefreshAccessToken(ctx context.Context, creds Credentials) (Credentials, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", creds.RefreshToken)

	refreshed, err := c.requestToken(ctx, form)
	if err != nil {
		return Credentials{}, err
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = creds.RefreshToken
	}
	return refreshed, nil
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountsBaseURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := c.limiter.Wait(ctx); err != nil {
		return Credentials{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Credentials{}, newUnexpectedStatusError(resp)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	return Credentials{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiryDate:   c.now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func newUnexpectedStatusError(resp *http.Response) error {
	statusErr := &UnexpectedStatusError{Status: resp.StatusCode}
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && json.Unmarshal(raw, &body) == nil {
		statusErr.Message = body.Error.Message
	}
	return statusErr
}

// Session is one account's view of the API. It refreshes the account's
// credentials as needed and remembers whether they changed so the caller
// can persist them. Sessions are safe for concurrent use.
type Session struct {
	client *Client

	mu        sync.Mutex
	creds     Credentials
	refreshed bool
}

// NewSession creates a session for the given account credentials.
func (c *Client) NewSession(creds Credentials) *Session {
	return &Session{client: c, creds: creds}
}

// Credentials returns the current credentials and whether they were
// refreshed since the session was created.
func (s *Session) Credentials() (Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, s.refreshed
}

// token returns a usable access token, refreshing an expired one first.
// Holding the lock across the refresh collapses concurrent refreshes
// into one token request.
func (s *Session) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds.Expired(s.client.now()) {
		if err := s.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return s.creds.AccessToken, nil
}

// invalidate refreshes after a rejected token, unless another caller
// already replaced it.
func (s *Session) invalidate(ctx context.Context, rejected string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds.AccessToken != rejected {
		return nil
	}
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	creds, err := s.client.RefreshAccessToken(ctx, s.creds)
	if err != nil {
		return fmt.Errorf("failed to refresh access token: %w", err)
	}
	s.creds = creds
	s.refreshed = true
	return nil
}

// do sends an authenticated request, refreshing the access token up front
// when it expired and retrying on 401 and 429 responses. The caller owns
// the response body of a successful request.
func (s *Session) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if attempt > maxRetries {
			return nil, ErrMaxRetries
		}
		if attempt > 0 {
			if req.Body != nil {
				if req.GetBody == nil {
					return nil, ErrCannotRetry
				}
				body, err := req.GetBody()
				if err != nil {
					return nil, ErrCannotRetry
				}
				req.Body = body
			}
		}
		token, err := s.token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		if err := s.client.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := s.client.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			if err := s.invalidate(ctx, token); err != nil {
				return nil, err
			}
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			retryAfter := 5
			if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				retryAfter = v
			}
			wait := time.Duration(retryAfter+1+attempt) * time.Second
			slog.Warn("Spotify rate limit hit, backing off", "wait", wait)
			if err := s.client.sleep(ctx, wait); err != nil {
				return nil, err
			}
		default:
			defer resp.Body.Close()
			return nil, newUnexpectedStatusError(resp)
		}
	}
}

func (s *Session) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// FollowedArtists pages through all artists the account follows.
func (s *Session) FollowedArtists(ctx context.Context) ([]Artist, error) {
	var artists []Artist
	after := ""
	for {
		query := url.Values{}
		query.Set("type", "artist")
		query.Set("limit", strconv.Itoa(pageLimit))
		if after != "" {
			query.Set("after", after)
		}

		var page followedArtistsResponse
		if err := s.getJSON(ctx, s.client.apiBaseURL+"/me/following?"+query.Encode(), &page); err != nil {
			return nil, fmt.Errorf("failed to fetch followed artists: %w", err)
		}
		artists = append(artists, page.Artists.Items...)
		if page.Artists.Cursors.After == "" || len(page.Artists.Items) == 0 {
			return artists, nil
		}
		after = page.Artists.Cursors.After
	}
}

// ArtistAlbums pages through an artist's albums and singles.
func (s *Session) ArtistAlbums(ctx context.Context, artistID string) ([]AlbumRef, error) {
	var albums []AlbumRef
	offset := 0
	for {
		query := url.Values{}
		query.Set("include_groups", "album,single")
		query.Set("country", "from_token")
		query.Set("limit", strconv.Itoa(pageLimit))
		query.Set("offset", strconv.Itoa(offset))

		var page artistAlbumsResponse
		endpoint := fmt.Sprintf("%s/artists/%s/albums?%s", s.client.apiBaseURL, url.PathEscape(artistID), query.Encode())
		if err := s.getJSON(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch albums of artist %s: %w", artistID, err)
		}
		albums = append(albums, page.Items...)
		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= page.Total {
			return albums, nil
		}
	}
}

// Albums fetches full albums, including track listings, batched by the
// API's id limit.
func (s *Session) Albums(ctx context.Context, ids []string) ([]Album, error) {
	var albums []Album
	for start := 0; start < len(ids); start += albumsBatchSize {
		end := start + albumsBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		query := url.Values{}
		query.Set("ids", strings.Join(ids[start:end], ","))

		var page albumsResponse
		if err := s.getJSON(ctx, s.client.apiBaseURL+"/albums?"+query.Encode(), &page); err != nil {
			return nil, fmt.Errorf("failed to fetch albums: %w", err)
		}
		for _, album := range page.Albums {
			if album != nil {
				albums = append(albums, *album)
			}
		}
	}
	return albums, nil
}

// Play starts playback of a track on the account's active device, or on
// the given device when deviceID is set.
func (s *Session) Play(ctx context.Context, deviceID, trackID string) error {
	endpoint := s.client.apiBaseURL + "/me/player/play"
	if deviceID != "" {
		endpoint += "?device_id=" + url.QueryEscape(deviceID)
	}

	payload, err := json.Marshal(playRequest{URIs: []string{"spotify:track:" + trackID}})
	if err != nil {
		return fmt.Errorf("failed to encode play request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("failed to build play request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(ctx, req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

type playRequest struct {
	URIs []string `json:"uris"`
}
