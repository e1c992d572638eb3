// Package spotify provides the Spotify Web API adapter: OAuth sign-in and
// listening history.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"github.com/ewilliams-labs/groundswell/internal/core/ports"
	"golang.org/x/oauth2"
	spotifyoauth "golang.org/x/oauth2/spotify"
)

const (
	defaultBaseURL = "https://api.spotify.com/v1"
	maxTopTracks   = 50
)

// Scopes requested at sign-in.
var Scopes = []string{"user-read-private", "user-read-email", "user-top-read"}

// Config holds the OAuth application credentials and client tuning.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// BaseURL, AuthURL and TokenURL override the public endpoints.
	BaseURL  string
	AuthURL  string
	TokenURL string

	MaxRetries   int
	RetryBackoff time.Duration
	HTTPClient   *http.Client
}

// Store is the persistence the adapter needs for users and their tokens.
type Store interface {
	ports.UserRepository
	ports.TokenStore
}

// Client is an HTTP client for the Spotify adapter.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	oauth       *oauth2.Config
	store       Store
	maxRetries  int
	baseBackoff time.Duration
}

// compile-time interface assertions
var (
	_ ports.TrackSource   = (*Client)(nil)
	_ ports.Authenticator = (*Client)(nil)
)

// NewClient constructs a new Spotify client.
func NewClient(cfg Config, store Store) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	endpoint := spotifyoauth.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
		store:       store,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.RetryBackoff,
	}
}

// TopTracks returns the user's most played tracks over the medium term,
// most played first.
func (c *Client) TopTracks(ctx context.Context, userID string, limit int) ([]domain.Track, error) {
	if limit <= 0 || limit > maxTopTracks {
		limit = maxTopTracks
	}

	tok, err := c.tokenFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var page topTracksResponse
	path := fmt.Sprintf("/me/top/tracks?limit=%d&time_range=medium_term", limit)
	if err := c.getJSON(ctx, tok, path, &page); err != nil {
		return nil, fmt.Errorf("spotify adapter: top tracks for %s: %w", userID, err)
	}

	tracks := make([]domain.Track, 0, len(page.Items))
	for _, item := range page.Items {
		if item.ID == "" {
			continue
		}
		tracks = append(tracks, mapTrackToDomain(item))
	}
	return tracks, nil
}

// tokenFor loads the stored token, refreshing it through the OAuth token
// endpoint when expired. A refreshed token is written back.
func (c *Client) tokenFor(ctx context.Context, userID string) (*oauth2.Token, error) {
	stored, err := c.store.GetToken(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("spotify adapter: no token for %s: %w", userID, domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("spotify adapter: load token: %w", err)
	}

	current := tokenFromDomain(stored)
	fresh, err := c.oauth.TokenSource(c.oauthContext(ctx), current).Token()
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: refresh token for %s: %w: %w", userID, domain.ErrUnauthenticated, err)
	}

	if fresh.AccessToken != current.AccessToken {
		if err := c.store.SaveToken(ctx, userID, tokenToDomain(fresh)); err != nil {
			log.Printf("WARN spotify adapter: failed to persist refreshed token for %s: %v", userID, err)
		}
	}
	return fresh, nil
}

// oauthContext makes the oauth2 package use the adapter's HTTP client.
func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Client) getJSON(ctx context.Context, tok *oauth2.Token, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrUnauthenticated)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode error: %w", err)
	}
	return nil
}
