// Package reccobeats provides an adapter for the ReccoBeats audio-feature API.
// Spotify track ids are first resolved to ReccoBeats ids, then features are
// fetched per track. Tracks that cannot be resolved or fetched are skipped.
package reccobeats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"github.com/ewilliams-labs/groundswell/internal/core/ports"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.reccobeats.com"
	// The lookup endpoint accepts at most this many ids per request.
	lookupBatchSize = 40
	maxConcurrent   = 8
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ ports.AudioFeatureSource = (*Client)(nil)

type trackLookupResponse struct {
	Content []reccoTrack `json:"content"`
}

type reccoTrack struct {
	ID   string `json:"id"`
	Href string `json:"href"`
}

type audioFeaturesResponse struct {
	ID               string   `json:"id"`
	Href             string   `json:"href"`
	Acousticness     *float64 `json:"acousticness"`
	Danceability     *float64 `json:"danceability"`
	Energy           *float64 `json:"energy"`
	Instrumentalness *float64 `json:"instrumentalness"`
	Liveness         *float64 `json:"liveness"`
	Loudness         *float64 `json:"loudness"`
	Tempo            *float64 `json:"tempo"`
	Valence          *float64 `json:"valence"`
}

func (r audioFeaturesResponse) toDomain() domain.FeatureInput {
	return domain.FeatureInput{
		Acousticness:     r.Acousticness,
		Danceability:     r.Danceability,
		Energy:           r.Energy,
		Instrumentalness: r.Instrumentalness,
		Liveness:         r.Liveness,
		Loudness:         r.Loudness,
		Tempo:            r.Tempo,
		Valence:          r.Valence,
	}
}

// NewClient builds a client. requestsPerSecond <= 0 disables pacing.
func NewClient(baseURL string, requestsPerSecond float64) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(limit, maxConcurrent),
	}
}

// AudioFeatures returns features keyed by the Spotify track id.
func (c *Client) AudioFeatures(ctx context.Context, trackIDs []string) (map[string]domain.FeatureInput, error) {
	reccoIDs, err := c.lookup(ctx, dedupe(trackIDs))
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.FeatureInput, len(reccoIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for spotifyID, reccoID := range reccoIDs {
		spotifyID, reccoID := spotifyID, reccoID
		g.Go(func() error {
			f, err := c.fetchFeatures(gctx, reccoID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("WARN reccobeats adapter: skipping track %s: %v", spotifyID, err)
				return nil
			}
			mu.Lock()
			out[spotifyID] = f
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reccobeats: %w", err)
	}
	return out, nil
}

// lookup maps Spotify ids to ReccoBeats ids. Ids ReccoBeats does not know are
// absent from the result.
func (c *Client) lookup(ctx context.Context, spotifyIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(spotifyIDs))
	for start := 0; start < len(spotifyIDs); start += lookupBatchSize {
		end := start + lookupBatchSize
		if end > len(spotifyIDs) {
			end = len(spotifyIDs)
		}

		q := url.Values{}
		for _, id := range spotifyIDs[start:end] {
			q.Add("ids", id)
		}
		var parsed trackLookupResponse
		if err := c.getJSON(ctx, "/v1/track?"+q.Encode(), &parsed); err != nil {
			return nil, fmt.Errorf("reccobeats: track lookup: %w", err)
		}
		for _, t := range parsed.Content {
			if sid := spotifyIDFromHref(t.Href); sid != "" && t.ID != "" {
				out[sid] = t.ID
			}
		}
	}
	return out, nil
}

func (c *Client) fetchFeatures(ctx context.Context, reccoID string) (domain.FeatureInput, error) {
	var parsed audioFeaturesResponse
	if err := c.getJSON(ctx, "/v1/track/"+url.PathEscape(reccoID)+"/audio-features", &parsed); err != nil {
		return domain.FeatureInput{}, err
	}
	f := parsed.toDomain()
	if f.Empty() {
		return domain.FeatureInput{}, fmt.Errorf("empty audio features for %s", reccoID)
	}
	return f, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// spotifyIDFromHref extracts the id from an open.spotify.com/track/<id> link.
func spotifyIDFromHref(href string) string {
	_, rest, ok := strings.Cut(href, "/track/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "?")
	return strings.Trim(id, "/")
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
