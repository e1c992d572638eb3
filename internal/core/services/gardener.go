package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"github.com/ewilliams-labs/groundswell/internal/core/garden"
	"github.com/ewilliams-labs/groundswell/internal/core/ports"
)

const (
	DefaultRefreshAfter = 7 * 24 * time.Hour
	DefaultTopTracks    = 50
)

// RefreshQueue accepts background refresh requests. Enqueue reports false
// when the request was dropped.
type RefreshQueue interface {
	Enqueue(userID string) bool
}

// Gardener turns a user's listening history into a garden.
type Gardener struct {
	users     ports.UserRepository
	listening ports.ListeningRepository
	tracks    ports.TrackSource
	features  ports.AudioFeatureSource
	probe     ports.LoudnessProbe
	queue     RefreshQueue

	opts         garden.Options
	refreshAfter time.Duration
	topTracks    int
	now          func() time.Time
}

// Config tunes a Gardener. Zero values fall back to defaults.
type Config struct {
	Garden       garden.Options
	RefreshAfter time.Duration
	TopTracks    int
}

// NewGardener constructs a Gardener. probe may be nil; queue can be attached
// later with UseQueue.
func NewGardener(repo ports.Repository, tracks ports.TrackSource, features ports.AudioFeatureSource, probe ports.LoudnessProbe, cfg Config) *Gardener {
	if cfg.RefreshAfter <= 0 {
		cfg.RefreshAfter = DefaultRefreshAfter
	}
	if cfg.TopTracks <= 0 {
		cfg.TopTracks = DefaultTopTracks
	}
	return &Gardener{
		users:        repo,
		listening:    repo,
		tracks:       tracks,
		features:     features,
		probe:        probe,
		opts:         cfg.Garden,
		refreshAfter: cfg.RefreshAfter,
		topTracks:    cfg.TopTracks,
		now:          time.Now,
	}
}

// GardenOptions returns the generation options with defaults applied.
func (g *Gardener) GardenOptions() garden.Options {
	return g.opts.WithDefaults()
}

// UseQueue attaches the background refresh queue.
func (g *Gardener) UseQueue(q RefreshQueue) {
	g.queue = q
}

// ResolveFeatures returns the cached average features for a user, refreshing
// stale listening data first. Upstream failures are logged and never block
// generation; a nil result means the defaults apply.
func (g *Gardener) ResolveFeatures(ctx context.Context, userID string) (*domain.FeatureInput, error) {
	return g.resolve(ctx, userID, true)
}

// CachedFeatures is ResolveFeatures without the refresh. It never calls
// upstream, so it is safe for requests that do not act as the user.
func (g *Gardener) CachedFeatures(ctx context.Context, userID string) (*domain.FeatureInput, error) {
	return g.resolve(ctx, userID, false)
}

func (g *Gardener) resolve(ctx context.Context, userID string, refresh bool) (*domain.FeatureInput, error) {
	user, err := g.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: load user: %w", err)
	}

	if refresh && user.NeedsRefresh(g.now(), g.refreshAfter) {
		if err := g.RefreshListening(ctx, userID); err != nil {
			log.Printf("WARN gardener: refresh for %s failed, using cached features: %v", userID, err)
		}
	}

	avg, count, err := g.listening.AverageFeatures(ctx, userID)
	if err != nil {
		log.Printf("WARN gardener: average features for %s: %v", userID, err)
		return nil, nil
	}
	if count == 0 || avg.Empty() {
		log.Printf("WARN gardener: no listening data for %s, using default features", userID)
		return nil, nil
	}
	return avg, nil
}

// RefreshListening fetches the user's top tracks, attaches audio features and
// stores the ranked result.
func (g *Gardener) RefreshListening(ctx context.Context, userID string) error {
	tracks, err := g.tracks.TopTracks(ctx, userID, g.topTracks)
	if err != nil {
		return fmt.Errorf("service: fetch top tracks: %w", err)
	}

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}

	features, err := g.features.AudioFeatures(ctx, ids)
	if err != nil {
		log.Printf("WARN gardener: audio features for %s unavailable: %v", userID, err)
	}
	for i := range tracks {
		if f, ok := features[tracks[i].ID]; ok {
			f := f
			tracks[i].Features = &f
		}
	}

	if g.probe != nil {
		g.probeLoudness(ctx, tracks)
	}

	if err := g.listening.SaveListening(ctx, userID, tracks, g.now()); err != nil {
		return fmt.Errorf("service: save listening: %w", err)
	}
	log.Printf("gardener: refreshed %d tracks for %s", len(tracks), userID)
	return nil
}

// probeLoudness fills in loudness from the preview clip for tracks the
// feature source left without one.
func (g *Gardener) probeLoudness(ctx context.Context, tracks []domain.Track) {
	for i := range tracks {
		t := &tracks[i]
		if t.PreviewURL == "" || (t.Features != nil && t.Features.Loudness != nil) {
			continue
		}
		db, err := g.probe.Loudness(ctx, t.PreviewURL)
		if err != nil {
			log.Printf("WARN gardener: loudness probe for %s: %v", t.ID, err)
			continue
		}
		if t.Features == nil {
			t.Features = &domain.FeatureInput{}
		}
		t.Features.Loudness = domain.Float(db)
	}
}

// GardenFor generates the garden of a stored user, seeded by their id. Stale
// listening data is refreshed first, so only the user's own session should
// reach it.
func (g *Gardener) GardenFor(ctx context.Context, userID string) (*garden.Garden, error) {
	input, err := g.ResolveFeatures(ctx, userID)
	if err != nil {
		return nil, err
	}
	return g.generate(input, userID)
}

// CachedGardenFor generates from stored listening data only.
func (g *Gardener) CachedGardenFor(ctx context.Context, userID string) (*garden.Garden, error) {
	input, err := g.CachedFeatures(ctx, userID)
	if err != nil {
		return nil, err
	}
	return g.generate(input, userID)
}

func (g *Gardener) generate(input *domain.FeatureInput, userID string) (*garden.Garden, error) {
	out, err := garden.Generate(input, userID, g.opts)
	if err != nil {
		return nil, fmt.Errorf("service: generate garden for %s: %w", userID, err)
	}
	return out, nil
}

// User returns a stored user.
func (g *Gardener) User(ctx context.Context, userID string) (domain.User, error) {
	u, err := g.users.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("service: load user: %w", err)
	}
	return u, nil
}

// Tracks returns the user's cached top tracks in rank order.
func (g *Gardener) Tracks(ctx context.Context, userID string, limit int) ([]domain.Track, error) {
	if _, err := g.User(ctx, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > g.topTracks {
		limit = g.topTracks
	}
	tracks, err := g.listening.CachedTracks(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: load tracks: %w", err)
	}
	return tracks, nil
}

// Features returns the fully resolved vector for a user from stored data.
func (g *Gardener) Features(ctx context.Context, userID string) (domain.FeatureVector, error) {
	input, err := g.CachedFeatures(ctx, userID)
	if err != nil {
		return domain.FeatureVector{}, err
	}
	return input.Resolve(), nil
}

// Preview generates a garden from caller supplied features without touching
// storage. An empty identity seeds from the feature fingerprint.
func (g *Gardener) Preview(ctx context.Context, input *domain.FeatureInput, identity string) (*garden.Garden, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("service: preview: %w", err)
	}
	out, err := garden.Generate(input, identity, g.opts)
	if err != nil {
		return nil, fmt.Errorf("service: preview: %w", err)
	}
	return out, nil
}

// QueueRefresh schedules a background refresh for a known user.
func (g *Gardener) QueueRefresh(ctx context.Context, userID string) error {
	if _, err := g.users.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("service: queue refresh: %w", err)
	}
	if g.queue == nil {
		return errors.New("service: queue refresh: no queue configured")
	}
	if !g.queue.Enqueue(userID) {
		return ErrQueueFull
	}
	return nil
}

// ErrQueueFull is returned when a refresh request was dropped.
var ErrQueueFull = errors.New("service: refresh queue full")
