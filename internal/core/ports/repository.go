package ports

import (
	"context"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
)

// UserRepository stores signed-in users. GetUser returns domain.ErrNotFound
// for unknown ids.
type UserRepository interface {
	SaveUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
}

// TokenStore persists OAuth tokens per user.
type TokenStore interface {
	SaveToken(ctx context.Context, userID string, tok domain.Token) error
	GetToken(ctx context.Context, userID string) (domain.Token, error)
}

// ListeningRepository caches a user's ranked top tracks and their features.
type ListeningRepository interface {
	SaveListening(ctx context.Context, userID string, tracks []domain.Track, fetchedAt time.Time) error
	// AverageFeatures returns the per-field mean over the user's tracks along
	// with the track count. Fields no track provides stay nil.
	AverageFeatures(ctx context.Context, userID string) (*domain.FeatureInput, int, error)
	CachedTracks(ctx context.Context, userID string, limit int) ([]domain.Track, error)
}

// Repository is the full persistence surface implemented by the storage adapters.
type Repository interface {
	UserRepository
	TokenStore
	ListeningRepository
	Close() error
}
