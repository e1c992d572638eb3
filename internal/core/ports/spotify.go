package ports

import (
	"context"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
)

// TrackSource lists a user's most played tracks.
type TrackSource interface {
	TopTracks(ctx context.Context, userID string, limit int) ([]domain.Track, error)
}

// Authenticator runs the OAuth authorization code flow against the streaming
// service and records the signed-in user.
type Authenticator interface {
	AuthCodeURL(state string) string
	Complete(ctx context.Context, code string) (domain.User, error)
}
