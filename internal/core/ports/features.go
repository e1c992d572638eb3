package ports

import (
	"context"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
)

// AudioFeatureSource looks up per-track audio features. Tracks the source
// cannot describe are left out of the result rather than failing the call.
type AudioFeatureSource interface {
	AudioFeatures(ctx context.Context, trackIDs []string) (map[string]domain.FeatureInput, error)
}

// LoudnessProbe estimates the loudness of a preview clip in dBFS.
type LoudnessProbe interface {
	Loudness(ctx context.Context, previewURL string) (float64, error)
}
