package garden

import (
	"fmt"
	"log"
	"math"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
)

// Seed sources recorded on a Garden.
const (
	SeedFromIdentity    = "identity"
	SeedFromFingerprint = "fingerprint"
)

// Options configures the grids and the noise source used by Generate.
type Options struct {
	Terrain       Grid
	OceanSegments int
	Noise         string
}

// DefaultOptions returns a 200-unit island with 128 segments, a 32-segment
// ocean and simplex noise.
func DefaultOptions() Options {
	return Options{
		Terrain:       Grid{Size: DefaultSize, Segments: DefaultSegments},
		OceanSegments: DefaultOceanSegments,
		Noise:         NoiseSimplex,
	}
}

// WithDefaults fills every zero field from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Terrain.Size <= 0 {
		o.Terrain.Size = d.Terrain.Size
	}
	if o.Terrain.Segments <= 0 {
		o.Terrain.Segments = d.Terrain.Segments
	}
	if o.OceanSegments <= 0 {
		o.OceanSegments = d.OceanSegments
	}
	return o
}

// Garden is a fully generated scene. It is not mutated after Generate returns
// and may be shared between goroutines.
type Garden struct {
	Seed       int64                `json:"seed"`
	SeedSource string               `json:"seed_source"`
	Noise      string               `json:"noise"`
	Features   domain.FeatureVector `json:"features"`
	Palette    domain.ColorPalette  `json:"palette"`
	Terrain    *HeightField         `json:"terrain"`
	Waves      WaveParams           `json:"waves"`
	Ocean      Ocean                `json:"ocean"`
	Entities   []Entity             `json:"entities"`
}

// Generate resolves the input, seeds the stream from identity (or from the
// feature fingerprint when identity is empty) and builds the whole scene.
// An unusable noise source degrades to the random fallback. Any panic during
// generation is returned as domain.ErrGenerationFailed.
func Generate(input *domain.FeatureInput, identity string, opts Options) (*Garden, error) {
	return build(input, identity, opts, nil)
}

// GenerateWithNoise is Generate with a caller-supplied noise source, which
// takes precedence over opts.Noise.
func GenerateWithNoise(input *domain.FeatureInput, identity string, opts Options, noise Noise) (*Garden, error) {
	return build(input, identity, opts, noise)
}

func build(input *domain.FeatureInput, identity string, opts Options, noise Noise) (g *Garden, err error) {
	defer func() {
		if r := recover(); r != nil {
			g, err = nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, r)
		}
	}()

	opts = opts.WithDefaults()
	features := input.Resolve()
	palette := domain.PaletteFor(features.Valence)

	seedSource := SeedFromIdentity
	seedText := identity
	if identity == "" {
		seedSource = SeedFromFingerprint
		seedText = features.Fingerprint()
	}
	stream := NewStream(SeedFor(seedText))

	kind := opts.Noise
	if kind == "" {
		kind = NoiseSimplex
	}
	if noise == nil {
		noise, err = NewNoise(kind, stream)
		if err != nil {
			log.Printf("WARN garden: %v; falling back to %s noise", err, NoiseRandom)
			noise = FallbackNoise(stream)
			kind = NoiseRandom
		}
	} else {
		kind = "custom"
	}

	terrain := GenerateTerrain(features, palette, noise, opts.Terrain)
	waves := WaveParamsFor(features.Danceability)
	if err := checkFinite(palette, terrain, waves); err != nil {
		return nil, err
	}

	return &Garden{
		Seed:       stream.Seed(),
		SeedSource: seedSource,
		Noise:      kind,
		Features:   features,
		Palette:    palette,
		Terrain:    terrain,
		Waves:      waves,
		Ocean:      NewOcean(opts.Terrain.Size, opts.OceanSegments, waves),
		Entities:   PlaceEntities(terrain, features, palette, stream),
	}, nil
}

// checkFinite rejects scenes that extreme feature values pushed out of the
// float range. They cannot be rendered or encoded.
func checkFinite(p domain.ColorPalette, hf *HeightField, w WaveParams) error {
	colors := []domain.Color{p.Sky, p.Sand, p.Grass, p.Grass2, p.Rock, p.Mountain, p.Snow, p.Tree, p.Ocean}
	for _, c := range colors {
		if !finite(c.R, c.G, c.B) {
			return fmt.Errorf("%w: palette is not finite", domain.ErrInvalidArgument)
		}
	}
	for i, h := range hf.Heights {
		if !finite(h) {
			return fmt.Errorf("%w: terrain height at vertex %d is %v", domain.ErrInvalidArgument, i, h)
		}
	}
	if !finite(w.FreqX, w.FreqY, w.SpeedX, w.SpeedY, w.HeightX, w.HeightY) {
		return fmt.Errorf("%w: wave parameters are not finite", domain.ErrInvalidArgument)
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Poses evaluates every entity at time t, in placement order.
func (g *Garden) Poses(t float64) []Pose {
	poses := make([]Pose, len(g.Entities))
	for i, e := range g.Entities {
		poses[i] = e.PoseAt(t)
	}
	return poses
}

// Trees returns the number of placed trees.
func (g *Garden) Trees() int {
	return CountKind(g.Entities, KindTree)
}

// Fireflies returns the number of placed fireflies.
func (g *Garden) Fireflies() int {
	return CountKind(g.Entities, KindFirefly)
}
