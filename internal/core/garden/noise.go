package garden

import (
	"fmt"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Noise names accepted by NewNoise.
const (
	NoiseSimplex = "simplex"
	NoisePerlin  = "perlin"
	NoiseRandom  = "random"
)

// Noise is a continuous two-dimensional scalar field with output in roughly
// [-1,1], deterministic for a given seed.
type Noise interface {
	Noise2D(x, y float64) float64
}

// NoiseFunc adapts a plain function to Noise.
type NoiseFunc func(x, y float64) float64

func (f NoiseFunc) Noise2D(x, y float64) float64 {
	return f(x, y)
}

type simplexNoise struct {
	noise opensimplex.Noise
}

func (n simplexNoise) Noise2D(x, y float64) float64 {
	return n.noise.Eval2(x, y)
}

type perlinNoise struct {
	noise *perlin.Perlin
}

func (n perlinNoise) Noise2D(x, y float64) float64 {
	return n.noise.Noise2D(x, y)
}

// NewNoise builds the named noise source seeded from the stream's seed. The
// gradient sources do not consume draws; only the random fallback does.
func NewNoise(kind string, stream *Stream) (n Noise, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = nil, fmt.Errorf("garden: noise %q construction panicked: %v", kind, r)
		}
	}()

	switch kind {
	case "", NoiseSimplex:
		return simplexNoise{noise: opensimplex.New(stream.Seed())}, nil
	case NoisePerlin:
		return perlinNoise{noise: perlin.NewPerlin(2, 2, 1, stream.Seed())}, nil
	case NoiseRandom:
		return FallbackNoise(stream), nil
	default:
		return nil, fmt.Errorf("garden: unknown noise source %q", kind)
	}
}

// FallbackNoise ignores its coordinates and returns uniform values in [-1,1)
// drawn from the stream. Terrain built on it is not continuous, but generation
// stays deterministic for a given seed.
func FallbackNoise(stream *Stream) Noise {
	return NoiseFunc(func(_, _ float64) float64 {
		return stream.Between(-1, 1)
	})
}
