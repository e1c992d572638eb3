package garden

import (
	"hash/fnv"
	"math/rand"
)

// Stream is the seeded pseudo-random sequence shared by noise fallback and
// entity placement. Equal seeds always produce equal draws.
type Stream struct {
	seed int64
	rng  *rand.Rand
}

// SeedFor hashes a stable identity string into a seed.
func SeedFor(identity string) int64 {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(identity))
	return int64(hasher.Sum64())
}

func NewStream(seed int64) *Stream {
	return &Stream{
		seed: seed,
		// #nosec G404 -- Deterministic RNG for reproducible gardens, not security-sensitive
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() int64 {
	return s.seed
}

// Float64 draws the next value in [0,1).
func (s *Stream) Float64() float64 {
	return s.rng.Float64()
}

// Between draws the next value in [min,max).
func (s *Stream) Between(min, max float64) float64 {
	return min + s.rng.Float64()*(max-min)
}
