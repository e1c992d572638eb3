package garden

import (
	"math"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
)

const (
	DefaultSize     = 200.0
	DefaultSegments = 128

	terrainOctaves        = 5
	terrainBaseFrequency  = 0.015
	terrainLacunarity     = 2.1
	terrainPersistence    = 0.5
	terrainHeightScale    = 30.0
	lowlandThreshold      = 1.0
	lowlandDamping        = 0.25
	minLoudnessNorm       = 0.01
	minMaxDist            = 1e-9
	edgeFalloffExponent   = 2.2
	edgeFalloffSharpness  = 1.2
	centerFalloffExponent = 2.5
)

// Biome is the height band a terrain vertex falls into.
type Biome int

const (
	BiomeSand Biome = iota
	BiomeGrass
	BiomeGrass2
	BiomeRock
	BiomeMountain
	BiomeSnow
)

var biomeNames = [...]string{"sand", "grass", "grass2", "rock", "mountain", "snow"}

func (b Biome) String() string {
	if b < 0 || int(b) >= len(biomeNames) {
		return "unknown"
	}
	return biomeNames[b]
}

// Classify maps a height onto its biome. Bands are half-open, so a height
// equal to a threshold belongs to the band above it.
func Classify(h float64) Biome {
	switch {
	case h < 0.5:
		return BiomeSand
	case h < 4:
		return BiomeGrass
	case h < 8:
		return BiomeGrass2
	case h < 12:
		return BiomeRock
	case h < 16:
		return BiomeMountain
	default:
		return BiomeSnow
	}
}

// Color returns the palette entry for the biome.
func (b Biome) Color(p domain.ColorPalette) domain.Color {
	switch b {
	case BiomeSand:
		return p.Sand
	case BiomeGrass:
		return p.Grass
	case BiomeGrass2:
		return p.Grass2
	case BiomeRock:
		return p.Rock
	case BiomeMountain:
		return p.Mountain
	default:
		return p.Snow
	}
}

// HeightField is the generated island surface: one height, biome and color
// per grid vertex.
type HeightField struct {
	Grid
	Heights []float64      `json:"heights"`
	Biomes  []Biome        `json:"biomes"`
	Colors  []domain.Color `json:"colors"`
}

// BiomeCounts tallies vertices per biome.
func (hf *HeightField) BiomeCounts() map[Biome]int {
	counts := make(map[Biome]int, len(biomeNames))
	for _, b := range hf.Biomes {
		counts[b]++
	}
	return counts
}

// MaxHeight returns the highest vertex.
func (hf *HeightField) MaxHeight() float64 {
	max := math.Inf(-1)
	for _, h := range hf.Heights {
		if h > max {
			max = h
		}
	}
	return max
}

// GenerateTerrain builds the island height field. Loudness controls the
// island radius, energy the relief, and the palette the vertex colors.
func GenerateTerrain(f domain.FeatureVector, p domain.ColorPalette, noise Noise, grid Grid) *HeightField {
	n := grid.Len()
	hf := &HeightField{
		Grid:    grid,
		Heights: make([]float64, n),
		Biomes:  make([]Biome, n),
		Colors:  make([]domain.Color, n),
	}

	maxDist := islandRadius(f.Loudness, grid.Size)
	for i := 0; i < n; i++ {
		x, y := grid.Vertex(i)
		h := TerrainHeight(x, y, f.Energy, maxDist, noise)
		b := Classify(h)
		hf.Heights[i] = h
		hf.Biomes[i] = b
		hf.Colors[i] = b.Color(p)
	}
	return hf
}

// islandRadius scales half the grid by normalized loudness. The floor keeps
// very quiet input from collapsing the radius to zero.
func islandRadius(loudness, size float64) float64 {
	loudnessNorm := (loudness + 60) / 60
	return size * 0.5 * math.Max(minLoudnessNorm, loudnessNorm)
}

// TerrainHeight evaluates the island surface at (x, y) for an island of
// radius maxDist.
func TerrainHeight(x, y, energy, maxDist float64, noise Noise) float64 {
	dist := math.Sqrt(x*x + y*y)
	normDist := dist / math.Max(minMaxDist, maxDist)

	edgeFalloff := math.Pow(math.Max(0, 1-math.Pow(normDist, edgeFalloffExponent)), edgeFalloffSharpness)
	// Goes negative past the rim, flattening the far field.
	centerFalloff := 1 - math.Pow(normDist, centerFalloffExponent)

	height := fractalNoise(noise, x, y) * edgeFalloff * terrainHeightScale * energy * centerFalloff
	if height < lowlandThreshold {
		height *= lowlandDamping
	}
	return height
}

func fractalNoise(noise Noise, x, y float64) float64 {
	sum := 0.0
	amplitude := 1.0
	frequency := terrainBaseFrequency
	for octave := 0; octave < terrainOctaves; octave++ {
		sum += noise.Noise2D(x*frequency, y*frequency) * amplitude
		amplitude *= terrainPersistence
		frequency *= terrainLacunarity
	}
	return sum
}
