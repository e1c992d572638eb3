package garden

import "math"

const (
	DefaultOceanSegments = 32
	OceanBaseLevel       = 0.5
)

// WaveParams shapes the two crossing sine swells on the ocean surface.
type WaveParams struct {
	FreqX   float64 `json:"freq_x"`
	FreqY   float64 `json:"freq_y"`
	SpeedX  float64 `json:"speed_x"`
	SpeedY  float64 `json:"speed_y"`
	HeightX float64 `json:"height_x"`
	HeightY float64 `json:"height_y"`
}

// WaveParamsFor derives the swell from danceability: more danceable taste
// gives faster, choppier and taller waves.
func WaveParamsFor(danceability float64) WaveParams {
	return WaveParams{
		FreqX:   0.05 + danceability*0.15,
		FreqY:   0.10 + danceability*0.20,
		SpeedX:  0.5 + danceability*1.5,
		SpeedY:  0.4 + danceability*1.2,
		HeightX: 0.5 + danceability*1.5,
		HeightY: 0.3 + danceability*0.9,
	}
}

// WaveHeight is the ocean displacement at (x, y) after t seconds. It never
// dips below the base plane.
func WaveHeight(x, y, t float64, p WaveParams) float64 {
	wave1 := math.Sin(x*p.FreqX+t*p.SpeedX) * p.HeightX
	wave2 := math.Sin(y*p.FreqY+t*p.SpeedY) * p.HeightY
	return math.Max(0, wave1+wave2)
}

// Ocean is the water plane surrounding the island.
type Ocean struct {
	Grid
	BaseLevel float64    `json:"base_level"`
	Params    WaveParams `json:"params"`
}

func NewOcean(size float64, segments int, params WaveParams) Ocean {
	return Ocean{
		Grid:      Grid{Size: size, Segments: segments},
		BaseLevel: OceanBaseLevel,
		Params:    params,
	}
}

// Fill writes the displacement of every ocean vertex at time t into dst,
// growing it when needed, and returns it. Every entry is overwritten so the
// same buffer can be reused across frames.
func (o Ocean) Fill(t float64, dst []float64) []float64 {
	n := o.Len()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for i := range dst {
		x, y := o.Vertex(i)
		dst[i] = WaveHeight(x, y, t, o.Params)
	}
	return dst
}
