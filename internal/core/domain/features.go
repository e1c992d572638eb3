package domain

import (
	"strconv"
	"strings"
)

// Neutral values used whenever the listening-history source cannot supply a field.
const (
	DefaultAcousticness     = 0.33
	DefaultDanceability     = 0.57
	DefaultEnergy           = 0.56
	DefaultInstrumentalness = 0.0
	DefaultLiveness         = 0.16
	DefaultLoudness         = -8.6
	DefaultTempo            = 128.0
	DefaultValence          = 0.405
)

// FeatureVector is the eight-scalar summary of a listener's taste that drives
// every part of garden generation. Values are not clamped.
type FeatureVector struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
}

// DefaultFeatures returns the vector used when upstream data is unavailable.
func DefaultFeatures() FeatureVector {
	return FeatureVector{
		Acousticness:     DefaultAcousticness,
		Danceability:     DefaultDanceability,
		Energy:           DefaultEnergy,
		Instrumentalness: DefaultInstrumentalness,
		Liveness:         DefaultLiveness,
		Loudness:         DefaultLoudness,
		Tempo:            DefaultTempo,
		Valence:          DefaultValence,
	}
}

// Fingerprint concatenates the numeric fields into a stable string. It is the
// seed source when no user identity is available, so two listeners with equal
// vectors share a fingerprint.
func (f FeatureVector) Fingerprint() string {
	values := []float64{
		f.Acousticness,
		f.Danceability,
		f.Energy,
		f.Instrumentalness,
		f.Liveness,
		f.Loudness,
		f.Tempo,
		f.Valence,
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, "|")
}

// FeatureInput is the partially populated form delivered by upstream
// collaborators. A nil field means the source did not provide it.
type FeatureInput struct {
	Acousticness     *float64 `json:"acousticness,omitempty"`
	Danceability     *float64 `json:"danceability,omitempty"`
	Energy           *float64 `json:"energy,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty"`
	Liveness         *float64 `json:"liveness,omitempty"`
	Loudness         *float64 `json:"loudness,omitempty"`
	Tempo            *float64 `json:"tempo,omitempty"`
	Valence          *float64 `json:"valence,omitempty"`
}

// Resolve substitutes the documented default for every absent field. A nil
// receiver resolves to DefaultFeatures.
func (in *FeatureInput) Resolve() FeatureVector {
	out := DefaultFeatures()
	if in == nil {
		return out
	}
	pick(&out.Acousticness, in.Acousticness)
	pick(&out.Danceability, in.Danceability)
	pick(&out.Energy, in.Energy)
	pick(&out.Instrumentalness, in.Instrumentalness)
	pick(&out.Liveness, in.Liveness)
	pick(&out.Loudness, in.Loudness)
	pick(&out.Tempo, in.Tempo)
	pick(&out.Valence, in.Valence)
	return out
}

// Empty reports whether no field is populated.
func (in *FeatureInput) Empty() bool {
	if in == nil {
		return true
	}
	return in.Acousticness == nil &&
		in.Danceability == nil &&
		in.Energy == nil &&
		in.Instrumentalness == nil &&
		in.Liveness == nil &&
		in.Loudness == nil &&
		in.Tempo == nil &&
		in.Valence == nil
}

// Input converts a complete vector into an input with every field set.
func (f FeatureVector) Input() *FeatureInput {
	return &FeatureInput{
		Acousticness:     Float(f.Acousticness),
		Danceability:     Float(f.Danceability),
		Energy:           Float(f.Energy),
		Instrumentalness: Float(f.Instrumentalness),
		Liveness:         Float(f.Liveness),
		Loudness:         Float(f.Loudness),
		Tempo:            Float(f.Tempo),
		Valence:          Float(f.Valence),
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

func pick(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
