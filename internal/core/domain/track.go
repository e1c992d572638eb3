package domain

// Track represents a musical track in the domain layer.
type Track struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Artist     string        `json:"artist"`
	Album      string        `json:"album,omitempty"`
	PreviewURL string        `json:"preview_url,omitempty"`
	Features   *FeatureInput `json:"features,omitempty"`
}

// AverageFeatures averages each field over the tracks that carry it. A field
// no track provides stays absent, so it later resolves to its default rather
// than to zero. Returns nil when no track has any features.
func AverageFeatures(tracks []Track) *FeatureInput {
	var sums, counts [8]float64
	for _, t := range tracks {
		if t.Features == nil {
			continue
		}
		for i, v := range t.Features.fields() {
			if v != nil {
				sums[i] += *v
				counts[i]++
			}
		}
	}

	out := &FeatureInput{}
	for i, dst := range out.fieldRefs() {
		if counts[i] > 0 {
			*dst = Float(sums[i] / counts[i])
		}
	}
	if out.Empty() {
		return nil
	}
	return out
}

func (in *FeatureInput) fields() [8]*float64 {
	return [8]*float64{
		in.Acousticness,
		in.Danceability,
		in.Energy,
		in.Instrumentalness,
		in.Liveness,
		in.Loudness,
		in.Tempo,
		in.Valence,
	}
}

func (in *FeatureInput) fieldRefs() [8]**float64 {
	return [8]**float64{
		&in.Acousticness,
		&in.Danceability,
		&in.Energy,
		&in.Instrumentalness,
		&in.Liveness,
		&in.Loudness,
		&in.Tempo,
		&in.Valence,
	}
}
