package domain

import (
	"math"
	"testing"
)

func TestFeatureInput_Resolve(t *testing.T) {
	tests := []struct {
		name  string
		input *FeatureInput
		want  FeatureVector
	}{
		{
			name:  "nil input resolves to defaults",
			input: nil,
			want:  DefaultFeatures(),
		},
		{
			name:  "empty input resolves to defaults",
			input: &FeatureInput{},
			want:  DefaultFeatures(),
		},
		{
			name:  "partial input keeps provided fields",
			input: &FeatureInput{Energy: Float(0.9), Loudness: Float(-20)},
			want: func() FeatureVector {
				f := DefaultFeatures()
				f.Energy = 0.9
				f.Loudness = -20
				return f
			}(),
		},
		{
			name:  "explicit zero is not replaced",
			input: &FeatureInput{Valence: Float(0)},
			want: func() FeatureVector {
				f := DefaultFeatures()
				f.Valence = 0
				return f
			}(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.input.Resolve(); got != tc.want {
				t.Fatalf("Resolve() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDefaultFeatures_DocumentedValues(t *testing.T) {
	f := DefaultFeatures()
	want := FeatureVector{
		Acousticness:     0.33,
		Danceability:     0.57,
		Energy:           0.56,
		Instrumentalness: 0,
		Liveness:         0.16,
		Loudness:         -8.6,
		Tempo:            128,
		Valence:          0.405,
	}
	if f != want {
		t.Fatalf("DefaultFeatures() = %+v, want %+v", f, want)
	}
}

func TestFeatureVector_Fingerprint(t *testing.T) {
	got := DefaultFeatures().Fingerprint()
	want := "0.33|0.57|0.56|0|0.16|-8.6|128|0.405"
	if got != want {
		t.Fatalf("Fingerprint() = %q, want %q", got, want)
	}

	other := DefaultFeatures()
	other.Tempo = 129
	if other.Fingerprint() == got {
		t.Fatal("expected different vectors to have different fingerprints")
	}
}

func TestFeatureVector_InputRoundTrip(t *testing.T) {
	f := FeatureVector{Acousticness: 0.1, Danceability: 0.2, Energy: 0.3, Instrumentalness: 0.4, Liveness: 0.5, Loudness: -6, Tempo: 90, Valence: 0.7}
	if got := f.Input().Resolve(); got != f {
		t.Fatalf("Input().Resolve() = %+v, want %+v", got, f)
	}
}

func TestAverageFeatures(t *testing.T) {
	tests := []struct {
		name    string
		tracks  []Track
		want    *FeatureInput
		wantNil bool
	}{
		{
			name:    "returns nil for no tracks",
			tracks:  []Track{},
			wantNil: true,
		},
		{
			name:    "returns nil when no track has features",
			tracks:  []Track{{ID: "t1"}, {ID: "t2"}},
			wantNil: true,
		},
		{
			name: "averages only the tracks that carry a field",
			tracks: []Track{
				{ID: "t1", Features: &FeatureInput{Energy: Float(0.6), Tempo: Float(100), Loudness: Float(-10)}},
				{ID: "t2", Features: &FeatureInput{Energy: Float(0.8), Tempo: Float(120)}},
				{ID: "t3"},
			},
			want: &FeatureInput{Energy: Float(0.7), Tempo: Float(110), Loudness: Float(-10)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AverageFeatures(tc.tracks)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got.Resolve())
				}
				return
			}
			if got == nil {
				t.Fatal("expected averaged features, got nil")
			}
			if got.Danceability != nil {
				t.Fatalf("expected danceability to stay absent, got %v", *got.Danceability)
			}
			if !vectorsClose(got.Resolve(), tc.want.Resolve(), 1e-9) {
				t.Fatalf("expected %+v, got %+v", tc.want.Resolve(), got.Resolve())
			}
		})
	}
}

func vectorsClose(a, b FeatureVector, tol float64) bool {
	return math.Abs(a.Acousticness-b.Acousticness) <= tol &&
		math.Abs(a.Danceability-b.Danceability) <= tol &&
		math.Abs(a.Energy-b.Energy) <= tol &&
		math.Abs(a.Instrumentalness-b.Instrumentalness) <= tol &&
		math.Abs(a.Liveness-b.Liveness) <= tol &&
		math.Abs(a.Loudness-b.Loudness) <= tol &&
		math.Abs(a.Tempo-b.Tempo) <= tol &&
		math.Abs(a.Valence-b.Valence) <= tol
}
