package worker

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRMSToDBFS(t *testing.T) {
	tests := []struct {
		name string
		rms  float64
		want float64
	}{
		{"silence clamps to floor", 0, -60},
		{"full scale", 1, 0},
		{"half scale", 0.5, 20 * math.Log10(0.5)},
		{"very quiet clamps", 1e-6, -60},
		{"clipping clamps to ceiling", 2, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := rmsToDBFS(tc.rms); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("rmsToDBFS(%v) = %v, want %v", tc.rms, got, tc.want)
			}
		})
	}
}

func TestDecodeRMS_RejectsGarbage(t *testing.T) {
	if _, err := decodeRMS(bytes.NewReader([]byte("not an mp3"))); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestMP3Probe_Loudness(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   []byte
	}{
		{"missing preview", http.StatusNotFound, nil},
		{"corrupt preview", http.StatusOK, []byte("garbage")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write(tc.body)
			}))
			defer srv.Close()

			probe := NewMP3Probe(srv.Client())
			if _, err := probe.Loudness(context.Background(), srv.URL+"/preview.mp3"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
