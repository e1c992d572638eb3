package worker

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/core/ports"
	"github.com/hajimehoshi/go-mp3"
)

const (
	minLoudnessDB = -60.0
	maxLoudnessDB = 0.0
	// Previews are 30s clips; stop decoding after this many bytes of PCM.
	maxPreviewPCM = 44100 * 4 * 30
)

// MP3Probe estimates loudness by decoding a preview clip and measuring its
// RMS level.
type MP3Probe struct {
	client *http.Client
}

var _ ports.LoudnessProbe = (*MP3Probe)(nil)

func NewMP3Probe(client *http.Client) *MP3Probe {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &MP3Probe{client: client}
}

// Loudness fetches the preview and returns its level in dBFS, clamped to
// [-60, 0].
func (p *MP3Probe) Loudness(ctx context.Context, previewURL string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, previewURL, nil)
	if err != nil {
		return 0, fmt.Errorf("loudness probe: build request: %w", err)
	}

	// #nosec G107 -- URL is a preview URL from a trusted API response
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("loudness probe: preview fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("loudness probe: preview fetch status %d", resp.StatusCode)
	}

	rms, err := decodeRMS(resp.Body)
	if err != nil {
		return 0, err
	}
	return rmsToDBFS(rms), nil
}

// decodeRMS decodes MP3 data to 16-bit PCM and returns the RMS level
// normalized to full scale.
func decodeRMS(r io.Reader) (float64, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return 0, fmt.Errorf("loudness probe: decode failed: %w", err)
	}

	buf := make([]byte, 4096)
	var sumSquares float64
	var count float64
	read := 0

	for read < maxPreviewPCM {
		n, err := decoder.Read(buf)
		read += n
		for i := 0; i+1 < n; i += 2 {
			sample := float64(int16(buf[i]) | int16(buf[i+1])<<8)
			sumSquares += sample * sample
			count++
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("loudness probe: read failed: %w", err)
		}
	}

	if count == 0 {
		return 0, fmt.Errorf("loudness probe: preview contains no samples")
	}
	return math.Sqrt(sumSquares/count) / 32768.0, nil
}

func rmsToDBFS(rms float64) float64 {
	if rms <= 0 {
		return minLoudnessDB
	}
	db := 20 * math.Log10(rms)
	return math.Max(minLoudnessDB, math.Min(maxLoudnessDB, db))
}
