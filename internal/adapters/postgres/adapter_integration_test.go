package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
)

// TestAdapter_Integration runs against a live PostgreSQL instance.
// This test is skipped unless POSTGRES_DSN is set.
func TestAdapter_Integration(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping database test (set POSTGRES_DSN to enable)")
	}

	ctx := context.Background()
	a, err := NewAdapter(ctx, dsn)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	defer a.Close()

	id := "it-" + time.Now().Format("20060102150405.000000000")
	if err := a.SaveUser(ctx, domain.User{ID: id, DisplayName: "Integration"}); err != nil {
		t.Fatalf("save user: %v", err)
	}

	tracks := []domain.Track{
		{ID: id + "-t1", Title: "One", Artist: "A", Features: &domain.FeatureInput{Energy: domain.Float(0.2)}},
		{ID: id + "-t2", Title: "Two", Artist: "B", Features: &domain.FeatureInput{Energy: domain.Float(0.6)}},
	}
	if err := a.SaveListening(ctx, id, tracks, time.Now()); err != nil {
		t.Fatalf("save listening: %v", err)
	}

	avg, count, err := a.AverageFeatures(ctx, id)
	if err != nil {
		t.Fatalf("average features: %v", err)
	}
	if count != 2 || avg.Energy == nil || *avg.Energy < 0.399 || *avg.Energy > 0.401 {
		t.Fatalf("average: count %d energy %v", count, avg.Energy)
	}
	if avg.Valence != nil {
		t.Fatalf("valence: got %v, want absent", *avg.Valence)
	}

	if _, err := a.GetUser(ctx, id+"-missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
