package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/adapters/postgres"
	"github.com/ewilliams-labs/groundswell/internal/adapters/reccobeats"
	"github.com/ewilliams-labs/groundswell/internal/adapters/rest"
	"github.com/ewilliams-labs/groundswell/internal/adapters/session"
	"github.com/ewilliams-labs/groundswell/internal/adapters/spotify"
	"github.com/ewilliams-labs/groundswell/internal/adapters/sqlite"
	"github.com/ewilliams-labs/groundswell/internal/config"
	"github.com/ewilliams-labs/groundswell/internal/core/ports"
	"github.com/ewilliams-labs/groundswell/internal/core/services"
	"github.com/ewilliams-labs/groundswell/internal/worker"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load(os.Getenv("GROUNDSWELL_CONFIG"))
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	if err := cfg.RequireSpotify(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Driven adapters
	var repo ports.Repository
	switch cfg.Storage.Driver {
	case "sqlite":
		dbAdapter, err := sqlite.NewAdapter(cfg.Storage.DSN)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize database: %v", err)
		}
		repo = dbAdapter
	case "postgres":
		dbAdapter, err := postgres.NewAdapter(ctx, cfg.Storage.DSN)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize database: %v", err)
		}
		repo = dbAdapter
	default:
		log.Fatalf("Unknown storage driver: %s", cfg.Storage.Driver)
	}
	defer repo.Close()

	spotifyClient := spotify.NewClient(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.Spotify.RedirectURL,
		MaxRetries:   cfg.Spotify.MaxRetries,
		RetryBackoff: cfg.Spotify.Backoff(),
	}, repo)
	featureClient := reccobeats.NewClient(cfg.ReccoBeats.BaseURL, cfg.ReccoBeats.RequestsPerSecond)
	probe := worker.NewMP3Probe(&http.Client{Timeout: 20 * time.Second})

	// 3. Core
	gardener := services.NewGardener(repo, spotifyClient, featureClient, probe, services.Config{
		Garden:       cfg.Garden.Options(),
		RefreshAfter: cfg.Spotify.RefreshInterval(),
		TopTracks:    cfg.Spotify.TopTracks,
	})

	pool := worker.NewPool(cfg.Worker.Workers, cfg.Worker.QueueSize)
	pool.Start(gardener)
	defer pool.Stop()
	gardener.UseQueue(pool)

	sessions := session.NewMemoryStore(cfg.Session.Lifetime())
	go sweepSessions(ctx, sessions, 10*time.Minute)

	// 4. Driving adapter
	handler := rest.NewHandler(gardener, spotifyClient, sessions, rest.Options{
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Session.Secure,
	})

	// 5. Serve
	log.Printf("Groundswell API listening on %s (storage=%s, noise=%s)", cfg.ListenAddress, cfg.Storage.Driver, cfg.Garden.Noise)

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Printf("ERROR: server failed: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}
}

func sweepSessions(ctx context.Context, store *session.MemoryStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				log.Printf("sessions: swept %d expired", n)
			}
		}
	}
}
