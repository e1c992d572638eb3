package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/core/garden"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddress string           `yaml:"listen_address"`
	Spotify       SpotifyConfig    `yaml:"spotify"`
	ReccoBeats    ReccoBeatsConfig `yaml:"reccobeats"`
	Storage       StorageConfig    `yaml:"storage"`
	Garden        GardenConfig     `yaml:"garden"`
	Worker        WorkerConfig     `yaml:"worker"`
	Session       SessionConfig    `yaml:"session"`
}

type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	MaxRetries   int    `yaml:"max_retries"`
	RetryBackoff string `yaml:"retry_backoff"`
	TopTracks    int    `yaml:"top_tracks"`
	RefreshAfter string `yaml:"refresh_after"`
}

type ReccoBeatsConfig struct {
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type GardenConfig struct {
	Size          float64 `yaml:"size"`
	Segments      int     `yaml:"segments"`
	OceanSegments int     `yaml:"ocean_segments"`
	Noise         string  `yaml:"noise"`
}

type WorkerConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type SessionConfig struct {
	CookieName string `yaml:"cookie_name"`
	TTL        string `yaml:"ttl"`
	Secure     bool   `yaml:"secure"`
}

// Default returns a configuration that runs locally against sqlite.
// Spotify credentials still have to come from the environment.
func Default() *Config {
	g := garden.DefaultOptions()
	return &Config{
		ListenAddress: ":8080",
		Spotify: SpotifyConfig{
			RedirectURL:  "http://localhost:8080/auth/spotify/callback",
			MaxRetries:   3,
			RetryBackoff: "500ms",
			TopTracks:    50,
			RefreshAfter: "168h",
		},
		ReccoBeats: ReccoBeatsConfig{
			BaseURL:           "https://api.reccobeats.com",
			RequestsPerSecond: 10,
		},
		Storage: StorageConfig{Driver: "sqlite", DSN: "groundswell.db"},
		Garden: GardenConfig{
			Size:          g.Terrain.Size,
			Segments:      g.Terrain.Segments,
			OceanSegments: g.OceanSegments,
			Noise:         g.Noise,
		},
		Worker:  WorkerConfig{Workers: 2, QueueSize: 100},
		Session: SessionConfig{CookieName: "groundswell_session", TTL: "24h"},
	}
}

// Load reads an optional .env file, then the YAML file at path on top of
// Default, then environment overrides. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("WARN config: .env not loaded: %v", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	set(&c.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	set(&c.Spotify.RedirectURL, "SPOTIFY_REDIRECT_URL")
	set(&c.Storage.Driver, "STORAGE_DRIVER")
	set(&c.Storage.DSN, "STORAGE_DSN")
	set(&c.Garden.Noise, "GARDEN_NOISE")
	set(&c.ListenAddress, "LISTEN_ADDR")

	if v := getenv("SPOTIFY_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SPOTIFY_MAX_RETRIES invalid: %w", err)
		}
		c.Spotify.MaxRetries = n
	}
	if v := getenv("SPOTIFY_RETRY_BACKOFF_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SPOTIFY_RETRY_BACKOFF_MS invalid: %w", err)
		}
		c.Spotify.RetryBackoff = (time.Duration(ms) * time.Millisecond).String()
	}
	return nil
}

func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		c.ListenAddress = ":8080"
	}

	if c.Spotify.MaxRetries < 0 {
		return fmt.Errorf("spotify.max_retries cannot be negative")
	}
	if c.Spotify.RetryBackoff == "" {
		c.Spotify.RetryBackoff = "500ms"
	}
	if _, err := time.ParseDuration(c.Spotify.RetryBackoff); err != nil {
		return fmt.Errorf("spotify.retry_backoff invalid: %w", err)
	}
	if c.Spotify.RefreshAfter == "" {
		c.Spotify.RefreshAfter = "168h"
	}
	if d, err := time.ParseDuration(c.Spotify.RefreshAfter); err != nil {
		return fmt.Errorf("spotify.refresh_after invalid: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("spotify.refresh_after must be positive")
	}
	if c.Spotify.TopTracks <= 0 || c.Spotify.TopTracks > 50 {
		c.Spotify.TopTracks = 50
	}

	if c.ReccoBeats.RequestsPerSecond < 0 {
		return fmt.Errorf("reccobeats.requests_per_second cannot be negative")
	}

	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = "sqlite"
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver must be either 'sqlite' or 'postgres', got %q", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		if c.Storage.Driver == "postgres" {
			return fmt.Errorf("storage.dsn must be set for postgres")
		}
		c.Storage.DSN = "groundswell.db"
	}

	if c.Garden.Size < 0 || c.Garden.Segments < 0 || c.Garden.OceanSegments < 0 {
		return fmt.Errorf("garden dimensions cannot be negative")
	}
	switch c.Garden.Noise {
	case "":
		c.Garden.Noise = garden.NoiseSimplex
	case garden.NoiseSimplex, garden.NoisePerlin, garden.NoiseRandom:
	default:
		return fmt.Errorf("garden.noise must be one of simplex, perlin or random, got %q", c.Garden.Noise)
	}

	if c.Worker.Workers <= 0 {
		c.Worker.Workers = 2
	}
	if c.Worker.QueueSize <= 0 {
		c.Worker.QueueSize = 100
	}

	if c.Session.CookieName == "" {
		c.Session.CookieName = "groundswell_session"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "24h"
	}
	if _, err := time.ParseDuration(c.Session.TTL); err != nil {
		return fmt.Errorf("session.ttl invalid: %w", err)
	}
	return nil
}

// RequireSpotify reports missing OAuth credentials. The API server calls it;
// the CLI does not.
func (c *Config) RequireSpotify() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required")
	}
	return nil
}

// The duration accessors assume Validate has passed.

func (s SpotifyConfig) Backoff() time.Duration {
	d, _ := time.ParseDuration(s.RetryBackoff)
	return d
}

func (s SpotifyConfig) RefreshInterval() time.Duration {
	d, _ := time.ParseDuration(s.RefreshAfter)
	return d
}

func (s SessionConfig) Lifetime() time.Duration {
	d, _ := time.ParseDuration(s.TTL)
	return d
}

// Options converts the garden section into generation options.
func (g GardenConfig) Options() garden.Options {
	return garden.Options{
		Terrain:       garden.Grid{Size: g.Size, Segments: g.Segments},
		OceanSegments: g.OceanSegments,
		Noise:         g.Noise,
	}.WithDefaults()
}
