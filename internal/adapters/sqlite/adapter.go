// Package sqlite provides a SQLite-backed implementation of the repository port.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ewilliams-labs/groundswell/internal/adapters/sqlstore"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	email TEXT,
	profile_pic_url TEXT,
	tracks_fetched_at TIMESTAMP,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tokens (
	user_id TEXT PRIMARY KEY,
	access_token TEXT NOT NULL,
	refresh_token TEXT,
	token_type TEXT,
	expiry TIMESTAMP,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tracks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	artist TEXT NOT NULL,
	album TEXT,
	preview_url TEXT,
	acousticness REAL,
	danceability REAL,
	energy REAL,
	instrumentalness REAL,
	liveness REAL,
	loudness REAL,
	tempo REAL,
	valence REAL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_tracks (
	user_id TEXT,
	track_id TEXT,
	track_rank INTEGER NOT NULL,
	PRIMARY KEY (user_id, track_id),
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
);
`

// Adapter implements the repository port for SQLite
type Adapter struct {
	*sqlstore.Store
}

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// A :memory: database exists per connection.
	db.SetMaxOpenConns(1)

	store, err := sqlstore.New(context.Background(), db, sqlstore.Dialect{Name: "sqlite", Schema: schema})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Adapter{Store: store}, nil
}
