// Package sqlstore implements the repository ports on database/sql. The
// sqlite and postgres adapters supply the driver and dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"github.com/ewilliams-labs/groundswell/internal/core/ports"
)

// Dialect captures the differences between the supported databases.
type Dialect struct {
	Name string
	// Schema is executed once at startup and must be idempotent.
	Schema string
	// Numbered placeholders ($1, $2, ...) instead of ?.
	NumberedParams bool
}

// Store implements ports.Repository.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ ports.Repository = (*Store)(nil)

// New wraps an open database and runs the schema migration.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%s: ping: %w", dialect.Name, err)
	}
	s := &Store{db: db, dialect: dialect}
	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		return nil, fmt.Errorf("%s: migration failed: %w", dialect.Name, err)
	}
	return s, nil
}

// Close ensures the DB connection is closed gracefully
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for readiness checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) q(query string) string {
	if !s.dialect.NumberedParams {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) SaveUser(ctx context.Context, u domain.User) error {
	if u.ID == "" {
		return fmt.Errorf("%s: save user: %w", s.dialect.Name, domain.ErrInvalidArgument)
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, display_name, email, profile_pic_url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name=excluded.display_name,
			email=excluded.email,
			profile_pic_url=excluded.profile_pic_url
	`), u.ID, u.DisplayName, u.Email, u.ProfilePicURL)
	if err != nil {
		return fmt.Errorf("%s: save user %s: %w", s.dialect.Name, u.ID, err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, display_name, email, profile_pic_url, tracks_fetched_at
		FROM users WHERE id = ?
	`), id)

	var u domain.User
	var email, pic sql.NullString
	var fetched sql.NullTime
	if err := row.Scan(&u.ID, &u.DisplayName, &email, &pic, &fetched); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("%s: load user %s: %w", s.dialect.Name, id, err)
	}
	u.Email = email.String
	u.ProfilePicURL = pic.String
	if fetched.Valid {
		u.TracksFetchedAt = fetched.Time
	}
	return u, nil
}

func (s *Store) SaveToken(ctx context.Context, userID string, tok domain.Token) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO tokens (user_id, access_token, refresh_token, token_type, expiry)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token=excluded.access_token,
			refresh_token=excluded.refresh_token,
			token_type=excluded.token_type,
			expiry=excluded.expiry
	`), userID, tok.AccessToken, tok.RefreshToken, tok.TokenType, tok.Expiry.UTC())
	if err != nil {
		return fmt.Errorf("%s: save token for %s: %w", s.dialect.Name, userID, err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, userID string) (domain.Token, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT access_token, refresh_token, token_type, expiry
		FROM tokens WHERE user_id = ?
	`), userID)

	var tok domain.Token
	var refresh, tokenType sql.NullString
	var expiry sql.NullTime
	if err := row.Scan(&tok.AccessToken, &refresh, &tokenType, &expiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Token{}, domain.ErrNotFound
		}
		return domain.Token{}, fmt.Errorf("%s: load token for %s: %w", s.dialect.Name, userID, err)
	}
	tok.RefreshToken = refresh.String
	tok.TokenType = tokenType.String
	if expiry.Valid {
		tok.Expiry = expiry.Time
	}
	return tok, nil
}

// SaveListening replaces the user's ranked track list and stamps the fetch
// time in one transaction. Feature columns a track arrives without keep
// their previously cached value.
func (s *Store) SaveListening(ctx context.Context, userID string, tracks []domain.Track, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", s.dialect.Name, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q(`UPDATE users SET tracks_fetched_at = ? WHERE id = ?`), fetchedAt.UTC(), userID)
	if err != nil {
		return fmt.Errorf("%s: stamp fetch time: %w", s.dialect.Name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: save listening for %s: %w", s.dialect.Name, userID, domain.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM user_tracks WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("%s: clear old tracks: %w", s.dialect.Name, err)
	}

	stmtTrack, err := tx.PrepareContext(ctx, s.q(`
		INSERT INTO tracks (
			id, title, artist, album, preview_url,
			acousticness, danceability, energy, instrumentalness,
			liveness, loudness, tempo, valence
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			artist=excluded.artist,
			album=excluded.album,
			preview_url=excluded.preview_url,
			acousticness=COALESCE(excluded.acousticness, tracks.acousticness),
			danceability=COALESCE(excluded.danceability, tracks.danceability),
			energy=COALESCE(excluded.energy, tracks.energy),
			instrumentalness=COALESCE(excluded.instrumentalness, tracks.instrumentalness),
			liveness=COALESCE(excluded.liveness, tracks.liveness),
			loudness=COALESCE(excluded.loudness, tracks.loudness),
			tempo=COALESCE(excluded.tempo, tracks.tempo),
			valence=COALESCE(excluded.valence, tracks.valence)
	`))
	if err != nil {
		return fmt.Errorf("%s: prepare track upsert: %w", s.dialect.Name, err)
	}
	defer stmtTrack.Close()

	stmtLink, err := tx.PrepareContext(ctx, s.q(`
		INSERT INTO user_tracks (user_id, track_id, track_rank)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, track_id) DO NOTHING
	`))
	if err != nil {
		return fmt.Errorf("%s: prepare link: %w", s.dialect.Name, err)
	}
	defer stmtLink.Close()

	for i, t := range tracks {
		f := t.Features
		if f == nil {
			f = &domain.FeatureInput{}
		}
		if _, err := stmtTrack.ExecContext(ctx,
			t.ID, t.Title, t.Artist, t.Album, t.PreviewURL,
			nullable(f.Acousticness),
			nullable(f.Danceability),
			nullable(f.Energy),
			nullable(f.Instrumentalness),
			nullable(f.Liveness),
			nullable(f.Loudness),
			nullable(f.Tempo),
			nullable(f.Valence),
		); err != nil {
			return fmt.Errorf("%s: save track %s: %w", s.dialect.Name, t.ID, err)
		}
		if _, err := stmtLink.ExecContext(ctx, userID, t.ID, i+1); err != nil {
			return fmt.Errorf("%s: link track %s: %w", s.dialect.Name, t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: transaction commit failed: %w", s.dialect.Name, err)
	}
	return nil
}

// AverageFeatures averages every feature column over the user's tracks. AVG
// skips NULLs, so a field is only absent when no track carries it.
func (s *Store) AverageFeatures(ctx context.Context, userID string) (*domain.FeatureInput, int, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT
			COUNT(*),
			AVG(t.acousticness),
			AVG(t.danceability),
			AVG(t.energy),
			AVG(t.instrumentalness),
			AVG(t.liveness),
			AVG(t.loudness),
			AVG(t.tempo),
			AVG(t.valence)
		FROM user_tracks ut
		JOIN tracks t ON t.id = ut.track_id
		WHERE ut.user_id = ?
	`), userID)

	var count int
	var cols [8]sql.NullFloat64
	if err := row.Scan(&count, &cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5], &cols[6], &cols[7]); err != nil {
		return nil, 0, fmt.Errorf("%s: average features for %s: %w", s.dialect.Name, userID, err)
	}
	if count == 0 {
		return nil, 0, nil
	}

	in := &domain.FeatureInput{
		Acousticness:     value(cols[0]),
		Danceability:     value(cols[1]),
		Energy:           value(cols[2]),
		Instrumentalness: value(cols[3]),
		Liveness:         value(cols[4]),
		Loudness:         value(cols[5]),
		Tempo:            value(cols[6]),
		Valence:          value(cols[7]),
	}
	return in, count, nil
}

// CachedTracks returns the user's stored tracks in rank order.
func (s *Store) CachedTracks(ctx context.Context, userID string, limit int) ([]domain.Track, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT t.id, t.title, t.artist, t.album, t.preview_url,
			t.acousticness, t.danceability, t.energy, t.instrumentalness,
			t.liveness, t.loudness, t.tempo, t.valence
		FROM user_tracks ut
		JOIN tracks t ON t.id = ut.track_id
		WHERE ut.user_id = ?
		ORDER BY ut.track_rank ASC
		LIMIT ?
	`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: load tracks for %s: %w", s.dialect.Name, userID, err)
	}
	defer rows.Close()

	var tracks []domain.Track
	for rows.Next() {
		var t domain.Track
		var album, preview sql.NullString
		var cols [8]sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.Title, &t.Artist, &album, &preview,
			&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5], &cols[6], &cols[7]); err != nil {
			return nil, fmt.Errorf("%s: scan track: %w", s.dialect.Name, err)
		}
		t.Album = album.String
		t.PreviewURL = preview.String
		f := &domain.FeatureInput{
			Acousticness:     value(cols[0]),
			Danceability:     value(cols[1]),
			Energy:           value(cols[2]),
			Instrumentalness: value(cols[3]),
			Liveness:         value(cols[4]),
			Loudness:         value(cols[5]),
			Tempo:            value(cols[6]),
			Valence:          value(cols[7]),
		}
		if !f.Empty() {
			t.Features = f
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate tracks: %w", s.dialect.Name, err)
	}
	return tracks, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func value(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return domain.Float(n.Float64)
}
