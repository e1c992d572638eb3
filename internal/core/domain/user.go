package domain

import (
	"time"
)

// User is a listener authenticated through Spotify.
type User struct {
	ID              string    `json:"id"`
	DisplayName     string    `json:"display_name"`
	Email           string    `json:"email,omitempty"`
	ProfilePicURL   string    `json:"profile_pic_url,omitempty"`
	TracksFetchedAt time.Time `json:"tracks_fetched_at,omitempty"`
}

func NewUser(id, displayName string) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArgument
	}
	if displayName == "" {
		displayName = id
	}
	return User{ID: id, DisplayName: displayName}, nil
}

// NeedsRefresh reports whether cached listening data is older than maxAge.
// A user that has never been fetched always needs a refresh.
func (u User) NeedsRefresh(now time.Time, maxAge time.Duration) bool {
	if u.TracksFetchedAt.IsZero() {
		return true
	}
	return u.TracksFetchedAt.Before(now.Add(-maxAge))
}

// Token is the persisted OAuth credential for a user.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}
