package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewUser(t *testing.T) {
	if _, err := NewUser("", "x"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	u, err := NewUser("spotify-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.DisplayName != "spotify-1" {
		t.Fatalf("expected display name fallback to id, got %q", u.DisplayName)
	}
}

func TestUser_NeedsRefresh(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour
	tests := []struct {
		name    string
		fetched time.Time
		want    bool
	}{
		{name: "never fetched", want: true},
		{name: "fetched yesterday", fetched: now.Add(-24 * time.Hour), want: false},
		{name: "fetched eight days ago", fetched: now.Add(-8 * 24 * time.Hour), want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := User{ID: "u", TracksFetchedAt: tc.fetched}
			if got := u.NeedsRefresh(now, week); got != tc.want {
				t.Fatalf("NeedsRefresh() = %v, want %v", got, tc.want)
			}
		})
	}
}
