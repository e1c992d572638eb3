package domain

import "time"

// Session is a browser session. OAuthState is set between the login redirect
// and the callback; UserID is set once login completes.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	OAuthState string    `json:"-"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Authenticated reports whether the session belongs to a signed-in user.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}
