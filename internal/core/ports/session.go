package ports

import "github.com/ewilliams-labs/groundswell/internal/core/domain"

// SessionStore keeps browser sessions. Set stamps the expiry; Get never
// returns an expired session.
type SessionStore interface {
	Get(id string) (domain.Session, bool)
	Set(s domain.Session) domain.Session
	Delete(id string)
}
