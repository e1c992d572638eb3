package rest

import (
	"log"
	"net/http"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"github.com/google/uuid"
)

// session returns the caller's live session, if any.
func (h *Handler) session(r *http.Request) (domain.Session, bool) {
	c, err := r.Cookie(h.opts.CookieName)
	if err != nil || c.Value == "" {
		return domain.Session{}, false
	}
	return h.sessions.Get(c.Value)
}

// currentUser returns the signed-in user id or writes a 401.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	s, ok := h.session(r)
	if !ok || !s.Authenticated() {
		writeErrorWithCode(w, http.StatusUnauthorized, "not authenticated", errCodeUnauthenticated)
		return "", false
	}
	return s.UserID, true
}

func (h *Handler) setCookie(w http.ResponseWriter, s domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login handles GET /auth/spotify
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, http.StatusNotImplemented, "sign-in not configured")
		return
	}

	s, _ := h.session(r)
	s.OAuthState = uuid.NewString()
	s = h.sessions.Set(s)
	h.setCookie(w, s)

	http.Redirect(w, r, h.auth.AuthCodeURL(s.OAuthState), http.StatusFound)
}

// Callback handles GET /auth/spotify/callback
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, http.StatusNotImplemented, "sign-in not configured")
		return
	}

	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		writeErrorWithCode(w, http.StatusUnauthorized, "sign-in denied: "+reason, errCodeUnauthenticated)
		return
	}

	s, ok := h.session(r)
	if !ok || s.OAuthState == "" || q.Get("state") != s.OAuthState {
		writeErrorWithCode(w, http.StatusBadRequest, "invalid oauth state", errCodeInvalidArgument)
		return
	}

	user, err := h.auth.Complete(r.Context(), q.Get("code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// The pre-login session id is never promoted.
	h.sessions.Delete(s.ID)
	s = h.sessions.Set(domain.Session{UserID: user.ID})
	h.setCookie(w, s)

	if err := h.svc.QueueRefresh(r.Context(), user.ID); err != nil {
		log.Printf("WARN rest: initial refresh for %s not queued: %v", user.ID, err)
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.opts.CookieName); err == nil {
		h.sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.svc.User(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
