package rest

import (
	"net/http"

	"github.com/ewilliams-labs/groundswell/internal/core/ports"
	"github.com/ewilliams-labs/groundswell/internal/core/services"
)

const defaultCookieName = "groundswell_session"

// Options configures the HTTP adapter.
type Options struct {
	CookieName   string
	SecureCookie bool
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc      *services.Gardener
	auth     ports.Authenticator
	sessions ports.SessionStore
	opts     Options
	router   *http.ServeMux
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Gardener, auth ports.Authenticator, sessions ports.SessionStore, opts Options) *Handler {
	if opts.CookieName == "" {
		opts.CookieName = defaultCookieName
	}
	h := &Handler{
		svc:      svc,
		auth:     auth,
		sessions: sessions,
		opts:     opts,
		router:   http.NewServeMux(),
	}

	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)

	// Sign-in
	h.router.HandleFunc("GET /auth/spotify", h.Login)
	h.router.HandleFunc("GET /auth/spotify/callback", h.Callback)
	h.router.HandleFunc("POST /auth/logout", h.Logout)
	h.router.HandleFunc("GET /api/me", h.Me)

	// Gardens
	h.router.HandleFunc("GET /api/garden", h.MyGarden)
	h.router.HandleFunc("POST /api/garden/preview", h.Preview)
	h.router.HandleFunc("GET /api/garden/ocean", h.Ocean)
	h.router.HandleFunc("GET /api/users/{id}/garden", h.UserGarden)
	h.router.HandleFunc("GET /api/users/{id}/garden/entities", h.Entities)

	// Listening data
	h.router.HandleFunc("GET /api/users/{id}/features", h.Features)
	h.router.HandleFunc("GET /api/users/{id}/tracks", h.Tracks)
	h.router.HandleFunc("POST /api/users/{id}/refresh", h.Refresh)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Groundswell is growing"})
}
