package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ewilliams-labs/groundswell/internal/adapters/session"
	"github.com/ewilliams-labs/groundswell/internal/adapters/sqlite"
	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"github.com/ewilliams-labs/groundswell/internal/core/garden"
	"github.com/ewilliams-labs/groundswell/internal/core/services"
)

// --- Mocks ---

type mockTracks struct {
	calls []string
}

func (m *mockTracks) TopTracks(ctx context.Context, userID string, limit int) ([]domain.Track, error) {
	m.calls = append(m.calls, userID)
	return nil, errors.New("spotify unavailable")
}

type mockFeatures struct{}

func (m *mockFeatures) AudioFeatures(ctx context.Context, ids []string) (map[string]domain.FeatureInput, error) {
	return nil, nil
}

type mockAuth struct {
	repo *sqlite.Adapter
}

func (m *mockAuth) AuthCodeURL(state string) string {
	return "https://accounts.test/authorize?state=" + url.QueryEscape(state)
}

func (m *mockAuth) Complete(ctx context.Context, code string) (domain.User, error) {
	if code != "ok" {
		return domain.User{}, fmt.Errorf("exchange: %w", domain.ErrUnauthenticated)
	}
	u := domain.User{ID: "listener", DisplayName: "Listener"}
	if err := m.repo.SaveUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

type mockQueue struct {
	accept bool
	users  []string
}

func (m *mockQueue) Enqueue(userID string) bool {
	m.users = append(m.users, userID)
	return m.accept
}

type testEnv struct {
	handler  *Handler
	repo     *sqlite.Adapter
	queue    *mockQueue
	tracks   *mockTracks
	sessions *session.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithOptions(t, garden.Options{Terrain: garden.Grid{Size: 40, Segments: 8}})
}

func newTestEnvWithOptions(t *testing.T, opts garden.Options) *testEnv {
	t.Helper()
	repo, err := sqlite.NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	tracks := &mockTracks{}
	svc := services.NewGardener(repo, tracks, &mockFeatures{}, nil, services.Config{Garden: opts})
	queue := &mockQueue{accept: true}
	svc.UseQueue(queue)

	sessions := session.NewMemoryStore(time.Hour)
	h := NewHandler(svc, &mockAuth{repo: repo}, sessions, Options{})
	return &testEnv{handler: h, repo: repo, queue: queue, tracks: tracks, sessions: sessions}
}

// seedUser stores a user with freshly fetched listening data.
func (e *testEnv) seedUser(t *testing.T, id string, features *domain.FeatureInput) {
	t.Helper()
	e.seedUserAt(t, id, features, time.Now())
}

func (e *testEnv) seedUserAt(t *testing.T, id string, features *domain.FeatureInput, fetchedAt time.Time) {
	t.Helper()
	ctx := context.Background()
	if err := e.repo.SaveUser(ctx, domain.User{ID: id, DisplayName: id}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	tracks := []domain.Track{{ID: id + "-t1", Title: "Song", Artist: "Artist", Features: features}}
	if err := e.repo.SaveListening(ctx, id, tracks, fetchedAt); err != nil {
		t.Fatalf("save listening: %v", err)
	}
}

// signIn creates an authenticated session for userID.
func (e *testEnv) signIn(userID string) *http.Cookie {
	s := e.sessions.Set(domain.Session{UserID: userID})
	return &http.Cookie{Name: defaultCookieName, Value: s.ID}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == defaultCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

// --- Tests ---

func TestHandler_HealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_UserGarden(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "unknown user",
			path:           "/api/users/ghost/garden",
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"code":"NOT_FOUND"`,
		},
		{
			name:           "summary view",
			path:           "/api/users/u1/garden?view=summary",
			expectedStatus: http.StatusOK,
			expectedBody:   `"seed_source":"identity"`,
		},
		{
			name:           "full garden",
			path:           "/api/users/u1/garden",
			expectedStatus: http.StatusOK,
			expectedBody:   `"heights":[`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.seedUser(t, "u1", &domain.FeatureInput{Energy: domain.Float(0.9)})

			rec := env.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, strings.TrimSpace(rec.Body.String()))
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_GardenIsDeterministic(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", &domain.FeatureInput{Acousticness: domain.Float(0.8)})

	first := env.do(httptest.NewRequest(http.MethodGet, "/api/users/u1/garden", nil))
	second := env.do(httptest.NewRequest(http.MethodGet, "/api/users/u1/garden", nil))
	if first.Code != http.StatusOK || first.Body.String() != second.Body.String() {
		t.Fatalf("responses differ (status %d)", first.Code)
	}
}

func TestHandler_Preview(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		contentType    string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "no body uses defaults",
			expectedStatus: http.StatusOK,
			expectedBody:   `"seed_source":"fingerprint"`,
		},
		{
			name:           "flat island",
			body:           `{"features":{"energy":0},"seed":"demo"}`,
			contentType:    "application/json",
			expectedStatus: http.StatusOK,
			expectedBody:   `"biomes":{"sand":81}`,
		},
		{
			name:           "malformed json",
			body:           `{invalid-json`,
			contentType:    "application/json",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid request body",
		},
		{
			name:           "wrong content type",
			body:           `{}`,
			contentType:    "text/plain",
			expectedStatus: http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			var body *bytes.Buffer
			if tt.body != "" {
				body = bytes.NewBufferString(tt.body)
			} else {
				body = &bytes.Buffer{}
			}
			req := httptest.NewRequest(http.MethodPost, "/api/garden/preview?view=summary", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			rec := env.do(req)
			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, strings.TrimSpace(rec.Body.String()))
			}
			if tt.expectedBody != "" && !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_LoginFlow(t *testing.T) {
	env := newTestEnv(t)

	// Unauthenticated.
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me before login: got %d", rec.Code)
	}

	// Start login.
	rec = env.do(httptest.NewRequest(http.MethodGet, "/auth/spotify", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("login: got %d", rec.Code)
	}
	cookie := sessionCookie(t, rec)
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("login redirect carries no state")
	}

	// Forged state is rejected.
	req := httptest.NewRequest(http.MethodGet, "/auth/spotify/callback?code=ok&state=forged", nil)
	req.AddCookie(cookie)
	if rec = env.do(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("forged state: got %d", rec.Code)
	}

	// Rejected code.
	req = httptest.NewRequest(http.MethodGet, "/auth/spotify/callback?code=bad&state="+state, nil)
	req.AddCookie(cookie)
	if rec = env.do(req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad code: got %d", rec.Code)
	}

	// Successful callback.
	req = httptest.NewRequest(http.MethodGet, "/auth/spotify/callback?code=ok&state="+state, nil)
	req.AddCookie(cookie)
	rec = env.do(req)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("callback: got %d to %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(env.queue.users) != 1 || env.queue.users[0] != "listener" {
		t.Fatalf("queued refreshes: %v", env.queue.users)
	}

	// The session id is rotated on sign-in.
	preLogin := cookie
	cookie = sessionCookie(t, rec)
	if cookie.Value == preLogin.Value {
		t.Fatal("session id was not rotated on sign-in")
	}
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(preLogin)
	if rec = env.do(req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me with pre-login cookie: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	rec = env.do(req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":"listener"`) {
		t.Fatalf("me after login: %d %s", rec.Code, rec.Body.String())
	}

	// Logout.
	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	if rec = env.do(req); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: got %d", rec.Code)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	if rec = env.do(req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: got %d", rec.Code)
	}
}

func TestHandler_Entities(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedStatus int
	}{
		{"default time", "", http.StatusOK},
		{"explicit time", "?t=12.5", http.StatusOK},
		{"invalid time", "?t=soon", http.StatusBadRequest},
		{"infinite time", "?t=Inf", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.seedUser(t, "u1", &domain.FeatureInput{Liveness: domain.Float(1), Acousticness: domain.Float(1)})

			rec := env.do(httptest.NewRequest(http.MethodGet, "/api/users/u1/garden/entities"+tt.query, nil))
			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if rec.Code != http.StatusOK {
				return
			}
			var resp entitiesResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for _, e := range resp.Entities {
				if e.Opacity < 0.5 || e.Opacity > 1 {
					t.Fatalf("opacity %v out of range", e.Opacity)
				}
			}
		})
	}
}

func TestHandler_Ocean(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/garden/ocean?t=1.5&danceability=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ocean: got %d, body: %s", rec.Code, rec.Body.String())
	}
	var resp oceanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Heights) != 33*33 {
		t.Fatalf("heights: got %d, want %d", len(resp.Heights), 33*33)
	}
	if resp.Params != garden.WaveParamsFor(1) {
		t.Fatalf("params: got %+v", resp.Params)
	}
	for i, h := range resp.Heights {
		if h < 0 {
			t.Fatalf("height %d negative: %v", i, h)
		}
	}

	if rec := env.do(httptest.NewRequest(http.MethodGet, "/api/garden/ocean?danceability=x", nil)); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid danceability: got %d", rec.Code)
	}
}

func TestHandler_FeaturesAndTracks(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", &domain.FeatureInput{Tempo: domain.Float(90)})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/users/u1/features", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("features: got %d", rec.Code)
	}
	var f domain.FeatureVector
	if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Tempo != 90 || f.Valence != domain.DefaultValence {
		t.Fatalf("features: got %+v", f)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/users/u1/tracks?limit=5", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Fatalf("tracks: %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(httptest.NewRequest(http.MethodGet, "/api/users/u1/tracks?limit=-1", nil)); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative limit: got %d", rec.Code)
	}
}

func TestHandler_Refresh(t *testing.T) {
	tests := []struct {
		name           string
		signedInAs     string
		user           string
		accept         bool
		expectedStatus int
		expectedBody   string
	}{
		{"queued", "u1", "u1", true, http.StatusAccepted, `"status":"queued"`},
		{"queue full", "u1", "u1", false, http.StatusServiceUnavailable, `"code":"QUEUE_FULL"`},
		{"anonymous", "", "u1", true, http.StatusUnauthorized, `"code":"UNAUTHENTICATED"`},
		{"another user", "u2", "u1", true, http.StatusForbidden, `"code":"FORBIDDEN"`},
		{"unknown user", "ghost", "ghost", true, http.StatusNotFound, `"code":"NOT_FOUND"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.seedUser(t, "u1", nil)
			env.seedUser(t, "u2", nil)
			env.queue.accept = tt.accept

			req := httptest.NewRequest(http.MethodPost, "/api/users/"+tt.user+"/refresh", nil)
			if tt.signedInAs != "" {
				req.AddCookie(env.signIn(tt.signedInAs))
			}
			rec := env.do(req)
			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
			if tt.expectedStatus == http.StatusUnauthorized || tt.expectedStatus == http.StatusForbidden {
				if len(env.queue.users) != 0 {
					t.Errorf("refresh queued for %v", env.queue.users)
				}
			}
		})
	}
}

func TestHandler_PublicRoutesDoNotRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.seedUserAt(t, "u1", &domain.FeatureInput{Energy: domain.Float(0.8)}, time.Now().Add(-30*24*time.Hour))

	for _, path := range []string{
		"/api/users/u1/garden",
		"/api/users/u1/garden/entities",
		"/api/users/u1/features",
	} {
		if rec := env.do(httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusOK {
			t.Fatalf("%s: got %d", path, rec.Code)
		}
	}
	if len(env.tracks.calls) != 0 {
		t.Fatalf("public routes called upstream for %v", env.tracks.calls)
	}

	// The owner's own garden refreshes stale data.
	req := httptest.NewRequest(http.MethodGet, "/api/garden?view=summary", nil)
	req.AddCookie(env.signIn("u1"))
	if rec := env.do(req); rec.Code != http.StatusOK {
		t.Fatalf("my garden: got %d", rec.Code)
	}
	if len(env.tracks.calls) != 1 || env.tracks.calls[0] != "u1" {
		t.Fatalf("upstream calls: %v", env.tracks.calls)
	}
}

func TestHandler_PreviewRejectsOverflow(t *testing.T) {
	env := newTestEnvWithOptions(t, garden.DefaultOptions())

	req := httptest.NewRequest(http.MethodPost, "/api/garden/preview", strings.NewReader(`{"features":{"energy":1e308},"seed":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d, body: %q", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"code":"INVALID_ARGUMENT"`) {
		t.Fatalf("body: %s", rec.Body.String())
	}
}

func TestWriteJSON_EncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"height": math.Inf(-1)})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
		t.Fatalf("body: %q (%v)", rec.Body.String(), err)
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err          error
		wantStatus   int
		expectedCode string
	}{
		{fmt.Errorf("service: %w", domain.ErrNotFound), http.StatusNotFound, errCodeNotFound},
		{fmt.Errorf("service: %w", domain.ErrUnauthenticated), http.StatusUnauthorized, errCodeUnauthenticated},
		{fmt.Errorf("service: %w", domain.ErrInvalidArgument), http.StatusBadRequest, errCodeInvalidArgument},
		{fmt.Errorf("service: %w: boom", domain.ErrGenerationFailed), http.StatusInternalServerError, errCodeGenerationFailed},
		{services.ErrQueueFull, http.StatusServiceUnavailable, errCodeQueueFull},
		{errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.expectedCode || body.Error == "" {
				t.Fatalf("body: got %+v", body)
			}
		})
	}
}
