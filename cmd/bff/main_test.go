package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestGateway(t *testing.T, backend http.Handler) http.Handler {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse backend url: %v", err)
	}
	return newGateway(u, srv.Client())
}

func TestGateway(t *testing.T) {
	backend := http.NewServeMux()
	backend.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	backend.HandleFunc("GET /api/garden", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"seed":7}`))
	})
	backend.HandleFunc("GET /auth/spotify", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://accounts.test/authorize", http.StatusFound)
	})
	gw := newTestGateway(t, backend)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedBody   string
	}{
		{"health", "/health", http.StatusOK, `"status":"healthy"`},
		{"ready", "/ready", http.StatusOK, `"status":"ready"`},
		{"root", "/", http.StatusOK, `"service":"groundswell-bff"`},
		{"api proxied", "/api/garden", http.StatusOK, `{"seed":7}`},
		{"auth proxied", "/auth/spotify", http.StatusFound, ""},
		{"unknown path", "/static/app.js", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Fatalf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestReadyReportsUnhealthyBackend(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	gw := newTestGateway(t, backend)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"backend_status":500`) {
		t.Fatalf("ready: %d %s", rec.Code, rec.Body.String())
	}
}

func TestProxyReportsDeadBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(srv.URL)
	srv.Close()

	gw := newGateway(u, http.DefaultClient)
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/garden", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}
