// Package main provides the Groundswell gateway. It serves its own health
// and readiness probes and forwards the API and sign-in routes to the backend,
// so the browser sees a single origin for the session cookie.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	backendURL := getEnv("BACKEND_URL", "http://backend:8080")
	port := getEnv("PORT", "3000")

	backend, err := url.Parse(backendURL)
	if err != nil || backend.Scheme == "" || backend.Host == "" {
		log.Fatalf("FATAL: invalid BACKEND_URL %q", backendURL)
	}

	log.Printf("Groundswell gateway starting: backend=%s listen=:%s", backendURL, port)

	if err := waitForBackend(backendURL, 30*time.Second); err != nil {
		log.Printf("WARN bff: backend not reachable: %v (continuing anyway)", err)
	} else {
		log.Println("bff: backend health check passed")
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      newGateway(backend, &http.Client{Timeout: 5 * time.Second}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gateway...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}

// newGateway routes /api/ and /auth/ to the backend and answers the probes
// itself.
func newGateway(backend *url.URL, probe *http.Client) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(backend)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("WARN bff: proxy %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "backend unavailable"})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		readyHandler(w, r, probe, backend.String())
	})
	mux.Handle("/api/", proxy)
	mux.Handle("/auth/", proxy)
	mux.HandleFunc("GET /{$}", rootHandler)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARN bff: failed to encode response: %v", err)
	}
}

// healthHandler returns the gateway's own health status
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "bff"})
}

// readyHandler checks if the gateway can reach the backend
func readyHandler(w http.ResponseWriter, r *http.Request, client *http.Client, backendURL string) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, backendURL+"/health", nil)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "error": err.Error()})
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "error": err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "backend_status": resp.StatusCode})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "backend": "connected"})
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":     "groundswell-bff",
		"version":     "0.1.0",
		"description": "Gateway for the garden API",
	})
}

// waitForBackend polls the backend health endpoint until it responds or times out
func waitForBackend(backendURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(backendURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}

	return fmt.Errorf("backend not available after %v", timeout)
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
