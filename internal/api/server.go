// Package api exposes the tour session engine over HTTP.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tourflow/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, sessions *SessionHandler, stats *StatsHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Stats Endpoint
	mux.Handle("GET /api/stats", stats)

	// 4. Session Lifecycle
	mux.HandleFunc("POST /api/sessions", sessions.HandleCreate)
	mux.HandleFunc("GET /api/sessions/{id}", sessions.HandleGet)
	mux.HandleFunc("DELETE /api/sessions/{id}", sessions.HandleDelete)

	// 5. Position
	mux.HandleFunc("POST /api/sessions/{id}/position", sessions.HandlePosition)

	// 6. Theme Suggestions
	mux.HandleFunc("POST /api/sessions/{id}/suggestions", sessions.HandleRequestSuggestions)
	mux.HandleFunc("GET /api/sessions/{id}/suggestions", sessions.HandleSuggestions)

	// 7. Theme Choice and Tour
	mux.HandleFunc("POST /api/sessions/{id}/theme", sessions.HandleChooseTheme)
	mux.HandleFunc("GET /api/sessions/{id}/tour", sessions.HandleTour)

	// 8. Stop Navigation
	mux.HandleFunc("POST /api/sessions/{id}/stops/next", sessions.HandleNextStop)
	mux.HandleFunc("POST /api/sessions/{id}/stops/previous", sessions.HandlePreviousStop)
	mux.HandleFunc("POST /api/sessions/{id}/stops/jump", sessions.HandleJumpToStop)
	mux.HandleFunc("PUT /api/sessions/{id}/stops/current", sessions.HandleResolveStop)
	mux.HandleFunc("GET /api/sessions/{id}/stops/current", sessions.HandleCurrentStop)

	// 9. Audio Control
	mux.HandleFunc("POST /api/sessions/{id}/audio/control", sessions.HandleAudioControl)
	mux.HandleFunc("POST /api/sessions/{id}/audio/volume", sessions.HandleAudioVolume)
	mux.HandleFunc("GET /api/sessions/{id}/audio/status", sessions.HandleAudioStatus)

	// 10. Viewport Feed (WebSocket)
	mux.HandleFunc("GET /api/sessions/{id}/viewport", sessions.HandleViewport)

	// 11. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow the response to flush.
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
