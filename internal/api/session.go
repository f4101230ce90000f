package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"tourflow/pkg/apisession"
	"tourflow/pkg/config"
	"tourflow/pkg/session"
	"tourflow/pkg/store"
	"tourflow/pkg/tourapi"
)

// SessionHandler serves the per-session API surface. Sessions are created
// explicitly and addressed by the opaque id returned on creation.
type SessionHandler struct {
	cfg      *config.Config
	client   *tourapi.Client
	store    store.StateStore
	registry *apisession.Registry[sessionEntry]
}

// sessionEntry pairs a session with the viewport feed its camera drives.
type sessionEntry struct {
	session  *session.Session
	viewport *ViewportFeed
}

// NewSessionHandler creates a SessionHandler with its own session registry.
// The state store persists the user's volume setting across restarts.
func NewSessionHandler(cfg *config.Config, client *tourapi.Client, st store.StateStore) *SessionHandler {
	return &SessionHandler{
		cfg:    cfg,
		client: client,
		store:  st,
		registry: apisession.New(cfg.Session.TTL.Std(), func(e *sessionEntry) {
			e.session.Close()
			e.viewport.Close()
		}),
	}
}

// Registry exposes the underlying registry for stats and shutdown.
func (h *SessionHandler) Registry() *apisession.Registry[sessionEntry] {
	return h.registry
}

// HandleCreate handles POST /api/sessions.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	feed := NewViewportFeed()
	sess := session.New(h.cfg, h.client, feed)

	// Restore the persisted volume so a restart keeps the user's setting.
	if h.store != nil {
		if volStr, ok := h.store.GetState(r.Context(), "volume"); ok {
			var vol float64
			if _, err := fmt.Sscanf(volStr, "%f", &vol); err == nil {
				sess.SetVolume(vol)
			}
		}
	}

	h.registry.Put(sess.ID, &sessionEntry{session: sess, viewport: feed})
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

// HandleGet handles GET /api/sessions/{id}.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	status, _ := e.session.TourState()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          e.session.ID,
		"created_at":  e.session.CreatedAt,
		"position":    e.session.Position(),
		"tour_status": status,
		"generating":  e.session.Generating(),
		"scope":       e.session.TourScope(),
	})
}

// HandleDelete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if !h.registry.Delete(r.PathValue("id")) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lookup resolves the {id} path value to a live session, answering 404 itself
// when the session is unknown or expired.
func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*sessionEntry, bool) {
	e, ok := h.registry.Lookup(r.PathValue("id"))
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return nil, false
	}
	return e, true
}

// decodeBody decodes a JSON request body, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeNavError maps navigation errors to HTTP statuses.
func writeNavError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrTourNotReady):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, session.ErrGenerationActive):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, tourapi.ErrRequestRejected):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}
