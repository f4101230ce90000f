package api

import (
	"net/http"
)

// PositionRequest is one position update from the client.
type PositionRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HandlePosition handles POST /api/sessions/{id}/position.
func (h *SessionHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req PositionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		http.Error(w, "coordinates out of range", http.StatusBadRequest)
		return
	}

	e.session.PushPosition(req.Latitude, req.Longitude)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
