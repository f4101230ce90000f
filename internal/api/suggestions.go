package api

import (
	"net/http"
)

// HandleRequestSuggestions handles POST /api/sessions/{id}/suggestions.
// The fetch runs in the background; clients poll the GET endpoint for the
// outcome. Repeated triggers collapse into one upstream request.
func (h *SessionHandler) HandleRequestSuggestions(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	e.session.RequestSuggestions()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// HandleSuggestions handles GET /api/sessions/{id}/suggestions.
func (h *SessionHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, e.session.Suggestions())
}
