package api

import (
	"net/http"

	"tourflow/pkg/model"
)

// StopResponse reports the pointer after a navigation call. A nil Order means
// the introduction. Playback reflects the narration slot for the new state.
type StopResponse struct {
	Order    *int                `json:"order"`
	Playback model.PlaybackState `json:"playback"`
}

// HandleNextStop handles POST /api/sessions/{id}/stops/next.
func (h *SessionHandler) HandleNextStop(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	order, err := e.session.NextStop()
	if err != nil {
		writeNavError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StopResponse{Order: order, Playback: e.session.Playback()})
}

// HandlePreviousStop handles POST /api/sessions/{id}/stops/previous.
func (h *SessionHandler) HandlePreviousStop(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	order, err := e.session.PreviousStop()
	if err != nil {
		writeNavError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StopResponse{Order: order, Playback: e.session.Playback()})
}

// JumpRequest names the stop to jump to by its order number.
type JumpRequest struct {
	Order int `json:"order"`
}

// HandleJumpToStop handles POST /api/sessions/{id}/stops/jump.
func (h *SessionHandler) HandleJumpToStop(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req JumpRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := e.session.JumpToStop(req.Order)
	if err != nil {
		writeNavError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StopResponse{Order: order, Playback: e.session.Playback()})
}

// ResolveRequest carries an externally persisted order number. A nil Order
// resolves to the introduction, as does an order the tour does not contain.
type ResolveRequest struct {
	Order *int `json:"order"`
}

// HandleResolveStop handles PUT /api/sessions/{id}/stops/current.
func (h *SessionHandler) HandleResolveStop(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req ResolveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := e.session.ResolveStop(req.Order)
	if err != nil {
		writeNavError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StopResponse{Order: order, Playback: e.session.Playback()})
}

// HandleCurrentStop handles GET /api/sessions/{id}/stops/current.
func (h *SessionHandler) HandleCurrentStop(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, StopResponse{
		Order:    e.session.CurrentStopOrder(),
		Playback: e.session.Playback(),
	})
}
