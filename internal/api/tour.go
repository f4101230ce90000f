package api

import (
	"net/http"

	"tourflow/pkg/model"
)

// ChooseThemeRequest is the user's tour request. Theme is a suggested label
// or free text; MaxTime and Distance keep the user's phrasing ("2 hours",
// "5 km") for backend validation.
type ChooseThemeRequest struct {
	Theme    string `json:"theme"`
	MaxTime  string `json:"max_time"`
	Distance string `json:"distance"`
}

// HandleChooseTheme handles POST /api/sessions/{id}/theme.
func (h *SessionHandler) HandleChooseTheme(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req ChooseThemeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Theme == "" {
		http.Error(w, "theme is required", http.StatusBadRequest)
		return
	}

	tourID, err := e.session.ChooseTheme(r.Context(), req.Theme, req.MaxTime, req.Distance)
	if err != nil {
		writeNavError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "generating",
		"tour_id": tourID,
	})
}

// TourResponse reports generation progress and, once ready, the tour.
type TourResponse struct {
	Status          model.TourStatus `json:"status"`
	HasLocatablePOI bool             `json:"has_locatable_poi"`
	Tour            *model.Tour      `json:"tour,omitempty"`
}

// HandleTour handles GET /api/sessions/{id}/tour.
func (h *SessionHandler) HandleTour(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	status, tour := e.session.TourState()
	writeJSON(w, http.StatusOK, TourResponse{
		Status:          status,
		HasLocatablePOI: e.session.HasLocatablePOI(),
		Tour:            tour,
	})
}
