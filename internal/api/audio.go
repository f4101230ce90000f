package api

import (
	"fmt"
	"log/slog"
	"net/http"
)

// AudioControlRequest represents an audio control command.
type AudioControlRequest struct {
	Action string `json:"action"` // "play" or "pause"
}

// AudioVolumeRequest represents a volume change request.
type AudioVolumeRequest struct {
	Volume float64 `json:"volume"`
}

// AudioStatusResponse represents narration playback status.
type AudioStatusResponse struct {
	IsPlaying bool    `json:"is_playing"`
	IsLoading bool    `json:"is_loading"`
	Volume    float64 `json:"volume"`
	LastError string  `json:"last_error,omitempty"`
}

// HandleAudioControl handles POST /api/sessions/{id}/audio/control.
func (h *SessionHandler) HandleAudioControl(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req AudioControlRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var state string
	switch req.Action {
	case "play":
		e.session.PlayNarration()
		state = "playing"
	case "pause":
		e.session.PauseNarration()
		state = "paused"
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	slog.Debug("Audio control", "action", req.Action, "state", state)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": state})
}

// HandleAudioVolume handles POST /api/sessions/{id}/audio/volume.
func (h *SessionHandler) HandleAudioVolume(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req AudioVolumeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	e.session.SetVolume(req.Volume)

	// Persist volume
	if h.store != nil {
		if err := h.store.SetState(r.Context(), "volume", fmt.Sprintf("%.2f", e.session.Volume())); err != nil {
			slog.Error("Failed to persist volume", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"volume": e.session.Volume(),
	})
}

// HandleAudioStatus handles GET /api/sessions/{id}/audio/status.
func (h *SessionHandler) HandleAudioStatus(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	playback := e.session.Playback()
	writeJSON(w, http.StatusOK, AudioStatusResponse{
		IsPlaying: playback.IsPlaying,
		IsLoading: playback.IsLoading,
		Volume:    e.session.Volume(),
		LastError: e.session.LastError(),
	})
}
