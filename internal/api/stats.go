package api

import (
	"net/http"

	"tourflow/pkg/tracker"
)

// StatsHandler serves backend usage statistics.
type StatsHandler struct {
	tracker  *tracker.Tracker
	sessions *SessionHandler
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(t *tracker.Tracker, sessions *SessionHandler) *StatsHandler {
	return &StatsHandler{tracker: t, sessions: sessions}
}

// ProviderStatsDTO is one provider's counters plus the derived hit rate.
type ProviderStatsDTO struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	APISuccess  int64 `json:"api_success"`
	APIFailures int64 `json:"api_errors"`
	HitRate     int64 `json:"hit_rate"`
}

// StatsResponse is the GET /api/stats payload.
type StatsResponse struct {
	ActiveSessions int                         `json:"active_sessions"`
	Providers      map[string]ProviderStatsDTO `json:"providers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	resp := StatsResponse{
		ActiveSessions: h.sessions.Registry().Len(),
		Providers:      make(map[string]ProviderStatsDTO, len(snapshot)),
	}

	for name, s := range snapshot {
		dto := ProviderStatsDTO{
			CacheHits:   s.CacheHits,
			CacheMisses: s.CacheMisses,
			APISuccess:  s.APISuccess,
			APIFailures: s.APIFailures,
		}
		if total := s.CacheHits + s.CacheMisses; total > 0 {
			dto.HitRate = s.CacheHits * 100 / total
		}
		resp.Providers[name] = dto
	}

	writeJSON(w, http.StatusOK, resp)
}
