package api

import (
	"net/http"
)

func (s *Server) handleConversionStats(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil || s.metrics.Stats == nil {
		jsonError(w, "conversion stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"window_seconds": int(s.cfg.StatsWindow.Seconds()),
		"queue_depth":    s.orchestrator.QueueDepth(),
		"pairs":          s.metrics.Stats.Snapshot(),
	})
}
