package server

import (
	"net/http"
	"time"
)

// handleHealth godoc
// @Title Health check
// @Description Returns service health, uptime and store mode.
// @Resource System
// @Produce json
// @Success 200 {object} HealthResponse
// @Route /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	storeMode := "redis"
	if s.store.Simulated() {
		storeMode = "simulated"
	}
	payload := HealthResponse{
		Status: "ok",
		Env:    s.cfg.Env,
		Uptime: time.Since(s.startedAt).String(),
		Store:  storeMode,
	}
	s.writeJSON(w, http.StatusOK, payload)
}
