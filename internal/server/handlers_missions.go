package server

import (
	"net/http"

	"github.com/sreenidhis29/niyantrana-sos/internal/mission"

	"github.com/go-chi/chi/v5"
)

// handleListMissions godoc
// @Title List missions
// @Description Returns the incident catalog in declaration order.
// @Resource Missions
// @Produce json
// @Success 200 {array} mission.Mission
// @Route /v1/missions [get]
func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, mission.Catalog())
}

// handleGetMission godoc
// @Title Get mission
// @Description Returns one mission by id.
// @Resource Missions
// @Produce json
// @Success 200 {object} mission.Mission
// @Failure 404 {object} APIError
// @Route /v1/missions/{missionID} [get]
func (s *Server) handleGetMission(w http.ResponseWriter, r *http.Request) {
	m, ok := mission.ByID(chi.URLParam(r, "missionID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, errMissionNotFound, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// handleCurrentMission godoc
// @Title Current mission
// @Description Returns the mission the engine is tracking.
// @Resource Missions
// @Produce json
// @Success 200 {object} mission.Mission
// @Route /v1/missions/current [get]
func (s *Server) handleCurrentMission(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.currentMission())
}

// handleSelectMission godoc
// @Title Select mission
// @Description Switches the engine to a new incident context. The unit roster
// and mission log reset; SOS signals and push subscriptions survive.
// @Resource Missions
// @Produce json
// @Success 200 {object} mission.Mission
// @Failure 404 {object} APIError
// @Route /v1/missions/{missionID}/select [post]
func (s *Server) handleSelectMission(w http.ResponseWriter, r *http.Request) {
	m, ok := mission.ByID(chi.URLParam(r, "missionID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, errMissionNotFound, nil)
		return
	}
	s.selectMission(r.Context(), m)
	s.writeJSON(w, http.StatusOK, m)
}

// handleMissionLog godoc
// @Title Mission log
// @Description Returns the append-only mission log in insertion order.
// @Resource Missions
// @Produce json
// @Success 200 {array} mission.LogEntry
// @Route /v1/missions/log [get]
func (s *Server) handleMissionLog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.journal.Entries())
}
