package server

import (
	"errors"
	"net/http"

	"github.com/sreenidhis29/niyantrana-sos/internal/signal"

	"github.com/go-chi/chi/v5"
)

// handleRaiseSOS godoc
// @Title Raise SOS
// @Description Records a distress signal. Raising never fails validation on
// grounds of duplication; every call mints a new signal.
// @Resource Signals
// @Accept json
// @Produce json
// @Param request body RaiseSOSRequest true "Distress payload"
// @Success 201 {object} SignalMutationResponse
// @Failure 400 {object} APIError
// @Route /v1/sos [post]
func (s *Server) handleRaiseSOS(w http.ResponseWriter, r *http.Request) {
	var req RaiseSOSRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	sig := s.signals.RaiseSOS(r.Context(), req.Lat, req.Lng, req.Type, req.Snapshot)
	sosSignalsTotal.WithLabelValues("raised").Inc()
	s.writeJSON(w, http.StatusCreated, SignalMutationResponse{
		Signal:    s.mapSignal(sig),
		Persisted: s.persisted(),
	})
}

// handleActiveSignals godoc
// @Title Active signals
// @Description Returns signals still inside their visibility window, oldest first.
// @Resource Signals
// @Produce json
// @Success 200 {array} SignalResponse
// @Route /v1/sos/active [get]
func (s *Server) handleActiveSignals(w http.ResponseWriter, r *http.Request) {
	active := s.signals.ActiveSignals()
	resp := make([]SignalResponse, 0, len(active))
	for _, sig := range active {
		resp = append(resp, s.mapSignal(sig))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAcknowledgeSOS godoc
// @Title Acknowledge SOS
// @Description Marks an active signal acknowledged. Only active signals transition.
// @Resource Signals
// @Produce json
// @Success 200 {object} SignalMutationResponse
// @Failure 409 {object} APIError
// @Route /v1/sos/{signalID}/acknowledge [post]
func (s *Server) handleAcknowledgeSOS(w http.ResponseWriter, r *http.Request) {
	sig, err := s.signals.Acknowledge(r.Context(), chi.URLParam(r, "signalID"))
	if err != nil {
		s.writeSignalError(w, err)
		return
	}
	sosSignalsTotal.WithLabelValues("acknowledged").Inc()
	s.writeJSON(w, http.StatusOK, SignalMutationResponse{
		Signal:    s.mapSignal(sig),
		Persisted: s.persisted(),
	})
}

// handleDeploySOS godoc
// @Title Deploy to SOS
// @Description Marks an active signal deployed and routes the first idle unit
// to its coordinates. The transition stands even when no unit can respond.
// @Resource Signals
// @Produce json
// @Success 200 {object} SignalMutationResponse
// @Failure 409 {object} APIError
// @Route /v1/sos/{signalID}/deploy [post]
func (s *Server) handleDeploySOS(w http.ResponseWriter, r *http.Request) {
	sig, err := s.signals.Deploy(r.Context(), chi.URLParam(r, "signalID"))
	if err != nil {
		s.writeSignalError(w, err)
		return
	}
	sosSignalsTotal.WithLabelValues("deployed").Inc()
	s.writeJSON(w, http.StatusOK, SignalMutationResponse{
		Signal:    s.mapSignal(sig),
		Persisted: s.persisted(),
	})
}

// handleSignalMarker godoc
// @Title Signal incircle marker
// @Description Returns the stable randomized marker shown inside the signal's
// uncertainty circle. The marker is rolled once per signal.
// @Resource Signals
// @Produce json
// @Success 200 {object} GeoPoint
// @Failure 404 {object} APIError
// @Route /v1/sos/{signalID}/marker [get]
func (s *Server) handleSignalMarker(w http.ResponseWriter, r *http.Request) {
	marker, ok := s.signals.Marker(chi.URLParam(r, "signalID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, errSignalNotFound, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, GeoPoint{Lat: marker.Lat, Lng: marker.Lng})
}

// handleRaiseAlert godoc
// @Title Raise broadcast alert
// @Description Publishes the command-to-field alert. A new raise overwrites
// the previous alert regardless of its state.
// @Resource Alerts
// @Accept json
// @Produce json
// @Param request body RaiseAlertRequest true "Alert message"
// @Success 201 {object} AlertMutationResponse
// @Failure 400 {object} APIError
// @Route /v1/alerts [post]
func (s *Server) handleRaiseAlert(w http.ResponseWriter, r *http.Request) {
	var req RaiseAlertRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	alert := s.signals.RaiseBroadcast(r.Context(), req.Message)
	broadcastAlertsTotal.WithLabelValues("raised").Inc()
	s.writeJSON(w, http.StatusCreated, AlertMutationResponse{
		Alert:     mapAlert(alert),
		Persisted: s.persisted(),
	})
}

// handleActiveAlert godoc
// @Title Active alert
// @Description Returns the broadcast alert if it is still inside its
// visibility window, null otherwise.
// @Resource Alerts
// @Produce json
// @Success 200 {object} ActiveAlertResponse
// @Route /v1/alerts/active [get]
func (s *Server) handleActiveAlert(w http.ResponseWriter, r *http.Request) {
	alert, ok := s.signals.ActiveAlert()
	if !ok {
		s.writeJSON(w, http.StatusOK, ActiveAlertResponse{})
		return
	}
	mapped := mapAlert(alert)
	s.writeJSON(w, http.StatusOK, ActiveAlertResponse{Alert: &mapped})
}

// handleAcknowledgeAlert godoc
// @Title Acknowledge alert
// @Description Acknowledges the active broadcast alert.
// @Resource Alerts
// @Produce json
// @Success 200 {object} AlertMutationResponse
// @Failure 409 {object} APIError
// @Route /v1/alerts/acknowledge [post]
func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := s.signals.AcknowledgeBroadcast(r.Context())
	if err != nil {
		s.writeSignalError(w, err)
		return
	}
	broadcastAlertsTotal.WithLabelValues("acknowledged").Inc()
	s.writeJSON(w, http.StatusOK, AlertMutationResponse{
		Alert:     mapAlert(alert),
		Persisted: s.persisted(),
	})
}

func (s *Server) writeSignalError(w http.ResponseWriter, err error) {
	if errors.Is(err, signal.ErrInvalidTransition) {
		s.writeError(w, http.StatusConflict, "invalid signal transition", err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, "signal operation failed", err.Error())
}
