package server

import (
	"errors"
	"net/http"

	"github.com/sreenidhis29/niyantrana-sos/internal/dispatch"
	"github.com/sreenidhis29/niyantrana-sos/internal/geo"

	"github.com/go-chi/chi/v5"
)

// handleListUnits godoc
// @Title List units
// @Description Returns the active roster with live positions.
// @Resource Units
// @Produce json
// @Success 200 {array} UnitResponse
// @Route /v1/units [get]
func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	units := s.registry.Units()
	resp := make([]UnitResponse, 0, len(units))
	for _, u := range units {
		resp = append(resp, mapUnit(u))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleGetUnit godoc
// @Title Get unit
// @Description Returns one unit by id.
// @Resource Units
// @Produce json
// @Success 200 {object} UnitResponse
// @Failure 404 {object} APIError
// @Route /v1/units/{unitID} [get]
func (s *Server) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	u, ok := s.registry.Unit(chi.URLParam(r, "unitID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, errUnitNotFound, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, mapUnit(u))
}

// handleDispatchUnit godoc
// @Title Dispatch unit
// @Description Orders a unit to a destination. The target is validated against
// the mission geofence before any state changes.
// @Resource Units
// @Accept json
// @Produce json
// @Param request body DispatchRequest true "Destination coordinates"
// @Success 200 {object} DispatchResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 422 {object} APIError
// @Route /v1/units/{unitID}/dispatch [post]
func (s *Server) handleDispatchUnit(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	unitID := chi.URLParam(r, "unitID")
	unit, persisted, err := s.registry.RequestDispatch(r.Context(), unitID, geo.LatLng{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrUnknownUnit):
			dispatchOrdersTotal.WithLabelValues("unknown_unit").Inc()
			s.writeError(w, http.StatusNotFound, errUnitNotFound, err.Error())
		case errors.Is(err, dispatch.ErrOutOfRange):
			dispatchOrdersTotal.WithLabelValues("out_of_range").Inc()
			s.writeError(w, http.StatusUnprocessableEntity, errDispatchRejected, err.Error())
		default:
			dispatchOrdersTotal.WithLabelValues("error").Inc()
			s.writeError(w, http.StatusInternalServerError, "dispatch failed", err.Error())
		}
		return
	}

	dispatchOrdersTotal.WithLabelValues("accepted").Inc()
	s.writeJSON(w, http.StatusOK, DispatchResponse{Unit: mapUnit(unit), Persisted: persisted})
}
