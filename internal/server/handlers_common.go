package server

import (
	"encoding/json"
	"net/http"
)

type APIError struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

const (
	errInvalidPayload   = "invalid payload"
	errMissionNotFound  = "mission not found"
	errUnitNotFound     = "unit not found"
	errSignalNotFound   = "signal not found"
	errDispatchRejected = "dispatch target out of range"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, details interface{}) {
	s.writeJSON(w, status, APIError{Error: message, Details: details})
}

func (s *Server) decodeAndValidate(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := s.validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// persisted reports whether mutations in this process reach the backing store.
// Simulated mode keeps the engine fully functional in memory; responses carry
// the flag so clients can tell the difference.
func (s *Server) persisted() bool {
	return !s.store.Simulated()
}
