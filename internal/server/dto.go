package server

import (
	"time"

	"github.com/sreenidhis29/niyantrana-sos/internal/dispatch"
	"github.com/sreenidhis29/niyantrana-sos/internal/geo"
	"github.com/sreenidhis29/niyantrana-sos/internal/signal"
)

type HealthResponse struct {
	Status string `json:"status"`
	Env    string `json:"env"`
	Uptime string `json:"uptime"`
	Store  string `json:"store"`
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type UnitResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	CurrentPos *GeoPoint `json:"current_pos"`
	TargetPos  *GeoPoint `json:"target_pos"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type DispatchRequest struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

type DispatchResponse struct {
	Unit      UnitResponse `json:"unit"`
	Persisted bool         `json:"persisted"`
}

type RaiseSOSRequest struct {
	Lat      float64 `json:"lat" validate:"latitude"`
	Lng      float64 `json:"lng" validate:"longitude"`
	Type     string  `json:"type" validate:"required,max=32"`
	Snapshot string  `json:"snapshot" validate:"omitempty,max=2000000"`
}

type SignalResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Type      string    `json:"type"`
	Snapshot  string    `json:"snapshot,omitempty"`
	Marker    *GeoPoint `json:"marker,omitempty"`
}

type SignalMutationResponse struct {
	Signal    SignalResponse `json:"signal"`
	Persisted bool           `json:"persisted"`
}

type RaiseAlertRequest struct {
	Message string `json:"message" validate:"required,max=500"`
}

type AlertResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}

type AlertMutationResponse struct {
	Alert     AlertResponse `json:"alert"`
	Persisted bool          `json:"persisted"`
}

type ActiveAlertResponse struct {
	Alert *AlertResponse `json:"alert"`
}

type PushKeyResponse struct {
	PublicKey  string `json:"public_key"`
	Configured bool   `json:"configured"`
}

type PushKeysRequest struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

type PushSubscriptionRequest struct {
	Endpoint string          `json:"endpoint" validate:"required,url"`
	Keys     PushKeysRequest `json:"keys"`
}

type PushSubscriptionResponse struct {
	Key       string    `json:"key"`
	UpdatedAt time.Time `json:"updated_at"`
	Persisted bool      `json:"persisted"`
}

type PushMessageRequest struct {
	Title   string `json:"title" validate:"required,max=120"`
	Message string `json:"message" validate:"required,max=1000"`
	URL     string `json:"url" validate:"omitempty"`
}

type PushSendRequest struct {
	Endpoint string             `json:"endpoint" validate:"required,url"`
	Data     PushMessageRequest `json:"data"`
}

func mapGeoPoint(p *geo.LatLng) *GeoPoint {
	if p == nil {
		return nil
	}
	return &GeoPoint{Lat: p.Lat, Lng: p.Lng}
}

func mapUnit(u dispatch.Unit) UnitResponse {
	return UnitResponse{
		ID:         u.ID,
		Name:       u.Name,
		Category:   string(u.Category),
		Status:     string(u.Status),
		CurrentPos: mapGeoPoint(u.CurrentPos),
		TargetPos:  mapGeoPoint(u.TargetPos),
		UpdatedAt:  u.UpdatedAt,
	}
}

func (s *Server) mapSignal(sig signal.SOSSignal) SignalResponse {
	resp := SignalResponse{
		ID:        sig.ID,
		CreatedAt: sig.CreatedAt,
		Status:    string(sig.Status),
		Lat:       sig.Lat,
		Lng:       sig.Lng,
		Type:      sig.Type,
		Snapshot:  sig.Snapshot,
	}
	if marker, ok := s.signals.Marker(sig.ID); ok {
		resp.Marker = &GeoPoint{Lat: marker.Lat, Lng: marker.Lng}
	}
	return resp
}

func mapAlert(a signal.BroadcastAlert) AlertResponse {
	return AlertResponse{
		ID:        a.ID,
		Message:   a.Message,
		CreatedAt: a.CreatedAt,
		Status:    string(a.Status),
	}
}
