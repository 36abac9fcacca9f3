// Package signal manages the lifecycle of SOS distress signals raised by
// field clients and of command-initiated broadcast alerts, including the
// time-windowed visibility rules applied at read time.
package signal

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sreenidhis29/niyantrana-sos/internal/geo"
	"github.com/sreenidhis29/niyantrana-sos/internal/mission"
	"github.com/sreenidhis29/niyantrana-sos/internal/store"
)

// Status of one SOS signal. Acknowledged and deployed are terminal.
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusDeployed     Status = "deployed"
)

// AlertStatus of the broadcast alert singleton.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
)

const (
	// SOSVisibilityWindow bounds how long an active signal surfaces on the
	// command display.
	SOSVisibilityWindow = 30 * time.Second
	// AlertVisibilityWindow bounds how long an active broadcast alert
	// surfaces on field clients.
	AlertVisibilityWindow = 120 * time.Second
	// IncircleRadiusMeters is the scatter radius of the map marker placed
	// around a surfaced signal.
	IncircleRadiusMeters = 200.0
)

// ErrInvalidTransition is returned on any state-machine misuse, including
// transitions on unknown signal ids. Callers treat it as a no-op.
var ErrInvalidTransition = errors.New("invalid signal transition")

// SOSSignal is a distress event. Records are append-only; expired signals
// stop surfacing but are never deleted.
type SOSSignal struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Type      string    `json:"type"`
	Snapshot  string    `json:"snapshot,omitempty"`
}

// BroadcastAlert is the command-to-field alert singleton; the latest raise
// overwrites the previous one.
type BroadcastAlert struct {
	ID        string      `json:"id"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
	Status    AlertStatus `json:"status"`
}

// DispatchFunc routes a response unit to the given destination. Injected by
// the wiring layer; geofence validation applies there as for any dispatch.
type DispatchFunc func(ctx context.Context, dest geo.LatLng) error

// Manager owns the SOS and broadcast-alert state machines.
type Manager struct {
	mu      sync.Mutex
	signals map[string]*SOSSignal
	order   []string
	markers map[string]geo.LatLng
	alert   *BroadcastAlert

	store    *store.Client
	journal  *mission.Log
	log      zerolog.Logger
	dispatch DispatchFunc
	rng      *rand.Rand
	now      func() time.Time
}

// NewManager wires the lifecycle manager to its collaborators.
func NewManager(st *store.Client, journal *mission.Log, dispatch DispatchFunc, log zerolog.Logger) *Manager {
	return &Manager{
		signals:  make(map[string]*SOSSignal),
		markers:  make(map[string]geo.LatLng),
		store:    st,
		journal:  journal,
		log:      log,
		dispatch: dispatch,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// RaiseSOS records a new distress signal. Client-originated, so it always
// succeeds; the incircle marker is rolled once here, not on every render.
func (m *Manager) RaiseSOS(ctx context.Context, lat, lng float64, sosType, snapshot string) SOSSignal {
	m.mu.Lock()
	sig := &SOSSignal{
		ID:        fmt.Sprintf("sos-%s", uuid.New().String()),
		CreatedAt: m.now().UTC(),
		Status:    StatusActive,
		Lat:       lat,
		Lng:       lng,
		Type:      sosType,
		Snapshot:  snapshot,
	}
	m.signals[sig.ID] = sig
	m.order = append(m.order, sig.ID)
	m.markers[sig.ID] = geo.RandomPointInCircle(m.rng, geo.LatLng{Lat: lat, Lng: lng}, IncircleRadiusMeters)
	snapshotCopy := *sig
	m.mu.Unlock()

	m.journal.Append(mission.SeverityError,
		"CRITICAL SOS [%s]: LAT:%.4f LNG:%.4f // STATUS: ACTIVE", shortID(sig.ID), lat, lng)
	m.store.Publish(ctx, store.CollectionSignals, sig.ID, snapshotCopy)

	m.log.Info().Str("signal_id", sig.ID).Str("type", sosType).Msg("sos signal raised")
	return snapshotCopy
}

// Acknowledge transitions an active signal to acknowledged. Terminal states
// and unknown ids fail with ErrInvalidTransition and change nothing.
func (m *Manager) Acknowledge(ctx context.Context, signalID string) (SOSSignal, error) {
	return m.transition(ctx, signalID, StatusAcknowledged, func(sig SOSSignal) {
		m.journal.Append(mission.SeverityInfo, "SOS ACKNOWLEDGED [%s]. POSITION MARKED.", shortID(sig.ID))
	})
}

// Deploy transitions an active signal to deployed and triggers exactly one
// dispatch of the first available idle unit to the signal coordinates. The
// transition stands even if that dispatch is rejected; the failure is
// journaled for the operator.
func (m *Manager) Deploy(ctx context.Context, signalID string) (SOSSignal, error) {
	sig, err := m.transition(ctx, signalID, StatusDeployed, func(sig SOSSignal) {
		m.journal.Append(mission.SeverityWarning, "HEAVY RESCUE DISPATCHED TO SOS COORDINATES.")
	})
	if err != nil {
		return sig, err
	}

	if err := m.dispatch(ctx, geo.LatLng{Lat: sig.Lat, Lng: sig.Lng}); err != nil {
		m.journal.Append(mission.SeverityError, "AUTO-DISPATCH FAILED: %v", err)
		m.log.Warn().Err(err).Str("signal_id", sig.ID).Msg("auto-dispatch on deploy failed")
	}
	return sig, nil
}

func (m *Manager) transition(ctx context.Context, signalID string, to Status, journal func(SOSSignal)) (SOSSignal, error) {
	m.mu.Lock()
	sig, ok := m.signals[signalID]
	if !ok {
		m.mu.Unlock()
		return SOSSignal{}, fmt.Errorf("%w: no signal %s", ErrInvalidTransition, signalID)
	}
	if sig.Status != StatusActive {
		status := sig.Status
		m.mu.Unlock()
		return SOSSignal{}, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, signalID, status)
	}
	sig.Status = to
	snapshot := *sig
	m.mu.Unlock()

	journal(snapshot)
	m.store.Publish(ctx, store.CollectionSignals, snapshot.ID, snapshot)
	return snapshot, nil
}

// ActiveSignals returns the signals currently eligible for operator display:
// still active and younger than the visibility window. Evaluated lazily at
// read time; nothing expires records.
func (m *Manager) ActiveSignals() []SOSSignal {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var out []SOSSignal
	for _, id := range m.order {
		sig := m.signals[id]
		if sig.Status == StatusActive && now.Sub(sig.CreatedAt) < SOSVisibilityWindow {
			out = append(out, *sig)
		}
	}
	return out
}

// Marker returns the memoized incircle scatter point for a signal.
func (m *Manager) Marker(signalID string) (geo.LatLng, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.markers[signalID]
	return p, ok
}

// RaiseBroadcast creates or overwrites the broadcast alert singleton.
func (m *Manager) RaiseBroadcast(ctx context.Context, message string) BroadcastAlert {
	m.mu.Lock()
	alert := &BroadcastAlert{
		ID:        fmt.Sprintf("alert-%s", uuid.New().String()),
		Message:   message,
		CreatedAt: m.now().UTC(),
		Status:    AlertActive,
	}
	m.alert = alert
	snapshot := *alert
	m.mu.Unlock()

	m.journal.Append(mission.SeverityInfo, "BROADCAST ALERT SENT TO MOBILE.")
	m.store.Publish(ctx, store.CollectionAlerts, "latest", snapshot)
	return snapshot
}

// AcknowledgeBroadcast marks the live alert acknowledged.
func (m *Manager) AcknowledgeBroadcast(ctx context.Context) (BroadcastAlert, error) {
	m.mu.Lock()
	if m.alert == nil || m.alert.Status != AlertActive {
		m.mu.Unlock()
		return BroadcastAlert{}, fmt.Errorf("%w: no active broadcast alert", ErrInvalidTransition)
	}
	m.alert.Status = AlertAcknowledged
	snapshot := *m.alert
	m.mu.Unlock()

	m.store.Publish(ctx, store.CollectionAlerts, "latest", snapshot)
	return snapshot, nil
}

// ActiveAlert returns the alert if it is still eligible for field display.
func (m *Manager) ActiveAlert() (BroadcastAlert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alert == nil || m.alert.Status != AlertActive {
		return BroadcastAlert{}, false
	}
	if m.now().Sub(m.alert.CreatedAt) >= AlertVisibilityWindow {
		return BroadcastAlert{}, false
	}
	return *m.alert, true
}

func shortID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}
