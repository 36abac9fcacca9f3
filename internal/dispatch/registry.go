// Package dispatch owns the authoritative unit registry, geofence validation
// of dispatch orders, and the cosmetic position interpolation that eases
// displayed unit positions toward their targets.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sreenidhis29/niyantrana-sos/internal/geo"
	"github.com/sreenidhis29/niyantrana-sos/internal/mission"
	"github.com/sreenidhis29/niyantrana-sos/internal/store"
)

// Category classifies a dispatchable unit.
type Category string

const (
	CategoryRescue  Category = "rescue"
	CategoryMedical Category = "medical"
	CategoryPolice  Category = "police"
	CategoryAir     Category = "air"
)

// Status is the unit lifecycle state. Dispatch always sets StatusDispatched.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusEnRoute    Status = "en_route"
	StatusOnScene    Status = "on_scene"
	StatusDispatched Status = "dispatched"
)

// Unit is one dispatchable resource. CurrentPos and TargetPos are nil before
// the first dispatch; if Status is dispatched, TargetPos is always set.
type Unit struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Category   Category    `json:"category"`
	Status     Status      `json:"status"`
	CurrentPos *geo.LatLng `json:"current_pos"`
	TargetPos  *geo.LatLng `json:"target_pos"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

var (
	// ErrUnknownUnit is returned when a dispatch names a unit outside the registry.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrOutOfRange is returned when a dispatch target violates the mission geofence.
	ErrOutOfRange = errors.New("dispatch target out of range")
)

// defaultRoster seeds every mission. Units are never deleted mid-mission,
// only reset when a new mission is selected.
var defaultRoster = []Unit{
	{ID: "u1", Name: "Fire-Ladder", Category: CategoryRescue, Status: StatusIdle},
	{ID: "u2", Name: "Rescue-Boat", Category: CategoryRescue, Status: StatusIdle},
	{ID: "u3", Name: "Med-Response", Category: CategoryMedical, Status: StatusIdle},
}

// Registry holds authoritative unit records for the active mission.
type Registry struct {
	mu       sync.Mutex
	order    []string
	units    map[string]*Unit
	geofence *mission.GeofenceRule

	store     *store.Client
	journal   *mission.Log
	log       zerolog.Logger
	observers []func(Unit)
	now       func() time.Time
}

// NewRegistry creates a registry seeded with the default roster and no geofence.
func NewRegistry(st *store.Client, journal *mission.Log, log zerolog.Logger) *Registry {
	r := &Registry{
		units:   make(map[string]*Unit),
		store:   st,
		journal: journal,
		log:     log,
		now:     time.Now,
	}
	r.seed()
	return r
}

func (r *Registry) seed() {
	r.order = r.order[:0]
	r.units = make(map[string]*Unit)
	for _, u := range defaultRoster {
		unit := u
		unit.UpdatedAt = r.now().UTC()
		r.order = append(r.order, unit.ID)
		r.units[unit.ID] = &unit
	}
}

// Reset re-seeds the roster for a new mission and installs its geofence rule.
// The caller is responsible for cancelling in-flight interpolations first.
func (r *Registry) Reset(ctx context.Context, m mission.Mission) {
	r.mu.Lock()
	r.geofence = m.Geofence
	r.seed()
	snapshots := r.snapshotLocked()
	r.mu.Unlock()

	for _, u := range snapshots {
		r.store.Publish(ctx, store.CollectionUnits, u.ID, u)
	}
}

// Observe registers a callback invoked with the updated unit after every
// accepted dispatch, strictly after the store publish.
func (r *Registry) Observe(fn func(Unit)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// RequestDispatch validates and records a dispatch order. Rejections are
// side-effect-free apart from the mission log entry. Re-dispatching a unit to
// the same destination is accepted and re-published (last-write-wins).
func (r *Registry) RequestDispatch(ctx context.Context, unitID string, dest geo.LatLng) (Unit, bool, error) {
	r.mu.Lock()

	u, ok := r.units[unitID]
	if !ok {
		r.mu.Unlock()
		r.journal.Append(mission.SeverityError, "DISPATCH FAILED: unit %s not in registry.", unitID)
		return Unit{}, false, fmt.Errorf("%w: %s", ErrUnknownUnit, unitID)
	}

	if rule := r.geofence; rule != nil {
		if d := geo.DistanceMeters(dest, rule.Anchor); d > rule.MaxRangeMeters {
			name := u.Name
			r.mu.Unlock()
			r.journal.Append(mission.SeverityError,
				"DISPATCH FAILED: %s outside %.0fm ops range.", name, rule.MaxRangeMeters)
			return Unit{}, false, fmt.Errorf("%w: %.0fm from anchor, limit %.0fm", ErrOutOfRange, d, rule.MaxRangeMeters)
		}
	}

	u.Status = StatusDispatched
	if u.CurrentPos == nil {
		// First dispatch: the unit appears at the destination and the
		// interpolator degenerates to a single placement.
		cp := dest
		u.CurrentPos = &cp
	}
	tp := dest
	u.TargetPos = &tp
	u.UpdatedAt = r.now().UTC()
	snapshot := *u
	observers := make([]func(Unit), len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	r.journal.Append(mission.SeverityWarning,
		"UNIT DISPATCHED: %s -> LAT: %.4f, LNG: %.4f", snapshot.Name, dest.Lat, dest.Lng)
	persisted := r.store.Publish(ctx, store.CollectionUnits, snapshot.ID, snapshot)

	for _, fn := range observers {
		fn(snapshot)
	}

	r.log.Info().
		Str("unit_id", snapshot.ID).
		Float64("lat", dest.Lat).
		Float64("lng", dest.Lng).
		Bool("persisted", persisted).
		Msg("unit dispatched")

	return snapshot, persisted, nil
}

// SetDisplayedPosition writes the cosmetic, animated position of a unit. It
// never touches status or target; those belong to RequestDispatch.
func (r *Registry) SetDisplayedPosition(ctx context.Context, unitID string, pos geo.LatLng) {
	r.mu.Lock()
	u, ok := r.units[unitID]
	if !ok {
		r.mu.Unlock()
		return
	}
	cp := pos
	u.CurrentPos = &cp
	snapshot := *u
	r.mu.Unlock()

	r.store.Publish(ctx, store.CollectionUnits, snapshot.ID, snapshot)
}

// Unit returns a copy of one unit record.
func (r *Registry) Unit(id string) (Unit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[id]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// Units returns copies of all units in registry iteration order.
func (r *Registry) Units() []Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// FirstIdle returns the first idle unit in registry order, if any. This is the
// deliberately naive selection policy used for SOS auto-deployment.
func (r *Registry) FirstIdle() (Unit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if u := r.units[id]; u.Status == StatusIdle {
			return *u, true
		}
	}
	return Unit{}, false
}

func (r *Registry) snapshotLocked() []Unit {
	out := make([]Unit, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.units[id])
	}
	return out
}
