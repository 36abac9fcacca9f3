package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sreenidhis29/niyantrana-sos/internal/config"
	"github.com/sreenidhis29/niyantrana-sos/internal/geo"
	"github.com/sreenidhis29/niyantrana-sos/internal/mission"
	"github.com/sreenidhis29/niyantrana-sos/internal/store"
)

func newTestRegistry(t *testing.T, missionID string) (*Registry, *mission.Log) {
	t.Helper()
	st := store.New(context.Background(), config.StoreConfig{KeyPrefix: "test"}, zerolog.Nop())
	journal := mission.NewLog()
	r := NewRegistry(st, journal, zerolog.Nop())

	m, ok := mission.ByID(missionID)
	if !ok {
		t.Fatalf("unknown mission %q", missionID)
	}
	r.Reset(context.Background(), m)
	return r, journal
}

func TestRequestDispatchUnknownUnit(t *testing.T) {
	r, journal := newTestRegistry(t, "beta")

	_, _, err := r.RequestDispatch(context.Background(), "ghost", geo.LatLng{Lat: 1, Lng: 1})
	if !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}

	entries := journal.Entries()
	if len(entries) != 1 || entries[0].Severity != mission.SeverityError {
		t.Errorf("expected one error log entry, got %+v", entries)
	}
}

func TestRequestDispatchGeofence(t *testing.T) {
	r, journal := newTestRegistry(t, "alpha")
	anchor := geo.LatLng{Lat: 13.0118, Lng: 77.5552}

	// Distance zero from the anchor: accepted.
	u, _, err := r.RequestDispatch(context.Background(), "u1", anchor)
	if err != nil {
		t.Fatalf("in-range dispatch rejected: %v", err)
	}
	if u.Status != StatusDispatched {
		t.Errorf("status = %s, want dispatched", u.Status)
	}
	if u.TargetPos == nil || *u.TargetPos != anchor {
		t.Errorf("target = %v, want %v", u.TargetPos, anchor)
	}

	// ~1.1km away: rejected, registry untouched.
	far := geo.LatLng{Lat: 13.02, Lng: 77.56}
	_, _, err = r.RequestDispatch(context.Background(), "u2", far)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	u2, _ := r.Unit("u2")
	if u2.Status != StatusIdle || u2.TargetPos != nil || u2.CurrentPos != nil {
		t.Errorf("rejected dispatch mutated the registry: %+v", u2)
	}

	var sawError bool
	for _, e := range journal.Entries() {
		if e.Severity == mission.SeverityError {
			sawError = true
		}
	}
	if !sawError {
		t.Error("geofence rejection should append an error log entry")
	}
}

func TestRequestDispatchUnrestrictedMission(t *testing.T) {
	r, _ := newTestRegistry(t, "beta")

	// beta carries no geofence rule; anywhere is accepted.
	dest := geo.LatLng{Lat: 48.8566, Lng: 2.3522}
	if _, _, err := r.RequestDispatch(context.Background(), "u1", dest); err != nil {
		t.Fatalf("unrestricted dispatch rejected: %v", err)
	}
}

func TestRequestDispatchIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t, "beta")
	dest := geo.LatLng{Lat: 11.75, Lng: 79.77}

	published := 0
	r.Observe(func(Unit) { published++ })

	for i := 0; i < 2; i++ {
		u, _, err := r.RequestDispatch(context.Background(), "u1", dest)
		if err != nil {
			t.Fatalf("dispatch %d failed: %v", i, err)
		}
		if *u.TargetPos != dest {
			t.Errorf("dispatch %d target %v, want %v", i, u.TargetPos, dest)
		}
	}
	if published != 2 {
		t.Errorf("expected both dispatches re-published, observers fired %d times", published)
	}
}

func TestFirstDispatchSnapsCurrentToDestination(t *testing.T) {
	r, _ := newTestRegistry(t, "beta")
	dest := geo.LatLng{Lat: 11.75, Lng: 79.77}

	u, _, err := r.RequestDispatch(context.Background(), "u3", dest)
	if err != nil {
		t.Fatal(err)
	}
	if u.CurrentPos == nil || *u.CurrentPos != dest {
		t.Errorf("first dispatch should place the unit at the destination, got %v", u.CurrentPos)
	}
}

func TestSetDisplayedPositionIsCosmetic(t *testing.T) {
	r, _ := newTestRegistry(t, "beta")
	dest := geo.LatLng{Lat: 11.75, Lng: 79.77}
	if _, _, err := r.RequestDispatch(context.Background(), "u1", dest); err != nil {
		t.Fatal(err)
	}

	mid := geo.LatLng{Lat: 11.74, Lng: 79.76}
	r.SetDisplayedPosition(context.Background(), "u1", mid)

	u, _ := r.Unit("u1")
	if *u.CurrentPos != mid {
		t.Errorf("displayed position not applied: %v", u.CurrentPos)
	}
	if u.Status != StatusDispatched || *u.TargetPos != dest {
		t.Error("displayed-position write must not touch status or target")
	}
}

func TestFirstIdleFollowsRegistryOrder(t *testing.T) {
	r, _ := newTestRegistry(t, "beta")

	u, ok := r.FirstIdle()
	if !ok || u.ID != "u1" {
		t.Fatalf("expected u1 first, got %+v ok=%v", u, ok)
	}

	if _, _, err := r.RequestDispatch(context.Background(), "u1", geo.LatLng{Lat: 1, Lng: 1}); err != nil {
		t.Fatal(err)
	}
	u, ok = r.FirstIdle()
	if !ok || u.ID != "u2" {
		t.Fatalf("expected u2 after u1 dispatched, got %+v ok=%v", u, ok)
	}
}

func TestResetRestoresRoster(t *testing.T) {
	r, _ := newTestRegistry(t, "beta")
	if _, _, err := r.RequestDispatch(context.Background(), "u1", geo.LatLng{Lat: 1, Lng: 1}); err != nil {
		t.Fatal(err)
	}

	m, _ := mission.ByID("alpha")
	r.Reset(context.Background(), m)

	for _, u := range r.Units() {
		if u.Status != StatusIdle || u.CurrentPos != nil || u.TargetPos != nil {
			t.Errorf("unit %s not reset: %+v", u.ID, u)
		}
	}
}
