package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sreenidhis29/niyantrana-sos/internal/config"
)

func newSimulatedClient(t *testing.T) *Client {
	t.Helper()
	c := New(context.Background(), config.StoreConfig{KeyPrefix: "test"}, zerolog.Nop())
	if !c.Simulated() {
		t.Fatal("expected simulated mode without a store URL")
	}
	return c
}

func TestPublishDeliversToSubscribersInOrder(t *testing.T) {
	c := newSimulatedClient(t)

	var got []string
	c.Subscribe(CollectionUnits, func(ev Event) {
		var doc map[string]string
		if err := json.Unmarshal(ev.Data, &doc); err != nil {
			t.Fatalf("bad event payload: %v", err)
		}
		got = append(got, doc["name"])
	})

	ctx := context.Background()
	c.Publish(ctx, CollectionUnits, "u1", map[string]string{"name": "Fire-Ladder"})
	c.Publish(ctx, CollectionUnits, "u2", map[string]string{"name": "Rescue-Boat"})

	if len(got) != 2 || got[0] != "Fire-Ladder" || got[1] != "Rescue-Boat" {
		t.Errorf("events out of order or missing: %v", got)
	}
}

func TestPublishScopesByCollection(t *testing.T) {
	c := newSimulatedClient(t)

	units, signals := 0, 0
	c.Subscribe(CollectionUnits, func(Event) { units++ })
	c.Subscribe(CollectionSignals, func(Event) { signals++ })

	ctx := context.Background()
	c.Publish(ctx, CollectionUnits, "u1", map[string]int{"n": 1})
	c.Publish(ctx, CollectionSignals, "s1", map[string]int{"n": 2})
	c.Publish(ctx, CollectionSignals, "s2", map[string]int{"n": 3})

	if units != 1 || signals != 2 {
		t.Errorf("units=%d signals=%d, want 1 and 2", units, signals)
	}
}

func TestSimulatedPublishReportsNotPersisted(t *testing.T) {
	c := newSimulatedClient(t)
	if persisted := c.Publish(context.Background(), CollectionAlerts, "latest", map[string]string{}); persisted {
		t.Error("simulated publish must not report persistence")
	}
}
