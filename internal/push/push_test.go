package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"github.com/sreenidhis29/niyantrana-sos/internal/config"
	"github.com/sreenidhis29/niyantrana-sos/internal/store"
)

type fakeSender struct {
	mu        sync.Mutex
	attempted []string
	failFor   map[string]bool
}

func (f *fakeSender) Send(_ context.Context, sub webpush.Subscription, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempted = append(f.attempted, sub.Endpoint)
	if f.failFor[sub.Endpoint] {
		return errors.New("endpoint gone")
	}
	return nil
}

func newTestService(sender Sender) *Service {
	st := store.New(context.Background(), config.StoreConfig{KeyPrefix: "test"}, zerolog.Nop())
	s := New(config.PushConfig{SendTimeout: time.Second}, st, zerolog.Nop())
	if sender != nil {
		s.sender = sender
		s.configured = true
	}
	return s
}

func TestBroadcastToleratesPartialFailure(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{
		"https://push.example/ep-1": true,
		"https://push.example/ep-3": true,
	}}
	s := newTestService(sender)

	for i := 0; i < 5; i++ {
		s.Register(context.Background(), webpush.Subscription{
			Endpoint: fmt.Sprintf("https://push.example/ep-%d", i),
		})
	}

	res := s.Broadcast(context.Background(), Payload{Title: "Niyantrana Alert", Message: "EVACUATE", URL: "/victim"})
	if res.Delivered != 3 || res.Failed != 2 {
		t.Errorf("got delivered=%d failed=%d, want 3/2", res.Delivered, res.Failed)
	}
	if res.Simulated {
		t.Error("configured broadcast reported simulated")
	}
	if len(sender.attempted) != 5 {
		t.Errorf("attempted %d endpoints, want all 5 (no early abort)", len(sender.attempted))
	}

	// Failed endpoints are left registered.
	if s.Count() != 5 {
		t.Errorf("registry shrank to %d after failures", s.Count())
	}
}

func TestBroadcastSimulatedWithoutCredentials(t *testing.T) {
	s := newTestService(nil)
	s.Register(context.Background(), webpush.Subscription{Endpoint: "https://push.example/ep"})

	res := s.Broadcast(context.Background(), Payload{Title: "t", Message: "m", URL: "/"})
	if !res.Simulated || res.Delivered != 0 || res.Failed != 0 {
		t.Errorf("unconfigured broadcast should trivially succeed, got %+v", res)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	s := newTestService(&fakeSender{})

	sub := webpush.Subscription{Endpoint: "https://push.example/device"}
	first := s.Register(context.Background(), sub)
	second := s.Register(context.Background(), sub)

	if first.Key != second.Key {
		t.Errorf("same endpoint produced different keys: %s vs %s", first.Key, second.Key)
	}
	if s.Count() != 1 {
		t.Errorf("duplicate registration grew the registry to %d", s.Count())
	}
}

func TestEndpointKeyStableAndBounded(t *testing.T) {
	k1 := EndpointKey("https://push.example/device")
	k2 := EndpointKey("https://push.example/device")
	if k1 != k2 {
		t.Error("key derivation is not deterministic")
	}
	if len(k1) > 50 {
		t.Errorf("key length %d exceeds document id limit", len(k1))
	}
	if EndpointKey("https://push.example/other") == k1 {
		t.Error("distinct endpoints collided")
	}
}

func TestSendSingleTarget(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"https://push.example/dead": true}}
	s := newTestService(sender)

	s.Register(context.Background(), webpush.Subscription{Endpoint: "https://push.example/live"})
	s.Register(context.Background(), webpush.Subscription{Endpoint: "https://push.example/dead"})

	if err := s.Send(context.Background(), "https://push.example/live", Payload{}); err != nil {
		t.Errorf("delivery to live endpoint failed: %v", err)
	}
	if err := s.Send(context.Background(), "https://push.example/dead", Payload{}); !errors.Is(err, ErrDeliveryFailure) {
		t.Errorf("expected ErrDeliveryFailure, got %v", err)
	}
	if err := s.Send(context.Background(), "https://push.example/unknown", Payload{}); !errors.Is(err, ErrDeliveryFailure) {
		t.Errorf("unregistered endpoint should fail delivery, got %v", err)
	}
}

func TestSendSimulatedWithoutCredentials(t *testing.T) {
	s := newTestService(nil)
	if err := s.Send(context.Background(), "https://push.example/any", Payload{}); err != nil {
		t.Errorf("unconfigured send should trivially succeed, got %v", err)
	}
}
