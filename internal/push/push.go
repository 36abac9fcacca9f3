// Package push maintains the registry of web-push delivery endpoints and
// fans notification payloads out to them, tolerating partial failure.
package push

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"github.com/sreenidhis29/niyantrana-sos/internal/config"
	"github.com/sreenidhis29/niyantrana-sos/internal/store"
)

// ErrDeliveryFailure marks a failed delivery to a single endpoint. Fan-out
// never returns it; only the single-target Send does.
var ErrDeliveryFailure = errors.New("push delivery failed")

// Payload is the opaque notification body; the engine passes it through
// without interpreting it beyond serialization.
type Payload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// SubscriptionRecord is one registered delivery endpoint. The key is derived
// deterministically from the endpoint URL so re-registration is idempotent.
type SubscriptionRecord struct {
	Key          string               `json:"key"`
	Subscription webpush.Subscription `json:"subscription"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Result aggregates one fan-out pass. Simulated is set when no VAPID keys are
// configured and nothing was actually sent.
type Result struct {
	Delivered int  `json:"delivered"`
	Failed    int  `json:"failed"`
	Simulated bool `json:"simulated"`
}

// Sender performs one delivery attempt. Split out so tests can fake the wire.
type Sender interface {
	Send(ctx context.Context, sub webpush.Subscription, body []byte) error
}

type webpushSender struct {
	opts webpush.Options
}

func (s *webpushSender) Send(ctx context.Context, sub webpush.Subscription, body []byte) error {
	opts := s.opts
	resp, err := webpush.SendNotificationWithContext(ctx, body, &sub, &opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Service owns the subscription registry and delivery.
type Service struct {
	mu   sync.RWMutex
	subs map[string]SubscriptionRecord

	store      *store.Client
	log        zerolog.Logger
	sender     Sender
	publicKey  string
	configured bool
	timeout    time.Duration
}

// New builds the push service. Missing VAPID keys select simulated delivery.
func New(cfg config.PushConfig, st *store.Client, log zerolog.Logger) *Service {
	s := &Service{
		subs:       make(map[string]SubscriptionRecord),
		store:      st,
		log:        log,
		publicKey:  cfg.VAPIDPublicKey,
		configured: cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "",
		timeout:    cfg.SendTimeout,
	}
	if s.configured {
		s.sender = &webpushSender{opts: webpush.Options{
			Subscriber:      cfg.Subscriber,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             60,
		}}
	} else {
		log.Warn().Msg("VAPID keys not configured, push delivery runs in simulated mode")
	}
	return s
}

// Configured reports whether real deliveries are possible.
func (s *Service) Configured() bool { return s.configured }

// PublicKey returns the VAPID public key field clients subscribe with.
func (s *Service) PublicKey() string { return s.publicKey }

// EndpointKey derives the stable registry key for an endpoint URL.
func EndpointKey(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	key := base64.RawURLEncoding.EncodeToString(sum[:])
	if len(key) > 50 {
		key = key[:50]
	}
	return key
}

// Register upserts a delivery endpoint. Idempotent: the same endpoint maps to
// the same key, and re-registration only refreshes the descriptor.
func (s *Service) Register(ctx context.Context, sub webpush.Subscription) SubscriptionRecord {
	rec := SubscriptionRecord{
		Key:          EndpointKey(sub.Endpoint),
		Subscription: sub,
		UpdatedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.subs[rec.Key] = rec
	s.mu.Unlock()

	s.store.Publish(ctx, store.CollectionSubscriptions, rec.Key, rec)
	s.log.Debug().Str("key", rec.Key).Msg("push endpoint registered")
	return rec
}

// Count returns the number of registered endpoints.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Broadcast delivers the payload to every registered endpoint. Each attempt
// is independent: a failure is counted and the loop continues. Stale
// endpoints stay registered; cleanup is not this engine's concern.
func (s *Service) Broadcast(ctx context.Context, p Payload) Result {
	if !s.configured {
		return Result{Simulated: true}
	}

	body, err := json.Marshal(p)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal push payload")
		return Result{}
	}

	s.mu.RLock()
	targets := make([]SubscriptionRecord, 0, len(s.subs))
	for _, rec := range s.subs {
		targets = append(targets, rec)
	}
	s.mu.RUnlock()

	var delivered, failed atomic.Int64
	var wg sync.WaitGroup
	for _, rec := range targets {
		wg.Add(1)
		go func(rec SubscriptionRecord) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := s.sender.Send(sendCtx, rec.Subscription, body); err != nil {
				s.log.Warn().Err(err).Str("key", rec.Key).Msg("push delivery failed")
				failed.Add(1)
				return
			}
			delivered.Add(1)
		}(rec)
	}
	wg.Wait()

	res := Result{Delivered: int(delivered.Load()), Failed: int(failed.Load())}
	s.log.Info().Int("delivered", res.Delivered).Int("failed", res.Failed).Msg("push broadcast complete")
	return res
}

// Send delivers the payload to the single endpoint identified by its URL.
// Used for direct acknowledgement notifications.
func (s *Service) Send(ctx context.Context, endpoint string, p Payload) error {
	if !s.configured {
		return nil
	}

	s.mu.RLock()
	rec, ok := s.subs[EndpointKey(endpoint)]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: endpoint not registered", ErrDeliveryFailure)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.sender.Send(sendCtx, rec.Subscription, body); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}
	return nil
}
