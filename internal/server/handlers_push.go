package server

import (
	"errors"
	"net/http"

	"github.com/sreenidhis29/niyantrana-sos/internal/push"

	"github.com/SherClockHolmes/webpush-go"
)

// handlePushKey godoc
// @Title Push public key
// @Description Returns the VAPID public key field clients subscribe with.
// @Resource Push
// @Produce json
// @Success 200 {object} PushKeyResponse
// @Route /v1/push/key [get]
func (s *Server) handlePushKey(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, PushKeyResponse{
		PublicKey:  s.push.PublicKey(),
		Configured: s.push.Configured(),
	})
}

// handleRegisterSubscription godoc
// @Title Register push subscription
// @Description Registers a delivery endpoint. Re-registering the same endpoint
// is an idempotent upsert.
// @Resource Push
// @Accept json
// @Produce json
// @Param request body PushSubscriptionRequest true "Browser push subscription"
// @Success 201 {object} PushSubscriptionResponse
// @Failure 400 {object} APIError
// @Route /v1/push/subscriptions [post]
func (s *Server) handleRegisterSubscription(w http.ResponseWriter, r *http.Request) {
	var req PushSubscriptionRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	rec := s.push.Register(r.Context(), webpush.Subscription{
		Endpoint: req.Endpoint,
		Keys: webpush.Keys{
			P256dh: req.Keys.P256dh,
			Auth:   req.Keys.Auth,
		},
	})
	s.writeJSON(w, http.StatusCreated, PushSubscriptionResponse{
		Key:       rec.Key,
		UpdatedAt: rec.UpdatedAt,
		Persisted: s.persisted(),
	})
}

// handlePushBroadcast godoc
// @Title Broadcast push notification
// @Description Fans a notification out to every registered endpoint. Failed
// endpoints are counted but stay registered.
// @Resource Push
// @Accept json
// @Produce json
// @Param request body PushMessageRequest true "Notification payload"
// @Success 200 {object} push.Result
// @Failure 400 {object} APIError
// @Route /v1/push/broadcast [post]
func (s *Server) handlePushBroadcast(w http.ResponseWriter, r *http.Request) {
	var req PushMessageRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	if req.URL == "" {
		req.URL = "/victim"
	}
	result := s.push.Broadcast(r.Context(), push.Payload{
		Title:   req.Title,
		Message: req.Message,
		URL:     req.URL,
	})
	pushDeliveriesTotal.WithLabelValues("delivered").Add(float64(result.Delivered))
	pushDeliveriesTotal.WithLabelValues("failed").Add(float64(result.Failed))
	s.log.Info().
		Int("delivered", result.Delivered).
		Int("failed", result.Failed).
		Bool("simulated", result.Simulated).
		Msg("push broadcast completed")
	s.writeJSON(w, http.StatusOK, result)
}

// handlePushSend godoc
// @Title Send push notification
// @Description Delivers a notification to one registered endpoint.
// @Resource Push
// @Accept json
// @Produce json
// @Param request body PushSendRequest true "Target endpoint and payload"
// @Success 200 {object} push.Result
// @Failure 400 {object} APIError
// @Failure 502 {object} APIError
// @Route /v1/push/send [post]
func (s *Server) handlePushSend(w http.ResponseWriter, r *http.Request) {
	var req PushSendRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	if req.Data.URL == "" {
		req.Data.URL = "/victim"
	}
	err := s.push.Send(r.Context(), req.Endpoint, push.Payload{
		Title:   req.Data.Title,
		Message: req.Data.Message,
		URL:     req.Data.URL,
	})
	if err != nil {
		if errors.Is(err, push.ErrDeliveryFailure) {
			pushDeliveriesTotal.WithLabelValues("failed").Inc()
			s.writeError(w, http.StatusBadGateway, "push delivery failed", err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, "push delivery failed", err.Error())
		return
	}

	pushDeliveriesTotal.WithLabelValues("delivered").Inc()
	s.writeJSON(w, http.StatusOK, push.Result{Delivered: 1, Simulated: !s.push.Configured()})
}
