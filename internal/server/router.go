package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.metricsMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://niyantrana.vercel.app"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(v1 chi.Router) {
		// Field clients (victim portal) raise distress, read the broadcast
		// alert and subscribe to push without operator credentials.
		v1.Get("/feed", s.handleFeed)
		v1.Post("/sos", s.handleRaiseSOS)
		v1.Get("/alerts/active", s.handleActiveAlert)
		v1.Post("/alerts/acknowledge", s.handleAcknowledgeAlert)
		v1.Get("/push/key", s.handlePushKey)
		v1.Post("/push/subscriptions", s.handleRegisterSubscription)

		// Operator command surface.
		v1.Group(func(v1 chi.Router) {
			v1.Use(s.authMw.Middleware)

			v1.Get("/missions", s.handleListMissions)
			v1.Get("/missions/{missionID}", s.handleGetMission)
			v1.Post("/missions/{missionID}/select", s.handleSelectMission)
			v1.Get("/missions/current", s.handleCurrentMission)
			v1.Get("/missions/log", s.handleMissionLog)

			v1.Get("/units", s.handleListUnits)
			v1.Get("/units/{unitID}", s.handleGetUnit)
			v1.Post("/units/{unitID}/dispatch", s.handleDispatchUnit)

			v1.Get("/sos/active", s.handleActiveSignals)
			v1.Post("/sos/{signalID}/acknowledge", s.handleAcknowledgeSOS)
			v1.Post("/sos/{signalID}/deploy", s.handleDeploySOS)
			v1.Get("/sos/{signalID}/marker", s.handleSignalMarker)

			v1.Post("/alerts", s.handleRaiseAlert)
			v1.Post("/push/broadcast", s.handlePushBroadcast)
			v1.Post("/push/send", s.handlePushSend)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", duration).
			Msg("http request")
	})
}
