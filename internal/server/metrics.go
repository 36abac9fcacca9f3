package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_http_requests_total",
			Help: "Total number of HTTP requests received by the engine.",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_http_request_duration_seconds",
			Help:    "Duration of HTTP requests handled by the engine.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	dispatchOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_dispatch_orders_total",
			Help: "Dispatch orders processed, by outcome.",
		},
		[]string{"outcome"},
	)

	sosSignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_sos_signals_total",
			Help: "SOS lifecycle events, by transition.",
		},
		[]string{"event"},
	)

	broadcastAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_broadcast_alerts_total",
			Help: "Broadcast alert lifecycle events, by transition.",
		},
		[]string{"event"},
	)

	pushDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_push_deliveries_total",
			Help: "Web push delivery attempts, by result.",
		},
		[]string{"result"},
	)

	missionSelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_mission_selections_total",
			Help: "Mission context switches, by mission.",
		},
		[]string{"mission"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		dispatchOrdersTotal,
		sosSignalsTotal,
		broadcastAlertsTotal,
		pushDeliveriesTotal,
		missionSelectionsTotal,
	)
}

// metricsMiddleware records basic request metrics for Prometheus (RPS and latency).
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		durationSeconds := time.Since(start).Seconds()
		status := strconv.Itoa(ww.Status())
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		httpRequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		httpRequestDurationSeconds.WithLabelValues(route, r.Method, status).Observe(durationSeconds)
	})
}
