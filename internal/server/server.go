package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sreenidhis29/niyantrana-sos/internal/config"
	"github.com/sreenidhis29/niyantrana-sos/internal/dispatch"
	"github.com/sreenidhis29/niyantrana-sos/internal/geo"
	"github.com/sreenidhis29/niyantrana-sos/internal/mission"
	"github.com/sreenidhis29/niyantrana-sos/internal/push"
	"github.com/sreenidhis29/niyantrana-sos/internal/signal"
	"github.com/sreenidhis29/niyantrana-sos/internal/store"
	"github.com/sreenidhis29/niyantrana-sos/internal/ws"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Server wires configuration, the dispatch engine and HTTP routing together.
type Server struct {
	cfg       config.Config
	log       zerolog.Logger
	store     *store.Client
	journal   *mission.Log
	registry  *dispatch.Registry
	interp    *dispatch.Interpolator
	signals   *signal.Manager
	push      *push.Service
	hub       *ws.Hub
	validate  *validator.Validate
	authMw    *AuthMiddleware
	startedAt time.Time

	// missionMu guards the currently tracked mission; everything downstream
	// of a mission switch is handled by selectMission.
	missionMu sync.RWMutex
	current   mission.Mission
}

// New instantiates the engine: store, registries, the signal lifecycle manager,
// push fan-out and the live feed hub, all subscribed to each other.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	st := store.New(ctx, cfg.Store, log)
	journal := mission.NewLog()
	registry := dispatch.NewRegistry(st, journal, log)

	interp := dispatch.NewInterpolator(func(unitID string, pos geo.LatLng) {
		registry.SetDisplayedPosition(context.Background(), unitID, pos)
	}, cfg.Mission.TravelDuration, cfg.Mission.FrameInterval, log)
	registry.Observe(interp.Observe)

	autoDispatch := func(ctx context.Context, dest geo.LatLng) error {
		unit, ok := registry.FirstIdle()
		if !ok {
			return errors.New("no idle unit available")
		}
		_, _, err := registry.RequestDispatch(ctx, unit.ID, dest)
		return err
	}
	signals := signal.NewManager(st, journal, autoDispatch, log)

	pushSvc := push.New(cfg.Push, st, log)
	hub := ws.NewHub(ctx, log)

	// Every store mutation becomes a live feed frame, in publish order.
	for _, collection := range []string{
		store.CollectionUnits,
		store.CollectionSignals,
		store.CollectionAlerts,
		store.CollectionMissionLog,
	} {
		st.Subscribe(collection, func(ev store.Event) {
			hub.Broadcast(ws.Message{Type: ev.Collection, Data: ev.Data})
		})
	}

	// Journal entries flow through the store so the dashboard sees them on
	// the same change feed as everything else.
	journal.Subscribe(func(e mission.LogEntry) {
		st.Publish(context.Background(), store.CollectionMissionLog, e.ID, e)
	})

	srv := &Server{
		cfg:       cfg,
		log:       log,
		store:     st,
		journal:   journal,
		registry:  registry,
		interp:    interp,
		signals:   signals,
		push:      pushSvc,
		hub:       hub,
		validate:  newValidator(),
		authMw:    NewAuthMiddleware(cfg.Auth, log),
		startedAt: time.Now().UTC(),
	}

	initial, ok := mission.ByID(cfg.Mission.Default)
	if !ok {
		initial = mission.Catalog()[0]
	}
	srv.selectMission(ctx, initial)

	return srv, nil
}

// selectMission switches the engine to a new incident context: running
// interpolations are cancelled, the journal and unit roster reset, and the
// uplink entry is the first record of the new mission.
func (s *Server) selectMission(ctx context.Context, m mission.Mission) {
	s.missionMu.Lock()
	s.current = m
	s.missionMu.Unlock()

	s.interp.CancelAll()
	s.journal.Reset()
	s.registry.Reset(ctx, m)
	s.journal.Append(mission.SeverityInfo, "UPLINK ESTABLISHED. TRACKING %s.", m.Title)
	missionSelectionsTotal.WithLabelValues(m.ID).Inc()
}

// currentMission returns the mission the engine is tracking.
func (s *Server) currentMission() mission.Mission {
	s.missionMu.RLock()
	defer s.missionMu.RUnlock()
	return s.current
}

// Close releases the store connection and stops position animation.
func (s *Server) Close() {
	s.interp.CancelAll()
	s.hub.Shutdown()
	if s.store != nil {
		s.store.Close()
	}
}

// Run starts the HTTP server and blocks until the context is cancelled or an
// unrecoverable error occurs.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run()

	httpServer := &http.Server{
		Addr:         s.cfg.HTTP.Address,
		Handler:      s.routes(),
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	s.log.Info().Str("addr", s.cfg.HTTP.Address).Msg("http server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("latitude", func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(float64)
		if !ok {
			return false
		}
		return val >= -90 && val <= 90
	})
	_ = v.RegisterValidation("longitude", func(fl validator.FieldLevel) bool {
		val, ok := fl.Field().Interface().(float64)
		if !ok {
			return false
		}
		return val >= -180 && val <= 180
	})
	return v
}
