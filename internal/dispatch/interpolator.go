package dispatch

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sreenidhis29/niyantrana-sos/internal/geo"
)

// DefaultTravelDuration is the fixed animation window for one dispatch.
const DefaultTravelDuration = 5 * time.Second

// DefaultFrameInterval is the display-refresh cadence the tasks tick on.
const DefaultFrameInterval = 50 * time.Millisecond

// Apply receives each animated position sample for a unit.
type Apply func(unitID string, pos geo.LatLng)

type task struct {
	cancel chan struct{}
	done   chan struct{}
}

// Interpolator runs one animation task per dispatched unit, easing the
// displayed position from the last known point to the target over a fixed
// duration. Progress is recomputed from wall-clock elapsed time each frame,
// so a missed tick cannot accumulate drift.
type Interpolator struct {
	mu         sync.Mutex
	tasks      map[string]*task
	lastTarget map[string]geo.LatLng

	apply    Apply
	duration time.Duration
	frame    time.Duration
	log      zerolog.Logger
}

// NewInterpolator builds an interpolator delivering samples through apply.
func NewInterpolator(apply Apply, duration, frame time.Duration, log zerolog.Logger) *Interpolator {
	if duration <= 0 {
		duration = DefaultTravelDuration
	}
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	return &Interpolator{
		tasks:      make(map[string]*task),
		lastTarget: make(map[string]geo.LatLng),
		apply:      apply,
		duration:   duration,
		frame:      frame,
		log:        log,
	}
}

// Observe reacts to a published unit update. A task starts only when the
// target actually changed from the previously observed value (compared by
// equality); re-publishing the same dispatch is a no-op.
func (ip *Interpolator) Observe(u Unit) {
	if u.Status != StatusDispatched || u.TargetPos == nil || u.CurrentPos == nil {
		return
	}
	ip.mu.Lock()
	if last, ok := ip.lastTarget[u.ID]; ok && last == *u.TargetPos {
		ip.mu.Unlock()
		return
	}
	ip.lastTarget[u.ID] = *u.TargetPos
	ip.mu.Unlock()

	ip.Start(u.ID, *u.CurrentPos, *u.TargetPos)
}

// Start begins animating one unit, cancelling any in-flight task for it
// first. Cancellation is synchronous: the superseded task has fully stopped
// before the new one is registered, so it can never write a stale position.
func (ip *Interpolator) Start(unitID string, from, to geo.LatLng) {
	ip.mu.Lock()
	if prev, ok := ip.tasks[unitID]; ok {
		close(prev.cancel)
		<-prev.done
		delete(ip.tasks, unitID)
	}

	if from == to {
		// Degenerate case: nothing to ease, place the unit directly.
		ip.mu.Unlock()
		ip.apply(unitID, to)
		return
	}

	t := &task{cancel: make(chan struct{}), done: make(chan struct{})}
	ip.tasks[unitID] = t
	ip.mu.Unlock()

	go ip.run(t, unitID, from, to)
}

func (ip *Interpolator) run(t *task, unitID string, from, to geo.LatLng) {
	defer close(t.done)

	start := time.Now()
	ticker := time.NewTicker(ip.frame)
	defer ticker.Stop()

	for {
		select {
		case <-t.cancel:
			return
		case <-ticker.C:
			frac := float64(time.Since(start)) / float64(ip.duration)
			if frac >= 1 {
				// Land exactly on the target, then stop for good.
				ip.apply(unitID, to)
				return
			}
			ip.apply(unitID, geo.Lerp(from, to, frac))
		}
	}
}

// CancelAll stops every task and forgets observed targets. It returns only
// once all tasks have fully stopped; used on mission teardown.
func (ip *Interpolator) CancelAll() {
	ip.mu.Lock()
	tasks := ip.tasks
	ip.tasks = make(map[string]*task)
	ip.lastTarget = make(map[string]geo.LatLng)
	ip.mu.Unlock()

	for _, t := range tasks {
		close(t.cancel)
	}
	for _, t := range tasks {
		<-t.done
	}
}

// Active reports how many animation tasks are currently registered.
func (ip *Interpolator) Active() int {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	n := 0
	for _, t := range ip.tasks {
		select {
		case <-t.done:
		default:
			n++
		}
	}
	return n
}
