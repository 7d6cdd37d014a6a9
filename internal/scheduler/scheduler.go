// Package scheduler runs one-shot callbacks after a number of simulated
// seconds, synchronised with the rest of the world tick.
package scheduler

import (
	"time"

	"github.com/ravenwatch/combatsim/internal/core/ecs"
	"github.com/ravenwatch/combatsim/internal/core/safe"
	coresys "github.com/ravenwatch/combatsim/internal/core/system"
	"github.com/ravenwatch/combatsim/internal/metrics"
	"go.uber.org/zap"
)

// Callback is the unit of delayed work. It receives the world it runs in.
// A returned error (or a panic) is logged and contained.
type Callback func(w *ecs.World) error

// Do adapts an argument-less function into a Callback.
func Do(fn func()) Callback {
	return func(*ecs.World) error {
		fn()
		return nil
	}
}

// Delayed is the component carried by a scheduling entity.
type Delayed struct {
	Callback  Callback
	Remaining float64 // seconds
	Immediate bool
	Label     string
	fired     bool
}

// Scheduler owns the Delayed store and the two systems that tick it.
type Scheduler struct {
	world   *ecs.World
	log     *zap.Logger
	metrics *metrics.Metrics
	delayed *ecs.Store[Delayed]
}

func New(w *ecs.World, log *zap.Logger, m *metrics.Metrics) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		world:   w,
		log:     log,
		metrics: metrics.OrNop(m),
		delayed: ecs.NewStore[Delayed](w),
	}
}

// Schedule creates a scheduling entity under parent (zero = root) that runs cb
// once delay seconds of simulated time have elapsed. Immediate actions run
// with structural deferral suspended.
func (s *Scheduler) Schedule(parent ecs.EntityID, cb Callback, delay float64, immediate bool) ecs.EntityID {
	return s.ScheduleNamed(parent, "", cb, delay, immediate)
}

// ScheduleNamed is Schedule with a label used in failure logs.
func (s *Scheduler) ScheduleNamed(parent ecs.EntityID, label string, cb Callback, delay float64, immediate bool) ecs.EntityID {
	if delay < 0 {
		delay = 0
	}
	id := s.world.CreateChild(parent)
	s.delayed.Set(id, &Delayed{
		Callback:  cb,
		Remaining: delay,
		Immediate: immediate,
		Label:     label,
	})
	s.metrics.ActionsScheduled.WithLabelValues(modeLabel(immediate)).Inc()
	return id
}

// After schedules fn in deferred mode.
func (s *Scheduler) After(parent ecs.EntityID, delay float64, fn func()) ecs.EntityID {
	return s.Schedule(parent, Do(fn), delay, false)
}

// Pending returns the number of actions still waiting.
func (s *Scheduler) Pending() int {
	return s.delayed.Len()
}

// Remaining reports the delay left on a scheduled action.
func (s *Scheduler) Remaining(id ecs.EntityID) (float64, bool) {
	d, ok := s.delayed.Get(id)
	if !ok {
		return 0, false
	}
	return d.Remaining, true
}

// Store exposes the Delayed component store for queries.
func (s *Scheduler) Store() *ecs.Store[Delayed] {
	return s.delayed
}

// DeferredSystem ticks actions scheduled with immediate=false.
func (s *Scheduler) DeferredSystem() coresys.System {
	return &tickSystem{s: s, immediate: false}
}

// ImmediateSystem ticks actions scheduled with immediate=true. Register it
// with coresys.MutationImmediate.
func (s *Scheduler) ImmediateSystem() coresys.System {
	return &tickSystem{s: s, immediate: true}
}

func (s *Scheduler) tick(dt float64, immediate bool) {
	for _, id := range s.delayed.Entities() {
		d, ok := s.delayed.Get(id)
		if !ok || d.Immediate != immediate || d.fired {
			continue
		}
		d.Remaining -= dt
		if d.Remaining > 0 {
			continue
		}
		d.Remaining = 0
		d.fired = true
		s.fire(id, d)
		s.world.Destroy(id)
	}
}

func (s *Scheduler) fire(id ecs.EntityID, d *Delayed) {
	mode := modeLabel(d.Immediate)
	if d.Callback == nil {
		s.metrics.ActionsExecuted.WithLabelValues(mode, "ok").Inc()
		return
	}
	if d.Immediate {
		s.world.SuspendDeferred()
		defer s.world.ResumeDeferred()
	}
	err := safe.Run(s.log, "ACTION_FAILED", func() error {
		return d.Callback(s.world)
	}, zap.Uint64("entity", uint64(id)), zap.String("label", d.Label), zap.String("mode", mode))
	if err != nil {
		s.metrics.ActionsExecuted.WithLabelValues(mode, "failed").Inc()
		return
	}
	s.metrics.ActionsExecuted.WithLabelValues(mode, "ok").Inc()
}

func modeLabel(immediate bool) string {
	if immediate {
		return coresys.MutationImmediate.String()
	}
	return coresys.MutationDeferred.String()
}

type tickSystem struct {
	s         *Scheduler
	immediate bool
}

func (t *tickSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (t *tickSystem) Update(dt time.Duration) {
	t.s.tick(dt.Seconds(), t.immediate)
}

func (t *tickSystem) Name() string {
	return "scheduler." + modeLabel(t.immediate)
}
