// Package condition implements timed status conditions attached as child
// entities of their target, with identity-based deduplication and per-kind
// first-attach hooks.
package condition

import (
	"math"
	"time"

	"github.com/ravenwatch/combatsim/internal/core/ecs"
	"github.com/ravenwatch/combatsim/internal/core/safe"
	coresys "github.com/ravenwatch/combatsim/internal/core/system"
	"github.com/ravenwatch/combatsim/internal/metrics"
	"github.com/ravenwatch/combatsim/internal/scheduler"
	"go.uber.org/zap"
)

// DefaultLoopDelay is how long after application the looping effect of a
// kind is attached, in seconds.
const DefaultLoopDelay = 0.6

// EffectAttacher creates an actor-bound visual effect as a child of parent.
type EffectAttacher interface {
	AttachActorEffect(parent ecs.EntityID, path string, caster, target ecs.EntityID) ecs.EntityID
}

// Options modify ApplyKind.
type Options struct {
	Extend   bool         // add duration to an existing condition
	Override bool         // replace the remaining time even if shorter
	Source   ecs.EntityID // who applied it, used as effect caster
}

// Engine applies, refreshes and expires conditions.
type Engine struct {
	world   *ecs.World
	log     *zap.Logger
	metrics *metrics.Metrics
	sched   *scheduler.Scheduler
	effects EffectAttacher

	conds   *ecs.Store[Condition]
	markers *ecs.Store[Markers]

	kinds     map[Kind]KindSpec
	loopDelay float64
}

// NewEngine creates the engine with the built-in kind catalogue. effects may
// be nil, in which case kinds attach no visuals.
func NewEngine(w *ecs.World, sched *scheduler.Scheduler, effects EffectAttacher, log *zap.Logger, m *metrics.Metrics) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		world:     w,
		log:       log,
		metrics:   metrics.OrNop(m),
		sched:     sched,
		effects:   effects,
		conds:     ecs.NewStore[Condition](w),
		markers:   ecs.NewStore[Markers](w),
		kinds:     make(map[Kind]KindSpec, int(kindCount)),
		loopDelay: DefaultLoopDelay,
	}
	e.conds.OnRemove(func(ecs.EntityID, *Condition) {
		e.metrics.ConditionsLive.Set(float64(e.conds.Len()))
	})
	for _, spec := range DefaultKinds() {
		e.Register(spec)
	}
	return e
}

// SetLoopDelay changes the default delay before looping effects attach.
func (e *Engine) SetLoopDelay(seconds float64) {
	if seconds > 0 {
		e.loopDelay = seconds
	}
}

// Register installs or replaces the spec for spec.Kind.
func (e *Engine) Register(spec KindSpec) {
	if spec.Name == "" {
		spec.Name = spec.Kind.String()
	}
	e.kinds[spec.Kind] = spec
}

// Spec returns the registered spec for k.
func (e *Engine) Spec(k Kind) (KindSpec, bool) {
	s, ok := e.kinds[k]
	return s, ok
}

// Store exposes the Condition store for queries.
func (e *Engine) Store() *ecs.Store[Condition] { return e.conds }

// Apply creates or refreshes a condition on target.
//
// identityCode 0 always creates a new condition. Otherwise an existing
// condition with the same code is reused: extend adds duration to it,
// otherwise its remaining time is replaced when duration is longer or
// override is set. A dead target yields the zero Handle.
func (e *Engine) Apply(target ecs.EntityID, name string, duration float64, identityCode uint32, extend, override bool) Handle {
	return e.apply(KindGeneric, target, name, duration, identityCode, extend, override)
}

func (e *Engine) apply(kind Kind, target ecs.EntityID, name string, duration float64, identityCode uint32, extend, override bool) Handle {
	if !e.world.Alive(target) {
		e.log.Debug("condition target gone", zap.String("name", name), zap.Uint64("target", uint64(target)))
		return Handle{}
	}
	if duration < 0 {
		duration = 0
	}
	if identityCode != 0 {
		if h := e.Find(target, identityCode); h.Valid() {
			c := h.get()
			result := "kept"
			switch {
			case extend:
				c.Remaining += duration
				result = "extended"
			case duration > c.Remaining || override:
				c.Remaining = duration
				result = "refreshed"
			}
			e.conds.Touch(h.id)
			e.metrics.ConditionsApplied.WithLabelValues(kind.String(), result).Inc()
			return h
		}
	}
	id := e.world.CreateChild(target)
	e.conds.Set(id, &Condition{
		Name:         name,
		Remaining:    duration,
		Created:      e.world.Now(),
		IdentityCode: identityCode,
	})
	e.metrics.ConditionsApplied.WithLabelValues(kind.String(), "created").Inc()
	e.metrics.ConditionsLive.Set(float64(e.conds.Len()))
	return Handle{e: e, id: id}
}

// ApplyKind applies a condition of the registered kind. The kind's marker,
// status and first-attach hook are added only when the resolved condition
// does not already carry that marker.
func (e *Engine) ApplyKind(target ecs.EntityID, kind Kind, duration float64, opts Options) Handle {
	spec, ok := e.kinds[kind]
	if !ok {
		spec = KindSpec{Kind: kind, Name: kind.String()}
	}
	h := e.apply(kind, target, spec.Name, duration, spec.IdentityCode, opts.Extend, opts.Override)
	if !h.Valid() || h.Is(kind) {
		return h
	}

	mk, ok := e.markers.Get(h.id)
	if !ok {
		mk = &Markers{}
	}
	mk.Mask |= kind.bit()
	e.markers.Set(h.id, mk)
	if c := h.get(); c != nil && c.Status == nil && spec.Status != nil {
		st := *spec.Status
		c.Status = &st
	}

	hook := spec.OnFirstAttach
	if hook == nil {
		hook = AttachEffects
	}
	_ = safe.Do(e.log, "CONDITION_HOOK_FAILED", func() {
		hook(e, h, spec, opts.Source)
	}, zap.Stringer("kind", kind), zap.Uint64("condition", uint64(h.id)))
	return h
}

// AttachEffects is the default first-attach hook: the application effect is
// attached at once and the looping effect after the loop delay. Both are
// children of the condition and die with it.
func AttachEffects(e *Engine, h Handle, spec KindSpec, source ecs.EntityID) {
	if e.effects == nil {
		return
	}
	cond := h.Entity()
	target := h.Target()
	if spec.ApplyEffect != "" {
		e.effects.AttachActorEffect(cond, spec.ApplyEffect, source, target)
	}
	if spec.LoopEffect == "" || e.sched == nil {
		return
	}
	delay := spec.LoopDelay
	if delay <= 0 {
		delay = e.loopDelay
	}
	path := spec.LoopEffect
	e.sched.ScheduleNamed(cond, spec.Name+" loop effect", func(w *ecs.World) error {
		if w.Alive(cond) {
			e.effects.AttachActorEffect(cond, path, source, target)
		}
		return nil
	}, delay, false)
}

// Find returns the live condition on target carrying identityCode.
func (e *Engine) Find(target ecs.EntityID, identityCode uint32) Handle {
	if identityCode == 0 {
		return Handle{}
	}
	for _, id := range ecs.ChildrenWith(e.world, target, e.conds) {
		c, _ := e.conds.Get(id)
		if c.IdentityCode == identityCode && !c.expiring {
			return Handle{e: e, id: id}
		}
	}
	return Handle{}
}

// Children returns every live condition on target in creation order.
func (e *Engine) Children(target ecs.EntityID) []Handle {
	var out []Handle
	for _, id := range ecs.ChildrenWith(e.world, target, e.conds) {
		if c, _ := e.conds.Get(id); !c.expiring {
			out = append(out, Handle{e: e, id: id})
		}
	}
	return out
}

// Has reports whether target holds a live condition marked with kind.
func (e *Engine) Has(target ecs.EntityID, kind Kind) bool {
	for _, h := range e.Children(target) {
		if h.Is(kind) {
			return true
		}
	}
	return false
}

// Remove destroys every condition of kind on target, honouring the world's
// deferred mode. It returns how many were removed.
func (e *Engine) Remove(target ecs.EntityID, kind Kind) int {
	n := 0
	for _, h := range e.Children(target) {
		if h.Is(kind) {
			e.Destroy(h)
			n++
		}
	}
	return n
}

// Destroy ends a single condition early.
func (e *Engine) Destroy(h Handle) {
	c := h.get()
	if c == nil || c.expiring {
		return
	}
	c.expiring = true
	e.world.Destroy(h.id)
}

// TickSystem counts conditions down and destroys them at zero. Register it
// in deferred mode.
func (e *Engine) TickSystem() coresys.System { return &tickSystem{e: e} }

type tickSystem struct{ e *Engine }

func (s *tickSystem) Phase() coresys.Phase    { return coresys.PhaseUpdate }
func (s *tickSystem) Name() string            { return "condition.tick" }
func (s *tickSystem) Update(dt time.Duration) { s.e.tick(dt.Seconds()) }

func (e *Engine) tick(dt float64) {
	e.conds.Each(func(id ecs.EntityID, c *Condition) {
		if c.expiring {
			return
		}
		_ = safe.Do(e.log, "CONDITION_TICK_FAILED", func() {
			c.Remaining = math.Max(c.Remaining-dt, 0)
			if c.Remaining == 0 {
				c.expiring = true
				e.world.Destroy(id)
				e.metrics.ConditionsExpired.Inc()
			}
		}, zap.String("name", c.Name), zap.Uint64("condition", uint64(id)))
	})
}
