// Package knockback applies simulated knockbacks as directional override
// conditions and cancels them when real movement supersedes them.
package knockback

import (
	"github.com/ravenwatch/combatsim/internal/component"
	"github.com/ravenwatch/combatsim/internal/condition"
	"github.com/ravenwatch/combatsim/internal/core/ecs"
	"github.com/ravenwatch/combatsim/internal/core/event"
	"github.com/ravenwatch/combatsim/internal/data"
	"github.com/ravenwatch/combatsim/internal/metrics"
	"github.com/ravenwatch/combatsim/internal/scheduler"
	"go.uber.org/zap"
)

// Override carries the forced movement direction. It lives on a knockback
// condition entity, at most one per target.
type Override struct {
	Direction component.Vec3
}

// State is the per-target resolution state.
type State uint8

const (
	Idle State = iota
	Pending
	Active
	Expired
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Expired:
		return "expired"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Deps are the collaborators a Resolver needs.
type Deps struct {
	World      *ecs.World
	Scheduler  *scheduler.Scheduler
	Conditions *condition.Engine
	Bus        *event.Bus
	Actors     *ecs.Store[component.Actor]
	Statuses   *ecs.Store[component.Statuses]
	Table      *data.KnockbackTable
	Log        *zap.Logger
	Metrics    *metrics.Metrics
}

// Resolver owns the Override store and its combat-event subscription.
type Resolver struct {
	world    *ecs.World
	sched    *scheduler.Scheduler
	conds    *condition.Engine
	actors   *ecs.Store[component.Actor]
	statuses *ecs.Store[component.Statuses]
	table    *data.KnockbackTable
	log      *zap.Logger
	metrics  *metrics.Metrics

	overrides *ecs.Store[Override]
	states    map[ecs.EntityID]State
	active    map[ecs.EntityID]ecs.EntityID // target → condition holding its override
	local     ecs.EntityID
	sub       *event.Subscription
}

// New creates the resolver and subscribes it to ActionEffect events. Call
// Close to unsubscribe.
func New(d Deps) *Resolver {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Table == nil {
		d.Table = data.DefaultKnockbackTable()
	}
	r := &Resolver{
		world:     d.World,
		sched:     d.Scheduler,
		conds:     d.Conditions,
		actors:    d.Actors,
		statuses:  d.Statuses,
		table:     d.Table,
		log:       d.Log,
		metrics:   metrics.OrNop(d.Metrics),
		overrides: ecs.NewStore[Override](d.World),
		states:    make(map[ecs.EntityID]State),
		active:    make(map[ecs.EntityID]ecs.EntityID),
	}
	r.overrides.OnRemove(r.overrideRemoved)
	if d.Actors != nil {
		d.Actors.OnRemove(func(id ecs.EntityID, _ *component.Actor) { r.forget(id) })
	}
	if d.Statuses != nil {
		d.Statuses.OnRemove(func(id ecs.EntityID, _ *component.Statuses) { r.forget(id) })
	}
	if d.Bus != nil {
		r.sub = event.Subscribe(d.Bus, r.onActionEffect)
	}
	return r
}

// Close drops the event subscription. Safe to call twice.
func (r *Resolver) Close() {
	if r.sub != nil {
		r.sub.Close()
	}
}

// State reports where target is in the knockback lifecycle. Dead targets
// are Idle.
func (r *Resolver) State(target ecs.EntityID) State {
	if !r.world.Alive(target) {
		r.forget(target)
		return Idle
	}
	return r.states[target]
}

// forget drops everything tracked for a target that is going away.
func (r *Resolver) forget(target ecs.EntityID) {
	delete(r.states, target)
	delete(r.active, target)
}

// Tracked returns how many targets currently have knockback state.
func (r *Resolver) Tracked() int { return len(r.states) }

// Override returns the active override on target.
func (r *Resolver) Override(target ecs.EntityID) (Override, bool) {
	cond, ok := r.active[target]
	if !ok {
		return Override{}, false
	}
	o, ok := r.overrides.Get(cond)
	if !ok {
		return Override{}, false
	}
	return *o, true
}

// Overrides exposes the Override store for queries.
func (r *Resolver) Overrides() *ecs.Store[Override] { return r.overrides }

// SetLocalActor pins the entity treated as the local actor.
func (r *Resolver) SetLocalActor(id ecs.EntityID) { r.local = id }

// LocalActor returns the pinned local actor, or the first actor flagged
// Local or named as in the tuning table.
func (r *Resolver) LocalActor() ecs.EntityID {
	if r.world.Alive(r.local) {
		return r.local
	}
	r.local = 0
	name := r.table.LocalActor()
	for _, id := range r.actors.Entities() {
		a, _ := r.actors.Get(id)
		if a.Local || (name != "" && a.Name == name) {
			r.local = id
			break
		}
	}
	return r.local
}

// ApplyToTarget requests a knockback on target. Resolution runs as an
// immediate delayed action with no delay so its checks see every
// destruction made earlier in the same step. It returns the action entity.
func (r *Resolver) ApplyToTarget(target ecs.EntityID, direction component.Vec3, duration float64, canResist bool) ecs.EntityID {
	if !r.world.Alive(target) {
		return 0
	}
	if r.states[target] != Active {
		r.states[target] = Pending
	}
	return r.sched.ScheduleNamed(target, "knockback", func(w *ecs.World) error {
		r.resolve(target, direction, duration, canResist)
		return nil
	}, 0, true)
}

func (r *Resolver) resolve(target ecs.EntityID, direction component.Vec3, duration float64, canResist bool) {
	if !r.world.Alive(target) {
		delete(r.states, target)
		return
	}
	if r.conds.Has(target, condition.KindBind) {
		r.suppress(target, "bound")
		return
	}
	if canResist {
		if st, ok := r.statuses.Get(target); ok && r.table.Resists(st.IDs) {
			r.suppress(target, "resisted")
			return
		}
	}

	// Pending while the previous override is replaced, so its removal is
	// not counted as an expiry.
	r.states[target] = Pending
	r.destroyOverrides(target)
	h := r.conds.ApplyKind(target, condition.KindKnockback, duration, condition.Options{})
	if !h.Valid() {
		r.states[target] = Idle
		return
	}
	r.overrides.Set(h.Entity(), &Override{Direction: direction})
	r.active[target] = h.Entity()
	r.states[target] = Active
	r.metrics.KnockbackOutcomes.WithLabelValues("applied").Inc()
	r.log.Debug("knockback applied",
		zap.Uint64("target", uint64(target)),
		zap.Float64("duration", duration))
}

func (r *Resolver) suppress(target ecs.EntityID, outcome string) {
	if _, ok := r.active[target]; ok {
		r.states[target] = Active
	} else {
		r.states[target] = Idle
	}
	r.metrics.KnockbackOutcomes.WithLabelValues(outcome).Inc()
	r.log.Debug("knockback suppressed", zap.Uint64("target", uint64(target)), zap.String("outcome", outcome))
}

func (r *Resolver) destroyOverrides(target ecs.EntityID) int {
	n := 0
	for _, h := range r.conds.Children(target) {
		if r.overrides.Has(h.Entity()) {
			r.conds.Destroy(h)
			n++
		}
	}
	return n
}

// Cancel removes target's override after delay seconds. A zero delay
// removes it now inside its own deferred bracket.
func (r *Resolver) Cancel(target ecs.EntityID, delay float64) {
	if delay > 0 {
		r.sched.ScheduleNamed(target, "knockback cancel", scheduler.Do(func() {
			r.cancelNow(target)
		}), delay, false)
		return
	}
	r.world.BeginDeferred()
	defer r.world.EndDeferred()
	r.cancelNow(target)
}

func (r *Resolver) cancelNow(target ecs.EntityID) {
	if _, ok := r.active[target]; !ok {
		return
	}
	r.states[target] = Cancelled
	r.destroyOverrides(target)
	r.metrics.KnockbackOutcomes.WithLabelValues("cancelled").Inc()
}

func (r *Resolver) overrideRemoved(cond ecs.EntityID, _ *Override) {
	target := r.world.Parent(cond)
	if r.active[target] != cond {
		return
	}
	delete(r.active, target)
	if r.states[target] == Active {
		r.states[target] = Expired
		r.metrics.KnockbackOutcomes.WithLabelValues("expired").Inc()
	}
}

func (r *Resolver) onActionEffect(ev event.ActionEffect) {
	local := r.LocalActor()
	a, ok := r.actors.Get(local)
	if !ok {
		return
	}
	switch {
	case ev.SourceID == a.ObjectID && ev.AffectsPosition:
		r.Cancel(local, r.table.MovementDelay(ev.ActionID))
	case ev.TargetID == a.ObjectID && ev.EffectType.IsKnockback():
		r.Cancel(local, r.table.KnockbackDelay(ev.ActionID))
	}
}
