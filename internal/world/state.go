// Package world assembles the simulation: the ECS world, its systems and
// the condition, scheduling, effect and knockback engines.
package world

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/ravenwatch/combatsim/internal/component"
	"github.com/ravenwatch/combatsim/internal/condition"
	"github.com/ravenwatch/combatsim/internal/config"
	"github.com/ravenwatch/combatsim/internal/core/ecs"
	"github.com/ravenwatch/combatsim/internal/core/event"
	coresys "github.com/ravenwatch/combatsim/internal/core/system"
	"github.com/ravenwatch/combatsim/internal/data"
	"github.com/ravenwatch/combatsim/internal/effect"
	"github.com/ravenwatch/combatsim/internal/knockback"
	"github.com/ravenwatch/combatsim/internal/metrics"
	"github.com/ravenwatch/combatsim/internal/scheduler"
	"github.com/ravenwatch/combatsim/internal/system"
	"github.com/samber/oops"
	"go.uber.org/zap"
)

// Options configure NewState. Renderer is required; nil tables fall back
// to the built-in catalogues.
type Options struct {
	Config     *config.Config
	Renderer   effect.Renderer
	Log        *zap.Logger
	Metrics    *metrics.Metrics
	Conditions *data.ConditionTable
	Knockback  *data.KnockbackTable
}

// State is the composition root of one simulation. It is rebuilt from
// scratch for every session and torn down with Close.
// Accessed only from the simulation goroutine; no locks needed.
type State struct {
	World      *ecs.World
	Scheduler  *scheduler.Scheduler
	Conditions *condition.Engine
	Effects    *effect.Manager
	Resolver   *knockback.Resolver

	bus     *event.Bus
	runner  *coresys.Runner
	log     *zap.Logger
	metrics *metrics.Metrics
	cfg     *config.Config

	actors     *ecs.Store[component.Actor]
	statuses   *ecs.Store[component.Statuses]
	encounters *ecs.Store[component.Encounter]
	byName     map[string]ecs.EntityID

	encounter     ulid.ULID // active encounter, zero when none
	spawningActor bool
	closed        bool
}

func NewState(opts Options) (*State, error) {
	if opts.Renderer == nil {
		return nil, oops.Code("CONFIG_INVALID").Errorf("world: renderer is required")
	}
	if opts.Config == nil {
		opts.Config = config.Defaults()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	m := metrics.OrNop(opts.Metrics)
	cfg := opts.Config

	w := ecs.NewWorld()
	s := &State{
		World:      w,
		bus:        event.NewBus(),
		log:        opts.Log,
		metrics:    m,
		cfg:        cfg,
		actors:     ecs.NewStore[component.Actor](w),
		statuses:   ecs.NewStore[component.Statuses](w),
		encounters: ecs.NewStore[component.Encounter](w),
		byName:     make(map[string]ecs.EntityID),
	}
	s.actors.OnRemove(func(id ecs.EntityID, a *component.Actor) {
		if s.byName[a.Name] == id {
			delete(s.byName, a.Name)
		}
	})
	w.OnCreate(s.tag)

	s.Scheduler = scheduler.New(w, opts.Log.Named("scheduler"), m)
	s.Effects = effect.NewManager(w, opts.Renderer, s.actors, opts.Log.Named("effect"), m, effect.Options{
		OmenFade:    cfg.Effects.OmenFade,
		DefaultFade: cfg.Effects.DefaultFade,
	})
	s.Conditions = condition.NewEngine(w, s.Scheduler, s.Effects, opts.Log.Named("condition"), m)
	s.Conditions.SetLoopDelay(cfg.Simulation.LoopEffectDelay)
	if opts.Conditions != nil {
		if err := s.Conditions.Load(opts.Conditions); err != nil {
			return nil, err
		}
	}
	s.Resolver = knockback.New(knockback.Deps{
		World:      w,
		Scheduler:  s.Scheduler,
		Conditions: s.Conditions,
		Bus:        s.bus,
		Actors:     s.actors,
		Statuses:   s.statuses,
		Table:      opts.Knockback,
		Log:        opts.Log.Named("knockback"),
		Metrics:    m,
	})

	s.runner = coresys.NewRunner(w, opts.Log)
	s.registerSystems()
	return s, nil
}

func (s *State) registerSystems() {
	r := s.runner
	// Phase 0: Input
	r.Register(system.NewClockSystem(s.World), coresys.MutationDeferred)
	r.Register(system.NewEventDispatchSystem(s.bus), coresys.MutationDeferred)
	// Phase 2: Update
	r.Register(s.Scheduler.ImmediateSystem(), coresys.MutationImmediate)
	r.Register(s.Scheduler.DeferredSystem(), coresys.MutationDeferred)
	r.Register(s.Conditions.TickSystem(), coresys.MutationDeferred)
	r.Register(system.NewStatusTickSystem(s.statuses), coresys.MutationDeferred)
	// Phase 3: PostUpdate
	r.Register(s.Effects.SpawnSystem(), coresys.MutationDeferred)
	r.Register(s.Effects.FadeSystem(), coresys.MutationDeferred)
	// Phase 5: Cleanup
	r.Register(system.NewCleanupSystem(s.World), coresys.MutationDeferred)
}

// Step advances the simulation by dt.
func (s *State) Step(dt time.Duration) {
	if s.closed {
		return
	}
	start := time.Now()
	s.runner.Tick(dt)
	s.metrics.TickDuration.Observe(time.Since(start).Seconds())
}

// Systems lists the registered systems and their mutation modes in run order.
func (s *State) Systems() []string { return s.runner.Modes() }

func (s *State) Bus() *event.Bus { return s.bus }

func (s *State) Actors() *ecs.Store[component.Actor] { return s.actors }

func (s *State) Statuses() *ecs.Store[component.Statuses] { return s.statuses }

// SpawnActor registers a host actor. The actor named in the knockback
// configuration is flagged local.
func (s *State) SpawnActor(name string, objectID uint32, local bool) ecs.EntityID {
	s.spawningActor = true
	id := s.World.CreateEntity()
	s.spawningActor = false
	if name != "" && name == s.cfg.Knockback.LocalActor {
		local = true
	}
	s.actors.Set(id, &component.Actor{ObjectID: objectID, Name: name, Local: local})
	s.statuses.Set(id, &component.Statuses{IDs: make(map[uint32]float64)})
	if name != "" {
		s.byName[name] = id
	}
	return id
}

// Actor finds an actor by name.
func (s *State) Actor(name string) (ecs.EntityID, bool) {
	id, ok := s.byName[name]
	return id, ok && s.World.Alive(id)
}

// SetStatus mirrors a host status on target; 0 seconds means permanent.
func (s *State) SetStatus(target ecs.EntityID, statusID uint32, seconds float64) {
	st, ok := s.statuses.Get(target)
	if !ok {
		st = &component.Statuses{IDs: make(map[uint32]float64)}
	}
	st.IDs[statusID] = seconds
	s.statuses.Set(target, st)
}

// ApplyCondition applies a condition kind by name.
func (s *State) ApplyCondition(target ecs.EntityID, kind string, duration float64, extend, override bool) (ecs.EntityID, error) {
	k, err := condition.ParseKind(kind)
	if err != nil {
		return 0, oops.Code("CONDITION_UNKNOWN").With("kind", kind).Wrap(err)
	}
	h := s.Conditions.ApplyKind(target, k, duration, condition.Options{Extend: extend, Override: override})
	return h.Entity(), nil
}

// RemoveCondition removes every condition of the named kind from target.
func (s *State) RemoveCondition(target ecs.EntityID, kind string) (int, error) {
	k, err := condition.ParseKind(kind)
	if err != nil {
		return 0, oops.Code("CONDITION_UNKNOWN").With("kind", kind).Wrap(err)
	}
	return s.Conditions.Remove(target, k), nil
}

func (s *State) Knockback(target ecs.EntityID, dir component.Vec3, duration float64, canResist bool) {
	s.Resolver.ApplyToTarget(target, dir, duration, canResist)
}

// After runs fn once delay simulated seconds have passed.
func (s *State) After(delay float64, fn func() error) {
	s.Scheduler.Schedule(0, func(*ecs.World) error { return fn() }, delay, false)
}

// Omen places a telegraph effect that is removed after duration seconds
// (0 = until the encounter is reset). It returns the owning entity.
func (s *State) Omen(path string, pos component.Vec3, rot float32, duration float64) ecs.EntityID {
	owner := s.World.CreateEntity()
	s.Effects.AttachGround(owner, path, pos, rot, true)
	if duration > 0 {
		s.Scheduler.After(owner, duration, func() { s.World.Destroy(owner) })
	}
	return owner
}

// Emit queues a combat event for dispatch at the start of the next step.
func (s *State) Emit(ev event.ActionEffect) { event.Emit(s.bus, ev) }

func (s *State) Now() float64 { return s.World.Now() }
