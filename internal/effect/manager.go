// Package effect drives native visual effects from ECS components: lazy
// spawn, live transform updates, self-termination and fade-out on removal.
package effect

import (
	"errors"

	"github.com/ravenwatch/combatsim/internal/component"
	"github.com/ravenwatch/combatsim/internal/core/ecs"
	"github.com/ravenwatch/combatsim/internal/core/safe"
	"github.com/ravenwatch/combatsim/internal/metrics"
	"github.com/samber/oops"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	DefaultOmenFade    = 0.25
	DefaultRegularFade = 1.0

	fadeEpsilon = 1e-6
)

// Options tunes the fade-out durations in seconds.
type Options struct {
	OmenFade    float64
	DefaultFade float64
}

func (o Options) withDefaults() Options {
	if o.OmenFade <= 0 {
		o.OmenFade = DefaultOmenFade
	}
	if o.DefaultFade <= 0 {
		o.DefaultFade = DefaultRegularFade
	}
	return o
}

// Manager owns the effect stores and the native handle registry.
type Manager struct {
	world   *ecs.World
	log     *zap.Logger
	metrics *metrics.Metrics
	render  Renderer
	actors  *ecs.Store[component.Actor]
	opts    Options

	// Ground and Actor are registered before Alpha so their removal hooks
	// still read the alpha override of a dying entity.
	ground   *ecs.Store[Ground]
	actor    *ecs.Store[Actor]
	position *ecs.Store[Position]
	rotation *ecs.Store[Rotation]
	scale    *ecs.Store[Scale]
	alpha    *ecs.Store[Alpha]
	fades    *ecs.Store[Fade]

	// live native handles → owning or fade-holder entity
	registry map[Handle]ecs.EntityID
	disposed bool
	holding  bool // a fade-out holder is being created
}

func NewManager(w *ecs.World, r Renderer, actors *ecs.Store[component.Actor], log *zap.Logger, m *metrics.Metrics, opts Options) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	mgr := &Manager{
		world:    w,
		log:      log,
		metrics:  metrics.OrNop(m),
		render:   r,
		actors:   actors,
		opts:     opts.withDefaults(),
		ground:   ecs.NewStore[Ground](w),
		actor:    ecs.NewStore[Actor](w),
		position: ecs.NewStore[Position](w),
		rotation: ecs.NewStore[Rotation](w),
		scale:    ecs.NewStore[Scale](w),
		alpha:    ecs.NewStore[Alpha](w),
		fades:    ecs.NewStore[Fade](w),
		registry: make(map[Handle]ecs.EntityID, 64),
	}
	mgr.ground.OnRemove(func(id ecs.EntityID, g *Ground) {
		mgr.beginFade(id, &g.Slot, g.Omen)
	})
	mgr.actor.OnRemove(func(id ecs.EntityID, a *Actor) {
		mgr.beginFade(id, &a.Slot, a.Omen)
	})
	mgr.fades.OnRemove(func(id ecs.EntityID, f *Fade) {
		// Holder destroyed from outside (encounter reset, world clear).
		if !f.released {
			f.released = true
			_ = mgr.release(f.Handle, "immediate")
		}
		mgr.metrics.EffectsFading.Set(float64(mgr.fades.Len()))
	})
	return mgr
}

// AttachGround creates a ground effect as a child of parent.
func (m *Manager) AttachGround(parent ecs.EntityID, path string, pos component.Vec3, rot float32, omen bool) ecs.EntityID {
	id := m.world.CreateChild(parent)
	m.position.Set(id, &Position{V: pos})
	m.rotation.Set(id, &Rotation{Radians: rot})
	m.ground.Set(id, &Ground{Path: path, Omen: omen})
	return id
}

// AttachActorEffect creates an actor-bound effect as a child of parent.
func (m *Manager) AttachActorEffect(parent ecs.EntityID, path string, caster, target ecs.EntityID) ecs.EntityID {
	id := m.world.CreateChild(parent)
	m.actor.Set(id, &Actor{Path: path, Caster: caster, Target: target})
	return id
}

func (m *Manager) SetPosition(id ecs.EntityID, v component.Vec3) {
	m.position.Set(id, &Position{V: v})
}

func (m *Manager) SetRotation(id ecs.EntityID, radians float32) {
	m.rotation.Set(id, &Rotation{Radians: radians})
}

func (m *Manager) SetScale(id ecs.EntityID, v component.Vec3) {
	m.scale.Set(id, &Scale{V: v})
}

// SetAlpha sets the opacity override; it is clamped to [0,1].
func (m *Manager) SetAlpha(id ecs.EntityID, a float32) {
	m.alpha.Set(id, &Alpha{Value: clamp01(a)})
}

// Slot returns the native state of the effect on id.
func (m *Manager) Slot(id ecs.EntityID) (Slot, bool) {
	if g, ok := m.ground.Get(id); ok {
		return g.Slot, true
	}
	if a, ok := m.actor.Get(id); ok {
		return a.Slot, true
	}
	return Slot{}, false
}

// Owner returns the entity currently responsible for a live handle.
func (m *Manager) Owner(h Handle) (ecs.EntityID, bool) {
	id, ok := m.registry[h]
	return id, ok
}

// Live returns the number of native handles not yet released.
func (m *Manager) Live() int { return len(m.registry) }

// Fading returns the number of fade-out holders.
func (m *Manager) Fading() int { return m.fades.Len() }

func (m *Manager) Ground() *ecs.Store[Ground] { return m.ground }

func (m *Manager) Actors() *ecs.Store[Actor] { return m.actor }

func (m *Manager) Scale() *ecs.Store[Scale] { return m.scale }

func (m *Manager) Alpha() *ecs.Store[Alpha] { return m.alpha }

func (m *Manager) Fades() *ecs.Store[Fade] { return m.fades }

// CreatingHolder reports whether the entity currently being created is a
// fade-out holder. World OnCreate hooks use it to leave holders alone.
func (m *Manager) CreatingHolder() bool { return m.holding }

func (m *Manager) beginFade(owner ecs.EntityID, slot *Slot, omen bool) {
	if slot.State != SlotLive || m.disposed {
		return
	}
	h := slot.Handle
	slot.State = SlotTerminated
	delete(m.registry, h)

	base := m.opts.DefaultFade
	if omen {
		base = m.opts.OmenFade
	}
	alpha := float32(1)
	if a, ok := m.alpha.Get(owner); ok {
		alpha = a.Value
	}
	if alpha <= 0 {
		m.registry[h] = owner
		_ = m.release(h, "immediate")
		return
	}
	dur := base * float64(alpha)
	m.holding = true
	holder := m.world.CreateEntity()
	m.holding = false
	m.registry[h] = holder
	m.fades.Set(holder, &Fade{Handle: h, Duration: dur, Remaining: dur, Alpha: alpha})
	m.metrics.EffectsFading.Set(float64(m.fades.Len()))
	m.log.Debug("effect fading",
		zap.Uint64("handle", uint64(h)),
		zap.Float64("duration", dur),
		zap.Bool("omen", omen))
}

// release hands h back to the renderer. A stale handle is not an error.
func (m *Manager) release(h Handle, reason string) error {
	if _, ok := m.registry[h]; !ok {
		return nil
	}
	delete(m.registry, h)
	m.metrics.EffectsLive.Set(float64(len(m.registry)))
	err := m.render.Release(h)
	if err == nil || errors.Is(err, ErrStaleHandle) {
		m.metrics.EffectsReleased.WithLabelValues(reason).Inc()
		return nil
	}
	err = oops.
		Code("EFFECT_RELEASE_FAILED").
		With("handle", uint64(h)).
		With("reason", reason).
		Wrap(err)
	safe.LogError(m.log, "effect release failed", err)
	return err
}

// Dispose force-releases every live and fading native handle. It is safe to
// call more than once; later calls return nil.
func (m *Manager) Dispose() error {
	if m.disposed {
		return nil
	}
	var errs error
	m.ground.Each(func(_ ecs.EntityID, g *Ground) {
		errs = multierr.Append(errs, m.disposeSlot(&g.Slot))
	})
	m.actor.Each(func(_ ecs.EntityID, a *Actor) {
		errs = multierr.Append(errs, m.disposeSlot(&a.Slot))
	})
	m.fades.Each(func(_ ecs.EntityID, f *Fade) {
		if f.released {
			return
		}
		f.released = true
		errs = multierr.Append(errs, m.release(f.Handle, "disposed"))
	})
	m.disposed = true
	if errs != nil {
		m.log.Warn("effect dispose incomplete",
			zap.Int("failures", len(multierr.Errors(errs))),
			zap.Error(errs))
	}
	return errs
}

func (m *Manager) disposeSlot(s *Slot) error {
	if s.State != SlotLive {
		return nil
	}
	s.State = SlotTerminated
	return m.release(s.Handle, "disposed")
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
