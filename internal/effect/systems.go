package effect

import (
	"time"

	"github.com/ravenwatch/combatsim/internal/core/ecs"
	"github.com/ravenwatch/combatsim/internal/core/safe"
	coresys "github.com/ravenwatch/combatsim/internal/core/system"
	"go.uber.org/zap"
)

// SpawnSystem spawns pending effects, pushes transform changes and detects
// native self-termination. Phase: PostUpdate.
func (m *Manager) SpawnSystem() coresys.System { return &spawnSystem{m: m} }

// FadeSystem ticks fade-out holders and releases their handles. Phase:
// PostUpdate, after SpawnSystem.
func (m *Manager) FadeSystem() coresys.System { return &fadeSystem{m: m} }

type spawnSystem struct{ m *Manager }

func (s *spawnSystem) Phase() coresys.Phase    { return coresys.PhasePostUpdate }
func (s *spawnSystem) Name() string            { return "effect.spawn" }
func (s *spawnSystem) Update(dt time.Duration) { s.m.sync() }

type fadeSystem struct{ m *Manager }

func (s *fadeSystem) Phase() coresys.Phase    { return coresys.PhasePostUpdate }
func (s *fadeSystem) Name() string            { return "effect.fade" }
func (s *fadeSystem) Update(dt time.Duration) { s.m.fade(dt.Seconds()) }

func (m *Manager) sync() {
	if m.disposed {
		return
	}
	m.ground.Each(func(id ecs.EntityID, g *Ground) {
		_ = safe.Do(m.log, "EFFECT_UPDATE_FAILED", func() {
			m.syncGround(id, g)
		}, zap.Uint64("entity", uint64(id)), zap.String("path", g.Path))
	})
	m.actor.Each(func(id ecs.EntityID, a *Actor) {
		_ = safe.Do(m.log, "EFFECT_UPDATE_FAILED", func() {
			m.syncActor(id, a)
		}, zap.Uint64("entity", uint64(id)), zap.String("path", a.Path))
	})
}

func (m *Manager) syncGround(id ecs.EntityID, g *Ground) {
	switch g.Slot.State {
	case SlotTerminated:
		m.world.Destroy(id)
	case SlotUnspawned:
		m.spawnGround(id, g)
	case SlotLive:
		if !m.render.Alive(g.Slot.Handle) {
			m.terminate(id, &g.Slot)
			return
		}
		if m.pushGround(id, &g.Slot) {
			m.render.MarkDirty(g.Slot.Handle)
		}
	}
}

func (m *Manager) spawnGround(id ecs.EntityID, g *Ground) {
	var rot float32
	p, _ := m.position.Get(id)
	if r, ok := m.rotation.Get(id); ok {
		rot = r.Radians
	}
	var pos Position
	if p != nil {
		pos = *p
	}
	h := m.render.SpawnGround(g.Path, pos.V, rot)
	if h == 0 {
		m.log.Debug("ground effect did not spawn", zap.String("path", g.Path), zap.Uint64("entity", uint64(id)))
		return
	}
	m.goLive(id, &g.Slot, h, "ground")

	if s, ok := m.scale.Get(id); ok {
		m.render.UpdateScale(h, s.V)
	} else {
		m.scale.Set(id, &Scale{V: m.render.DefaultScale(h)})
	}
	if a, ok := m.alpha.Get(id); ok {
		m.render.UpdateAlpha(h, a.Value)
	}
	g.Slot.posVer = m.position.Version(id)
	g.Slot.rotVer = m.rotation.Version(id)
	g.Slot.scaleVer = m.scale.Version(id)
	g.Slot.alphaVer = m.alpha.Version(id)
	m.render.MarkDirty(h)
}

func (m *Manager) pushGround(id ecs.EntityID, s *Slot) bool {
	dirty := false
	if v := m.position.Version(id); v != s.posVer {
		s.posVer = v
		if p, ok := m.position.Get(id); ok {
			m.render.UpdatePosition(s.Handle, p.V)
			dirty = true
		}
	}
	if v := m.rotation.Version(id); v != s.rotVer {
		s.rotVer = v
		if r, ok := m.rotation.Get(id); ok {
			m.render.UpdateRotation(s.Handle, r.Radians)
			dirty = true
		}
	}
	if v := m.scale.Version(id); v != s.scaleVer {
		s.scaleVer = v
		if sc, ok := m.scale.Get(id); ok {
			m.render.UpdateScale(s.Handle, sc.V)
			dirty = true
		}
	}
	return m.pushAlpha(id, s) || dirty
}

func (m *Manager) pushAlpha(id ecs.EntityID, s *Slot) bool {
	v := m.alpha.Version(id)
	if v == s.alphaVer {
		return false
	}
	s.alphaVer = v
	a, ok := m.alpha.Get(id)
	if !ok {
		return false
	}
	m.render.UpdateAlpha(s.Handle, a.Value)
	return true
}

// syncActor never pushes scale: the native layer cannot rescale an effect
// bound to actors once spawned.
func (m *Manager) syncActor(id ecs.EntityID, a *Actor) {
	switch a.Slot.State {
	case SlotTerminated:
		m.world.Destroy(id)
	case SlotUnspawned:
		target, ok := m.actors.Get(a.Target)
		if !ok {
			m.log.Debug("actor effect target unknown", zap.String("path", a.Path), zap.Uint64("target", uint64(a.Target)))
			return
		}
		var casterObj uint32
		if c, ok := m.actors.Get(a.Caster); ok {
			casterObj = c.ObjectID
		}
		h := m.render.SpawnActor(a.Path, casterObj, target.ObjectID)
		if h == 0 {
			m.log.Debug("actor effect did not spawn", zap.String("path", a.Path), zap.Uint64("entity", uint64(id)))
			return
		}
		m.goLive(id, &a.Slot, h, "actor")
		if al, ok := m.alpha.Get(id); ok {
			m.render.UpdateAlpha(h, al.Value)
			m.render.MarkDirty(h)
		}
		a.Slot.alphaVer = m.alpha.Version(id)
	case SlotLive:
		if !m.render.Alive(a.Slot.Handle) {
			m.terminate(id, &a.Slot)
			return
		}
		if m.pushAlpha(id, &a.Slot) {
			m.render.MarkDirty(a.Slot.Handle)
		}
	}
}

func (m *Manager) goLive(id ecs.EntityID, s *Slot, h Handle, kind string) {
	s.State = SlotLive
	s.Handle = h
	m.registry[h] = id
	m.metrics.EffectsSpawned.WithLabelValues(kind).Inc()
	m.metrics.EffectsLive.Set(float64(len(m.registry)))
}

// terminate records that the native effect finished on its own. The owner is
// destroyed on the next sync and the handle is never released.
func (m *Manager) terminate(id ecs.EntityID, s *Slot) {
	s.State = SlotTerminated
	delete(m.registry, s.Handle)
	m.metrics.EffectsTerminated.Inc()
	m.metrics.EffectsLive.Set(float64(len(m.registry)))
	m.log.Debug("effect self-terminated", zap.Uint64("entity", uint64(id)), zap.Uint64("handle", uint64(s.Handle)))
}

func (m *Manager) fade(dt float64) {
	if m.disposed {
		return
	}
	m.fades.Each(func(id ecs.EntityID, f *Fade) {
		if f.released {
			return
		}
		_ = safe.Do(m.log, "EFFECT_FADE_FAILED", func() {
			m.fadeOne(id, f, dt)
		}, zap.Uint64("holder", uint64(id)), zap.Uint64("handle", uint64(f.Handle)))
	})
}

func (m *Manager) fadeOne(id ecs.EntityID, f *Fade, dt float64) {
	if !m.render.Alive(f.Handle) {
		f.released = true
		delete(m.registry, f.Handle)
		m.metrics.EffectsTerminated.Inc()
		m.metrics.EffectsLive.Set(float64(len(m.registry)))
		m.world.Destroy(id)
		return
	}
	f.Remaining -= dt
	if f.Remaining > fadeEpsilon && f.Alpha > 0 {
		m.render.UpdateAlpha(f.Handle, f.Alpha*float32(f.Remaining/f.Duration))
		m.render.MarkDirty(f.Handle)
		return
	}
	f.Remaining = 0
	f.released = true
	_ = m.release(f.Handle, "faded")
	m.world.Destroy(id)
}
