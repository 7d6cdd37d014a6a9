package main

import (
	"github.com/ravenwatch/combatsim/internal/component"
	"github.com/ravenwatch/combatsim/internal/effect"
	"go.uber.org/zap"
)

// logRenderer stands in for a native effect layer: every call is logged and
// instances stay alive until released, or until lifetime simulated seconds
// have passed when lifetime > 0.
type logRenderer struct {
	log      *zap.Logger
	now      func() float64
	lifetime float64
	next     effect.Handle
	live     map[effect.Handle]float64 // handle -> spawn time
}

func newLogRenderer(log *zap.Logger, now func() float64, lifetime float64) *logRenderer {
	return &logRenderer{
		log:      log,
		now:      now,
		lifetime: lifetime,
		live:     make(map[effect.Handle]float64),
	}
}

func (r *logRenderer) spawn() effect.Handle {
	r.next++
	r.live[r.next] = r.now()
	return r.next
}

func (r *logRenderer) SpawnGround(path string, pos component.Vec3, rot float32) effect.Handle {
	h := r.spawn()
	r.log.Info("effect spawned",
		zap.Uint64("handle", uint64(h)),
		zap.String("path", path),
		zap.Float32("x", pos.X), zap.Float32("y", pos.Y), zap.Float32("z", pos.Z),
		zap.Float32("rot", rot))
	return h
}

func (r *logRenderer) SpawnActor(path string, caster, target uint32) effect.Handle {
	h := r.spawn()
	r.log.Info("effect spawned",
		zap.Uint64("handle", uint64(h)),
		zap.String("path", path),
		zap.Uint32("caster", caster),
		zap.Uint32("target", target))
	return h
}

func (r *logRenderer) UpdatePosition(h effect.Handle, pos component.Vec3) {
	r.log.Debug("effect moved", zap.Uint64("handle", uint64(h)), zap.Float32("x", pos.X), zap.Float32("z", pos.Z))
}

func (r *logRenderer) UpdateRotation(h effect.Handle, rot float32) {
	r.log.Debug("effect rotated", zap.Uint64("handle", uint64(h)), zap.Float32("rot", rot))
}

func (r *logRenderer) UpdateScale(h effect.Handle, scale component.Vec3) {
	r.log.Debug("effect scaled", zap.Uint64("handle", uint64(h)), zap.Float32("x", scale.X))
}

func (r *logRenderer) UpdateAlpha(h effect.Handle, alpha float32) {
	r.log.Debug("effect alpha", zap.Uint64("handle", uint64(h)), zap.Float32("alpha", alpha))
}

func (r *logRenderer) MarkDirty(effect.Handle) {}

func (r *logRenderer) DefaultScale(effect.Handle) component.Vec3 {
	return component.Vec3{X: 1, Y: 1, Z: 1}
}

func (r *logRenderer) Alive(h effect.Handle) bool {
	born, ok := r.live[h]
	if !ok {
		return false
	}
	if r.lifetime > 0 && r.now()-born >= r.lifetime {
		delete(r.live, h)
		r.log.Info("effect finished", zap.Uint64("handle", uint64(h)))
		return false
	}
	return true
}

func (r *logRenderer) Release(h effect.Handle) error {
	if _, ok := r.live[h]; !ok {
		return effect.ErrStaleHandle
	}
	delete(r.live, h)
	r.log.Info("effect released", zap.Uint64("handle", uint64(h)))
	return nil
}

// Live returns how many instances have not been released or finished.
func (r *logRenderer) Live() int { return len(r.live) }
