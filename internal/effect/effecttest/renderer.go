// Package effecttest provides a recording in-memory effect.Renderer.
package effecttest

import (
	"github.com/ravenwatch/combatsim/internal/component"
	"github.com/ravenwatch/combatsim/internal/effect"
)

// Instance is the renderer-side state of one spawned effect.
type Instance struct {
	Path           string
	Caster, Target uint32
	Pos            component.Vec3
	Rot            float32
	Scale          component.Vec3
	Alpha          float32
	Alphas         []float32 // every UpdateAlpha value, in order
	Dirty          int
	Finished       bool
}

// Renderer records every call. Handles start at 1.
type Renderer struct {
	Instances map[effect.Handle]*Instance
	Released  []effect.Handle
	Ops       []string

	// FailSpawn makes spawns return the zero handle.
	FailSpawn bool
	// ReleaseErr is returned by Release for live handles when set.
	ReleaseErr error
	// Default is the scale reported for ground effects.
	Default component.Vec3

	next effect.Handle
}

func New() *Renderer {
	return &Renderer{
		Instances: make(map[effect.Handle]*Instance),
		Default:   component.Vec3{X: 1, Y: 1, Z: 1},
	}
}

func (r *Renderer) SpawnGround(path string, pos component.Vec3, rot float32) effect.Handle {
	r.Ops = append(r.Ops, "spawn-ground")
	if r.FailSpawn {
		return 0
	}
	r.next++
	r.Instances[r.next] = &Instance{Path: path, Pos: pos, Rot: rot, Scale: r.Default, Alpha: 1}
	return r.next
}

func (r *Renderer) SpawnActor(path string, caster, target uint32) effect.Handle {
	r.Ops = append(r.Ops, "spawn-actor")
	if r.FailSpawn {
		return 0
	}
	r.next++
	r.Instances[r.next] = &Instance{Path: path, Caster: caster, Target: target, Scale: r.Default, Alpha: 1}
	return r.next
}

func (r *Renderer) UpdatePosition(h effect.Handle, pos component.Vec3) {
	r.Ops = append(r.Ops, "position")
	if in, ok := r.Instances[h]; ok {
		in.Pos = pos
	}
}

func (r *Renderer) UpdateRotation(h effect.Handle, rot float32) {
	r.Ops = append(r.Ops, "rotation")
	if in, ok := r.Instances[h]; ok {
		in.Rot = rot
	}
}

func (r *Renderer) UpdateScale(h effect.Handle, scale component.Vec3) {
	r.Ops = append(r.Ops, "scale")
	if in, ok := r.Instances[h]; ok {
		in.Scale = scale
	}
}

func (r *Renderer) UpdateAlpha(h effect.Handle, alpha float32) {
	r.Ops = append(r.Ops, "alpha")
	if in, ok := r.Instances[h]; ok {
		in.Alpha = alpha
		in.Alphas = append(in.Alphas, alpha)
	}
}

func (r *Renderer) MarkDirty(h effect.Handle) {
	if in, ok := r.Instances[h]; ok {
		in.Dirty++
	}
}

func (r *Renderer) DefaultScale(effect.Handle) component.Vec3 {
	return r.Default
}

func (r *Renderer) Alive(h effect.Handle) bool {
	in, ok := r.Instances[h]
	return ok && !in.Finished
}

func (r *Renderer) Release(h effect.Handle) error {
	r.Ops = append(r.Ops, "release")
	if _, ok := r.Instances[h]; !ok {
		return effect.ErrStaleHandle
	}
	if r.ReleaseErr != nil {
		return r.ReleaseErr
	}
	delete(r.Instances, h)
	r.Released = append(r.Released, h)
	return nil
}

// Finish simulates the native effect finishing on its own.
func (r *Renderer) Finish(h effect.Handle) {
	if in, ok := r.Instances[h]; ok {
		in.Finished = true
	}
}

// Count returns how many times op was recorded.
func (r *Renderer) Count(op string) int {
	n := 0
	for _, o := range r.Ops {
		if o == op {
			n++
		}
	}
	return n
}

// ReleaseCount returns how many times h was successfully released.
func (r *Renderer) ReleaseCount(h effect.Handle) int {
	n := 0
	for _, x := range r.Released {
		if x == h {
			n++
		}
	}
	return n
}
