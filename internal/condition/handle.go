package condition

import "github.com/ravenwatch/combatsim/internal/core/ecs"

// Condition is the component on a condition entity, a child of its target.
type Condition struct {
	Name         string
	Remaining    float64 // seconds, clamped at 0
	Created      float64 // world clock at creation
	IdentityCode uint32
	Status       *Status

	expiring bool // destroy requested, possibly still queued
}

// Markers records which kinds have attached themselves to a condition.
type Markers struct {
	Mask uint32
}

// Handle is a read-only view of a condition. The zero Handle refers to
// nothing; every accessor on it returns zero values.
type Handle struct {
	e  *Engine
	id ecs.EntityID
}

func (h Handle) Entity() ecs.EntityID { return h.id }

// Valid reports whether the handle was issued for a condition at all.
func (h Handle) Valid() bool { return h.e != nil && !h.id.IsZero() }

// Alive reports whether the condition still exists and is not expiring.
func (h Handle) Alive() bool {
	c := h.get()
	return c != nil && !c.expiring
}

func (h Handle) Name() string {
	if c := h.get(); c != nil {
		return c.Name
	}
	return ""
}

func (h Handle) Remaining() float64 {
	if c := h.get(); c != nil {
		return c.Remaining
	}
	return 0
}

func (h Handle) Created() float64 {
	if c := h.get(); c != nil {
		return c.Created
	}
	return 0
}

func (h Handle) IdentityCode() uint32 {
	if c := h.get(); c != nil {
		return c.IdentityCode
	}
	return 0
}

// Status returns a copy of the icon metadata, if any.
func (h Handle) Status() (Status, bool) {
	if c := h.get(); c != nil && c.Status != nil {
		return *c.Status, true
	}
	return Status{}, false
}

// Target returns the entity the condition is attached to.
func (h Handle) Target() ecs.EntityID {
	if !h.Valid() {
		return 0
	}
	return h.e.world.Parent(h.id)
}

// Is reports whether kind k has attached its marker to this condition.
func (h Handle) Is(k Kind) bool {
	if !h.Valid() {
		return false
	}
	m, ok := h.e.markers.Get(h.id)
	return ok && m.Mask&k.bit() != 0
}

func (h Handle) get() *Condition {
	if !h.Valid() {
		return nil
	}
	c, _ := h.e.conds.Get(h.id)
	return c
}
