package effect

import (
	"github.com/ravenwatch/combatsim/internal/component"
	"github.com/ravenwatch/combatsim/internal/core/ecs"
)

// Ground is a static effect placed in the world independent of any actor.
type Ground struct {
	Path string
	Omen bool
	Slot Slot
}

// Actor is an effect bound natively to a caster and a target actor.
// Caster may be zero for environment effects.
type Actor struct {
	Path   string
	Caster ecs.EntityID
	Target ecs.EntityID
	Omen   bool
	Slot   Slot
}

type Position struct {
	V component.Vec3
}

// Rotation is the heading in radians.
type Rotation struct {
	Radians float32
}

type Scale struct {
	V component.Vec3
}

// Alpha overrides the effect opacity, in [0,1].
type Alpha struct {
	Value float32
}

// Fade is carried by a fade-out holder entity after its effect's owner went
// away.
type Fade struct {
	Handle    Handle
	Duration  float64
	Remaining float64
	Alpha     float32
	released  bool
}
