package system

import (
	"time"

	"github.com/ravenwatch/combatsim/internal/core/ecs"
	coresys "github.com/ravenwatch/combatsim/internal/core/system"
)

// ClockSystem advances the simulated clock before anything else runs.
// Phase 0 (Input).
type ClockSystem struct {
	world *ecs.World
}

func NewClockSystem(world *ecs.World) *ClockSystem {
	return &ClockSystem{world: world}
}

func (s *ClockSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ClockSystem) Name() string { return "clock" }

func (s *ClockSystem) Update(dt time.Duration) {
	s.world.Advance(dt.Seconds())
}
