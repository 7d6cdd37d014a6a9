package system

import (
	"time"

	"github.com/ravenwatch/combatsim/internal/core/ecs"
	coresys "github.com/ravenwatch/combatsim/internal/core/system"
)

// CleanupSystem flushes structural mutations queued outside any system
// bracket (MarkForDestruction) at tick end. Phase 6 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
}

func NewCleanupSystem(world *ecs.World) *CleanupSystem {
	return &CleanupSystem{world: world}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Name() string { return "cleanup" }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.world.FlushDestroyQueue()
}
