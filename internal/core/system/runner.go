package system

import (
	"fmt"
	"sort"
	"time"

	"github.com/ravenwatch/combatsim/internal/core/ecs"
	"github.com/ravenwatch/combatsim/internal/core/safe"
	"go.uber.org/zap"
)

type registration struct {
	sys  System
	mode MutationMode
}

// Runner executes systems in phase order each tick; systems sharing a phase
// run in registration order. Every registration carries its MutationMode and
// the runner brackets the system accordingly.
type Runner struct {
	world   *ecs.World
	log     *zap.Logger
	systems []registration
	sorted  bool
}

func NewRunner(world *ecs.World, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		world:   world,
		log:     log,
		systems: make([]registration, 0, 16),
	}
}

func (r *Runner) Register(s System, mode MutationMode) {
	r.systems = append(r.systems, registration{sys: s, mode: mode})
	r.sorted = false
}

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for _, reg := range r.systems {
		r.run(reg, dt)
	}
}

// TickPhase runs only the systems of the given phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, reg := range r.systems {
		if reg.sys.Phase() == phase {
			r.run(reg, dt)
		}
	}
}

// Modes lists the registered systems with their mutation mode, in run order.
func (r *Runner) Modes() []string {
	r.ensureSorted()
	out := make([]string, 0, len(r.systems))
	for _, reg := range r.systems {
		out = append(out, fmt.Sprintf("%s:%s", systemName(reg.sys), reg.mode))
	}
	return out
}

func (r *Runner) run(reg registration, dt time.Duration) {
	r.world.BeginDeferred()
	if reg.mode == MutationImmediate {
		r.world.SuspendDeferred()
	}
	_ = safe.Do(r.log, "SYSTEM_FAILED", func() {
		// Brackets are restored even when the body panics, so a failing
		// system cannot leave the world stuck in the wrong mode.
		defer func() {
			if reg.mode == MutationImmediate {
				r.world.ResumeDeferred()
			}
			r.world.EndDeferred()
		}()
		reg.sys.Update(dt)
	}, zap.String("system", systemName(reg.sys)))
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].sys.Phase() < r.systems[j].sys.Phase()
		})
		r.sorted = true
	}
}

func systemName(s System) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
