package system

import (
	"time"

	"github.com/ravenwatch/combatsim/internal/component"
	"github.com/ravenwatch/combatsim/internal/core/ecs"
	coresys "github.com/ravenwatch/combatsim/internal/core/system"
)

// StatusTickSystem counts down the host status timers mirrored on actors
// and drops the expired ones. Permanent statuses (0) are left alone.
// Phase 2 (Update).
type StatusTickSystem struct {
	statuses *ecs.Store[component.Statuses]
}

func NewStatusTickSystem(statuses *ecs.Store[component.Statuses]) *StatusTickSystem {
	return &StatusTickSystem{statuses: statuses}
}

func (s *StatusTickSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *StatusTickSystem) Name() string { return "status.tick" }

func (s *StatusTickSystem) Update(dt time.Duration) {
	step := dt.Seconds()
	s.statuses.Each(func(id ecs.EntityID, st *component.Statuses) {
		changed := false
		for statusID, remaining := range st.IDs {
			if remaining <= 0 {
				continue
			}
			remaining -= step
			if remaining <= 0 {
				delete(st.IDs, statusID)
			} else {
				st.IDs[statusID] = remaining
			}
			changed = true
		}
		if changed {
			s.statuses.Touch(id)
		}
	})
}
