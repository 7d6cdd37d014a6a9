package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: advance clock, dispatch last frame's events
	PhasePreUpdate               // 1: host-side bookkeeping
	PhaseUpdate                  // 2: delayed actions, condition timers
	PhasePostUpdate              // 3: effect spawn/update, fade-out
	PhaseOutput                  // 4: metrics, diagnostics
	PhaseCleanup                 // 5: flush anything still queued
)

// MutationMode says how structural changes made by a system become visible.
type MutationMode int

const (
	// MutationDeferred batches destroys/removals until the system returns.
	MutationDeferred MutationMode = iota
	// MutationImmediate runs the system with deferral suspended, so a destroy
	// is visible to the very next statement.
	MutationImmediate
)

func (m MutationMode) String() string {
	if m == MutationImmediate {
		return "immediate"
	}
	return "deferred"
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Named is optionally implemented by systems for log and metric labels.
type Named interface {
	Name() string
}
