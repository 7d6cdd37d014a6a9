package system

import (
	"testing"
	"time"

	"github.com/ravenwatch/combatsim/internal/component"
	"github.com/ravenwatch/combatsim/internal/core/ecs"
	"github.com/ravenwatch/combatsim/internal/core/event"
	coresys "github.com/ravenwatch/combatsim/internal/core/system"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestClockAndDispatchRunFirst(t *testing.T) {
	w := ecs.NewWorld()
	bus := event.NewBus()
	r := coresys.NewRunner(w, zap.NewNop())
	r.Register(NewCleanupSystem(w), coresys.MutationDeferred)
	r.Register(NewEventDispatchSystem(bus), coresys.MutationDeferred)
	r.Register(NewClockSystem(w), coresys.MutationDeferred)

	var seenAt []float64
	event.Subscribe(bus, func(event.ActionEffect) { seenAt = append(seenAt, w.Now()) })
	event.Emit(bus, event.ActionEffect{ActionID: 1})

	r.Tick(250 * time.Millisecond)
	assert.Equal(t, []string{"event.dispatch:deferred", "clock:deferred", "cleanup:deferred"}, r.Modes())
	assert.Equal(t, []float64{0}, seenAt, "dispatch registered first runs first")
	assert.InDelta(t, 0.25, w.Now(), 1e-9)
	assert.Equal(t, uint64(1), w.Frame())
}

func TestCleanupFlushesMarkedEntities(t *testing.T) {
	w := ecs.NewWorld()
	id := w.CreateEntity()
	w.MarkForDestruction(id)
	assert.True(t, w.Alive(id))

	NewCleanupSystem(w).Update(0)
	assert.False(t, w.Alive(id))
}

func TestStatusTick(t *testing.T) {
	w := ecs.NewWorld()
	statuses := ecs.NewStore[component.Statuses](w)
	id := w.CreateEntity()
	statuses.Set(id, &component.Statuses{IDs: map[uint32]float64{
		160:  1.0,
		1209: 0.2,
		50:   0, // permanent
	}})
	before := statuses.Version(id)

	NewStatusTickSystem(statuses).Update(500 * time.Millisecond)

	st, _ := statuses.Get(id)
	assert.Equal(t, map[uint32]float64{160: 0.5, 50: 0}, st.IDs)
	assert.Greater(t, statuses.Version(id), before)
}
