package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ravenwatch/combatsim/internal/core/ecs"
	coresys "github.com/ravenwatch/combatsim/internal/core/system"
	"github.com/ravenwatch/combatsim/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	world   *ecs.World
	sched   *Scheduler
	runner  *coresys.Runner
	metrics *metrics.Metrics
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	w := ecs.NewWorld()
	m := metrics.New(prometheus.NewRegistry())
	s := New(w, log, m)
	r := coresys.NewRunner(w, log)
	r.Register(s.ImmediateSystem(), coresys.MutationImmediate)
	r.Register(s.DeferredSystem(), coresys.MutationDeferred)
	return &fixture{world: w, sched: s, runner: r, metrics: m, logs: logs}
}

func TestSchedule_ZeroDelayRunsSameTickAndIsDestroyed(t *testing.T) {
	f := newFixture(t)
	calls := 0
	id := f.sched.After(0, 0, func() { calls++ })

	f.runner.Tick(16 * time.Millisecond)

	assert.Equal(t, 1, calls)
	assert.False(t, f.world.Alive(id))
	assert.Zero(t, f.sched.Pending())
}

func TestSchedule_RunsExactlyOnceAfterDelay(t *testing.T) {
	f := newFixture(t)
	calls := 0
	id := f.sched.After(0, 0.5, func() { calls++ })

	f.runner.Tick(200 * time.Millisecond)
	f.runner.Tick(200 * time.Millisecond)
	assert.Zero(t, calls)
	rem, ok := f.sched.Remaining(id)
	require.True(t, ok)
	assert.InDelta(t, 0.1, rem, 1e-9)

	f.runner.Tick(200 * time.Millisecond)
	assert.Equal(t, 1, calls)

	f.runner.Tick(time.Second)
	assert.Equal(t, 1, calls, "never re-armed")
}

func TestSchedule_FailingCallbackStillDestroyed(t *testing.T) {
	f := newFixture(t)
	failing := f.sched.Schedule(0, func(*ecs.World) error {
		return errors.New("callback exploded")
	}, 0, false)
	panicking := f.sched.Schedule(0, func(*ecs.World) error {
		panic("callback panicked")
	}, 0, true)
	ok := 0
	f.sched.After(0, 0, func() { ok++ })

	assert.NotPanics(t, func() { f.runner.Tick(time.Millisecond) })

	assert.False(t, f.world.Alive(failing))
	assert.False(t, f.world.Alive(panicking))
	assert.Equal(t, 1, ok, "other actions are unaffected")
	assert.Equal(t, 2, f.logs.FilterMessage("contained failure").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActionsExecuted.WithLabelValues("deferred", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActionsExecuted.WithLabelValues("immediate", "failed")))
}

func TestSchedule_ImmediateCallbackSeesItsOwnDestroys(t *testing.T) {
	f := newFixture(t)
	victim := f.world.CreateEntity()
	var aliveAfter bool
	f.sched.Schedule(0, func(w *ecs.World) error {
		w.Destroy(victim)
		aliveAfter = w.Alive(victim)
		return nil
	}, 0, true)

	f.runner.Tick(time.Millisecond)
	assert.False(t, aliveAfter)
}

func TestSchedule_DeferredCallbackDestroyIsBatched(t *testing.T) {
	f := newFixture(t)
	victim := f.world.CreateEntity()
	var aliveAfter bool
	f.sched.Schedule(0, func(w *ecs.World) error {
		w.Destroy(victim)
		aliveAfter = w.Alive(victim)
		return nil
	}, 0, false)

	f.runner.Tick(time.Millisecond)
	assert.True(t, aliveAfter, "destroy queued until the system returns")
	assert.False(t, f.world.Alive(victim))
}

func TestSchedule_ImmediateBracketNestsInsideDeferredTick(t *testing.T) {
	w := ecs.NewWorld()
	s := New(w, zap.NewNop(), nil)
	victim := w.CreateEntity()
	var aliveAfter bool
	s.Schedule(0, func(w *ecs.World) error {
		w.Destroy(victim)
		aliveAfter = w.Alive(victim)
		return nil
	}, 0, true)

	w.BeginDeferred()
	s.tick(0.016, true)
	d, susp := w.Depths()
	w.EndDeferred()

	assert.False(t, aliveAfter)
	assert.Equal(t, 1, d)
	assert.Zero(t, susp, "suspend is resumed after the callback")
}

func TestSchedule_DestroyedWithParent(t *testing.T) {
	f := newFixture(t)
	parent := f.world.CreateEntity()
	calls := 0
	f.sched.After(parent, 1, func() { calls++ })

	f.world.Destroy(parent)
	f.runner.Tick(2 * time.Second)

	assert.Zero(t, calls)
	assert.Zero(t, f.sched.Pending())
}

func TestSchedule_ActionsCreatedDuringTickWaitForNextTick(t *testing.T) {
	f := newFixture(t)
	inner := 0
	f.sched.After(0, 0, func() {
		f.sched.After(0, 0, func() { inner++ })
	})

	f.runner.Tick(time.Millisecond)
	assert.Zero(t, inner)
	f.runner.Tick(time.Millisecond)
	assert.Equal(t, 1, inner)
}
