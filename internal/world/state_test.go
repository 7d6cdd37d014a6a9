package world

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ravenwatch/combatsim/internal/component"
	"github.com/ravenwatch/combatsim/internal/condition"
	"github.com/ravenwatch/combatsim/internal/config"
	"github.com/ravenwatch/combatsim/internal/core/ecs"
	"github.com/ravenwatch/combatsim/internal/core/event"
	"github.com/ravenwatch/combatsim/internal/data"
	"github.com/ravenwatch/combatsim/internal/effect/effecttest"
	"github.com/ravenwatch/combatsim/internal/knockback"
	"github.com/ravenwatch/combatsim/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const frame = 100 * time.Millisecond

func newState(t *testing.T) (*State, *effecttest.Renderer, *metrics.Metrics) {
	t.Helper()
	r := effecttest.New()
	m := metrics.New(prometheus.NewRegistry())
	s, err := NewState(Options{Renderer: r, Log: zap.NewNop(), Metrics: m})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, r, m
}

func steps(s *State, n int) {
	for i := 0; i < n; i++ {
		s.Step(frame)
	}
}

func actorEffects(s *State, parent ecs.EntityID) []ecs.EntityID {
	return ecs.ChildrenWith(s.World, parent, s.Effects.Actors())
}

func TestNewState_RequiresRenderer(t *testing.T) {
	_, err := NewState(Options{})
	assert.Error(t, err)
}

func TestSystems_RunInPipelineOrder(t *testing.T) {
	s, _, _ := newState(t)
	assert.Equal(t, []string{
		"clock:deferred",
		"event.dispatch:deferred",
		"scheduler.immediate:immediate",
		"scheduler.deferred:deferred",
		"condition.tick:deferred",
		"status.tick:deferred",
		"effect.spawn:deferred",
		"effect.fade:deferred",
		"cleanup:deferred",
	}, s.Systems())
}

func TestStun_FullLifecycle(t *testing.T) {
	s, r, m := newState(t)
	player := s.SpawnActor("Player", 100, true)
	boss := s.SpawnActor("Boss", 200, false)

	h := s.Conditions.ApplyKind(player, condition.KindStun, 2, condition.Options{Source: boss})
	require.True(t, h.Alive())
	require.Len(t, actorEffects(s, h.Entity()), 1, "application effect attached at once")

	s.Step(frame)
	assert.Equal(t, 1, r.Count("spawn-actor"))
	in := r.Instances[1]
	require.NotNil(t, in)
	assert.Equal(t, uint32(200), in.Caster)
	assert.Equal(t, uint32(100), in.Target)

	steps(s, 6)
	assert.Len(t, actorEffects(s, h.Entity()), 2, "looping effect after the loop delay")
	assert.Equal(t, 2, r.Count("spawn-actor"))

	steps(s, 15)
	assert.False(t, h.Alive())
	assert.False(t, s.World.Alive(h.Entity()))
	assert.Equal(t, 2, s.Effects.Fading(), "both effects fade out")
	assert.Empty(t, r.Released)

	steps(s, 10)
	assert.Len(t, r.Released, 2)
	assert.Zero(t, s.Effects.Live())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConditionsExpired))
	assert.True(t, s.World.Alive(player))
}

func TestAfter_ZeroDelayRunsThisStep(t *testing.T) {
	s, _, _ := newState(t)
	ran := 0
	s.After(0, func() error { ran++; return nil })
	s.Step(frame)
	assert.Equal(t, 1, ran)
	assert.Zero(t, s.Scheduler.Pending())
}

func TestOmen_RemovedAfterDurationThenFades(t *testing.T) {
	s, r, _ := newState(t)
	owner := s.Omen("vfx/omen/circle.avfx", component.Vec3{X: 1}, 0, 0.3)

	s.Step(frame)
	require.Equal(t, 1, r.Count("spawn-ground"))
	steps(s, 3)
	assert.False(t, s.World.Alive(owner))
	assert.Equal(t, 1, s.Effects.Fading())

	steps(s, 3)
	assert.Len(t, r.Released, 1, "omen fade is a quarter second")
}

func TestKnockback_ResistedAndCancelled(t *testing.T) {
	s, _, _ := newState(t)
	player := s.SpawnActor("Player", 100, true)

	s.SetStatus(player, data.StatusSurecast, 5)
	s.Knockback(player, component.Vec3{X: 1}, 2, true)
	s.Step(frame)
	assert.Equal(t, knockback.Idle, s.Resolver.State(player))

	s.Knockback(player, component.Vec3{X: 1}, 2, false)
	s.Step(frame)
	require.Equal(t, knockback.Active, s.Resolver.State(player))

	s.Emit(event.ActionEffect{SourceID: 5, TargetID: 100, ActionID: 1, EffectType: event.EffectKnockback2})
	s.Step(frame)
	assert.Equal(t, knockback.Cancelled, s.Resolver.State(player))
	assert.False(t, s.Conditions.Has(player, condition.KindKnockback))
}

func TestStatuses_ExpireOverTime(t *testing.T) {
	s, _, _ := newState(t)
	player := s.SpawnActor("Player", 100, true)
	s.SetStatus(player, data.StatusArmsLength, 0.25)

	steps(s, 3)
	st, ok := s.Statuses().Get(player)
	require.True(t, ok)
	assert.NotContains(t, st.IDs, data.StatusArmsLength)
}

func TestResetEncounter_DestroysOnlyTaggedEntities(t *testing.T) {
	s, r, _ := newState(t)
	player := s.SpawnActor("Player", 100, true)
	before := s.Conditions.ApplyKind(player, condition.KindHeavy, 30, condition.Options{})

	id := s.BeginEncounter()
	stun := s.Conditions.ApplyKind(player, condition.KindStun, 30, condition.Options{})
	omen := s.Omen("vfx/omen/line.avfx", component.Vec3{}, 0, 0)
	fired := false
	s.After(5, func() error { fired = true; return nil })
	late := s.SpawnActor("Add", 300, false)
	s.Step(frame)

	n := s.ResetEncounter(id)
	assert.Equal(t, 3, n, "stun, omen and the pending action")
	assert.Zero(t, s.ActiveEncounter())
	assert.False(t, stun.Alive())
	assert.False(t, s.World.Alive(omen))
	assert.True(t, before.Alive())
	assert.True(t, s.World.Alive(player))
	assert.True(t, s.World.Alive(late), "actors are never tagged")

	steps(s, 60)
	assert.False(t, fired)
	assert.Len(t, r.Released, 2, "stun and omen effects faded out")
	assert.Equal(t, 2, s.Effects.Live(), "heavy keeps both of its effects")
}

func TestResetEncounter_LetsRunningFadesFinish(t *testing.T) {
	s, r, _ := newState(t)
	id := s.BeginEncounter()
	s.Omen("vfx/omen/circle.avfx", component.Vec3{}, 0, 0.3)
	steps(s, 4)
	require.Equal(t, 1, s.Effects.Fading())
	for _, holder := range s.Effects.Fades().Entities() {
		assert.False(t, s.encounters.Has(holder), "holders are never tagged")
	}

	s.ResetEncounter(id)
	assert.Equal(t, 1, s.Effects.Fading(), "fade keeps running")
	assert.Empty(t, r.Released)

	steps(s, 3)
	assert.Zero(t, s.Effects.Fading())
	assert.Len(t, r.Released, 1)
}

func TestClose_DisposesEffectsAndStopsStepping(t *testing.T) {
	r := effecttest.New()
	s, err := NewState(Options{Renderer: r})
	require.NoError(t, err)
	player := s.SpawnActor("Player", 100, true)
	s.Conditions.ApplyKind(player, condition.KindBind, 10, condition.Options{})
	s.Step(frame)
	require.Equal(t, 1, s.Effects.Live())

	require.NoError(t, s.Close())
	assert.Len(t, r.Released, 1)
	assert.Zero(t, event.Handlers[event.ActionEffect](s.Bus()))
	assert.False(t, s.World.Alive(player))

	s.Step(frame)
	require.NoError(t, s.Close())
	assert.Len(t, r.Released, 1)
}

func TestLocalActorFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Knockback.LocalActor = "Tank"
	s, err := NewState(Options{Renderer: effecttest.New(), Config: cfg})
	require.NoError(t, err)
	defer s.Close()

	tank := s.SpawnActor("Tank", 1, false)
	a, _ := s.Actors().Get(tank)
	assert.True(t, a.Local)
	assert.Equal(t, tank, s.Resolver.LocalActor())
}

func TestNewState_LoadsConditionTable(t *testing.T) {
	tbl, err := data.ParseConditionTable([]byte("conditions:\n  - kind: stun\n    identity_code: 5\n"))
	require.NoError(t, err)
	s, err := NewState(Options{Renderer: effecttest.New(), Conditions: tbl})
	require.NoError(t, err)
	defer s.Close()

	spec, _ := s.Conditions.Spec(condition.KindStun)
	assert.Equal(t, uint32(5), spec.IdentityCode)
	assert.Empty(t, spec.ApplyEffect)

	bad, err := data.ParseConditionTable([]byte("conditions:\n  - kind: petrify\n"))
	require.NoError(t, err)
	_, err = NewState(Options{Renderer: effecttest.New(), Conditions: bad})
	assert.Error(t, err)
}

func TestApplyCondition_ByName(t *testing.T) {
	s, _, _ := newState(t)
	player := s.SpawnActor("Player", 100, true)

	id, err := s.ApplyCondition(player, "Bind", 3, false, false)
	require.NoError(t, err)
	assert.True(t, s.World.Alive(id))

	_, err = s.ApplyCondition(player, "petrify", 3, false, false)
	assert.Error(t, err)

	n, err := s.RemoveCondition(player, "bind")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
