package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_EventsVisibleNextTick(t *testing.T) {
	b := NewBus()
	var got []ActionEffect
	Subscribe(b, func(ev ActionEffect) { got = append(got, ev) })

	Emit(b, ActionEffect{ActionID: 1})
	b.DispatchAll()
	assert.Empty(t, got, "not swapped yet")

	b.SwapBuffers()
	b.DispatchAll()
	assert.Len(t, got, 1)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Len(t, got, 1, "buffer cleared after one tick")
}

func TestSubscription_Close(t *testing.T) {
	b := NewBus()
	calls := 0
	sub := Subscribe(b, func(ActionEffect) { calls++ })
	other := Subscribe(b, func(ActionEffect) {})
	assert.Equal(t, 2, Handlers[ActionEffect](b))

	sub.Close()
	sub.Close()
	assert.Equal(t, 1, Handlers[ActionEffect](b))

	Emit(b, ActionEffect{})
	b.SwapBuffers()
	b.DispatchAll()
	assert.Zero(t, calls)

	other.Close()
	assert.Zero(t, Handlers[ActionEffect](b))
}

func TestEffectType_IsKnockback(t *testing.T) {
	assert.True(t, EffectKnockback1.IsKnockback())
	assert.True(t, EffectKnockback2.IsKnockback())
	assert.False(t, EffectNothing.IsKnockback())
}
