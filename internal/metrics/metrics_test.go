package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ConditionsApplied.WithLabelValues("stun", "created").Inc()
	m.EffectsLive.Set(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConditionsApplied.WithLabelValues("stun", "created")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EffectsLive))

	assert.Panics(t, func() { New(reg) }, "double registration must fail loudly")
}

func TestOrNop(t *testing.T) {
	m := New(prometheus.NewRegistry())
	assert.Same(t, m, OrNop(m))
	assert.NotNil(t, OrNop(nil))
}
