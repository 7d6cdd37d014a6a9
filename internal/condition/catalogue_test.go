package condition

import (
	"testing"

	"github.com/ravenwatch/combatsim/internal/data"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReplacesBuiltinSpecs(t *testing.T) {
	f := newFixture(t)
	tbl, err := data.ParseConditionTable([]byte(`
conditions:
  - kind: stun
    identity_code: 77
    icon: 1
    description: Dazed.
    polarity: debuff
    loop_delay: 1.5
`))
	require.NoError(t, err)
	require.NoError(t, f.engine.Load(tbl))

	spec, ok := f.engine.Spec(KindStun)
	require.True(t, ok)
	assert.Equal(t, uint32(77), spec.IdentityCode)
	assert.Equal(t, "Stun", spec.Name)
	require.NotNil(t, spec.Status)
	assert.Equal(t, "Stun", spec.Status.Title, "title falls back to the name")
	assert.Equal(t, PolarityEnfeeblement, spec.Status.Polarity)
	assert.InDelta(t, 1.5, spec.LoopDelay, 1e-9)

	bind, ok := f.engine.Spec(KindBind)
	require.True(t, ok)
	assert.Equal(t, uint32(13), bind.IdentityCode, "kinds absent from the table keep defaults")
}

func TestLoad_UnknownKind(t *testing.T) {
	f := newFixture(t)
	tbl, err := data.ParseConditionTable([]byte("conditions:\n  - kind: petrify\n"))
	require.NoError(t, err)

	err = f.engine.Load(tbl)
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "CONFIG_INVALID", oopsErr.Code())
}
