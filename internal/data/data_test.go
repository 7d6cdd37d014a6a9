package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConditionTable(t *testing.T) {
	raw := []byte(`
conditions:
  - kind: Stun
    identity_code: 2
    icon: 215004
    title: Stun
    polarity: enfeeblement
  - kind: hysteria
    identity_code: 296
`)
	tbl, err := ParseConditionTable(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Count())

	stun, ok := tbl.Get("STUN")
	require.True(t, ok)
	assert.Equal(t, "stun", stun.Kind)
	assert.True(t, stun.HasStatus())

	hys, ok := tbl.Get("hysteria")
	require.True(t, ok)
	assert.Equal(t, "Hysteria", hys.Name, "name defaults to the title-cased kind")
	assert.False(t, hys.HasStatus())

	all := tbl.All()
	require.Len(t, all, 2)
	assert.Equal(t, "hysteria", all[0].Kind)
}

func TestParseConditionTable_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing kind":   "conditions:\n  - name: Foo\n",
		"duplicate kind": "conditions:\n  - kind: stun\n  - kind: Stun\n",
		"negative delay": "conditions:\n  - kind: stun\n    loop_delay: -1\n",
		"bad yaml":       "conditions: [",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConditionTable([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestDefaultKnockbackTable(t *testing.T) {
	tbl := DefaultKnockbackTable()
	assert.Equal(t, []uint32{StatusSurecast, StatusArmsLength}, tbl.ResistStatuses())
	assert.True(t, tbl.Resists(map[uint32]float64{StatusSurecast: 6}))
	assert.False(t, tbl.Resists(map[uint32]float64{1: 6}))
	assert.InDelta(t, 0.6, tbl.MovementDelay(ActionShukuchi), 1e-9)
	assert.InDelta(t, 0.9, tbl.KnockbackDelay(ActionRescue), 1e-9)
	assert.Zero(t, tbl.MovementDelay(12345), "unknown actions cancel at once")
}

func TestParseKnockbackTable_PartialOverride(t *testing.T) {
	tbl, err := ParseKnockbackTable([]byte(`
local_actor: Tester
resist_statuses: [42]
`))
	require.NoError(t, err)
	assert.Equal(t, "Tester", tbl.LocalActor())
	assert.Equal(t, []uint32{42}, tbl.ResistStatuses())
	assert.InDelta(t, 0.6, tbl.MovementDelay(ActionShukuchi), 1e-9, "unset sections keep defaults")

	_, err = ParseKnockbackTable([]byte("movement_delays: {2262: -0.5}\n"))
	assert.Error(t, err)
}

func TestLoadTables_FromFiles(t *testing.T) {
	conds, err := LoadConditionTable(filepath.Join("..", "..", "data", "yaml", "conditions.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7, conds.Count())
	para, ok := conds.Get("paralysis")
	require.True(t, ok)
	assert.InDelta(t, 0.4, para.LoopDelay, 1e-9)

	kb, err := LoadKnockbackTable(filepath.Join("..", "..", "data", "yaml", "knockback.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{StatusSurecast, StatusArmsLength}, kb.ResistStatuses())

	_, err = LoadKnockbackTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
