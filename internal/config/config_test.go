package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 16*time.Millisecond, cfg.Simulation.TickRate)
	assert.InDelta(t, 0.6, cfg.Simulation.LoopEffectDelay, 1e-9)
	assert.InDelta(t, 0.25, cfg.Effects.OmenFade, 1e-9)
	assert.InDelta(t, 1.0, cfg.Effects.DefaultFade, 1e-9)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestParse_OverridesOnlyWhatIsSet(t *testing.T) {
	cfg, err := Parse([]byte(`
[simulation]
tick_rate = "33ms"

[effects]
omen_fade = 0.5

[data]
conditions = "data/yaml/conditions.yaml"

[knockback]
local_actor = "Tester"

[logging]
format = "json"

[metrics]
enabled = true
`))
	require.NoError(t, err)
	assert.Equal(t, 33*time.Millisecond, cfg.Simulation.TickRate)
	assert.InDelta(t, 0.6, cfg.Simulation.LoopEffectDelay, 1e-9)
	assert.InDelta(t, 0.5, cfg.Effects.OmenFade, 1e-9)
	assert.InDelta(t, 1.0, cfg.Effects.DefaultFade, 1e-9)
	assert.Equal(t, "data/yaml/conditions.yaml", cfg.Data.Conditions)
	assert.Empty(t, cfg.Data.Knockback)
	assert.Equal(t, "Tester", cfg.Knockback.LocalActor)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"zero tick":      "[simulation]\ntick_rate = \"0s\"\n",
		"negative delay": "[simulation]\nloop_effect_delay = -1.0\n",
		"negative fade":  "[effects]\nomen_fade = -0.1\n",
		"bad format":     "[logging]\nformat = \"xml\"\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			require.Error(t, err)
			oopsErr, ok := oops.AsOops(err)
			require.True(t, ok)
			assert.Equal(t, "CONFIG_INVALID", oopsErr.Code())
		})
	}

	_, err := Parse([]byte("[simulation"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combatsim.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "combatsim.toml"))
	require.NoError(t, err)
	assert.Equal(t, "data/yaml/conditions.yaml", cfg.Data.Conditions)
}
