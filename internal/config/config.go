package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/samber/oops"
)

type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Effects    EffectsConfig    `toml:"effects"`
	Data       DataConfig       `toml:"data"`
	Knockback  KnockbackConfig  `toml:"knockback"`
	Logging    LoggingConfig    `toml:"logging"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

type SimulationConfig struct {
	TickRate        time.Duration `toml:"tick_rate"`
	LoopEffectDelay float64       `toml:"loop_effect_delay"` // seconds before a condition's looping effect attaches
}

type EffectsConfig struct {
	OmenFade    float64 `toml:"omen_fade"`    // seconds
	DefaultFade float64 `toml:"default_fade"` // seconds
}

// DataConfig points at the YAML tables. Empty paths use built-in defaults.
type DataConfig struct {
	Conditions string `toml:"conditions"`
	Knockback  string `toml:"knockback"`
}

type KnockbackConfig struct {
	LocalActor string `toml:"local_actor"` // overrides the table's local_actor when set
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the simulation cannot run with.
func (c *Config) Validate() error {
	errb := oops.Code("CONFIG_INVALID")
	if c.Simulation.TickRate <= 0 {
		return errb.With("tick_rate", c.Simulation.TickRate).Errorf("simulation.tick_rate must be positive")
	}
	if c.Simulation.LoopEffectDelay < 0 {
		return errb.With("loop_effect_delay", c.Simulation.LoopEffectDelay).Errorf("simulation.loop_effect_delay must not be negative")
	}
	if c.Effects.OmenFade < 0 || c.Effects.DefaultFade < 0 {
		return errb.
			With("omen_fade", c.Effects.OmenFade).
			With("default_fade", c.Effects.DefaultFade).
			Errorf("effects fade durations must not be negative")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errb.With("format", c.Logging.Format).Errorf("logging.format must be console or json")
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickRate:        16 * time.Millisecond,
			LoopEffectDelay: 0.6,
		},
		Effects: EffectsConfig{
			OmenFade:    0.25,
			DefaultFade: 1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
