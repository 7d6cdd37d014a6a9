package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ravenwatch/combatsim/internal/config"
	"github.com/ravenwatch/combatsim/internal/data"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/combatsim.toml"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the combatsim CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "combatsim",
		Short: "Headless combat condition and effect simulator",
		Long: `combatsim steps the condition engine, delayed actions, effect lifecycle
and knockback resolver against a Lua encounter script.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (env COMBATSIM_CONFIG)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewValidateCmd())
	return cmd
}

// NewValidateCmd checks the config and data tables without running anything.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and data tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conds, kb, err := loadTables(cfg)
			if err != nil {
				return err
			}
			n := 0
			if conds != nil {
				n = conds.Count()
			}
			cmd.Printf("config ok: %d condition kinds, %d resist statuses\n", n, len(tableOrDefault(kb).ResistStatuses()))
			return nil
		},
	}
}

// loadConfig resolves the config path from the flag, then COMBATSIM_CONFIG,
// then the default location. A missing default file means built-in defaults.
func loadConfig() (*config.Config, error) {
	path := configFile
	if path == "" {
		path = os.Getenv("COMBATSIM_CONFIG")
	}
	if path == "" {
		cfg, err := config.Load(defaultConfigPath)
		if errors.Is(err, fs.ErrNotExist) {
			return config.Defaults(), nil
		}
		return cfg, err
	}
	return config.Load(path)
}

// loadTables loads the YAML tables named in cfg. Empty paths yield nil so
// the engines keep their built-in catalogues.
func loadTables(cfg *config.Config) (*data.ConditionTable, *data.KnockbackTable, error) {
	var (
		conds *data.ConditionTable
		kb    *data.KnockbackTable
		err   error
	)
	if cfg.Data.Conditions != "" {
		if conds, err = data.LoadConditionTable(cfg.Data.Conditions); err != nil {
			return nil, nil, fmt.Errorf("load condition table: %w", err)
		}
	}
	if cfg.Data.Knockback != "" {
		if kb, err = data.LoadKnockbackTable(cfg.Data.Knockback); err != nil {
			return nil, nil, fmt.Errorf("load knockback table: %w", err)
		}
	}
	return conds, kb, nil
}

func tableOrDefault(t *data.KnockbackTable) *data.KnockbackTable {
	if t == nil {
		return data.DefaultKnockbackTable()
	}
	return t
}
