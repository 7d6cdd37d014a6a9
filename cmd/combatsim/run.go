package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ravenwatch/combatsim/internal/config"
	"github.com/ravenwatch/combatsim/internal/metrics"
	"github.com/ravenwatch/combatsim/internal/scripting"
	"github.com/ravenwatch/combatsim/internal/world"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runOptions struct {
	script   string
	duration time.Duration
	dt       time.Duration
	lifetime float64
	realtime bool
}

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an encounter script",
		Long: `Load an encounter script, call its encounter() function and step the
simulation for the given duration. Effects are rendered to the log.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runEncounter(ctx, cfg, log, opts)
		},
	}
	cmd.Flags().StringVar(&opts.script, "script", "scripts/encounters/demo.lua", "encounter script")
	cmd.Flags().DurationVar(&opts.duration, "duration", 10*time.Second, "simulated time to run")
	cmd.Flags().DurationVar(&opts.dt, "dt", 0, "step size (defaults to simulation.tick_rate)")
	cmd.Flags().Float64Var(&opts.lifetime, "effect-lifetime", 0, "seconds before rendered effects finish on their own (0 = never)")
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false, "pace steps with a wall-clock ticker")
	return cmd
}

func runEncounter(ctx context.Context, cfg *config.Config, log *zap.Logger, opts runOptions) error {
	conds, kb, err := loadTables(cfg)
	if err != nil {
		return err
	}

	var reg *prometheus.Registry
	m := metrics.Nop()
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		m = metrics.New(reg)
	}

	var state *world.State
	renderer := newLogRenderer(log.Named("render"), func() float64 { return state.Now() }, opts.lifetime)
	state, err = world.NewState(world.Options{
		Config:     cfg,
		Renderer:   renderer,
		Log:        log,
		Metrics:    m,
		Conditions: conds,
		Knockback:  kb,
	})
	if err != nil {
		return fmt.Errorf("build world: %w", err)
	}

	scripts := scripting.NewEngine(state, log.Named("lua"))
	defer scripts.Close()
	if err := scripts.LoadFile(opts.script); err != nil {
		_ = state.Close()
		return err
	}

	id := state.BeginEncounter()
	if err := scripts.RunEncounter(); err != nil {
		_ = state.Close()
		return err
	}

	dt := opts.dt
	if dt <= 0 {
		dt = cfg.Simulation.TickRate
	}
	steps := stepLoop(ctx, state, dt, opts.duration, opts.realtime)

	state.EndEncounter()
	destroyed := state.ResetEncounter(id)
	log.Info("encounter finished",
		zap.Int("steps", steps),
		zap.Float64("sim_seconds", state.Now()),
		zap.Int("destroyed", destroyed),
		zap.Int("effects_live", state.Effects.Live()))

	err = state.Close()
	if reg != nil {
		logMetrics(log, reg)
	}
	return err
}

// stepLoop advances state until duration has been simulated or ctx is done.
func stepLoop(ctx context.Context, state *world.State, dt, duration time.Duration, realtime bool) int {
	var tick <-chan time.Time
	if realtime {
		ticker := time.NewTicker(dt)
		defer ticker.Stop()
		tick = ticker.C
	}
	steps := 0
	for elapsed := time.Duration(0); elapsed < duration; elapsed += dt {
		if tick != nil {
			select {
			case <-ctx.Done():
				return steps
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return steps
		}
		state.Step(dt)
		steps++
	}
	return steps
}

// logMetrics writes every counter and gauge in reg to the log.
func logMetrics(log *zap.Logger, reg *prometheus.Registry) {
	mfs, err := reg.Gather()
	if err != nil {
		log.Warn("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range mfs {
		for _, mt := range mf.GetMetric() {
			fields := []zap.Field{zap.String("metric", mf.GetName())}
			for _, lp := range mt.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			switch {
			case mt.GetCounter() != nil:
				fields = append(fields, zap.Float64("value", mt.GetCounter().GetValue()))
			case mt.GetGauge() != nil:
				fields = append(fields, zap.Float64("value", mt.GetGauge().GetValue()))
			case mt.GetHistogram() != nil:
				fields = append(fields, zap.Uint64("count", mt.GetHistogram().GetSampleCount()))
			default:
				continue
			}
			log.Info("metric", fields...)
		}
	}
}
