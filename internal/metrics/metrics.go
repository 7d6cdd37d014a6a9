// Package metrics holds the prometheus collectors shared by the simulation
// core. Every component accepts a *Metrics; nil means "record nowhere".
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics contains the collectors for conditions, delayed actions, effects
// and knockback resolution.
type Metrics struct {
	ConditionsApplied *prometheus.CounterVec // kind, result=created|refreshed|extended|kept
	ConditionsExpired prometheus.Counter
	ConditionsLive    prometheus.Gauge
	ActionsScheduled  *prometheus.CounterVec // mode
	ActionsExecuted   *prometheus.CounterVec // mode, status=ok|failed
	EffectsSpawned    *prometheus.CounterVec // kind=ground|actor
	EffectsReleased   *prometheus.CounterVec // reason=faded|immediate|disposed
	EffectsTerminated prometheus.Counter
	EffectsLive       prometheus.Gauge
	EffectsFading     prometheus.Gauge
	KnockbackOutcomes *prometheus.CounterVec // outcome=applied|bound|resisted|cancelled
	TickDuration      prometheus.Histogram
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConditionsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "combatsim_conditions_applied_total",
				Help: "Condition applications by kind and dedup result",
			},
			[]string{"kind", "result"},
		),
		ConditionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "combatsim_conditions_expired_total",
			Help: "Conditions destroyed because their timer reached zero",
		}),
		ConditionsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "combatsim_conditions_live",
			Help: "Conditions currently attached to targets",
		}),
		ActionsScheduled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "combatsim_actions_scheduled_total",
				Help: "Delayed actions scheduled by mutation mode",
			},
			[]string{"mode"},
		),
		ActionsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "combatsim_actions_executed_total",
				Help: "Delayed actions executed by mutation mode and status",
			},
			[]string{"mode", "status"},
		),
		EffectsSpawned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "combatsim_effects_spawned_total",
				Help: "Native effects spawned by kind",
			},
			[]string{"kind"},
		),
		EffectsReleased: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "combatsim_effects_released_total",
				Help: "Native effect handles released by reason",
			},
			[]string{"reason"},
		),
		EffectsTerminated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "combatsim_effects_self_terminated_total",
			Help: "Native effects that finished playing on their own",
		}),
		EffectsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "combatsim_effects_live",
			Help: "Native effects currently tracked as live",
		}),
		EffectsFading: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "combatsim_effects_fading",
			Help: "Native effects currently fading out",
		}),
		KnockbackOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "combatsim_knockback_outcomes_total",
				Help: "Knockback requests by outcome",
			},
			[]string{"outcome"},
		),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "combatsim_tick_duration_seconds",
			Help:    "Wall time spent in one simulation step",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		}),
	}

	reg.MustRegister(
		m.ConditionsApplied,
		m.ConditionsExpired,
		m.ConditionsLive,
		m.ActionsScheduled,
		m.ActionsExecuted,
		m.EffectsSpawned,
		m.EffectsReleased,
		m.EffectsTerminated,
		m.EffectsLive,
		m.EffectsFading,
		m.KnockbackOutcomes,
		m.TickDuration,
	)
	return m
}

// Nop returns collectors registered on a private registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

// OrNop returns m, or a private instance when m is nil.
func OrNop(m *Metrics) *Metrics {
	if m == nil {
		return Nop()
	}
	return m
}
