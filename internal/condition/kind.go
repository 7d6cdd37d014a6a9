package condition

import (
	"fmt"
	"strings"

	"github.com/ravenwatch/combatsim/internal/core/ecs"
)

// Kind tags the concrete condition variants. Each kind owns one marker bit.
type Kind uint8

const (
	KindGeneric Kind = iota
	KindStun
	KindBind
	KindSleep
	KindHeavy
	KindParalysis
	KindHysteria
	KindKnockback

	kindCount
)

var kindNames = [...]string{
	KindGeneric:   "generic",
	KindStun:      "stun",
	KindBind:      "bind",
	KindSleep:     "sleep",
	KindHeavy:     "heavy",
	KindParalysis: "paralysis",
	KindHysteria:  "hysteria",
	KindKnockback: "knockback",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) bit() uint32 { return 1 << k }

// ParseKind resolves a lowercase kind name as used in data files and scripts.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k := KindGeneric; k < kindCount; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return KindGeneric, fmt.Errorf("unknown condition kind %q", s)
}

// Polarity classifies a status icon.
type Polarity uint8

const (
	PolarityOther Polarity = iota
	PolarityEnhancement
	PolarityEnfeeblement
)

func (p Polarity) String() string {
	switch p {
	case PolarityEnhancement:
		return "enhancement"
	case PolarityEnfeeblement:
		return "enfeeblement"
	}
	return "other"
}

// ParsePolarity maps a data-file polarity name; anything unknown is Other.
func ParsePolarity(s string) Polarity {
	switch strings.ToLower(s) {
	case "enhancement", "buff":
		return PolarityEnhancement
	case "enfeeblement", "debuff":
		return PolarityEnfeeblement
	}
	return PolarityOther
}

// Status is the icon metadata shown for a condition.
type Status struct {
	IconID      uint32
	Title       string
	Description string
	Polarity    Polarity
}

// KindSpec describes how a kind is applied.
type KindSpec struct {
	Kind         Kind
	Name         string
	IdentityCode uint32  // 0 = every application creates a new condition
	Status       *Status
	ApplyEffect  string
	LoopEffect   string
	LoopDelay    float64 // seconds; 0 = engine default

	// OnFirstAttach runs once per condition, the first time this kind's
	// marker lands on it. Nil means AttachEffects.
	OnFirstAttach Hook
}

// Hook is a first-attach callback. source is the entity that caused the
// application (zero if unknown).
type Hook func(e *Engine, h Handle, spec KindSpec, source ecs.EntityID)

// DefaultKinds is the built-in catalogue used when no data table is loaded.
func DefaultKinds() []KindSpec {
	return []KindSpec{
		{
			Kind:         KindStun,
			Name:         "Stun",
			IdentityCode: 2,
			Status:       &Status{IconID: 215004, Title: "Stun", Description: "Unable to execute actions.", Polarity: PolarityEnfeeblement},
			ApplyEffect:  "vfx/common/eff/stun_start.avfx",
			LoopEffect:   "vfx/common/eff/stun_loop.avfx",
		},
		{
			Kind:         KindBind,
			Name:         "Bind",
			IdentityCode: 13,
			Status:       &Status{IconID: 215003, Title: "Bind", Description: "Unable to move.", Polarity: PolarityEnfeeblement},
			ApplyEffect:  "vfx/common/eff/bind_start.avfx",
			LoopEffect:   "vfx/common/eff/bind_loop.avfx",
		},
		{
			Kind:         KindSleep,
			Name:         "Sleep",
			IdentityCode: 3,
			Status:       &Status{IconID: 215013, Title: "Sleep", Description: "Overcome with drowsiness. Damage taken will remove this effect.", Polarity: PolarityEnfeeblement},
			ApplyEffect:  "vfx/common/eff/sleep_start.avfx",
			LoopEffect:   "vfx/common/eff/sleep_loop.avfx",
		},
		{
			Kind:         KindHeavy,
			Name:         "Heavy",
			IdentityCode: 14,
			Status:       &Status{IconID: 215002, Title: "Heavy", Description: "Movement speed is reduced.", Polarity: PolarityEnfeeblement},
			ApplyEffect:  "vfx/common/eff/heavy_start.avfx",
		},
		{
			Kind:         KindParalysis,
			Name:         "Paralysis",
			IdentityCode: 17,
			Status:       &Status{IconID: 215006, Title: "Paralysis", Description: "Actions may be interrupted.", Polarity: PolarityEnfeeblement},
			LoopEffect:   "vfx/common/eff/paralysis_loop.avfx",
		},
		{
			Kind:         KindHysteria,
			Name:         "Hysteria",
			IdentityCode: 296,
			Status:       &Status{IconID: 215519, Title: "Hysteria", Description: "Moving in a random direction.", Polarity: PolarityEnfeeblement},
			LoopEffect:   "vfx/common/eff/hysteria_loop.avfx",
		},
		{
			Kind: KindKnockback,
			Name: "Knockback",
		},
	}
}
