package event

import "strings"

// EffectType tags one effect entry of a combat action as reported by the host.
type EffectType string

const (
	EffectNothing    EffectType = "nothing"
	EffectKnockback1 EffectType = "knockback-1"
	EffectKnockback2 EffectType = "knockback-2"
)

// IsKnockback reports whether the entry displaces its target.
func (t EffectType) IsKnockback() bool {
	return strings.HasPrefix(string(t), "knockback")
}

// ActionEffect is one effect entry of a resolved combat action.
// Source and target are host object ids, not entity ids.
type ActionEffect struct {
	SourceID        uint32
	TargetID        uint32
	ActionID        uint32
	EffectType      EffectType
	AffectsPosition bool
}
