package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Status ids that let a target ignore knockback when the source allows it.
const (
	StatusSurecast   uint32 = 160
	StatusArmsLength uint32 = 1209
)

// Action ids whose positional effect lands with a fixed latency.
const (
	ActionShukuchi uint32 = 2262
	ActionRescue   uint32 = 7571
)

type knockbackFile struct {
	LocalActor      string             `yaml:"local_actor"`
	ResistStatuses  []uint32           `yaml:"resist_statuses"`
	MovementDelays  map[uint32]float64 `yaml:"movement_delays"`
	KnockbackDelays map[uint32]float64 `yaml:"knockback_delays"`
}

// KnockbackTable holds the tuning used to resolve and cancel knockbacks.
// Delays are seconds between the combat event and the actual displacement.
type KnockbackTable struct {
	localActor      string
	resist          map[uint32]struct{}
	movementDelays  map[uint32]float64
	knockbackDelays map[uint32]float64
}

// DefaultKnockbackTable returns the built-in tuning.
func DefaultKnockbackTable() *KnockbackTable {
	return &KnockbackTable{
		resist: map[uint32]struct{}{
			StatusSurecast:   {},
			StatusArmsLength: {},
		},
		movementDelays: map[uint32]float64{
			ActionShukuchi: 0.6,
		},
		knockbackDelays: map[uint32]float64{
			ActionRescue: 0.9,
		},
	}
}

// LocalActor is the configured name of the client's own actor, if any.
func (t *KnockbackTable) LocalActor() string {
	return t.localActor
}

// Resists reports whether any of statusIDs is a resistance status.
func (t *KnockbackTable) Resists(statusIDs map[uint32]float64) bool {
	for id := range statusIDs {
		if _, ok := t.resist[id]; ok {
			return true
		}
	}
	return false
}

// ResistStatuses returns the resistance status ids in ascending order.
func (t *KnockbackTable) ResistStatuses() []uint32 {
	out := make([]uint32, 0, len(t.resist))
	for id := range t.resist {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MovementDelay is the cancel delay after the local actor uses a movement
// action. Unknown actions return 0.
func (t *KnockbackTable) MovementDelay(actionID uint32) float64 {
	return t.movementDelays[actionID]
}

// KnockbackDelay is the cancel delay after the local actor is hit by a real
// knockback. Unknown actions return 0.
func (t *KnockbackTable) KnockbackDelay(actionID uint32) float64 {
	return t.knockbackDelays[actionID]
}

// LoadKnockbackTable loads knockback tuning from a YAML file.
func LoadKnockbackTable(path string) (*KnockbackTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knockback: %w", err)
	}
	return ParseKnockbackTable(raw)
}

// ParseKnockbackTable parses knockback tuning from YAML bytes. Sections left
// out of the file keep their built-in values.
func ParseKnockbackTable(raw []byte) (*KnockbackTable, error) {
	var f knockbackFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse knockback: %w", err)
	}
	t := DefaultKnockbackTable()
	t.localActor = f.LocalActor
	if f.ResistStatuses != nil {
		t.resist = make(map[uint32]struct{}, len(f.ResistStatuses))
		for _, id := range f.ResistStatuses {
			t.resist[id] = struct{}{}
		}
	}
	if f.MovementDelays != nil {
		if err := checkDelays("movement_delays", f.MovementDelays); err != nil {
			return nil, err
		}
		t.movementDelays = f.MovementDelays
	}
	if f.KnockbackDelays != nil {
		if err := checkDelays("knockback_delays", f.KnockbackDelays); err != nil {
			return nil, err
		}
		t.knockbackDelays = f.KnockbackDelays
	}
	return t, nil
}

func checkDelays(section string, delays map[uint32]float64) error {
	for id, d := range delays {
		if d < 0 {
			return fmt.Errorf("parse knockback: %s: action %d has negative delay", section, id)
		}
	}
	return nil
}
