package world

import (
	"github.com/oklog/ulid/v2"
	"github.com/ravenwatch/combatsim/internal/component"
	"github.com/ravenwatch/combatsim/internal/core/ecs"
	"go.uber.org/zap"
)

// tag marks entities created while an encounter is active. Actors and
// fade-out holders are never tagged.
func (s *State) tag(id ecs.EntityID) {
	if s.spawningActor || s.encounter == (ulid.ULID{}) {
		return
	}
	if s.Effects != nil && s.Effects.CreatingHolder() {
		return
	}
	s.encounters.Set(id, &component.Encounter{ID: s.encounter})
}

// BeginEncounter starts tagging new entities with a fresh encounter id.
func (s *State) BeginEncounter() ulid.ULID {
	s.encounter = ulid.Make()
	s.log.Info("encounter started", zap.Stringer("encounter", s.encounter))
	return s.encounter
}

// EndEncounter stops tagging without destroying anything.
func (s *State) EndEncounter() {
	s.encounter = ulid.ULID{}
}

// ActiveEncounter returns the current encounter id, zero when none.
func (s *State) ActiveEncounter() ulid.ULID { return s.encounter }

// ResetEncounter destroys every entity created during encounter id and
// returns how many roots were destroyed. Effects owned by them fade out as
// usual; fade holders are not part of the encounter.
func (s *State) ResetEncounter(id ulid.ULID) int {
	if id == s.encounter {
		s.encounter = ulid.ULID{}
	}
	s.World.BeginDeferred()
	n := 0
	for _, e := range s.encounters.Entities() {
		enc, _ := s.encounters.Get(e)
		if enc.ID != id {
			continue
		}
		// Children go with their tagged parent.
		if p := s.World.Parent(e); s.encounters.Has(p) {
			if pe, _ := s.encounters.Get(p); pe.ID == id {
				continue
			}
		}
		s.World.Destroy(e)
		n++
	}
	s.World.EndDeferred()
	s.log.Info("encounter reset", zap.Stringer("encounter", id), zap.Int("destroyed", n))
	return n
}

// Close disposes native effects, drops the event subscription and clears
// the world. Further Steps are no-ops.
func (s *State) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.Resolver.Close()
	err := s.Effects.Dispose()
	s.World.Clear()
	return err
}
