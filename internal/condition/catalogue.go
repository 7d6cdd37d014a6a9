package condition

import (
	"github.com/ravenwatch/combatsim/internal/data"
	"github.com/samber/oops"
)

// SpecsFromTable converts a loaded condition table into kind specs.
func SpecsFromTable(t *data.ConditionTable) ([]KindSpec, error) {
	entries := t.All()
	specs := make([]KindSpec, 0, len(entries))
	for _, e := range entries {
		k, err := ParseKind(e.Kind)
		if err != nil {
			return nil, oops.
				Code("CONFIG_INVALID").
				With("kind", e.Kind).
				Wrap(err)
		}
		spec := KindSpec{
			Kind:         k,
			Name:         e.Name,
			IdentityCode: e.IdentityCode,
			ApplyEffect:  e.ApplyEffect,
			LoopEffect:   e.LoopEffect,
			LoopDelay:    e.LoopDelay,
		}
		if e.HasStatus() {
			title := e.Title
			if title == "" {
				title = e.Name
			}
			spec.Status = &Status{
				IconID:      e.Icon,
				Title:       title,
				Description: e.Description,
				Polarity:    ParsePolarity(e.Polarity),
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Load registers every kind from t, replacing built-in specs of the same
// kind. Nothing is registered when t holds an unknown kind.
func (e *Engine) Load(t *data.ConditionTable) error {
	specs, err := SpecsFromTable(t)
	if err != nil {
		return err
	}
	for _, s := range specs {
		e.Register(s)
	}
	e.log.Info("condition catalogue loaded")
	return nil
}
