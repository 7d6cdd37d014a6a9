package data

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ConditionEntry describes one condition kind as authored in YAML.
type ConditionEntry struct {
	Kind         string  `yaml:"kind"`
	Name         string  `yaml:"name"`          // defaults to the title-cased kind
	IdentityCode uint32  `yaml:"identity_code"` // 0 = never deduplicated
	Icon         uint32  `yaml:"icon"`
	Title        string  `yaml:"title"`
	Description  string  `yaml:"description"`
	Polarity     string  `yaml:"polarity"` // enhancement | enfeeblement | other
	ApplyEffect  string  `yaml:"apply_effect"`
	LoopEffect   string  `yaml:"loop_effect"`
	LoopDelay    float64 `yaml:"loop_delay"` // seconds, 0 = engine default
}

// HasStatus reports whether the entry carries icon metadata.
func (e ConditionEntry) HasStatus() bool {
	return e.Icon != 0 || e.Title != ""
}

type conditionFile struct {
	Conditions []ConditionEntry `yaml:"conditions"`
}

// ConditionTable holds condition kinds indexed by lowercase kind name.
type ConditionTable struct {
	entries map[string]ConditionEntry
}

// Get returns the entry for a kind name.
func (t *ConditionTable) Get(kind string) (ConditionEntry, bool) {
	e, ok := t.entries[strings.ToLower(kind)]
	return e, ok
}

// All returns every entry ordered by kind name.
func (t *ConditionTable) All() []ConditionEntry {
	out := make([]ConditionEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

func (t *ConditionTable) Count() int {
	return len(t.entries)
}

// LoadConditionTable loads the condition catalogue from a YAML file.
func LoadConditionTable(path string) (*ConditionTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read conditions: %w", err)
	}
	return ParseConditionTable(raw)
}

// ParseConditionTable parses the condition catalogue from YAML bytes.
func ParseConditionTable(raw []byte) (*ConditionTable, error) {
	var f conditionFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse conditions: %w", err)
	}
	title := cases.Title(language.English)
	t := &ConditionTable{entries: make(map[string]ConditionEntry, len(f.Conditions))}
	for i, e := range f.Conditions {
		e.Kind = strings.ToLower(strings.TrimSpace(e.Kind))
		if e.Kind == "" {
			return nil, fmt.Errorf("parse conditions: entry %d has no kind", i)
		}
		if _, dup := t.entries[e.Kind]; dup {
			return nil, fmt.Errorf("parse conditions: duplicate kind %q", e.Kind)
		}
		if e.Name == "" {
			e.Name = title.String(e.Kind)
		}
		if e.LoopDelay < 0 {
			return nil, fmt.Errorf("parse conditions: %s: negative loop_delay", e.Kind)
		}
		t.entries[e.Kind] = e
	}
	return t, nil
}
