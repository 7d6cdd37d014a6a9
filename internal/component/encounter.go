package component

import "github.com/oklog/ulid/v2"

// Encounter tags an entity created while an encounter was active, so the
// whole encounter can be reset in one walk.
type Encounter struct {
	ID ulid.ULID
}
