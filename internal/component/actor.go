package component

// Actor links an ECS entity to a host-side actor (player, npc, object).
// Pure data with no methods; systems do all mutation.
type Actor struct {
	ObjectID uint32 // host object id, as carried by combat events
	Name     string
	Local    bool // the actor controlled by this client
}

// Statuses mirrors the host's status list for an actor: status id → seconds
// remaining as last reported by the host (0 = permanent).
type Statuses struct {
	IDs map[uint32]float64
}
