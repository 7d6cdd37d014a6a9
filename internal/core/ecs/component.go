package ecs

import "sort"

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Has(id EntityID) bool
	drop(id EntityID)
}

// Store is a generic typed map store for ECS components.
// Every Set or Touch bumps a per-entity version so systems can detect
// "changed since I last looked" without a global dirty flag.
type Store[T any] struct {
	world    *World
	data     map[EntityID]*T
	versions map[EntityID]uint64
	clock    uint64
	onRemove []func(EntityID, *T)
}

// NewStore creates a store bound to w and registers it for destroy cleanup.
// Stores registered earlier are cleared earlier when an entity dies, so their
// removal hooks still see components held in later stores.
func NewStore[T any](w *World) *Store[T] {
	s := &Store[T]{
		world:    w,
		data:     make(map[EntityID]*T, 64),
		versions: make(map[EntityID]uint64, 64),
	}
	w.registry.Register(s)
	return s
}

// Set attaches or replaces the component. Dead entities are ignored.
func (s *Store[T]) Set(id EntityID, c *T) {
	if !s.world.Alive(id) {
		return
	}
	s.data[id] = c
	s.clock++
	s.versions[id] = s.clock
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

// Touch marks an in-place mutation of the component.
func (s *Store[T]) Touch(id EntityID) {
	if _, ok := s.data[id]; !ok {
		return
	}
	s.clock++
	s.versions[id] = s.clock
}

// Version returns the change counter of the entity's component, 0 if absent.
func (s *Store[T]) Version(id EntityID) uint64 {
	return s.versions[id]
}

// Remove detaches the component, honouring the world's deferred mode.
func (s *Store[T]) Remove(id EntityID) {
	s.world.removeComponent(id, s)
}

// OnRemove registers a hook fired whenever the component leaves an entity,
// either through Remove or because the entity was destroyed.
func (s *Store[T]) OnRemove(fn func(EntityID, *T)) {
	s.onRemove = append(s.onRemove, fn)
}

func (s *Store[T]) drop(id EntityID) {
	c, ok := s.data[id]
	if !ok {
		return
	}
	delete(s.data, id)
	delete(s.versions, id)
	for _, fn := range s.onRemove {
		fn(id, c)
	}
}

// Entities returns a sorted snapshot of the entities holding this component.
// Iterating the snapshot is safe while the store is mutated.
func (s *Store[T]) Entities() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each visits a snapshot in entity order, skipping entities whose component
// was removed by an earlier visit.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for _, id := range s.Entities() {
		if c, ok := s.data[id]; ok {
			fn(id, c)
		}
	}
}
