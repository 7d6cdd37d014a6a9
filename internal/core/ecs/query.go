package ecs

// Each2 iterates over entities that have both component A and B.
// It snapshots the smaller store and checks the larger one.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(EntityID, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for _, id := range sa.Entities() {
			a, okA := sa.data[id]
			b, okB := sb.data[id]
			if okA && okB {
				fn(id, a, b)
			}
		}
		return
	}
	for _, id := range sb.Entities() {
		a, okA := sa.data[id]
		b, okB := sb.data[id]
		if okA && okB {
			fn(id, a, b)
		}
	}
}

// ChildrenWith returns the children of parent that currently hold a component in s.
func ChildrenWith[T any](w *World, parent EntityID, s *Store[T]) []EntityID {
	var out []EntityID
	for _, child := range w.children[parent] {
		if _, ok := s.data[child]; ok {
			out = append(out, child)
		}
	}
	return out
}

// EachChild visits the children of parent holding a component in s. The
// child list is snapshotted first, so fn may destroy or create entities.
func EachChild[T any](w *World, parent EntityID, s *Store[T], fn func(EntityID, *T)) {
	for _, child := range ChildrenWith(w, parent, s) {
		if c, ok := s.data[child]; ok {
			fn(child, c)
		}
	}
}
