package ecs

// World is the top-level ECS container. It owns the entity pool, the component
// registry, the parent/child hierarchy and the deferred mutation queue.
//
// Structural mutations (Destroy, Store.Remove) are queued while the world is in
// deferred mode and applied when the outermost EndDeferred returns. Entity
// creation and Store.Set always apply immediately.
type World struct {
	pool     *EntityPool
	registry *Registry

	parent   map[EntityID]EntityID
	children map[EntityID][]EntityID

	deferDepth   int
	suspendDepth int
	destroyQueue []pendingOp

	onCreate []func(EntityID)

	now   float64 // simulated seconds since world start
	frame uint64
}

type pendingOp struct {
	id    EntityID
	store Removable // nil = destroy the entity
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		parent:       make(map[EntityID]EntityID, 256),
		children:     make(map[EntityID][]EntityID, 256),
		destroyQueue: make([]pendingOp, 0, 64),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

// Now returns the simulated clock in seconds.
func (w *World) Now() float64 { return w.now }

// Frame returns the number of Advance calls so far.
func (w *World) Frame() uint64 { return w.frame }

// Advance moves the simulated clock forward by dt seconds.
func (w *World) Advance(dt float64) {
	w.now += dt
	w.frame++
}

// OnCreate registers an observer notified after every entity creation.
func (w *World) OnCreate(fn func(EntityID)) {
	w.onCreate = append(w.onCreate, fn)
}

func (w *World) CreateEntity() EntityID {
	id := w.pool.Create()
	for _, fn := range w.onCreate {
		fn(id)
	}
	return id
}

// CreateChild creates an entity owned by parent. Destroying the parent
// destroys the child. A dead or zero parent yields a root entity.
func (w *World) CreateChild(parent EntityID) EntityID {
	id := w.pool.Create()
	if w.pool.Alive(parent) {
		w.parent[id] = parent
		w.children[parent] = append(w.children[parent], id)
	}
	for _, fn := range w.onCreate {
		fn(id)
	}
	return id
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Parent returns the owning entity, zero for roots.
func (w *World) Parent(id EntityID) EntityID {
	return w.parent[id]
}

// Children returns a snapshot of the entity's direct children in creation order.
func (w *World) Children(id EntityID) []EntityID {
	src := w.children[id]
	if len(src) == 0 {
		return nil
	}
	out := make([]EntityID, len(src))
	copy(out, src)
	return out
}

// Deferred reports whether structural mutations are currently queued.
func (w *World) Deferred() bool {
	return w.deferDepth > 0 && w.suspendDepth == 0
}

// BeginDeferred enters (or nests) deferred mode.
func (w *World) BeginDeferred() {
	w.deferDepth++
}

// EndDeferred leaves one level of deferred mode; the outermost call flushes.
func (w *World) EndDeferred() {
	if w.deferDepth == 0 {
		panic("ecs: EndDeferred without matching BeginDeferred")
	}
	w.deferDepth--
	if w.deferDepth == 0 {
		w.FlushDestroyQueue()
	}
}

// SuspendDeferred makes structural mutations immediate until the matching
// ResumeDeferred, without discarding anything already queued.
func (w *World) SuspendDeferred() {
	w.suspendDepth++
}

// ResumeDeferred restores deferral suspended by SuspendDeferred.
func (w *World) ResumeDeferred() {
	if w.suspendDepth == 0 {
		panic("ecs: ResumeDeferred without matching SuspendDeferred")
	}
	w.suspendDepth--
}

// Depths exposes the current begin/suspend nesting, for balance checks.
func (w *World) Depths() (deferDepth, suspendDepth int) {
	return w.deferDepth, w.suspendDepth
}

// Destroy removes the entity and its whole subtree, now or at flush time.
func (w *World) Destroy(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	if w.Deferred() {
		w.destroyQueue = append(w.destroyQueue, pendingOp{id: id})
		return
	}
	w.destroyNow(id)
}

// MarkForDestruction queues an entity for the next flush regardless of mode.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, pendingOp{id: id})
}

func (w *World) removeComponent(id EntityID, s Removable) {
	if !s.Has(id) {
		return
	}
	if w.Deferred() {
		w.destroyQueue = append(w.destroyQueue, pendingOp{id: id, store: s})
		return
	}
	s.drop(id)
}

// FlushDestroyQueue applies every queued mutation. Hooks fired during the
// flush may queue more work only if they re-enter deferred mode; that work is
// drained in the same call.
func (w *World) FlushDestroyQueue() {
	for len(w.destroyQueue) > 0 {
		batch := w.destroyQueue
		w.destroyQueue = make([]pendingOp, 0, len(batch))
		for _, op := range batch {
			if op.store != nil {
				if w.pool.Alive(op.id) {
					op.store.drop(op.id)
				}
				continue
			}
			w.destroyNow(op.id)
		}
	}
}

// PendingMutations returns how many structural mutations are queued.
func (w *World) PendingMutations() int {
	return len(w.destroyQueue)
}

func (w *World) destroyNow(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	// Children first so their removal hooks can still see the parent.
	for _, child := range w.Children(id) {
		w.destroyNow(child)
	}
	w.registry.RemoveAll(id)
	if p, ok := w.parent[id]; ok {
		w.unlink(p, id)
		delete(w.parent, id)
	}
	delete(w.children, id)
	w.pool.Destroy(id)
}

func (w *World) unlink(parent, child EntityID) {
	kids := w.children[parent]
	for i, k := range kids {
		if k == child {
			w.children[parent] = append(kids[:i], kids[i+1:]...)
			break
		}
	}
	if len(w.children[parent]) == 0 {
		delete(w.children, parent)
	}
}

// Clear destroys every live entity, roots first so subtrees cascade.
func (w *World) Clear() {
	for idx := uint32(1); idx < w.pool.nextIndex; idx++ {
		id := NewEntityID(idx, w.pool.generations[idx])
		if w.pool.Alive(id) && w.parent[id] == 0 {
			w.destroyNow(id)
		}
	}
	w.destroyQueue = w.destroyQueue[:0]
}
