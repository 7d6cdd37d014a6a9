package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted in tick N are readable
// in tick N+1. SwapBuffers() is called at tick start by the dispatch system.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	order    []reflect.Type // first-emit order, keeps dispatch deterministic
	known    map[reflect.Type]bool
	handlers map[reflect.Type][]*Subscription
}

// Subscription is a live handler registration. Close detaches it; closing
// twice is a no-op.
type Subscription struct {
	bus *Bus
	typ reflect.Type
	fn  func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		known:    make(map[reflect.Type]bool),
		handlers: make(map[reflect.Type][]*Subscription),
	}
}

// Emit queues an event into the back buffer (will be readable next tick).
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if !b.known[t] {
		b.known[t] = true
		b.order = append(b.order, t)
	}
	b.back[t] = append(b.back[t], event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	sub := &Subscription{
		bus: b,
		typ: t,
		fn:  func(ev any) { fn(ev.(T)) },
	}
	b.handlers[t] = append(b.handlers[t], sub)
	return sub
}

// Close removes the handler from its bus.
func (s *Subscription) Close() {
	if s == nil || s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[s.typ]
	for i, h := range subs {
		if h == s {
			b.handlers[s.typ] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	s.bus = nil
}

// Handlers returns the number of live subscriptions for T.
func Handlers[T any](b *Bus) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[reflect.TypeOf((*T)(nil)).Elem()])
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at tick start.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers.
func (b *Bus) DispatchAll() {
	for _, t := range b.order {
		events := b.front[t]
		if len(events) == 0 {
			continue
		}
		b.mu.Lock()
		handlers := append([]*Subscription(nil), b.handlers[t]...)
		b.mu.Unlock()
		for _, ev := range events {
			for _, h := range handlers {
				h.fn(ev)
			}
		}
	}
}
