// Package signal provides typed publish-subscribe primitives used to wire
// editors, display models and handlers together.
//
// A Signal delivers values synchronously, in connection order, on the
// goroutine that calls Emit. Connections are explicit: every Connect returns a
// Connection that can be disconnected on its own, and a Bag collects the
// connections owned by one component so they can all be dropped on dispose.
package signal

import "sync"

// Signal is a typed event emitter.
type Signal[T any] struct {
	mu    sync.Mutex
	conns []*Connection
	slots map[*Connection]func(T)
}

// Connection is a single subscription to a signal.
type Connection struct {
	mu         sync.Mutex
	disconnect func()
}

// New creates an empty signal.
func New[T any]() *Signal[T] {
	return &Signal[T]{}
}

// Connect subscribes fn to the signal.
func (s *Signal[T]) Connect(fn func(T)) *Connection {
	c := &Connection{}
	c.disconnect = func() { s.remove(c) }

	s.mu.Lock()
	if s.slots == nil {
		s.slots = make(map[*Connection]func(T))
	}
	s.conns = append(s.conns, c)
	s.slots[c] = fn
	s.mu.Unlock()

	return c
}

// Emit delivers v to every connected slot. Slots connected or disconnected
// during delivery take effect from the next Emit, except that a slot
// disconnected mid-delivery is not called.
func (s *Signal[T]) Emit(v T) {
	s.mu.Lock()
	conns := make([]*Connection, len(s.conns))
	copy(conns, s.conns)
	s.mu.Unlock()

	for _, c := range conns {
		s.mu.Lock()
		fn, ok := s.slots[c]
		s.mu.Unlock()
		if !ok {
			continue
		}
		fn(v)
	}
}

// Len returns the number of live connections.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.conns)
}

// Clear disconnects every slot.
func (s *Signal[T]) Clear() {
	s.mu.Lock()
	s.conns = nil
	s.slots = nil
	s.mu.Unlock()
}

func (s *Signal[T]) remove(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[c]; !ok {
		return
	}
	delete(s.slots, c)
	for i, conn := range s.conns {
		if conn == c {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			break
		}
	}
}

// Disconnect removes the connection from its signal. Calling it more than
// once is a no-op.
func (c *Connection) Disconnect() {
	if c == nil {
		return
	}

	c.mu.Lock()
	fn := c.disconnect
	c.disconnect = nil
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}
