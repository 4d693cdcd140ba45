package signal

import "sync"

// Bag collects connections owned by one component.
// The zero value is ready to use.
type Bag struct {
	mu    sync.Mutex
	conns []*Connection
}

// Add stores c in the bag and returns it.
func (b *Bag) Add(c *Connection) *Connection {
	b.mu.Lock()
	b.conns = append(b.conns, c)
	b.mu.Unlock()

	return c
}

// Len returns the number of connections held.
func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.conns)
}

// DisconnectAll disconnects and forgets every connection in the bag.
func (b *Bag) DisconnectAll() {
	b.mu.Lock()
	conns := b.conns
	b.conns = nil
	b.mu.Unlock()

	for _, c := range conns {
		c.Disconnect()
	}
}
