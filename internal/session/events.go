package session

import "sync"

type closeSubscription struct {
	id uint64
	fn func(CloseNotification)
}

type closeEvents struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []closeSubscription
}

// SubscribeClose registers fn for every close notification. Handlers run
// on the upstream dispatch goroutine in subscription order and must not
// block. The returned function removes the subscription; calling it more
// than once is harmless.
func (c *Client) SubscribeClose(fn func(CloseNotification)) (unsubscribe func()) {
	e := &c.closeEvents

	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, closeSubscription{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, s := range e.subs {
				if s.id == id {
					e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers returns the number of live close subscriptions.
func (c *Client) Subscribers() int {
	c.closeEvents.mu.RLock()
	defer c.closeEvents.mu.RUnlock()
	return len(c.closeEvents.subs)
}

func (c *Client) emitClose(n CloseNotification) {
	c.closeEvents.mu.RLock()
	subs := make([]closeSubscription, len(c.closeEvents.subs))
	copy(subs, c.closeEvents.subs)
	c.closeEvents.mu.RUnlock()

	for _, s := range subs {
		s.fn(n)
	}
}
