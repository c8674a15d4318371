package memorystore

import (
	"sync"

	"tradegateway/pkg/mobius"
)

// OrderStore mirrors the upstream's open orders in arrival order.
// Tickets are unique within the store.
type OrderStore struct {
	mu     sync.RWMutex
	orders []mobius.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make([]mobius.Order, 0),
	}
}

// Replace drops the current contents and loads orders. Later duplicates of a
// ticket overwrite earlier ones in place.
func (s *OrderStore) Replace(orders []mobius.Order) {
	out := make([]mobius.Order, 0, len(orders))
	idx := make(map[int64]int, len(orders))
	for _, o := range orders {
		if i, ok := idx[o.Ticket]; ok {
			out[i] = o
			continue
		}
		idx[o.Ticket] = len(out)
		out = append(out, o)
	}

	s.mu.Lock()
	s.orders = out
	s.mu.Unlock()
}

// Add appends o, or replaces the entry when the ticket is already present.
func (s *OrderStore) Add(o mobius.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].Ticket == o.Ticket {
			s.orders[i] = o
			return
		}
	}
	s.orders = append(s.orders, o)
}

// Update replaces the entry with the same ticket. It reports false when no
// such entry exists.
func (s *OrderStore) Update(o mobius.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].Ticket == o.Ticket {
			s.orders[i] = o
			return true
		}
	}
	return false
}

// Remove deletes the entry with the given ticket.
func (s *OrderStore) Remove(ticket int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].Ticket == ticket {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			return true
		}
	}
	return false
}

// FindByComment returns the first order whose comment equals comment.
func (s *OrderStore) FindByComment(comment string) (mobius.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.Comment == comment {
			return o, true
		}
	}
	return mobius.Order{}, false
}

func (s *OrderStore) GetAll() []mobius.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]mobius.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

func (s *OrderStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
