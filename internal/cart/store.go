package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Store holds the cart lines and sign-in flag of one shopper session.
// Every operation is total: invalid input leaves the cart unchanged.
type Store struct {
	mu            sync.RWMutex
	items         []Item
	authenticated bool
}

// NewStore returns an empty, signed-out cart.
func NewStore() *Store {
	return &Store{}
}

// AddItem merges into the line with the same product id, or appends a new line.
func (s *Store) AddItem(p Product, quantity int) {
	if quantity < 1 || p.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(p.ID); i >= 0 {
		s.items[i].Quantity += quantity
		return
	}
	s.items = append(s.items, Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  quantity,
	})
}

// RemoveItem drops the line for productID, if any.
func (s *Store) RemoveItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
}

// UpdateQuantity sets the quantity of a line; a quantity <= 0 removes it.
func (s *Store) UpdateQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(productID)
		return
	}
	if i := s.indexOf(productID); i >= 0 {
		s.items[i].Quantity = quantity
	}
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Count returns the number of units across all lines.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Total is recomputed from the current lines on every call.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Total(s.items)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Store) SignIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
}

// SignOut ends the session and discards the cart.
func (s *Store) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
	s.items = nil
}

func (s *Store) indexOf(productID string) int {
	for i, it := range s.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(productID string) {
	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
}
