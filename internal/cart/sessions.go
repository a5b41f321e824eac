package cart

import "sync"

// Sessions maps a signed-in user id to that user's cart.
type Sessions struct {
	mu    sync.Mutex
	carts map[string]*Store
}

func NewSessions() *Sessions {
	return &Sessions{carts: map[string]*Store{}}
}

// Get returns the user's cart, creating a signed-in one on first use.
func (s *Sessions) Get(userID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.carts[userID]
	if !ok {
		st = NewStore()
		st.SignIn()
		s.carts[userID] = st
	}
	return st
}

// End signs the user out and forgets the cart.
func (s *Sessions) End(userID string) {
	s.mu.Lock()
	st, ok := s.carts[userID]
	delete(s.carts, userID)
	s.mu.Unlock()
	if ok {
		st.SignOut()
	}
}
