package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps carts in memory, keyed by an opaque session token. Carts are
// ephemeral by design: a restart or TTL expiry discards them, and nothing in
// the system treats cart content as a source of truth.
type Store struct {
	ttl time.Duration

	mu    sync.Mutex
	carts map[string]*storedCart
}

type storedCart struct {
	cart    Cart
	touched time.Time
}

// NewStore creates a Store whose carts expire after ttl of inactivity.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:   ttl,
		carts: make(map[string]*storedCart),
	}
}

// NewToken returns a fresh opaque session token for a cart.
func NewToken() string {
	return uuid.New().String()
}

// Load returns a copy of the cart for token. A missing or expired token yields
// an empty cart.
func (s *Store) Load(token string) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.carts[token]
	if !ok || time.Since(e.touched) >= s.ttl {
		return Cart{}
	}
	e.touched = time.Now()

	cp := Cart{Lines: make([]Line, len(e.cart.Lines))}
	copy(cp.Lines, e.cart.Lines)
	return cp
}

// Save stores the cart under token, resetting its TTL.
func (s *Store) Save(token string, c Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[token] = &storedCart{cart: c, touched: time.Now()}
}

// Clear removes the cart for token.
func (s *Store) Clear(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, token)
}

// cleanup removes carts whose TTL has fully elapsed.
func (s *Store) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, e := range s.carts {
		if now.Sub(e.touched) >= s.ttl {
			delete(s.carts, token)
		}
	}
}

// StartCleanup launches a background goroutine that periodically evicts
// expired carts. It stops when ctx is cancelled.
func (s *Store) StartCleanup(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.cleanup(now)
			}
		}
	}()
}
