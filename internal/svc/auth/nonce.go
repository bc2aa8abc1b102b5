// If you are AI: This file implements the admin API's nonce store.
// Nonces are single-use, random tokens minted by POST /gen_nonce and
// consumed by the first successful auth check that presents them.

package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TTL is how long a minted nonce remains valid if never consumed.
const TTL = 10 * time.Minute

// NonceStore mints and validates single-use nonces with an absolute expiry.
type NonceStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	nonces map[string]time.Time
}

// NewNonceStore returns an empty nonce store using the default TTL.
func NewNonceStore() *NonceStore {
	return NewNonceStoreWithTTL(TTL)
}

// NewNonceStoreWithTTL returns an empty nonce store with a caller-supplied
// TTL, falling back to the default TTL if ttl is zero.
func NewNonceStoreWithTTL(ttl time.Duration) *NonceStore {
	if ttl <= 0 {
		ttl = TTL
	}
	return &NonceStore{ttl: ttl, nonces: make(map[string]time.Time)}
}

// Generate mints a new nonce, valid until now+TTL, and returns it.
func (s *NonceStore) Generate() string {
	nonce := uuid.New().String()
	s.mu.Lock()
	s.nonces[nonce] = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return nonce
}

// Validate consumes nonce if it exists and has not expired, returning true
// on success. A nonce is removed from the store whether or not it is
// still valid, so it can never be presented twice.
func (s *NonceStore) Validate(nonce string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.nonces[nonce]
	if !ok {
		return false
	}
	delete(s.nonces, nonce)
	return time.Now().Before(expiry)
}

// Sweep removes all expired, unconsumed nonces. Intended to be called
// periodically from a background goroutine so the store does not grow
// without bound when minted nonces are never redeemed.
func (s *NonceStore) Sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for nonce, expiry := range s.nonces {
		if now.After(expiry) {
			delete(s.nonces, nonce)
		}
	}
}

// Run periodically sweeps expired nonces until done is closed.
func (s *NonceStore) Run(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
