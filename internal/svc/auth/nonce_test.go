package auth

import (
	"testing"
	"time"
)

func TestNonceGenerateValidate(t *testing.T) {
	store := NewNonceStore()
	nonce := store.Generate()
	if nonce == "" {
		t.Fatal("expected non-empty nonce")
	}
	if !store.Validate(nonce) {
		t.Fatal("expected fresh nonce to validate")
	}
}

func TestNonceSingleUse(t *testing.T) {
	store := NewNonceStore()
	nonce := store.Generate()
	store.Validate(nonce)
	if store.Validate(nonce) {
		t.Fatal("expected second validation of same nonce to fail")
	}
}

func TestNonceUnknownRejected(t *testing.T) {
	store := NewNonceStore()
	if store.Validate("not-a-real-nonce") {
		t.Fatal("expected unknown nonce to be rejected")
	}
}

func TestNonceExpiry(t *testing.T) {
	store := NewNonceStore()
	nonce := uuidLike()
	store.mu.Lock()
	store.nonces[nonce] = time.Now().Add(-time.Second)
	store.mu.Unlock()

	if store.Validate(nonce) {
		t.Fatal("expected expired nonce to be rejected")
	}
}

func TestNonceSweepRemovesExpired(t *testing.T) {
	store := NewNonceStore()
	nonce := uuidLike()
	store.mu.Lock()
	store.nonces[nonce] = time.Now().Add(-time.Second)
	store.mu.Unlock()

	store.Sweep()

	store.mu.Lock()
	_, exists := store.nonces[nonce]
	store.mu.Unlock()
	if exists {
		t.Fatal("expected Sweep to remove expired nonce")
	}
}

func uuidLike() string {
	return "00000000-0000-0000-0000-000000000000"
}
