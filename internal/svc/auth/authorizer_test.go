package auth

import "testing"

func TestAuthorizerAllowsWhenNotRequired(t *testing.T) {
	a := NewAuthorizer(false, "", nil)
	if !a.Check("", "") {
		t.Error("expected unauthenticated check to pass when not required")
	}
}

func TestAuthorizerAcceptsMatchingToken(t *testing.T) {
	a := NewAuthorizer(true, "secret", NewNonceStore())
	if !a.Check("secret", "") {
		t.Error("expected matching token to authorize")
	}
}

func TestAuthorizerRejectsWrongToken(t *testing.T) {
	a := NewAuthorizer(true, "secret", NewNonceStore())
	if a.Check("wrong", "") {
		t.Error("expected mismatched token to be rejected")
	}
}

func TestAuthorizerAcceptsValidNonce(t *testing.T) {
	store := NewNonceStore()
	nonce := store.Generate()
	a := NewAuthorizer(true, "secret", store)
	if !a.Check("", nonce) {
		t.Error("expected valid nonce to authorize")
	}
	if a.Check("", nonce) {
		t.Error("expected nonce to be single-use")
	}
}

func TestAuthorizerRejectsEmptyCredentials(t *testing.T) {
	a := NewAuthorizer(true, "secret", NewNonceStore())
	if a.Check("", "") {
		t.Error("expected no credentials to be rejected when required")
	}
}
