// If you are AI: This file implements the publish/subscribe authorization
// check shared by every egress and ingest adapter: HTTP-FLV, WebSocket-FLV,
// and RTMP all call Authorizer.Check with whatever token/nonce the client
// presented.

package auth

// Authorizer decides whether a publish or subscribe request may proceed.
// When Required is false every request is allowed, regardless of token or
// nonce.
type Authorizer struct {
	Required bool
	Token    string
	Nonces   *NonceStore
}

// NewAuthorizer builds an Authorizer backed by nonces. Pass required=false
// and an empty token to allow every request (the default, unauthenticated
// configuration).
func NewAuthorizer(required bool, token string, nonces *NonceStore) *Authorizer {
	return &Authorizer{Required: required, Token: token, Nonces: nonces}
}

// Check reports whether token or nonce authorizes the request. A matching
// static token always succeeds; otherwise a present, valid, single-use
// nonce succeeds and is consumed. When auth is not required, Check always
// succeeds without consuming a nonce.
func (a *Authorizer) Check(token, nonce string) bool {
	if a == nil || !a.Required {
		return true
	}
	if token != "" && a.Token != "" && token == a.Token {
		return true
	}
	if nonce != "" && a.Nonces != nil {
		return a.Nonces.Validate(nonce)
	}
	return false
}
