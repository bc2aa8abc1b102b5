// If you are AI: This file provides the admin HTTP API service integration.
// The API exposes read-only stream statistics and kick/nonce operations,
// backed entirely by the hub's synchronous-looking Stats/Kick calls.

package api

import (
	"net/http"
	"time"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/svc/auth"
)

// Service provides the admin HTTP API.
type Service struct {
	hub       *bus.Hub
	nonces    *auth.NonceStore
	startTime int64
}

// NewService creates a new admin API service bound to hub and nonces.
func NewService(hub *bus.Hub, nonces *auth.NonceStore) *Service {
	return &Service{
		hub:       hub,
		nonces:    nonces,
		startTime: getCurrentTime(),
	}
}

// RegisterRoutes registers admin API routes on the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/query_whole_streams", s.handleQueryWholeStreams)
	mux.HandleFunc("/query_stream", s.handleQueryStream)
	mux.HandleFunc("/kick_off_client", s.handleKickOffClient)
	mux.HandleFunc("/gen_nonce", s.handleGenNonce)
}

// getCurrentTime returns the current Unix timestamp.
// Extracted for testability.
func getCurrentTime() int64 {
	return time.Now().Unix()
}
