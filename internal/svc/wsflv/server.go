// If you are AI: This file provides WebSocket-FLV service integration.
// The service is integrated into the main HTTP server.

package wsflv

import (
	"net/http"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/svc/auth"
)

// Service provides WebSocket-FLV streaming functionality.
type Service struct {
	handler *Handler
}

// NewService creates a WebSocket-FLV service bound to hub. authorizer may
// be nil to allow every request.
func NewService(hub *bus.Hub, authorizer *auth.Authorizer) *Service {
	return &Service{handler: NewHandler(hub, authorizer)}
}

// RegisterRoutes registers WebSocket-FLV routes on the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.handler.RegisterRoutes(mux)
}
