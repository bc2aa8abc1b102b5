// If you are AI: This file provides HTTP-FLV service integration.
// The service is integrated into the main HTTP server.

package httpflv

import (
	"net/http"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/svc/auth"
)

// Service provides HTTP-FLV streaming functionality.
type Service struct {
	handler *Handler
}

// NewService creates an HTTP-FLV service bound to hub. authorizer may be
// nil to allow every request.
func NewService(hub *bus.Hub, authorizer *auth.Authorizer) *Service {
	return &Service{handler: NewHandler(hub, authorizer)}
}

// RegisterRoutes registers HTTP-FLV routes on the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.handler.RegisterRoutes(mux)
}
