// If you are AI: This file provides HLS service integration.
// The service is integrated into the main HTTP server.

package hls

import (
	"log/slog"
	"net/http"

	"github.com/ningnao/xiu/internal/core/bus"
)

// Service provides HLS streaming functionality.
type Service struct {
	handler *Handler
}

// NewService creates an HLS service bound to hub.
func NewService(hub *bus.Hub, logger *slog.Logger) *Service {
	return &Service{handler: NewHandler(hub, logger)}
}

// RegisterRoutes registers HLS routes on the provided mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.handler.RegisterRoutes(mux)
}
