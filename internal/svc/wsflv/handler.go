// If you are AI: This file implements the WebSocket handler for FLV stream requests.
// Handles GET /ws/{app}/{name} requests and manages subscriber lifecycle.

package wsflv

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/svc/auth"
)

// Handler handles WebSocket-FLV requests.
type Handler struct {
	hub      *bus.Hub
	auth     *auth.Authorizer
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket-FLV handler bound to hub. authorizer may
// be nil to allow every request.
func NewHandler(hub *bus.Hub, authorizer *auth.Authorizer) *Handler {
	return &Handler{
		hub:  hub,
		auth: authorizer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles WebSocket upgrade and FLV streaming.
// Endpoint: GET /ws/{app}/{name}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	urlPath := strings.TrimPrefix(r.URL.Path, "/ws/")
	if urlPath == r.URL.Path {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	parts := strings.SplitN(urlPath, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	streamKey := bus.NewStreamKey(parts[0], parts[1])

	if !h.auth.Check(r.URL.Query().Get("token"), r.URL.Query().Get("nonce")) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	stats := h.hub.Stats(&streamKey, 0)
	if len(stats) == 0 || !stats[0].HasPublisher {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := NewSubscriber(conn, h.hub, streamKey)
	defer sub.Detach()
	if err := sub.Attach(r.RemoteAddr, r.URL.String()); err != nil {
		// The HTTP status line is already committed by the upgrade, so the
		// only remaining signal to the client is closing the connection.
		return
	}

	if err := sub.WriteHeader(true, true); err != nil {
		return
	}
	_ = sub.ProcessMessages()
}

// RegisterRoutes registers WebSocket-FLV routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/", h.ServeHTTP)
}
