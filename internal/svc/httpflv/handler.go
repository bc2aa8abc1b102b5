// If you are AI: This file implements the HTTP handler for FLV stream requests.
// Handles GET /{app}/{name}.flv requests and manages subscriber lifecycle.

package httpflv

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/svc/auth"
)

// Handler serves live FLV playback over plain HTTP.
type Handler struct {
	hub  *bus.Hub
	auth *auth.Authorizer
}

// NewHandler creates an HTTP-FLV handler bound to hub. authorizer may be
// nil, in which case every request is allowed.
func NewHandler(hub *bus.Hub, authorizer *auth.Authorizer) *Handler {
	return &Handler{hub: hub, auth: authorizer}
}

// ServeHTTP handles HTTP requests for FLV streams.
// Endpoint: GET /{app}/{name}.flv
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	urlPath := strings.TrimPrefix(r.URL.Path, "/")
	if !strings.HasSuffix(urlPath, ".flv") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	streamPath := strings.TrimSuffix(urlPath, ".flv")
	parts := strings.SplitN(streamPath, "/", 2)
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

	sub := NewSubscriber(w, h.hub, streamKey)
	defer sub.Detach()
	if err := sub.Attach(r.RemoteAddr, r.URL.String()); err != nil {
		switch {
		case errors.Is(err, bus.ErrStreamNotFound):
			w.WriteHeader(http.StatusNotFound)
		case errors.Is(err, bus.ErrSubscribeCountLimitReached):
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "video/x-flv")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := sub.WriteHeader(true, true); err != nil {
		return
	}
	w.(http.Flusher).Flush()

	_ = sub.ProcessMessages()
}

// RegisterRoutes registers the HTTP-FLV catch-all route on mux. Any request
// whose path ends in .flv is served; any other path not matched by a more
// specific pattern on the same mux gets 404. ServeMux picks the longest
// matching pattern whatever the registration order, so routes such as /ws/
// and /hls/ take precedence over this "/" pattern.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if path.Ext(r.URL.Path) == ".flv" {
			h.ServeHTTP(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
}
