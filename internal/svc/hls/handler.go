// If you are AI: This file implements the HLS HTTP handler: it serves the
// media playlist and individual segments for a stream, spinning up one
// Subscriber+MemorySegmentWriter pair per distinct stream on first request.

package hls

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/ningnao/xiu/internal/core/bus"
)

// Handler serves HLS playlists and segments backed by per-stream reference
// writers.
type Handler struct {
	hub    *bus.Hub
	logger *slog.Logger

	mu      sync.Mutex
	streams map[bus.StreamKey]*streamSession
}

type streamSession struct {
	writer     *MemorySegmentWriter
	subscriber *Subscriber
}

// NewHandler creates an HLS handler bound to hub.
func NewHandler(hub *bus.Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{hub: hub, logger: logger, streams: make(map[bus.StreamKey]*streamSession)}
}

// ServeHTTP handles GET /hls/{app}/{name}/index.m3u8 and
// GET /hls/{app}/{name}/segment-{n}.ts.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	urlPath := strings.TrimPrefix(r.URL.Path, "/hls/")
	if urlPath == r.URL.Path {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	parts := strings.SplitN(urlPath, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	app, name, file := parts[0], parts[1], parts[2]
	streamKey := bus.NewStreamKey(app, name)

	stats := h.hub.Stats(&streamKey, 0)
	if len(stats) == 0 || !stats[0].HasPublisher {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	session, err := h.sessionFor(streamKey)
	if err != nil {
		if errors.Is(err, bus.ErrSubscribeCountLimitReached) {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
		return
	}

	switch {
	case file == "index.m3u8":
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write(session.writer.Playlist())
	case strings.HasPrefix(file, "segment-") && strings.HasSuffix(file, ".ts"):
		seqStr := strings.TrimSuffix(strings.TrimPrefix(file, "segment-"), ".ts")
		seq, err := strconv.Atoi(seqStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		seg, ok := session.writer.Segment(seq)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "video/mp2t")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write(seg.Data)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// sessionFor returns the existing subscriber session for key or lazily
// starts one, attaching a fresh MemorySegmentWriter to the hub.
func (h *Handler) sessionFor(key bus.StreamKey) (*streamSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.streams[key]; ok {
		return s, nil
	}

	writer := NewMemorySegmentWriter(6)
	sub := NewSubscriber(h.hub, key, writer, h.logger)
	if err := sub.Attach("hls-internal", fmt.Sprintf("/hls/%s", key.String())); err != nil {
		return nil, err
	}
	session := &streamSession{writer: writer, subscriber: sub}
	h.streams[key] = session

	go func() {
		_ = sub.ProcessMessages()
		h.mu.Lock()
		delete(h.streams, key)
		h.mu.Unlock()
	}()

	return session, nil
}

// RegisterRoutes registers HLS routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/hls/", h.ServeHTTP)
}
