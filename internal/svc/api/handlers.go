// If you are AI: This file implements the admin API's HTTP handlers.
// Every JSON response uses the {error_code, desp, data} envelope: error_code
// is 0 on success and -1 on failure, desp is "succ" or "failed".

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ningnao/xiu/internal/core/bus"
)

// envelope is the JSON shape returned by every admin API endpoint.
type envelope struct {
	ErrorCode int         `json:"error_code"`
	Desp      string      `json:"desp"`
	Data      interface{} `json:"data,omitempty"`
}

func (s *Service) writeSuccess(w http.ResponseWriter, data interface{}) {
	s.writeEnvelope(w, http.StatusOK, envelope{ErrorCode: 0, Desp: "succ", Data: data})
}

func (s *Service) writeFailure(w http.ResponseWriter, status int, data interface{}) {
	s.writeEnvelope(w, status, envelope{ErrorCode: -1, Desp: "failed", Data: data})
}

func (s *Service) writeEnvelope(w http.ResponseWriter, status int, e envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(e)
}

// handleRoot handles GET / with a short usage text. ServeMux routes every
// otherwise-unmatched path here too, so anything but the exact root is 404.
func (s *Service) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("usage:\n" +
		"  GET  /query_whole_streams?top=N\n" +
		"  POST /query_stream        {\"identifier\":\"app/name\"}\n" +
		"  POST /kick_off_client     {\"uuid\":\"...\"}\n" +
		"  POST /gen_nonce\n"))
}

// streamStatsView is the wire shape for one stream's statistics.
type streamStatsView struct {
	Identifier      string   `json:"identifier"`
	HasPublisher    bool     `json:"has_publisher"`
	PublisherID     string   `json:"publisher_id,omitempty"`
	SubscriberCount int      `json:"subscriber_count"`
	SubscriberIDs   []string `json:"subscriber_ids,omitempty"`
}

func toStatsView(stat bus.StreamStats) streamStatsView {
	return streamStatsView{
		Identifier:      stat.Key.String(),
		HasPublisher:    stat.HasPublisher,
		PublisherID:     stat.PublisherID,
		SubscriberCount: stat.SubscriberCount,
		SubscriberIDs:   stat.SubscriberIDs,
	}
}

// handleQueryWholeStreams handles GET /query_whole_streams?top=N.
func (s *Service) handleQueryWholeStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	top := 0
	if raw := r.URL.Query().Get("top"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			top = n
		}
	}

	stats := s.hub.Stats(nil, top)
	views := make([]streamStatsView, 0, len(stats))
	for _, stat := range stats {
		views = append(views, toStatsView(stat))
	}
	s.writeSuccess(w, views)
}

type queryStreamRequest struct {
	Identifier string `json:"identifier"`
	UUID       string `json:"uuid,omitempty"`
}

// handleQueryStream handles POST /query_stream.
func (s *Service) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req queryStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Identifier == "" {
		s.writeFailure(w, http.StatusBadRequest, "identifier is required")
		return
	}

	app, name, ok := splitIdentifier(req.Identifier)
	if !ok {
		s.writeFailure(w, http.StatusBadRequest, "identifier must be in app/name form")
		return
	}

	key := bus.NewStreamKey(app, name)

	var stats []bus.StreamStats
	if req.UUID != "" {
		subscriberID, err := uuid.Parse(req.UUID)
		if err != nil {
			s.writeFailure(w, http.StatusBadRequest, "uuid is not valid")
			return
		}
		stats = s.hub.StatsForSubscriber(key, subscriberID)
	} else {
		stats = s.hub.Stats(&key, 0)
	}

	if len(stats) == 0 {
		s.writeFailure(w, http.StatusNotFound, "stream not found")
		return
	}
	s.writeSuccess(w, toStatsView(stats[0]))
}

type kickOffClientRequest struct {
	UUID string `json:"uuid"`
}

// handleKickOffClient handles POST /kick_off_client.
func (s *Service) handleKickOffClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req kickOffClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := uuid.Parse(req.UUID)
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, "uuid is not valid")
		return
	}

	if !s.hub.Kick(id) {
		s.writeFailure(w, http.StatusNotFound, "no such client")
		return
	}
	s.writeSuccess(w, "ok")
}

// handleGenNonce handles POST /gen_nonce.
func (s *Service) handleGenNonce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeSuccess(w, s.nonces.Generate())
}

func splitIdentifier(identifier string) (app, name string, ok bool) {
	app, name, found := strings.Cut(identifier, "/")
	return app, name, found && app != "" && name != ""
}
