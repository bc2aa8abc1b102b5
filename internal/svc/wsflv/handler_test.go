// If you are AI: This file contains unit tests for the WebSocket-FLV handler.
// Tests verify WebSocket upgrade, bad paths, and not-found responses.

package wsflv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/svc/auth"
)

func startHub(t *testing.T) *bus.Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := bus.NewHub(1, nil)
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func TestWSFLVHandlerNotFound(t *testing.T) {
	handler := NewHandler(startHub(t), nil)

	req := httptest.NewRequest("GET", "/ws/live/nonexistent", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestWSFLVHandlerBadPath(t *testing.T) {
	handler := NewHandler(startHub(t), nil)

	req := httptest.NewRequest("GET", "/live/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestWSFLVHandlerUpgrade(t *testing.T) {
	hub := startHub(t)
	handler := NewHandler(hub, nil)

	key := bus.NewStreamKey("live", "test")
	if err := hub.Publish(key, bus.PublisherInfo{ID: uuid.New(), Type: bus.PublisherRTMP}); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(handler.ServeHTTP))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):] + "/ws/live/test"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("expected 101, got %d", resp.StatusCode)
	}

	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	if messageType != websocket.BinaryMessage {
		t.Errorf("expected binary message, got %d", messageType)
	}
	if len(data) < 3 || string(data[:3]) != "FLV" {
		t.Errorf("expected FLV signature, got %v", data)
	}
}

func TestWSFLVHandlerRejectsMissingAuth(t *testing.T) {
	hub := startHub(t)
	authorizer := auth.NewAuthorizer(true, "secret", auth.NewNonceStore())
	handler := NewHandler(hub, authorizer)

	key := bus.NewStreamKey("live", "test")
	if err := hub.Publish(key, bus.PublisherInfo{ID: uuid.New(), Type: bus.PublisherRTMP}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/ws/live/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
