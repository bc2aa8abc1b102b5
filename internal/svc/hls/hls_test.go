package hls

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ningnao/xiu/internal/core/bus"
)

func startHub(t *testing.T) *bus.Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := bus.NewHub(1, nil)
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func TestMemorySegmentWriterRoundTrip(t *testing.T) {
	w := NewMemorySegmentWriter(2)
	if err := w.OpenSegment(0, 0); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrame(&bus.FrameData{Kind: bus.FrameVideo, Timestamp: 0, Payload: []byte{1, 2}}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrame(&bus.FrameData{Kind: bus.FrameVideo, Timestamp: 1000, Payload: []byte{3}}); err != nil {
		t.Fatal(err)
	}
	seg, err := w.CloseSegment()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(seg.Data, []byte{1, 2, 3}) {
		t.Errorf("unexpected segment payload: %v", seg.Data)
	}
	if seg.DurationMS != 1000 {
		t.Errorf("expected duration 1000ms, got %d", seg.DurationMS)
	}

	playlist := w.Playlist()
	if !bytes.Contains(playlist, []byte("#EXTM3U")) {
		t.Errorf("expected playlist header, got %s", playlist)
	}
	if !bytes.Contains(playlist, []byte("segment-0.ts")) {
		t.Errorf("expected segment reference, got %s", playlist)
	}
}

func TestMemorySegmentWriterEvictsOldSegments(t *testing.T) {
	w := NewMemorySegmentWriter(1)
	for i := 0; i < 3; i++ {
		_ = w.OpenSegment(i, uint32(i*1000))
		_, _ = w.CloseSegment()
	}
	if _, ok := w.Segment(0); ok {
		t.Error("expected oldest segment to be evicted")
	}
	if _, ok := w.Segment(2); !ok {
		t.Error("expected newest segment to be retained")
	}
}

func TestHandlerNotFoundWithoutPublisher(t *testing.T) {
	handler := NewHandler(startHub(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/hls/live/missing/index.m3u8", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandlerServesPlaylistForPublishedStream(t *testing.T) {
	hub := startHub(t)
	handler := NewHandler(hub, nil)
	key := bus.NewStreamKey("live", "test")
	if err := hub.Publish(key, bus.PublisherInfo{ID: uuid.New(), Type: bus.PublisherRTMP}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/hls/live/test/index.m3u8", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.apple.mpegurl" {
		t.Errorf("expected mpegurl content type, got %s", ct)
	}

	time.Sleep(50 * time.Millisecond)
}
