package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func startHub(t *testing.T, gopNum int) *Hub {
	t.Helper()
	h := NewHub(gopNum, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func TestPublishThenSubscribeReplaysStickyHeaders(t *testing.T) {
	h := startHub(t, 1)
	key := NewStreamKey("live", "test")
	pubID := uuid.New()

	if err := h.Publish(key, PublisherInfo{ID: pubID, Type: PublisherRTMP}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	seq := &FrameData{Kind: FrameVideo, IsSequenceHeader: true, Payload: []byte{1, 2, 3}}
	h.PublishFrame(key, pubID, seq)
	key1 := &FrameData{Kind: FrameVideo, IsKeyframe: true, Payload: []byte{4}}
	h.PublishFrame(key, pubID, key1)

	time.Sleep(20 * time.Millisecond) // let the hub goroutine process

	buf, err := h.Subscribe(key, SubscriberInfo{ID: uuid.New(), Type: SubscriberHTTPFLV}, 64)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	got := drain(t, buf, 2)
	if !got[0].IsSequenceHeader {
		t.Errorf("expected sequence header first, got %+v", got[0])
	}
	if !got[1].IsKeyframe {
		t.Errorf("expected keyframe second, got %+v", got[1])
	}
}

func TestDuplicatePublishRejected(t *testing.T) {
	h := startHub(t, 1)
	key := NewStreamKey("live", "dup")

	if err := h.Publish(key, PublisherInfo{ID: uuid.New()}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	err := h.Publish(key, PublisherInfo{ID: uuid.New()})
	if err == nil {
		t.Fatal("expected duplicate publish to fail")
	}
}

func TestSlowSubscriberEvicted(t *testing.T) {
	h := startHub(t, 0)
	key := NewStreamKey("live", "slow")
	pubID := uuid.New()
	if err := h.Publish(key, PublisherInfo{ID: pubID}); err != nil {
		t.Fatal(err)
	}
	buf, err := h.Subscribe(key, SubscriberInfo{ID: uuid.New()}, 2)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for i := 0; i < 20; i++ {
		h.PublishFrame(key, pubID, &FrameData{Kind: FrameAudio, Payload: []byte{byte(i)}})
	}
	time.Sleep(30 * time.Millisecond)

	if !buf.Closed() {
		t.Error("expected slow subscriber's buffer to be closed after overflow")
	}
}

func TestKickSubscriber(t *testing.T) {
	h := startHub(t, 1)
	key := NewStreamKey("live", "kick")
	subID := uuid.New()
	buf, err := h.Subscribe(key, SubscriberInfo{ID: subID}, 8)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if ok := h.Kick(subID); !ok {
		t.Fatal("expected kick to find the subscriber")
	}
	time.Sleep(10 * time.Millisecond)
	if !buf.Closed() {
		t.Error("expected kicked subscriber's buffer to be closed")
	}
}

func TestGopNumZeroNeverCaches(t *testing.T) {
	h := startHub(t, 0)
	key := NewStreamKey("live", "nogop")
	pubID := uuid.New()
	h.Publish(key, PublisherInfo{ID: pubID})
	h.PublishFrame(key, pubID, &FrameData{Kind: FrameVideo, IsKeyframe: true, Payload: []byte{1}})
	h.PublishFrame(key, pubID, &FrameData{Kind: FrameVideo, Payload: []byte{2}})
	time.Sleep(10 * time.Millisecond)

	buf, err := h.Subscribe(key, SubscriberInfo{ID: uuid.New()}, 8)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, ok := buf.Read(); ok {
		t.Error("expected no replayed frames when gopNum is 0")
	}
}

func TestSubscribeRejectsMissingPublisherWhenConfigured(t *testing.T) {
	h := NewHubWithOptions(1, HubOptions{RejectOnMissingPublisher: true}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)

	_, err := h.Subscribe(NewStreamKey("live", "ghost"), SubscriberInfo{ID: uuid.New()}, 8)
	if !errors.Is(err, ErrStreamNotFound) {
		t.Fatalf("expected ErrStreamNotFound, got %v", err)
	}
}

func TestSubscribeCountLimitReached(t *testing.T) {
	h := NewHubWithOptions(1, HubOptions{MaxSubscribersPerStream: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)

	key := NewStreamKey("live", "capped")
	if _, err := h.Subscribe(key, SubscriberInfo{ID: uuid.New()}, 8); err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	_, err := h.Subscribe(key, SubscriberInfo{ID: uuid.New()}, 8)
	if !errors.Is(err, ErrSubscribeCountLimitReached) {
		t.Fatalf("expected ErrSubscribeCountLimitReached, got %v", err)
	}
}

func drain(t *testing.T, buf *RingBuffer, n int) []*FrameData {
	t.Helper()
	out := make([]*FrameData, 0, n)
	deadline := time.After(time.Second)
	for len(out) < n {
		if f, ok := buf.Read(); ok {
			out = append(out, f)
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d frames, got %d", n, len(out))
		case <-time.After(time.Millisecond):
		}
	}
	return out
}
