// If you are AI: This file implements the WebSocket-FLV subscriber that
// reads frames from the hub and writes them out as binary FLV tag frames.

package wsflv

import (
	"github.com/google/uuid"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/core/protocol/flv"
)

// WebSocketConn defines the interface for WebSocket operations, allowing
// tests to substitute a fake connection.
type WebSocketConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Subscriber streams one client's FLV playback over a WebSocket connection.
type Subscriber struct {
	conn          WebSocketConn
	hub           *bus.Hub
	streamKey     bus.StreamKey
	id            uuid.UUID
	buffer        *bus.RingBuffer
	done          chan struct{}
	headerWritten bool
}

// NewSubscriber creates a subscriber that will write to conn once attached.
func NewSubscriber(conn WebSocketConn, hub *bus.Hub, streamKey bus.StreamKey) *Subscriber {
	return &Subscriber{
		conn:      conn,
		hub:       hub,
		streamKey: streamKey,
		done:      make(chan struct{}),
	}
}

// WriteHeader writes the FLV file header and leading PreviousTagSize as a
// single binary WebSocket frame.
func (s *Subscriber) WriteHeader(hasAudio, hasVideo bool) error {
	if s.headerWritten {
		return nil
	}
	header := flv.NewHeader(hasAudio, hasVideo).Bytes()
	frame := make([]byte, len(header)+4)
	copy(frame, header)
	if err := s.conn.WriteMessage(2, frame); err != nil {
		return err
	}
	s.headerWritten = true
	return nil
}

// Attach subscribes to the stream, pre-loaded with sticky headers and any
// cached GOP.
func (s *Subscriber) Attach(remoteAddr, requestURL string) error {
	s.id = uuid.New()
	info := bus.SubscriberInfo{
		ID:     s.id,
		Type:   bus.SubscriberWSFLV,
		Notify: bus.NotifyInfo{RequestURL: requestURL, RemoteAddr: remoteAddr},
	}
	buf, err := s.hub.Subscribe(s.streamKey, info, 1000)
	if err != nil {
		return err
	}
	s.buffer = buf
	return nil
}

// Detach unsubscribes from the stream and stops ProcessMessages.
func (s *Subscriber) Detach() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.buffer != nil {
		s.hub.Unsubscribe(s.streamKey, s.id)
	}
}

// ProcessMessages blocks, writing every frame delivered to the subscriber's
// buffer as a binary WebSocket FLV tag frame, until the buffer closes,
// Detach is called, or a write fails (client disconnected).
func (s *Subscriber) ProcessMessages() error {
	for {
		frame, ok := s.buffer.Read()
		if !ok {
			if !s.buffer.Wait(s.done) {
				return nil
			}
			continue
		}

		tag := flv.MuxFrame(frame)
		if tag == nil {
			continue
		}
		if err := s.conn.WriteMessage(2, tag.Bytes()); err != nil {
			return err
		}
	}
}
