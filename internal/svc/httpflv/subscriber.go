// If you are AI: This file implements the HTTP-FLV subscriber that reads
// frames from the hub and writes them out as FLV tags.

package httpflv

import (
	"bufio"
	"io"

	"github.com/google/uuid"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/core/protocol/flv"
)

// Subscriber streams one client's FLV playback: it owns the hub attachment
// and writes every delivered frame out as an FLV tag.
type Subscriber struct {
	writer        *bufio.Writer
	hub           *bus.Hub
	streamKey     bus.StreamKey
	id            uuid.UUID
	buffer        *bus.RingBuffer
	done          chan struct{}
	headerWritten bool
}

// NewSubscriber creates a subscriber that will write to w once attached.
func NewSubscriber(w io.Writer, hub *bus.Hub, streamKey bus.StreamKey) *Subscriber {
	return &Subscriber{
		writer:    bufio.NewWriter(w),
		hub:       hub,
		streamKey: streamKey,
		done:      make(chan struct{}),
	}
}

// WriteHeader writes the FLV file header and zero-valued leading
// PreviousTagSize. Must be called before ProcessMessages.
func (s *Subscriber) WriteHeader(hasAudio, hasVideo bool) error {
	if s.headerWritten {
		return nil
	}
	header := flv.NewHeader(hasAudio, hasVideo)
	if _, err := s.writer.Write(header.Bytes()); err != nil {
		return err
	}
	if _, err := s.writer.Write(make([]byte, 4)); err != nil {
		return err
	}
	if err := s.writer.Flush(); err != nil {
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
		Type:   bus.SubscriberHTTPFLV,
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
// buffer as an FLV tag, until the buffer closes, Detach is called, or a
// write fails (client disconnected).
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
		if _, err := s.writer.Write(tag.Bytes()); err != nil {
			return err
		}
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}
}
