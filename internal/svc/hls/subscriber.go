// If you are AI: This file implements the HLS subscriber: it drains frames
// from the hub and drives a SegmentWriter, rolling a new segment at every
// keyframe boundary.

package hls

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/ningnao/xiu/internal/core/bus"
)

// Subscriber feeds one stream's demuxed frames into a SegmentWriter, rolling
// segments on keyframe boundaries. The HLS handler runs one per stream and
// serves every client of that stream from it.
type Subscriber struct {
	hub       *bus.Hub
	streamKey bus.StreamKey
	writer    SegmentWriter
	id        uuid.UUID
	buffer    *bus.RingBuffer
	done      chan struct{}
	logger    *slog.Logger

	segmentOpen bool
	nextSeq     int
}

// NewSubscriber creates a subscriber that will drive writer once attached.
func NewSubscriber(hub *bus.Hub, streamKey bus.StreamKey, writer SegmentWriter, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		hub:       hub,
		streamKey: streamKey,
		writer:    writer,
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Attach subscribes to the stream, pre-loaded with sticky headers and any
// cached GOP.
func (s *Subscriber) Attach(remoteAddr, requestURL string) error {
	s.id = uuid.New()
	info := bus.SubscriberInfo{
		ID:     s.id,
		Type:   bus.SubscriberHLS,
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

// ProcessMessages blocks, segmenting every frame delivered to the
// subscriber's buffer, until the buffer closes, Detach is called, or the
// writer reports an unrecoverable error.
func (s *Subscriber) ProcessMessages() error {
	defer s.closeOpenSegment()
	for {
		frame, ok := s.buffer.Read()
		if !ok {
			if !s.buffer.Wait(s.done) {
				return nil
			}
			continue
		}
		if frame.Kind == bus.FrameMetadata || frame.IsSequenceHeader {
			continue
		}
		if frame.Kind == bus.FrameVideo && frame.IsKeyframe {
			s.rollSegment(frame.Timestamp)
		}
		if !s.segmentOpen {
			continue
		}
		if err := s.writer.WriteFrame(frame); err != nil {
			s.logger.Warn("hls write frame failed", slog.String("error", err.Error()))
			return err
		}
	}
}

func (s *Subscriber) rollSegment(timestamp uint32) {
	s.closeOpenSegment()
	if err := s.writer.OpenSegment(s.nextSeq, timestamp); err != nil {
		s.logger.Warn("hls open segment failed", slog.String("error", err.Error()))
		return
	}
	s.nextSeq++
	s.segmentOpen = true
}

func (s *Subscriber) closeOpenSegment() {
	if !s.segmentOpen {
		return
	}
	s.segmentOpen = false
	if _, err := s.writer.CloseSegment(); err != nil {
		s.logger.Warn("hls close segment failed", slog.String("error", err.Error()))
	}
}
