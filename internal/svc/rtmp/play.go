// If you are AI: This file drains a subscriber's ring buffer and forwards
// frames to an RTMP player as audio/video/data messages.

package rtmp

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/ningnao/xiu/internal/core/bus"
	rtmpprotocol "github.com/ningnao/xiu/internal/core/protocol/rtmp"
)

// playerState owns the goroutine that forwards a subscribed stream's frames
// back to one RTMP player.
type playerState struct {
	id     uuid.UUID
	buffer *bus.RingBuffer
	done   chan struct{}
}

func newPlayerState(id uuid.UUID, buffer *bus.RingBuffer) *playerState {
	return &playerState{id: id, buffer: buffer, done: make(chan struct{})}
}

func (p *playerState) stop() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

// run blocks, writing every frame delivered on buffer to session as an RTMP
// message on streamID, until buffer closes or stop is called.
func (p *playerState) run(session *rtmpprotocol.Session, streamID uint32, logger *slog.Logger) {
	for {
		frame, ok := p.buffer.Read()
		if !ok {
			if !p.buffer.Wait(p.done) {
				return
			}
			continue
		}

		msgType, csID := messageTypeForFrame(frame)
		if err := session.WriteMessage(csID, msgType, frame.Timestamp, streamID, frame.Payload); err != nil {
			logger.Debug("player write failed, stopping", "error", err)
			return
		}
	}
}

// messageTypeForFrame maps a frame kind to the RTMP message type and chunk
// stream ID conventionally used for that kind of media.
func messageTypeForFrame(f *bus.FrameData) (msgType byte, csID uint32) {
	switch f.Kind {
	case bus.FrameAudio:
		return rtmpprotocol.MessageTypeAudio, 6
	case bus.FrameVideo:
		return rtmpprotocol.MessageTypeVideo, 7
	default:
		return rtmpprotocol.MessageTypeDataAMF0, 8
	}
}
