// If you are AI: This file converts RTMP audio/video/data messages into
// bus frames. RTMP audio/video message bodies use the exact same tag-body
// encoding as FLV, so classification is delegated to the flv package.

package rtmp

import (
	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/core/protocol/flv"
	rtmpprotocol "github.com/ningnao/xiu/internal/core/protocol/rtmp"
)

// frameFromMessage classifies a raw RTMP audio/video/data message body and
// returns a pooled FrameData ready to hand to the hub. Returns nil for
// message types that don't carry media.
func frameFromMessage(msgType byte, timestamp uint32, body []byte) *bus.FrameData {
	switch msgType {
	case rtmpprotocol.MessageTypeAudio:
		info, err := flv.DemuxAudio(body)
		f := bus.AcquireFrame()
		f.Kind = bus.FrameAudio
		f.Timestamp = timestamp
		f.IsSequenceHeader = err == nil && info.IsSequenceHeader
		f.SetPayload(body)
		return f

	case rtmpprotocol.MessageTypeVideo:
		info, err := flv.DemuxVideo(body)
		f := bus.AcquireFrame()
		f.Kind = bus.FrameVideo
		f.Timestamp = timestamp
		f.IsKeyframe = err == nil && info.IsKeyframe
		f.IsSequenceHeader = err == nil && info.IsSequenceHeader
		f.SetPayload(body)
		return f

	case rtmpprotocol.MessageTypeDataAMF0:
		f := bus.AcquireFrame()
		f.Kind = bus.FrameMetadata
		f.Timestamp = timestamp
		f.SetPayload(body)
		return f

	default:
		return nil
	}
}
