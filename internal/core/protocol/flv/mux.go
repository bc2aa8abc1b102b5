package flv

import (
	"github.com/ningnao/xiu/internal/core/bus"
)

// MuxFrame converts a hub FrameData into the matching FLV tag, preserving
// the original payload bytes verbatim — FLV muxing here is repackaging,
// never transcoding.
func MuxFrame(f *bus.FrameData) *Tag {
	if f == nil {
		return nil
	}
	switch f.Kind {
	case bus.FrameAudio:
		return NewTag(TagTypeAudio, f.Timestamp, f.Payload)
	case bus.FrameVideo:
		return NewTag(TagTypeVideo, f.Timestamp, f.Payload)
	case bus.FrameMetadata:
		return NewTag(TagTypeScript, f.Timestamp, f.Payload)
	default:
		return nil
	}
}
