// Package bus implements the stream hub: the single-actor broker that owns
// every live stream, fans frames from a publisher out to its subscribers,
// and serves the admin API's statistics and kick-client operations.
package bus

import (
	"fmt"

	"github.com/google/uuid"
)

// StreamKey uniquely identifies a stream by application and stream name.
// It is comparable and can be used as a map key.
type StreamKey struct {
	App  string
	Name string
}

// String returns a stable, deterministic string representation of the stream key.
func (k StreamKey) String() string {
	return fmt.Sprintf("%s/%s", k.App, k.Name)
}

// NewStreamKey creates a new StreamKey from app and name.
func NewStreamKey(app, name string) StreamKey {
	return StreamKey{App: app, Name: name}
}

// SubscriberType identifies which egress protocol a subscriber is attached over.
type SubscriberType uint8

const (
	SubscriberRTMP SubscriberType = iota
	SubscriberHTTPFLV
	SubscriberWSFLV
	SubscriberHLS
)

func (t SubscriberType) String() string {
	switch t {
	case SubscriberRTMP:
		return "rtmp"
	case SubscriberHTTPFLV:
		return "http-flv"
	case SubscriberWSFLV:
		return "ws-flv"
	case SubscriberHLS:
		return "hls"
	default:
		return "unknown"
	}
}

// PublisherType identifies the ingest protocol a publisher connected over.
type PublisherType uint8

const (
	PublisherRTMP PublisherType = iota
)

func (t PublisherType) String() string {
	switch t {
	case PublisherRTMP:
		return "rtmp"
	default:
		return "unknown"
	}
}

// NotifyInfo records where a session came from, for statistics and logging.
type NotifyInfo struct {
	RequestURL string
	RemoteAddr string
}

// PublisherInfo identifies a stream's current publisher.
type PublisherInfo struct {
	ID     uuid.UUID
	Type   PublisherType
	Notify NotifyInfo
}

// SubscriberInfo identifies one consumer attached to a stream.
type SubscriberInfo struct {
	ID     uuid.UUID
	Type   SubscriberType
	Notify NotifyInfo
}

// FrameKind distinguishes the three kinds of RTMP/FLV payload.
type FrameKind uint8

const (
	FrameAudio FrameKind = iota
	FrameVideo
	FrameMetadata
)

func (k FrameKind) String() string {
	switch k {
	case FrameAudio:
		return "audio"
	case FrameVideo:
		return "video"
	case FrameMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// FrameData is one unit of media flowing from a publisher to the hub and
// from the hub out to every subscriber of that stream.
type FrameData struct {
	Kind             FrameKind
	Timestamp        uint32 // RTMP-style 32-bit millisecond timestamp, may wrap
	Payload          []byte
	IsSequenceHeader bool // AVC/HEVC decoder config or AAC AudioSpecificConfig
	IsKeyframe       bool // video frame marked as a sync sample
}

// Clone returns a deep copy of the frame, safe to hand to a goroutine that
// outlives the original (e.g. a recorder running well behind live delivery).
func (f *FrameData) Clone() *FrameData {
	if f == nil {
		return nil
	}
	payload := make([]byte, len(f.Payload))
	copy(payload, f.Payload)
	return &FrameData{
		Kind:             f.Kind,
		Timestamp:        f.Timestamp,
		Payload:          payload,
		IsSequenceHeader: f.IsSequenceHeader,
		IsKeyframe:       f.IsKeyframe,
	}
}
