package flv

import "errors"

// ErrTagTooShort is returned when a tag body is too short to contain the
// fields its SoundFormat/CodecID claims it should have.
var ErrTagTooShort = errors.New("flv: tag body too short")

// AACPacketType values (second byte of an AAC audio tag body).
const (
	AACPacketTypeSequenceHeader = 0
	AACPacketTypeRaw            = 1
)

// VideoCodecHEVC is a commonly used extended CodecID for HEVC in
// FLV-over-RTMP deployments (VideoCodecAVC is defined in constants.go).
const VideoCodecHEVC = 12

// AudioInfo is the result of classifying an audio tag body without decoding
// the elementary stream.
type AudioInfo struct {
	SoundFormat      byte
	SoundRate        byte
	SoundSize        byte
	SoundType        byte
	IsSequenceHeader bool
}

// DemuxAudio reads the first one or two bytes of an FLV audio tag body and
// classifies it. The payload itself (AAC raw frame or AudioSpecificConfig)
// is left untouched in body.
func DemuxAudio(body []byte) (AudioInfo, error) {
	if len(body) < 1 {
		return AudioInfo{}, ErrTagTooShort
	}
	flags := body[0]
	info := AudioInfo{
		SoundFormat: flags >> 4,
		SoundRate:   (flags >> 2) & 0x03,
		SoundSize:   (flags >> 1) & 0x01,
		SoundType:   flags & 0x01,
	}
	if info.SoundFormat == AudioFormatAAC {
		if len(body) < 2 {
			return AudioInfo{}, ErrTagTooShort
		}
		info.IsSequenceHeader = body[1] == AACPacketTypeSequenceHeader
	}
	return info, nil
}

// VideoInfo is the result of classifying a video tag body without decoding
// the elementary stream (no SPS/VUI parsing, no resolution extraction).
type VideoInfo struct {
	FrameType            byte
	CodecID              byte
	IsKeyframe           bool
	IsSequenceHeader     bool
	CompositionTimeMs    int32 // pts - dts, present for AVC/HEVC NALU packets
	HasCompositionOffset bool
}

// DemuxVideo classifies an FLV video tag body.
func DemuxVideo(body []byte) (VideoInfo, error) {
	if len(body) < 1 {
		return VideoInfo{}, ErrTagTooShort
	}
	flags := body[0]
	info := VideoInfo{
		FrameType: flags >> 4,
		CodecID:   flags & 0x0F,
	}
	info.IsKeyframe = info.FrameType == VideoFrameKeyFrame

	if info.CodecID == VideoCodecAVC || info.CodecID == VideoCodecHEVC {
		if len(body) < 5 {
			return VideoInfo{}, ErrTagTooShort
		}
		packetType := body[1]
		info.IsSequenceHeader = packetType == AVCPacketTypeSequenceHeader
		cts := int32(body[2])<<16 | int32(body[3])<<8 | int32(body[4])
		if cts&0x00800000 != 0 { // sign-extend the 24-bit composition time offset
			cts |= ^int32(0xFFFFFF)
		}
		info.CompositionTimeMs = cts
		info.HasCompositionOffset = true
	}
	return info, nil
}
