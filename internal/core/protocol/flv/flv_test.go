package flv

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestHeaderBytes(t *testing.T) {
	h := NewHeader(true, true)
	b := h.Bytes()
	if !bytes.HasPrefix(b, []byte("FLV")) {
		t.Fatalf("expected FLV signature, got %v", b[:3])
	}
	if b[4] != 0x05 {
		t.Errorf("expected audio+video flags 0x05, got 0x%02x", b[4])
	}
	if binary.BigEndian.Uint32(b[5:9]) != FLVHeaderSize {
		t.Errorf("expected header offset %d, got %d", FLVHeaderSize, binary.BigEndian.Uint32(b[5:9]))
	}
}

func TestTagBytesPreviousSizeMatchesLength(t *testing.T) {
	tag := NewTag(TagTypeVideo, 1234, []byte{0x17, 0x01, 0, 0, 0, 0xAA, 0xBB})
	b := tag.Bytes()

	expectedLen := TagHeaderSize + 7 + 4
	if len(b) != expectedLen {
		t.Fatalf("expected total length %d, got %d", expectedLen, len(b))
	}
	prevSize := binary.BigEndian.Uint32(b[len(b)-4:])
	if int(prevSize) != TagHeaderSize+7 {
		t.Errorf("previous tag size mismatch: got %d, want %d", prevSize, TagHeaderSize+7)
	}
}

func TestTagBytesExtendedTimestamp(t *testing.T) {
	tag := NewTag(TagTypeVideo, 0x01020304, []byte{1})
	b := tag.Bytes()
	// low 24 bits in b[4:7], high byte (extended) in b[7]
	low := uint32(b[4])<<16 | uint32(b[5])<<8 | uint32(b[6])
	high := uint32(b[7])
	got := high<<24 | low
	if got != 0x01020304 {
		t.Errorf("timestamp round-trip through tag header failed: got 0x%08x", got)
	}
}

func TestDemuxVideoKeyframeAVCSequenceHeader(t *testing.T) {
	body := []byte{0x17, 0x00, 0, 0, 0, 0xAA, 0xBB}
	info, err := DemuxVideo(body)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsKeyframe {
		t.Error("expected keyframe")
	}
	if !info.IsSequenceHeader {
		t.Error("expected sequence header")
	}
	if info.CodecID != VideoCodecAVC {
		t.Errorf("expected AVC codec id, got %d", info.CodecID)
	}
}

func TestDemuxVideoCompositionOffsetSignExtends(t *testing.T) {
	// cts = -10 encoded as 24-bit two's complement: 0xFFFFF6
	body := []byte{0x27, 0x01, 0xFF, 0xFF, 0xF6}
	info, err := DemuxVideo(body)
	if err != nil {
		t.Fatal(err)
	}
	if info.CompositionTimeMs != -10 {
		t.Errorf("expected cts -10, got %d", info.CompositionTimeMs)
	}
}

func TestDemuxAudioAACSequenceHeader(t *testing.T) {
	body := []byte{0xAF, 0x00, 0x12, 0x10}
	info, err := DemuxAudio(body)
	if err != nil {
		t.Fatal(err)
	}
	if info.SoundFormat != AudioFormatAAC {
		t.Errorf("expected AAC format, got %d", info.SoundFormat)
	}
	if !info.IsSequenceHeader {
		t.Error("expected sequence header")
	}
}

func TestDemuxTooShort(t *testing.T) {
	if _, err := DemuxVideo(nil); err != ErrTagTooShort {
		t.Errorf("expected ErrTagTooShort, got %v", err)
	}
	if _, err := DemuxAudio(nil); err != ErrTagTooShort {
		t.Errorf("expected ErrTagTooShort, got %v", err)
	}
}
