package flv

import "encoding/binary"

// TagHeaderSize is the fixed size of an FLV tag header, before its body.
const TagHeaderSize = 11

// Tag represents one FLV tag: type, 32-bit timestamp (split on the wire into
// a 24-bit low field plus an extended high byte), and the tag's body.
type Tag struct {
	Type      byte
	Timestamp uint32
	Data      []byte
}

// NewTag creates a tag from type, timestamp, and data.
func NewTag(tagType byte, timestamp uint32, data []byte) *Tag {
	return &Tag{Type: tagType, Timestamp: timestamp, Data: data}
}

// Bytes encodes the tag header, body, and trailing previous-tag-size field.
// Layout: type(1) + data_size(3) + timestamp(3) + timestamp_extended(1) +
// stream_id(3, always zero) + data(N) + previous_tag_size(4).
func (t *Tag) Bytes() []byte {
	dataSize := uint32(len(t.Data))
	total := TagHeaderSize + len(t.Data) + 4
	out := make([]byte, total)

	out[0] = t.Type
	out[1] = byte(dataSize >> 16)
	out[2] = byte(dataSize >> 8)
	out[3] = byte(dataSize)
	out[4] = byte(t.Timestamp >> 16)
	out[5] = byte(t.Timestamp >> 8)
	out[6] = byte(t.Timestamp)
	out[7] = byte(t.Timestamp >> 24) // TimestampExtended: high byte of the 32-bit value
	out[8], out[9], out[10] = 0, 0, 0

	copy(out[TagHeaderSize:], t.Data)

	prevSize := uint32(TagHeaderSize + len(t.Data))
	binary.BigEndian.PutUint32(out[TagHeaderSize+len(t.Data):], prevSize)

	return out
}
