// If you are AI: This file handles RTMP message parsing and creation.
// Messages are parsed from chunk data and converted to appropriate types.

package rtmp

import (
	"encoding/binary"
	"io"
	"sync"
)

// Message represents a parsed RTMP message.
type Message struct {
	Type      byte
	Length    uint32
	Timestamp uint32
	StreamID  uint32
	Body      []byte
}

// ParseSetChunkSize parses a Set Chunk Size message.
func ParseSetChunkSize(body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	size := binary.BigEndian.Uint32(body[0:4])
	if size > MaxChunkSize {
		return 0, ErrChunkTooLarge
	}
	return size, nil
}

// CreateSetChunkSize creates a Set Chunk Size message body.
func CreateSetChunkSize(size uint32) []byte {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, size)
	return body
}

// CreateWindowAckSize creates a Window Acknowledgement Size message body.
func CreateWindowAckSize(size uint32) []byte {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, size)
	return body
}

// CreateSetPeerBandwidth creates a Set Peer Bandwidth message body.
func CreateSetPeerBandwidth(size uint32, limitType byte) []byte {
	body := make([]byte, 5)
	binary.BigEndian.PutUint32(body[0:4], size)
	body[4] = limitType
	return body
}

// CreateStreamBegin creates a Stream Begin control message.
func CreateStreamBegin(streamID uint32) []byte {
	body := make([]byte, 6)
	body[0] = ControlStreamBegin
	body[1] = 0
	binary.BigEndian.PutUint32(body[2:6], streamID)
	return body
}

// chunkWriterState tracks the previous header written for one chunk stream
// ID, so WriteMessage can pick the smallest RTMP header format (fmt0-fmt3)
// that still fully describes the next message.
type chunkWriterState struct {
	timestamp       uint32
	messageStreamID uint32
	messageLength   uint32
	messageType     byte
	delta           uint32
	hasExtended     bool
}

// ChunkWriter packetizes outgoing RTMP messages into chunks, compressing
// headers across consecutive messages on the same chunk stream the way real
// RTMP senders do (fmt0 for the first message, fmt1/2/3 once the peer has
// enough prior state to infer the omitted fields).
type ChunkWriter struct {
	mu        sync.Mutex
	state     map[uint32]*chunkWriterState
	chunkSize uint32
}

// NewChunkWriter creates a packetizer using the given outbound chunk size.
func NewChunkWriter(chunkSize uint32) *ChunkWriter {
	return &ChunkWriter{
		state:     make(map[uint32]*chunkWriterState),
		chunkSize: chunkSize,
	}
}

// SetChunkSize applies a locally-announced SetChunkSize to future writes.
func (cw *ChunkWriter) SetChunkSize(size uint32) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.chunkSize = size
}

// WriteMessage writes a message as one or more RTMP chunks on csID, choosing
// the header format (fmt0-fmt3) by comparing against the last message
// written on that chunk stream.
func (cw *ChunkWriter) WriteMessage(w io.Writer, csID uint32, msgType byte, timestamp uint32, streamID uint32, body []byte) error {
	cw.mu.Lock()
	chunkSize := cw.chunkSize
	prev, exists := cw.state[csID]

	var fmtType byte
	var delta uint32
	switch {
	case !exists || prev.messageStreamID != streamID || timestamp < prev.timestamp:
		fmtType = ChunkFmt0
	case prev.messageType != msgType || prev.messageLength != uint32(len(body)):
		fmtType = ChunkFmt1
		delta = timestamp - prev.timestamp
	default:
		delta = timestamp - prev.timestamp
		if delta != prev.delta {
			fmtType = ChunkFmt2
		} else {
			fmtType = ChunkFmt3
		}
	}

	hasExtended := false
	switch fmtType {
	case ChunkFmt0:
		hasExtended = timestamp >= 0xFFFFFF
	case ChunkFmt1, ChunkFmt2:
		hasExtended = delta >= 0xFFFFFF
	case ChunkFmt3:
		hasExtended = exists && prev.hasExtended
	}

	cw.state[csID] = &chunkWriterState{
		timestamp:       timestamp,
		messageStreamID: streamID,
		messageLength:   uint32(len(body)),
		messageType:     msgType,
		delta:           delta,
		hasExtended:     hasExtended,
	}
	cw.mu.Unlock()

	return writeChunks(w, csID, fmtType, msgType, timestamp, delta, streamID, body, chunkSize, hasExtended)
}

func writeBasicHeader(w io.Writer, fmtType byte, csID uint32) error {
	switch {
	case csID < 64:
		return binary.Write(w, binary.BigEndian, (fmtType<<6)|byte(csID))
	case csID < 320:
		if err := binary.Write(w, binary.BigEndian, fmtType<<6); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, byte(csID-64))
	default:
		if err := binary.Write(w, binary.BigEndian, (fmtType<<6)|1); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, uint16(csID-64))
	}
}

func writeChunks(w io.Writer, csID uint32, fmtType, msgType byte, timestamp, delta, streamID uint32, body []byte, chunkSize uint32, hasExtended bool) error {
	bodyLen := uint32(len(body))
	offset := uint32(0)
	firstChunk := true

	for {
		thisFmt := fmtType
		if !firstChunk {
			thisFmt = ChunkFmt3
		}
		if err := writeBasicHeader(w, thisFmt, csID); err != nil {
			return err
		}

		if firstChunk {
			if err := writeMessageHeader(w, thisFmt, msgType, timestamp, delta, streamID, bodyLen, hasExtended); err != nil {
				return err
			}
		} else if hasExtended {
			// fmt3 continuation chunks of an extended-timestamp message
			// repeat the 4-byte extended field on every chunk.
			if err := binary.Write(w, binary.BigEndian, timestamp); err != nil {
				return err
			}
		}

		chunkLen := chunkSize
		if offset+chunkLen > bodyLen {
			chunkLen = bodyLen - offset
		}
		if chunkLen > 0 {
			if _, err := w.Write(body[offset : offset+chunkLen]); err != nil {
				return err
			}
			offset += chunkLen
		}
		firstChunk = false

		if offset >= bodyLen {
			break
		}
	}

	if flusher, ok := w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

func writeMessageHeader(w io.Writer, fmtType, msgType byte, timestamp, delta, streamID, bodyLen uint32, hasExtended bool) error {
	switch fmtType {
	case ChunkFmt0:
		ts := timestamp
		if hasExtended {
			ts = 0xFFFFFF
		}
		header := make([]byte, 11)
		header[0] = byte(ts >> 16)
		header[1] = byte(ts >> 8)
		header[2] = byte(ts)
		header[3] = byte(bodyLen >> 16)
		header[4] = byte(bodyLen >> 8)
		header[5] = byte(bodyLen)
		header[6] = msgType
		binary.LittleEndian.PutUint32(header[7:11], streamID)
		if _, err := w.Write(header); err != nil {
			return err
		}
		if hasExtended {
			return binary.Write(w, binary.BigEndian, timestamp)
		}
		return nil

	case ChunkFmt1:
		d := delta
		if hasExtended {
			d = 0xFFFFFF
		}
		header := make([]byte, 7)
		header[0] = byte(d >> 16)
		header[1] = byte(d >> 8)
		header[2] = byte(d)
		header[3] = byte(bodyLen >> 16)
		header[4] = byte(bodyLen >> 8)
		header[5] = byte(bodyLen)
		header[6] = msgType
		if _, err := w.Write(header); err != nil {
			return err
		}
		if hasExtended {
			return binary.Write(w, binary.BigEndian, delta)
		}
		return nil

	case ChunkFmt2:
		d := delta
		if hasExtended {
			d = 0xFFFFFF
		}
		header := []byte{byte(d >> 16), byte(d >> 8), byte(d)}
		if _, err := w.Write(header); err != nil {
			return err
		}
		if hasExtended {
			return binary.Write(w, binary.BigEndian, delta)
		}
		return nil

	case ChunkFmt3:
		if hasExtended {
			return binary.Write(w, binary.BigEndian, timestamp)
		}
		return nil
	}
	return nil
}
