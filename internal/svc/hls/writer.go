// If you are AI: This file defines the segment-writer contract an HLS
// subscriber drives, plus a minimal reference implementation. Real TS/fMP4
// muxing and playlist serialization are an external collaborator's job; the
// reference writer here exists so the subscriber side is exercisable without
// one.

package hls

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ningnao/xiu/internal/core/bus"
)

// Segment describes one closed media segment.
type Segment struct {
	Sequence   int
	DurationMS uint32
	Data       []byte
}

// SegmentWriter receives demuxed frames for one stream and produces
// segments plus a playlist. Implementations need not be safe for concurrent
// use; a subscriber drives exactly one writer from one goroutine.
type SegmentWriter interface {
	OpenSegment(sequence int, startTimestamp uint32) error
	WriteFrame(frame *bus.FrameData) error
	CloseSegment() (Segment, error)
	Playlist() []byte
}

// MemorySegmentWriter is a minimal reference SegmentWriter: it concatenates
// raw frame payloads per segment (no TS/fMP4 muxing) and serves a
// sliding-window HLS media playlist (no EXT-X-ENDLIST) over the last few
// segments. It is meant for
// completeness and local testing, not as a production-grade muxer.
type MemorySegmentWriter struct {
	mu           sync.Mutex
	maxSegments  int
	segments     []Segment
	seq          int
	open         bool
	startTS      uint32
	lastTS       uint32
	buf          bytes.Buffer
	targetDurMS  uint32
}

// NewMemorySegmentWriter returns a writer retaining up to maxSegments
// completed segments for playlist serving.
func NewMemorySegmentWriter(maxSegments int) *MemorySegmentWriter {
	if maxSegments <= 0 {
		maxSegments = 6
	}
	return &MemorySegmentWriter{maxSegments: maxSegments, targetDurMS: 6000}
}

func (w *MemorySegmentWriter) OpenSegment(sequence int, startTimestamp uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.open {
		return fmt.Errorf("hls: segment %d already open", w.seq)
	}
	w.seq = sequence
	w.startTS = startTimestamp
	w.lastTS = startTimestamp
	w.buf.Reset()
	w.open = true
	return nil
}

func (w *MemorySegmentWriter) WriteFrame(frame *bus.FrameData) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return fmt.Errorf("hls: no segment open")
	}
	w.lastTS = frame.Timestamp
	w.buf.Write(frame.Payload)
	return nil
}

func (w *MemorySegmentWriter) CloseSegment() (Segment, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return Segment{}, fmt.Errorf("hls: no segment open")
	}
	seg := Segment{
		Sequence:   w.seq,
		DurationMS: w.lastTS - w.startTS,
		Data:       append([]byte(nil), w.buf.Bytes()...),
	}
	w.open = false
	w.segments = append(w.segments, seg)
	if len(w.segments) > w.maxSegments {
		w.segments = w.segments[len(w.segments)-w.maxSegments:]
	}
	return seg, nil
}

// Playlist returns an m3u8 media playlist for the retained segments.
func (w *MemorySegmentWriter) Playlist() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()

	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n")
	fmt.Fprintf(&buf, "#EXT-X-TARGETDURATION:%d\n", (w.targetDurMS+999)/1000)
	if len(w.segments) > 0 {
		fmt.Fprintf(&buf, "#EXT-X-MEDIA-SEQUENCE:%d\n", w.segments[0].Sequence)
	}
	for _, seg := range w.segments {
		fmt.Fprintf(&buf, "#EXTINF:%.3f,\n", float64(seg.DurationMS)/1000.0)
		fmt.Fprintf(&buf, "segment-%d.ts\n", seg.Sequence)
	}
	return buf.Bytes()
}

// Segment looks up a previously closed segment by sequence number.
func (w *MemorySegmentWriter) Segment(sequence int) (Segment, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, seg := range w.segments {
		if seg.Sequence == sequence {
			return seg, true
		}
	}
	return Segment{}, false
}
