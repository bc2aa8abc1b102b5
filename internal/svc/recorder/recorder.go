// If you are AI: This file implements optional FLV recording of a published
// stream. One Recorder subscribes to the hub like any other egress
// consumer and writes a conformant FLV file to disk, closing it with an
// explicit end-of-sequence video tag on graceful shutdown.

package recorder

import (
	"bufio"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/core/protocol/flv"
)

// endOfSequenceTagData is the body of an AVC end-of-sequence video tag,
// written as the last tag before a recording file is closed cleanly.
var endOfSequenceTagData = []byte{0x17, 0x02, 0x00, 0x00, 0x00}

// Recorder subscribes to one stream and writes its frames to an FLV file.
type Recorder struct {
	hub       *bus.Hub
	streamKey bus.StreamKey
	dir       string
	logger    *slog.Logger

	id               uuid.UUID
	buffer           *bus.RingBuffer
	done             chan struct{}
	file             *os.File
	writer           *bufio.Writer
	headerWritten    bool
	lastTimestamp    uint32
	cumulativeOffset uint32
	highWaterMark    uint32
}

// New creates a recorder that will write files under dir, rooted at
// {dir}/{app}/{stream}/flv/.
func New(hub *bus.Hub, streamKey bus.StreamKey, dir string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{hub: hub, streamKey: streamKey, dir: dir, logger: logger, done: make(chan struct{})}
}

// filePath returns the path a new recording should be written to:
// {dir}/{app}/{stream}/flv/{stream}-{YYYY-MM-DD-HH-MM-SS}-{rand6}.flv
func (r *Recorder) filePath(now time.Time) string {
	name := fmt.Sprintf("%s-%s-%06d.flv", r.streamKey.Name, now.Format("2006-01-02-15-04-05"), rand.Intn(1000000))
	return filepath.Join(r.dir, r.streamKey.App, r.streamKey.Name, "flv", name)
}

// Start opens the output file and subscribes to the stream. Run must be
// called afterward to drive frame delivery.
func (r *Recorder) Start() error {
	path := r.filePath(time.Now())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("recorder: create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recorder: create file: %w", err)
	}
	r.file = f
	r.writer = bufio.NewWriter(f)

	r.id = uuid.New()
	info := bus.SubscriberInfo{
		ID:     r.id,
		Type:   bus.SubscriberHTTPFLV,
		Notify: bus.NotifyInfo{RequestURL: r.streamKey.String(), RemoteAddr: "recorder"},
	}
	buf, err := r.hub.Subscribe(r.streamKey, info, 1000)
	if err != nil {
		_ = r.file.Close()
		return fmt.Errorf("recorder: subscribe: %w", err)
	}
	r.buffer = buf
	r.logger.Info("recording started", slog.String("stream", r.streamKey.String()), slog.String("path", path))
	return nil
}

// Run blocks, writing every delivered frame to the output file, until the
// buffer closes, Stop is called, or a write fails. Before returning it
// appends the end-of-sequence trailer if the FLV header has been written,
// then flushes.
func (r *Recorder) Run() error {
	defer r.close()
	for {
		frame, ok := r.buffer.Read()
		if !ok {
			if !r.buffer.Wait(r.done) {
				return nil
			}
			continue
		}
		if err := r.writeFrame(frame); err != nil {
			r.logger.Warn("recorder write failed", slog.String("error", err.Error()))
			return err
		}
	}
}

func (r *Recorder) writeFrame(frame *bus.FrameData) error {
	if !r.headerWritten {
		header := flv.NewHeader(true, true).Bytes()
		if _, err := r.writer.Write(header); err != nil {
			return err
		}
		if err := writeUint32BE(r.writer, flv.FirstPreviousTagSize); err != nil {
			return err
		}
		r.headerWritten = true
	}

	timestamp := r.normalizeTimestamp(frame.Timestamp)
	tag := flv.NewTag(kindToTagType(frame.Kind), timestamp, frame.Payload)
	_, err := r.writer.Write(tag.Bytes())
	return err
}

// normalizeTimestamp keeps the recorded timestamp sequence monotonically
// non-decreasing even if the publisher's clock resets mid-stream, by
// folding a cumulative offset into every timestamp after a backward jump
// is observed.
func (r *Recorder) normalizeTimestamp(ts uint32) uint32 {
	adjusted := ts + r.cumulativeOffset
	if adjusted < r.highWaterMark {
		// highWaterMark already embeds every prior offset, so the new offset
		// must be computed fresh against it rather than added on top of the
		// existing cumulativeOffset.
		r.cumulativeOffset = r.highWaterMark + 1 - ts
		adjusted = ts + r.cumulativeOffset
		r.logger.Warn("recorder timestamp reset detected, applying offset",
			slog.String("stream", r.streamKey.String()), slog.Uint64("offset", uint64(r.cumulativeOffset)))
	}
	r.highWaterMark = adjusted
	r.lastTimestamp = adjusted
	return adjusted
}

func kindToTagType(kind bus.FrameKind) byte {
	switch kind {
	case bus.FrameAudio:
		return flv.TagTypeAudio
	case bus.FrameVideo:
		return flv.TagTypeVideo
	default:
		return flv.TagTypeScript
	}
}

// Stop signals Run to finish and return.
func (r *Recorder) Stop() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

func (r *Recorder) close() {
	if r.buffer != nil {
		r.hub.Unsubscribe(r.streamKey, r.id)
	}
	if r.writer != nil && r.headerWritten {
		endTag := flv.NewTag(flv.TagTypeVideo, r.lastTimestamp, endOfSequenceTagData)
		_, _ = r.writer.Write(endTag.Bytes())
	}
	if r.writer != nil {
		_ = r.writer.Flush()
	}
	if r.file != nil {
		_ = r.file.Close()
		r.logger.Info("recording closed", slog.String("stream", r.streamKey.String()))
	}
}

func writeUint32BE(w *bufio.Writer, v uint32) error {
	_, err := w.Write([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
	return err
}
