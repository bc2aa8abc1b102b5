package bus

import "sync"

// framePool reduces per-frame allocation on the hub's fan-out hot path:
// the RTMP ingest session acquires a frame, fills it, and hands it to the
// hub. Subscribers never release frames; the hub releases only frames it
// drops without delivering (see Hub.PublishFrame).
var framePool = sync.Pool{
	New: func() interface{} {
		return &FrameData{}
	},
}

// AcquireFrame gets a zeroed FrameData from the pool.
func AcquireFrame() *FrameData {
	f := framePool.Get().(*FrameData)
	f.Kind = 0
	f.Timestamp = 0
	f.Payload = nil
	f.IsSequenceHeader = false
	f.IsKeyframe = false
	return f
}

// ReleaseFrame returns a FrameData to the pool. The frame and its payload
// must not be used by any goroutine after this call.
func ReleaseFrame(f *FrameData) {
	if f == nil {
		return
	}
	ReleasePayload(f.Payload)
	f.Payload = nil
	framePool.Put(f)
}

var payloadPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 0, 64*1024)
		return &buf
	},
}

// AcquirePayload gets a reusable byte buffer from the pool.
func AcquirePayload() []byte {
	bufPtr := payloadPool.Get().(*[]byte)
	return (*bufPtr)[:0]
}

// ReleasePayload returns a byte buffer to the pool. Buffers larger than
// 256KB are dropped instead of pooled to bound steady-state memory.
func ReleasePayload(buf []byte) {
	if buf == nil {
		return
	}
	buf = buf[:0]
	if cap(buf) <= 256*1024 {
		payloadPool.Put(&buf)
	}
}

// SetPayload copies data into a pooled buffer and assigns it to the frame.
func (f *FrameData) SetPayload(data []byte) {
	buf := AcquirePayload()
	f.Payload = append(buf, data...)
}
