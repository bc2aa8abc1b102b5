package bus

import (
	"sync/atomic"
)

// RingBuffer is a bounded lock-free queue of *FrameData for single-producer
// (the hub goroutine), single-consumer (the subscriber's own goroutine)
// delivery. Overflow is reported to the caller rather than silently dropping
// individual frames: the hub's fan-out loop treats a failed Write as a
// signal to evict that subscriber outright, per the backpressure-over-
// liveness policy described in SPEC_FULL.md section 4.1.
type RingBuffer struct {
	buffer   []*FrameData
	size     uint32
	writePos uint32
	readPos  uint32
	dropped  uint64
	closed   uint32
	notify   chan struct{} // signaled (non-blocking) on every successful write and on Close
}

// NewRingBuffer creates a ring buffer with capacity rounded up to a power of two.
func NewRingBuffer(capacity uint32) *RingBuffer {
	actualSize := uint32(1)
	for actualSize < capacity {
		actualSize <<= 1
	}
	return &RingBuffer{
		buffer: make([]*FrameData, actualSize),
		size:   actualSize,
		notify: make(chan struct{}, 1),
	}
}

// TryWrite attempts to enqueue a frame without blocking. Returns false if the
// buffer is full (caller should treat the consumer as gone) or the buffer has
// been closed.
func (rb *RingBuffer) TryWrite(f *FrameData) bool {
	if f == nil || atomic.LoadUint32(&rb.closed) == 1 {
		return false
	}

	writePos := atomic.LoadUint32(&rb.writePos)
	readPos := atomic.LoadUint32(&rb.readPos)
	mask := rb.size - 1
	nextWritePos := (writePos + 1) & mask

	if nextWritePos == (readPos & mask) {
		atomic.AddUint64(&rb.dropped, 1)
		return false
	}

	rb.buffer[writePos&mask] = f
	atomic.StoreUint32(&rb.writePos, nextWritePos)
	rb.wake()
	return true
}

// Read attempts to dequeue a frame without blocking.
func (rb *RingBuffer) Read() (*FrameData, bool) {
	readPos := atomic.LoadUint32(&rb.readPos)
	writePos := atomic.LoadUint32(&rb.writePos)
	if readPos == writePos {
		return nil, false
	}
	f := rb.buffer[readPos&(rb.size-1)]
	rb.buffer[readPos&(rb.size-1)] = nil
	atomic.StoreUint32(&rb.readPos, (readPos+1)&(rb.size-1))
	return f, true
}

// Wait blocks until a frame is available, the buffer is closed, or done fires.
// It returns false once the buffer is both closed and drained, telling the
// caller to stop consuming.
func (rb *RingBuffer) Wait(done <-chan struct{}) bool {
	for {
		readPos := atomic.LoadUint32(&rb.readPos)
		writePos := atomic.LoadUint32(&rb.writePos)
		if readPos != writePos {
			return true
		}
		if atomic.LoadUint32(&rb.closed) == 1 {
			return false
		}
		select {
		case <-rb.notify:
		case <-done:
			return false
		}
	}
}

func (rb *RingBuffer) wake() {
	select {
	case rb.notify <- struct{}{}:
	default:
	}
}

// Close marks the buffer closed; any blocked Wait returns false once drained,
// and subsequent TryWrite calls fail. Safe to call more than once.
func (rb *RingBuffer) Close() {
	atomic.StoreUint32(&rb.closed, 1)
	rb.wake()
}

// Closed reports whether Close has been called.
func (rb *RingBuffer) Closed() bool {
	return atomic.LoadUint32(&rb.closed) == 1
}

// Dropped returns the number of frames dropped due to a full buffer.
func (rb *RingBuffer) Dropped() uint64 {
	return atomic.LoadUint64(&rb.dropped)
}
