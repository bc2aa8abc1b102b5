package bus

import (
	"testing"
	"time"
)

func TestRingBufferWriteReadOrder(t *testing.T) {
	rb := NewRingBuffer(4)
	for i := 0; i < 3; i++ {
		if !rb.TryWrite(&FrameData{Timestamp: uint32(i)}) {
			t.Fatalf("write %d should have succeeded", i)
		}
	}
	for i := 0; i < 3; i++ {
		f, ok := rb.Read()
		if !ok || f.Timestamp != uint32(i) {
			t.Fatalf("expected frame %d, got %+v ok=%v", i, f, ok)
		}
	}
}

func TestRingBufferFullReturnsFalse(t *testing.T) {
	rb := NewRingBuffer(2) // rounds up to 2, one slot usable
	if !rb.TryWrite(&FrameData{}) {
		t.Fatal("first write should succeed")
	}
	if rb.TryWrite(&FrameData{}) {
		t.Fatal("expected buffer to report full")
	}
	if rb.Dropped() != 1 {
		t.Errorf("expected 1 dropped frame, got %d", rb.Dropped())
	}
}

func TestRingBufferWaitUnblocksOnWrite(t *testing.T) {
	rb := NewRingBuffer(4)
	done := make(chan struct{})
	result := make(chan bool, 1)
	go func() {
		result <- rb.Wait(done)
	}()

	time.Sleep(5 * time.Millisecond)
	rb.TryWrite(&FrameData{})

	select {
	case ok := <-result:
		if !ok {
			t.Error("expected Wait to report data available")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after write")
	}
}

func TestRingBufferWaitUnblocksOnClose(t *testing.T) {
	rb := NewRingBuffer(4)
	done := make(chan struct{})
	result := make(chan bool, 1)
	go func() { result <- rb.Wait(done) }()

	time.Sleep(5 * time.Millisecond)
	rb.Close()

	select {
	case ok := <-result:
		if ok {
			t.Error("expected Wait to report closed-and-empty")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after close")
	}
}
