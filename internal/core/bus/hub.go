package bus

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Hub is the stream broker: a single actor that owns every live stream's
// state and is the only goroutine that ever mutates it. Every other
// goroutine in the process talks to it exclusively through the methods
// below, which enqueue an event and, where a reply is meaningful, block on
// a capacity-1 reply channel for the answer. This keeps the hub's internal
// maps free of locks while still presenting a synchronous-looking API to
// callers.
type Hub struct {
	logger *slog.Logger
	gopNum int

	rejectOnMissingPublisher bool
	maxSubscribersPerStream  int

	queue  eventQueue
	done   chan struct{}
	closed bool

	streams map[StreamKey]*streamState
}

// HubOptions configures optional Hub behavior beyond GOP cache depth. The
// zero value preserves invariant 1 of the data model (a subscriber may
// attach before any publisher exists) and imposes no subscriber cap.
type HubOptions struct {
	// RejectOnMissingPublisher makes Subscribe fail with ErrStreamNotFound
	// instead of creating a new, publisher-less stream entry when the hub
	// has no entry for the identifier (no publisher and no subscriber is
	// attached).
	RejectOnMissingPublisher bool
	// MaxSubscribersPerStream caps concurrent subscribers on a single
	// stream; Subscribe fails with ErrSubscribeCountLimitReached once the
	// cap is reached. Zero means unlimited.
	MaxSubscribersPerStream int
}

// NewHub creates a hub with default options. gopNum bounds how many
// GOPs, counting the one still in progress, are retained per stream for
// late subscribers; zero
// disables GOP caching entirely (late subscribers get only sticky
// sequence headers and live frames).
func NewHub(gopNum int, logger *slog.Logger) *Hub {
	return NewHubWithOptions(gopNum, HubOptions{}, logger)
}

// NewHubWithOptions creates a hub with explicit reject-on-missing and
// subscriber-cap policies.
func NewHubWithOptions(gopNum int, opts HubOptions, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:                   logger,
		gopNum:                   gopNum,
		rejectOnMissingPublisher: opts.RejectOnMissingPublisher,
		maxSubscribersPerStream:  opts.MaxSubscribersPerStream,
		queue:                    newEventQueue(),
		done:                     make(chan struct{}),
		streams:                  make(map[StreamKey]*streamState),
	}
}

// Run processes events until ctx is canceled. It must be started exactly
// once, typically from main, before any other goroutine calls into the hub.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.queue.signal:
			for _, e := range h.queue.drain() {
				h.handle(e)
			}
		}
	}
}

// Stopped reports a channel that closes once Run has returned.
func (h *Hub) Stopped() <-chan struct{} { return h.done }

// --- per-stream internal state, owned exclusively by the Run goroutine ---

type subscriberEntry struct {
	info   SubscriberInfo
	buffer *RingBuffer
}

type streamState struct {
	key       StreamKey
	publisher *PublisherInfo

	subscribers map[uuid.UUID]*subscriberEntry

	stickyMeta  *FrameData
	stickyVideo *FrameData
	stickyAudio *FrameData

	gop        [][]*FrameData // completed GOPs, oldest first
	currentGOP []*FrameData   // frames since the last keyframe, not yet closed out
}

func newStreamState(key StreamKey) *streamState {
	return &streamState{
		key:         key,
		subscribers: make(map[uuid.UUID]*subscriberEntry),
	}
}

func (s *streamState) isEmpty() bool {
	return s.publisher == nil && len(s.subscribers) == 0
}

// --- events ---

type hubEvent interface{ apply(h *Hub) }

type publishEvent struct {
	key   StreamKey
	info  PublisherInfo
	reply chan error
}

func (e publishEvent) apply(h *Hub) {
	st := h.streams[e.key]
	if st == nil {
		st = newStreamState(e.key)
		h.streams[e.key] = st
	}
	if st.publisher != nil {
		e.reply <- ErrDuplicatePublish
		return
	}
	info := e.info
	st.publisher = &info
	h.logger.Info("publisher attached", slog.String("stream", e.key.String()), slog.String("id", info.ID.String()))
	e.reply <- nil
}

type unpublishEvent struct {
	key         StreamKey
	publisherID uuid.UUID
}

func (e unpublishEvent) apply(h *Hub) {
	st := h.streams[e.key]
	if st == nil || st.publisher == nil || st.publisher.ID != e.publisherID {
		return
	}
	st.publisher = nil
	st.stickyMeta, st.stickyVideo, st.stickyAudio = nil, nil, nil
	st.gop = nil
	st.currentGOP = nil
	h.logger.Info("publisher detached", slog.String("stream", e.key.String()))
	h.reapIfEmpty(e.key)
}

type subscribeResult struct {
	buffer *RingBuffer
	err    error
}

type subscribeEvent struct {
	key      StreamKey
	info     SubscriberInfo
	capacity uint32
	reply    chan subscribeResult
}

func (e subscribeEvent) apply(h *Hub) {
	st := h.streams[e.key]
	if st == nil {
		if h.rejectOnMissingPublisher {
			e.reply <- subscribeResult{err: ErrStreamNotFound}
			return
		}
		st = newStreamState(e.key)
		h.streams[e.key] = st
	}

	_, alreadySubscribed := st.subscribers[e.info.ID]
	if !alreadySubscribed && h.maxSubscribersPerStream > 0 && len(st.subscribers) >= h.maxSubscribersPerStream {
		e.reply <- subscribeResult{err: ErrSubscribeCountLimitReached}
		return
	}

	if old, ok := st.subscribers[e.info.ID]; ok {
		old.buffer.Close()
		delete(st.subscribers, e.info.ID)
	}

	buf := NewRingBuffer(e.capacity)
	for _, f := range st.replaySequence() {
		buf.TryWrite(f)
	}
	st.subscribers[e.info.ID] = &subscriberEntry{info: e.info, buffer: buf}
	h.logger.Info("subscriber attached", slog.String("stream", e.key.String()),
		slog.String("id", e.info.ID.String()), slog.String("type", e.info.Type.String()))
	e.reply <- subscribeResult{buffer: buf}
}

// replaySequence returns sticky headers followed by cached GOP frames, in
// the order a new subscriber must receive them.
func (s *streamState) replaySequence() []*FrameData {
	out := make([]*FrameData, 0, 2+len(s.currentGOP))
	if s.stickyMeta != nil {
		out = append(out, s.stickyMeta)
	}
	if s.stickyVideo != nil {
		out = append(out, s.stickyVideo)
	}
	if s.stickyAudio != nil {
		out = append(out, s.stickyAudio)
	}
	for _, gop := range s.gop {
		out = append(out, gop...)
	}
	out = append(out, s.currentGOP...)
	return out
}

type unsubscribeEvent struct {
	key          StreamKey
	subscriberID uuid.UUID
}

func (e unsubscribeEvent) apply(h *Hub) {
	st := h.streams[e.key]
	if st == nil {
		return
	}
	if sub, ok := st.subscribers[e.subscriberID]; ok {
		sub.buffer.Close()
		delete(st.subscribers, e.subscriberID)
		h.logger.Info("subscriber detached", slog.String("stream", e.key.String()), slog.String("id", e.subscriberID.String()))
	}
	h.reapIfEmpty(e.key)
}

type publishFrameEvent struct {
	key         StreamKey
	publisherID uuid.UUID
	frame       *FrameData
}

func (e publishFrameEvent) apply(h *Hub) {
	st := h.streams[e.key]
	if st == nil || st.publisher == nil || st.publisher.ID != e.publisherID {
		ReleaseFrame(e.frame)
		return
	}

	st.updateCache(e.frame, h.gopNum)

	for id, sub := range st.subscribers {
		if !sub.buffer.TryWrite(e.frame) {
			h.logger.Warn("evicting slow subscriber", slog.String("stream", e.key.String()), slog.String("id", id.String()))
			sub.buffer.Close()
			delete(st.subscribers, id)
		}
	}
}

// updateCache applies the GOP cache update policy from SPEC_FULL.md section 4.1.
func (s *streamState) updateCache(f *FrameData, gopNum int) {
	switch {
	case f.Kind == FrameMetadata:
		s.stickyMeta = f
		return
	case f.Kind == FrameVideo && f.IsSequenceHeader:
		s.stickyVideo = f
		s.currentGOP = nil
		s.gop = nil
		return
	case f.Kind == FrameAudio && f.IsSequenceHeader:
		s.stickyAudio = f
		s.currentGOP = nil
		s.gop = nil
		return
	}

	if gopNum <= 0 {
		return
	}

	if f.Kind == FrameVideo && f.IsKeyframe {
		if len(s.currentGOP) > 0 {
			s.gop = append(s.gop, s.currentGOP)
		}
		for len(s.gop) >= gopNum {
			s.gop = s.gop[1:]
		}
		s.currentGOP = []*FrameData{f}
		return
	}

	if len(s.currentGOP) == 0 {
		// No keyframe seen yet since the last reset; nothing to anchor to.
		return
	}
	s.currentGOP = append(s.currentGOP, f)
}

// StreamStats is a point-in-time snapshot returned by the admin API.
type StreamStats struct {
	Key              StreamKey
	HasPublisher     bool
	PublisherID      string
	SubscriberCount  int
	SubscriberIDs    []string
	SubscriberKinds  []string
}

type statsEvent struct {
	key          *StreamKey
	subscriberID *uuid.UUID
	top          int
	reply        chan []StreamStats
}

func (e statsEvent) apply(h *Hub) {
	var out []StreamStats
	for key, st := range h.streams {
		if e.key != nil && key != *e.key {
			continue
		}
		if e.subscriberID != nil {
			stat, ok := st.snapshotForSubscriber(*e.subscriberID)
			if !ok {
				continue
			}
			out = append(out, stat)
			continue
		}
		out = append(out, st.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubscriberCount > out[j].SubscriberCount })
	if e.top > 0 && len(out) > e.top {
		out = out[:e.top]
	}
	e.reply <- out
}

func (s *streamState) snapshot() StreamStats {
	stat := StreamStats{Key: s.key, SubscriberCount: len(s.subscribers)}
	if s.publisher != nil {
		stat.HasPublisher = true
		stat.PublisherID = s.publisher.ID.String()
	}
	for _, sub := range s.subscribers {
		stat.SubscriberIDs = append(stat.SubscriberIDs, sub.info.ID.String())
		stat.SubscriberKinds = append(stat.SubscriberKinds, sub.info.Type.String())
	}
	return stat
}

// snapshotForSubscriber returns a stats view scoped to one subscriber of
// this stream. ok is false if no such subscriber is attached here.
func (s *streamState) snapshotForSubscriber(subscriberID uuid.UUID) (StreamStats, bool) {
	sub, ok := s.subscribers[subscriberID]
	if !ok {
		return StreamStats{}, false
	}
	stat := StreamStats{
		Key:             s.key,
		SubscriberCount: 1,
		SubscriberIDs:   []string{sub.info.ID.String()},
		SubscriberKinds: []string{sub.info.Type.String()},
	}
	if s.publisher != nil {
		stat.HasPublisher = true
		stat.PublisherID = s.publisher.ID.String()
	}
	return stat, true
}

type kickEvent struct {
	targetID uuid.UUID
	reply    chan bool
}

func (e kickEvent) apply(h *Hub) {
	for key, st := range h.streams {
		if st.publisher != nil && st.publisher.ID == e.targetID {
			st.publisher = nil
			st.stickyMeta, st.stickyVideo, st.stickyAudio = nil, nil, nil
			st.gop, st.currentGOP = nil, nil
			h.logger.Info("publisher kicked", slog.String("stream", key.String()))
			e.reply <- true
			h.reapIfEmpty(key)
			return
		}
		if sub, ok := st.subscribers[e.targetID]; ok {
			sub.buffer.Close()
			delete(st.subscribers, e.targetID)
			h.logger.Info("subscriber kicked", slog.String("stream", key.String()), slog.String("id", e.targetID.String()))
			e.reply <- true
			h.reapIfEmpty(key)
			return
		}
	}
	e.reply <- false
}

func (h *Hub) reapIfEmpty(key StreamKey) {
	if st, ok := h.streams[key]; ok && st.isEmpty() {
		delete(h.streams, key)
	}
}

func (h *Hub) handle(e hubEvent) { e.apply(h) }

// --- unbounded MPSC queue: a mutex-guarded slice with a coalescing wakeup
// channel, giving producers (any session goroutine) a non-blocking push and
// the single consumer (Run) a simple select loop. ---

type eventQueue struct {
	mu     sync.Mutex
	items  []hubEvent
	signal chan struct{}
}

func newEventQueue() eventQueue {
	return eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) push(e hubEvent) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []hubEvent {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// --- public, blocking-looking API used by sessions and the admin API ---

// Publish registers a publisher for key. It fails with ErrDuplicatePublish if
// another publisher already owns the stream.
func (h *Hub) Publish(key StreamKey, info PublisherInfo) error {
	reply := make(chan error, 1)
	h.queue.push(publishEvent{key: key, info: info, reply: reply})
	return <-reply
}

// Unpublish detaches publisherID from key if it is still the current publisher.
func (h *Hub) Unpublish(key StreamKey, publisherID uuid.UUID) {
	h.queue.push(unpublishEvent{key: key, publisherID: publisherID})
}

// Subscribe attaches a new subscriber to key and returns its delivery
// buffer, pre-loaded with any sticky headers and cached GOP frames. It
// fails with ErrStreamNotFound if the hub is configured to reject
// subscriptions and has no entry for key (neither a publisher nor any
// subscriber is attached), or ErrSubscribeCountLimitReached
// if the stream already has as many subscribers as its configured cap.
func (h *Hub) Subscribe(key StreamKey, info SubscriberInfo, capacity uint32) (*RingBuffer, error) {
	reply := make(chan subscribeResult, 1)
	h.queue.push(subscribeEvent{key: key, info: info, capacity: capacity, reply: reply})
	res := <-reply
	return res.buffer, res.err
}

// Unsubscribe detaches subscriberID from key.
func (h *Hub) Unsubscribe(key StreamKey, subscriberID uuid.UUID) {
	h.queue.push(unsubscribeEvent{key: key, subscriberID: subscriberID})
}

// PublishFrame fans a frame out to every subscriber of key. Ownership of
// frame passes to the hub; subscribers observe it read-only. Because every
// subscriber's buffer and the GOP cache may hold the same pointer, the hub
// returns a frame to the pool only when it drops it unused (publisherID is
// not the stream's current publisher); delivered or cached frames are never
// released, so the pool amortizes allocation but does not guarantee reuse
// of every frame.
func (h *Hub) PublishFrame(key StreamKey, publisherID uuid.UUID, frame *FrameData) {
	h.queue.push(publishFrameEvent{key: key, publisherID: publisherID, frame: frame})
}

// Stats returns a snapshot of one stream (key != nil) or all streams, capped
// to the top N by subscriber count when top > 0.
func (h *Hub) Stats(key *StreamKey, top int) []StreamStats {
	reply := make(chan []StreamStats, 1)
	h.queue.push(statsEvent{key: key, top: top, reply: reply})
	return <-reply
}

// StatsForSubscriber returns a single stream's statistics scoped to one
// subscriber of that stream. It returns no results if the stream does not
// exist or the subscriber is not attached to it.
func (h *Hub) StatsForSubscriber(key StreamKey, subscriberID uuid.UUID) []StreamStats {
	reply := make(chan []StreamStats, 1)
	h.queue.push(statsEvent{key: &key, subscriberID: &subscriberID, reply: reply})
	return <-reply
}

// Kick force-detaches whatever publisher or subscriber has the given id.
// Returns false if no such id is attached to any stream.
func (h *Hub) Kick(targetID uuid.UUID) bool {
	reply := make(chan bool, 1)
	h.queue.push(kickEvent{targetID: targetID, reply: reply})
	return <-reply
}
