// If you are AI: This file handles RTMP command messages after connect.
// Implements releaseStream, FCPublish, createStream, publish, play, deleteStream.

package rtmp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/core/protocol/amf0"
	rtmpprotocol "github.com/ningnao/xiu/internal/core/protocol/rtmp"
)

// HandleReleaseStream handles the releaseStream command.
// FFmpeg sends this before createStream; respond with _result for the transaction ID.
func (s *ServiceSession) HandleReleaseStream(command amf0.Array) error {
	if len(command) < 2 {
		return nil
	}
	body, err := amf0.EncodeCommand(amf0.Array{"_result", toFloat64(command[1]), nil})
	if err != nil {
		return err
	}
	return s.WriteMessage(3, rtmpprotocol.MessageTypeCommandAMF0, 0, 0, body)
}

// HandleFCPublish handles the FCPublish command.
// FFmpeg sends this before createStream; most servers do not respond, but we
// send _result for compatibility with stricter clients.
func (s *ServiceSession) HandleFCPublish(command amf0.Array) error {
	if len(command) < 2 {
		return nil
	}
	body, err := amf0.EncodeCommand(amf0.Array{"_result", toFloat64(command[1]), nil})
	if err != nil {
		return err
	}
	return s.WriteMessage(3, rtmpprotocol.MessageTypeCommandAMF0, 0, 0, body)
}

// HandleCreateStream handles the createStream command, returning _result
// with a newly allocated stream ID.
func (s *ServiceSession) HandleCreateStream(command amf0.Array) error {
	if len(command) < 2 {
		return fmt.Errorf("invalid createStream command")
	}
	streamID := s.nextStreamID
	s.nextStreamID++
	s.SetState(rtmpprotocol.StateCreated)

	body, err := amf0.EncodeCommand(amf0.Array{"_result", toFloat64(command[1]), nil, float64(streamID)})
	if err != nil {
		return err
	}
	return s.WriteMessage(3, rtmpprotocol.MessageTypeCommandAMF0, 0, 0, body)
}

// HandlePublish handles the publish command. streamID is the message-stream
// ID the publish command itself arrived on. Sends StreamBegin + onStatus
// NetStream.Publish.Start on success, or NetStream.Publish.BadName if a
// publisher is already attached to the stream.
func (s *ServiceSession) HandlePublish(command amf0.Array, streamID uint32) error {
	streamName, token, nonce := splitStreamNameAndAuth(extractCommandStreamName(command))
	if streamName == "" {
		return fmt.Errorf("stream name not found in publish command")
	}
	app := s.GetApp()
	if app == "" {
		return fmt.Errorf("app not set")
	}
	if !s.auth.Check(token, nonce) {
		_ = s.sendOnStatus(streamID, "error", "NetStream.Publish.Unauthorized", "Publish unauthorized")
		return fmt.Errorf("publish unauthorized for %s/%s", app, streamName)
	}

	s.streamKey = bus.NewStreamKey(app, streamName)
	id := uuid.New()
	info := bus.PublisherInfo{
		ID:   id,
		Type: bus.PublisherRTMP,
		Notify: bus.NotifyInfo{
			RequestURL: s.streamKey.String(),
			RemoteAddr: s.remoteAddr,
		},
	}

	if err := s.hub.Publish(s.streamKey, info); err != nil {
		_ = s.sendOnStatus(streamID, "error", "NetStream.Publish.BadName", "Stream already being published")
		return err
	}

	s.publisherID = &id
	s.SetStreamName(streamName)
	s.SetState(rtmpprotocol.StatePublishing)

	if err := s.WriteMessage(2, rtmpprotocol.MessageTypeUserCtrl, 0, 0, rtmpprotocol.CreateStreamBegin(streamID)); err != nil {
		s.logger.Warn("failed to send StreamBegin", "error", err)
	}
	return s.sendOnStatus(streamID, "status", "NetStream.Publish.Start", "Start publishing")
}

// HandlePlay handles the play command, subscribing this session to the
// requested stream and starting a goroutine that forwards frames back to
// the client as RTMP audio/video/data messages.
func (s *ServiceSession) HandlePlay(command amf0.Array, streamID uint32) error {
	streamName, token, nonce := splitStreamNameAndAuth(extractCommandStreamName(command))
	if streamName == "" {
		return fmt.Errorf("stream name not found in play command")
	}
	app := s.GetApp()
	if app == "" {
		return fmt.Errorf("app not set")
	}
	if !s.auth.Check(token, nonce) {
		_ = s.sendOnStatus(streamID, "error", "NetStream.Play.Unauthorized", "Play unauthorized")
		return fmt.Errorf("play unauthorized for %s/%s", app, streamName)
	}

	s.streamKey = bus.NewStreamKey(app, streamName)
	id := uuid.New()
	info := bus.SubscriberInfo{
		ID:   id,
		Type: bus.SubscriberRTMP,
		Notify: bus.NotifyInfo{
			RequestURL: s.streamKey.String(),
			RemoteAddr: s.remoteAddr,
		},
	}

	buf, err := s.hub.Subscribe(s.streamKey, info, subscribeBufferCapacity)
	if err != nil {
		switch {
		case errors.Is(err, bus.ErrStreamNotFound):
			_ = s.sendOnStatus(streamID, "error", "NetStream.Play.StreamNotFound", "Stream not found")
		case errors.Is(err, bus.ErrSubscribeCountLimitReached):
			_ = s.sendOnStatus(streamID, "error", "NetStream.Play.Failed", "Stream subscriber limit reached")
		default:
			_ = s.sendOnStatus(streamID, "error", "NetStream.Play.Failed", "Play rejected")
		}
		return err
	}
	s.SetStreamName(streamName)
	s.SetState(rtmpprotocol.StatePlaying)

	if err := s.WriteMessage(2, rtmpprotocol.MessageTypeUserCtrl, 0, 0, rtmpprotocol.CreateStreamBegin(streamID)); err != nil {
		s.logger.Warn("failed to send StreamBegin", "error", err)
	}
	if err := s.sendOnStatus(streamID, "status", "NetStream.Play.Start", "Start playing"); err != nil {
		return err
	}

	s.player = newPlayerState(id, buf)
	go s.player.run(s.Session, streamID, s.logger)
	return nil
}

// HandleDeleteStream handles deleteStream/closeStream, detaching whatever
// publisher or player was attached to this session.
func (s *ServiceSession) HandleDeleteStream() {
	if s.publisherID != nil {
		s.hub.Unpublish(s.streamKey, *s.publisherID)
		s.publisherID = nil
	}
	if s.player != nil {
		s.player.stop()
		s.hub.Unsubscribe(s.streamKey, s.player.id)
		s.player = nil
	}
}

// sendOnStatus sends an onStatus message on the given stream ID.
func (s *ServiceSession) sendOnStatus(streamID uint32, level, code, description string) error {
	status := amf0.Object{
		"level":       level,
		"code":        code,
		"description": description,
	}
	body, err := amf0.EncodeCommand(amf0.Array{"onStatus", float64(0), nil, status})
	if err != nil {
		return err
	}
	return s.WriteMessage(5, rtmpprotocol.MessageTypeCommandAMF0, 0, streamID, body)
}

// extractCommandStreamName extracts the stream name from a publish or play
// command. Format: [name, txnID, null, streamName, ...]. Some clients omit
// the null command object, shifting the stream name to index 2.
func extractCommandStreamName(command amf0.Array) string {
	if len(command) >= 4 {
		if name, ok := command[3].(string); ok {
			return name
		}
	}
	if len(command) >= 3 {
		if name, ok := command[2].(string); ok {
			return name
		}
	}
	return ""
}

// splitStreamNameAndAuth splits the OBS/ffmpeg convention
// "streamname?token=...&nonce=..." into the bare stream name plus any
// token/nonce query parameters.
func splitStreamNameAndAuth(raw string) (name, token, nonce string) {
	base, query, found := strings.Cut(raw, "?")
	if !found {
		return raw, "", ""
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return base, "", ""
	}
	return base, values.Get("token"), values.Get("nonce")
}
