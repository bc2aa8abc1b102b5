// If you are AI: This file manages RTMP service session handling.
// Handles command processing and publish/play lifecycle.

package rtmp

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/core/protocol/amf0"
	rtmpprotocol "github.com/ningnao/xiu/internal/core/protocol/rtmp"
	"github.com/ningnao/xiu/internal/svc/auth"
)

// subscribeBufferCapacity bounds how many frames a player's delivery buffer
// holds before it is considered too slow and evicted.
const subscribeBufferCapacity = 1024

// ServiceSession wraps the protocol-level RTMP session with stream hub
// wiring: it turns publish/play commands into Hub attachments and turns
// incoming/outgoing media messages into frames on the bus.
type ServiceSession struct {
	*rtmpprotocol.Session
	hub           *bus.Hub
	auth          *auth.Authorizer
	windowAckSize uint32
	logger        *slog.Logger
	remoteAddr    string
	nextStreamID  uint32

	publisherID *uuid.UUID
	streamKey   bus.StreamKey

	player *playerState
}

// NewServiceSession creates a new service session bound to hub. authorizer
// may be nil to allow every publish/play request.
func NewServiceSession(conn io.ReadWriter, hub *bus.Hub, authorizer *auth.Authorizer, windowAckSize uint32, remoteAddr string, logger *slog.Logger) *ServiceSession {
	if logger == nil {
		logger = slog.Default()
	}
	if windowAckSize == 0 {
		windowAckSize = 5000000
	}
	return &ServiceSession{
		Session:       rtmpprotocol.NewSession(conn),
		hub:           hub,
		auth:          authorizer,
		windowAckSize: windowAckSize,
		logger:        logger,
		remoteAddr:    remoteAddr,
		nextStreamID:  1,
	}
}

// HandleConnect handles the connect command.
// Format: ["connect", transaction_id, command_object, ...]
// NOTE: Some clients may send command_object as a separate element or it may be missing.
func (s *ServiceSession) HandleConnect(command amf0.Array) error {
	if len(command) < 2 {
		return fmt.Errorf("invalid connect command: need at least 2 elements")
	}

	app := "live"
	objectEncoding := float64(0)

	if len(command) >= 3 && command[2] != nil {
		if cmdObj, ok := command[2].(amf0.Object); ok {
			if appVal, ok := cmdObj["app"].(string); ok {
				app = appVal
			}
			if encVal, ok := cmdObj["objectEncoding"].(float64); ok {
				objectEncoding = encVal
			}
		}
	}

	s.SetApp(app)

	// Window ack size, peer bandwidth, and chunk size MUST be sent after
	// connect but before the connect _result.
	if err := s.WriteMessage(2, rtmpprotocol.MessageTypeWinAckSize, 0, 0, rtmpprotocol.CreateWindowAckSize(s.windowAckSize)); err != nil {
		return fmt.Errorf("send window ack size: %w", err)
	}
	if err := s.WriteMessage(2, rtmpprotocol.MessageTypeSetPeerBandwidth, 0, 0, rtmpprotocol.CreateSetPeerBandwidth(s.windowAckSize, 2)); err != nil {
		return fmt.Errorf("send set peer bandwidth: %w", err)
	}
	if err := s.WriteMessage(2, rtmpprotocol.MessageTypeSetChunkSize, 0, 0, rtmpprotocol.CreateSetChunkSize(rtmpprotocol.DefaultChunkSize)); err != nil {
		return fmt.Errorf("send set chunk size: %w", err)
	}

	s.SetState(rtmpprotocol.StateConnected)
	return s.sendConnectResult(command[1], objectEncoding)
}

func (s *ServiceSession) sendConnectResult(transID interface{}, objectEncoding float64) error {
	cmdObj := amf0.Object{
		"fmsVer":       "FMS/3,0,1,123",
		"capabilities": float64(31),
	}
	info := amf0.Object{
		"level":          "status",
		"code":           "NetConnection.Connect.Success",
		"description":    "Connection succeeded.",
		"objectEncoding": objectEncoding,
	}
	response := amf0.Array{"_result", toFloat64(transID), cmdObj, info}
	body, err := amf0.EncodeCommand(response)
	if err != nil {
		return err
	}
	return s.WriteMessage(3, rtmpprotocol.MessageTypeCommandAMF0, 0, 0, body)
}

// HandleMediaMessage handles audio/video/data messages arriving while
// publishing, forwarding them to the hub as frames.
func (s *ServiceSession) HandleMediaMessage(msgType byte, timestamp uint32, body []byte) {
	if s.publisherID == nil {
		return
	}
	frame := frameFromMessage(msgType, timestamp, body)
	if frame == nil {
		return
	}
	s.hub.PublishFrame(s.streamKey, *s.publisherID, frame)
}

// Close closes the session, detaching any publisher or player attachment.
func (s *ServiceSession) Close() {
	if s.publisherID != nil {
		s.hub.Unpublish(s.streamKey, *s.publisherID)
		s.publisherID = nil
	}
	if s.player != nil {
		s.player.stop()
		s.hub.Unsubscribe(s.streamKey, s.player.id)
		s.player = nil
	}
	s.Session.Close()
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
