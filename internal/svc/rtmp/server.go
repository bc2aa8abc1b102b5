// If you are AI: This file implements the RTMP server that accepts connections.
// The server handles handshake, command processing, and media publishing.

package rtmp

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/core/protocol/amf0"
	rtmpprotocol "github.com/ningnao/xiu/internal/core/protocol/rtmp"
	"github.com/ningnao/xiu/internal/svc/auth"
)

// Server accepts RTMP connections and drives their sessions against a
// shared stream hub.
type Server struct {
	hub           *bus.Hub
	auth          *auth.Authorizer
	windowAckSize uint32
	idleTimeout   time.Duration
	logger        *slog.Logger
	listener      net.Listener
}

// NewServer creates an RTMP server bound to hub. authorizer may be nil to
// allow every publish/play request. idleTimeout bounds how long a connection
// may go without sending a complete chunk before it is reaped; zero disables
// the deadline entirely.
func NewServer(hub *bus.Hub, authorizer *auth.Authorizer, windowAckSize uint32, idleTimeout time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{hub: hub, auth: authorizer, windowAckSize: windowAckSize, idleTimeout: idleTimeout, logger: logger}
}

// Listen starts listening on the specified address.
func (s *Server) Listen(addr string) error {
	var err error
	s.listener, err = net.Listen("tcp", addr)
	return err
}

// Accept accepts connections until the listener is closed, handling each in
// its own goroutine.
func (s *Server) Accept() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	session := NewServiceSession(conn, s.hub, s.auth, s.windowAckSize, conn.RemoteAddr().String(), s.logger)
	defer session.Close()

	if err := session.PerformHandshake(); err != nil {
		s.logger.Debug("handshake failed", "remote", conn.RemoteAddr(), "error", err)
		return
	}

	for {
		if s.idleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
				s.logger.Debug("set read deadline failed", "error", err)
				return
			}
		}

		csID, err := session.ReadChunk()
		if err != nil {
			if err != io.EOF {
				s.logger.Debug("read chunk failed", "error", err)
			}
			return
		}

		body, msgType, timestamp, streamID, complete := session.GetCompleteMessage(csID)
		if !complete {
			continue
		}

		switch msgType {
		case rtmpprotocol.MessageTypeSetChunkSize:
			size, err := rtmpprotocol.ParseSetChunkSize(body)
			if err != nil {
				s.logger.Debug("invalid set chunk size", "error", err)
				continue
			}
			session.SetChunkSize(size)

		case rtmpprotocol.MessageTypeUserCtrl:
			// Ping/stream-dry/etc. require no response in this implementation.

		case rtmpprotocol.MessageTypeCommandAMF0:
			if err := s.handleCommand(session, body, streamID); err != nil {
				s.logger.Debug("command handling error", "error", err)
				return
			}

		case rtmpprotocol.MessageTypeAudio, rtmpprotocol.MessageTypeVideo, rtmpprotocol.MessageTypeDataAMF0:
			session.HandleMediaMessage(msgType, timestamp, body)

		default:
			// Other message types are ignored.
		}
	}
}

func (s *Server) handleCommand(session *ServiceSession, body []byte, streamID uint32) error {
	command, err := amf0.DecodeCommand(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	if len(command) == 0 {
		return nil
	}
	cmdName, ok := command[0].(string)
	if !ok {
		return nil
	}

	switch cmdName {
	case "connect":
		return session.HandleConnect(command)
	case "releaseStream":
		return session.HandleReleaseStream(command)
	case "FCPublish":
		return session.HandleFCPublish(command)
	case "createStream":
		return session.HandleCreateStream(command)
	case "publish":
		return session.HandlePublish(command, streamID)
	case "play":
		return session.HandlePlay(command, streamID)
	case "deleteStream", "closeStream", "FCUnpublish":
		session.HandleDeleteStream()
		return nil
	default:
		return nil
	}
}

// Close closes the server's listener.
func (s *Server) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
