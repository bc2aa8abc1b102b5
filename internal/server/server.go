// If you are AI: This file implements process lifecycle and routing: it
// wires the stream hub, authorizer, and every ingest/egress service
// together and owns their startup and shutdown order.

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ningnao/xiu/internal/config"
	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/svc/api"
	"github.com/ningnao/xiu/internal/svc/auth"
	"github.com/ningnao/xiu/internal/svc/health"
	"github.com/ningnao/xiu/internal/svc/hls"
	"github.com/ningnao/xiu/internal/svc/httpflv"
	"github.com/ningnao/xiu/internal/svc/rtmp"
	"github.com/ningnao/xiu/internal/svc/wsflv"
)

// nonceSweepInterval controls how often expired, unconsumed nonces are
// purged from the nonce store.
const nonceSweepInterval = time.Minute

// Server wires together every protocol surface (RTMP ingest, HTTP-FLV,
// WebSocket-FLV, HLS, and the admin API) around a single shared stream hub.
type Server struct {
	cfg *config.Config

	hub    *bus.Hub
	nonces *auth.NonceStore
	logger *slog.Logger

	httpServer *http.Server
	apiServer  *http.Server
	rtmpServer *rtmp.Server

	recording *recordingSupervisor

	hubCancel context.CancelFunc
	bgCancel  context.CancelFunc
}

// New creates a new server instance with the given configuration. The
// server is not started until Start is called.
func New(cfg *config.Config) *Server {
	logger := slog.Default()

	hub := bus.NewHubWithOptions(cfg.Hub.GOPCacheDepth, bus.HubOptions{
		RejectOnMissingPublisher: cfg.Hub.RejectOnMissingPublisher,
		MaxSubscribersPerStream:  cfg.Hub.MaxSubscribersPerStream,
	}, logger)
	nonces := auth.NewNonceStoreWithTTL(cfg.Auth.NonceTTL())
	authorizer := auth.NewAuthorizer(cfg.Auth.Required, cfg.Auth.Token, nonces)

	mux := http.NewServeMux()
	health.New().RegisterRoutes(mux)
	httpflv.NewService(hub, authorizer).RegisterRoutes(mux)
	wsflv.NewService(hub, authorizer).RegisterRoutes(mux)
	hls.NewService(hub, logger).RegisterRoutes(mux)

	apiMux := http.NewServeMux()
	api.NewService(hub, nonces).RegisterRoutes(apiMux)

	rtmpServer := rtmp.NewServer(hub, authorizer, uint32(cfg.Hub.WindowAckSize), cfg.Hub.IdleTimeout(), logger)

	var recording *recordingSupervisor
	if cfg.Recording.Enabled {
		recording = newRecordingSupervisor(hub, cfg.Recording.Dir, logger)
	}

	return &Server{
		cfg:    cfg,
		hub:    hub,
		nonces: nonces,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler: mux,
		},
		apiServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.APIPort),
			Handler: apiMux,
		},
		rtmpServer: rtmpServer,
		recording:  recording,
	}
}

// Start begins serving HTTP, admin API, and RTMP connections. This method
// blocks until the HTTP-FLV/WS-FLV/HLS listener is stopped or fails.
func (s *Server) Start() error {
	hubCtx, hubCancel := context.WithCancel(context.Background())
	s.hubCancel = hubCancel
	go s.hub.Run(hubCtx)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	s.bgCancel = bgCancel
	go s.nonces.Run(bgCtx.Done(), nonceSweepInterval)
	if s.recording != nil {
		go s.recording.Run(bgCtx)
	}

	if err := s.rtmpServer.Listen(fmt.Sprintf(":%d", s.cfg.Server.RTMPPort)); err != nil {
		return fmt.Errorf("RTMP server listen: %w", err)
	}
	go func() {
		if err := s.rtmpServer.Accept(); err != nil {
			s.logger.Debug("RTMP accept loop stopped", slog.String("error", err.Error()))
		}
	}()

	go func() {
		if err := s.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("admin API server error", slog.String("error", err.Error()))
		}
	}()

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops every listening surface with the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	if s.hubCancel != nil {
		s.hubCancel()
	}
	if s.rtmpServer != nil {
		s.rtmpServer.Close()
	}
	if err := s.apiServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.httpServer.Shutdown(ctx)
}

// ShutdownWithTimeout stops the server with a fixed 5-second timeout. This
// is a convenience wrapper around Shutdown.
func (s *Server) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
