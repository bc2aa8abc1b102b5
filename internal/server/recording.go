// If you are AI: This file drives optional FLV recording of published
// streams. The hub has no publish-notification hook, so a recorder
// supervisor polls its stats on a short interval and starts/stops a
// recorder as publishers come and go.

package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/ningnao/xiu/internal/core/bus"
	"github.com/ningnao/xiu/internal/svc/recorder"
)

// pollInterval controls how quickly recording reacts to a new or ended
// publish. It trades a small detection delay for not needing a dedicated
// notification channel on the hub.
const pollInterval = 2 * time.Second

// recordingSupervisor starts one Recorder per actively published stream and
// stops it once that stream's publisher disappears.
type recordingSupervisor struct {
	hub    *bus.Hub
	dir    string
	logger *slog.Logger

	active map[bus.StreamKey]*recorder.Recorder
}

func newRecordingSupervisor(hub *bus.Hub, dir string, logger *slog.Logger) *recordingSupervisor {
	return &recordingSupervisor{
		hub:    hub,
		dir:    dir,
		logger: logger,
		active: make(map[bus.StreamKey]*recorder.Recorder),
	}
}

// Run polls the hub until ctx is canceled, reconciling the set of running
// recorders against the set of currently published streams.
func (s *recordingSupervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			return
		case <-ticker.C:
			s.reconcile()
		}
	}
}

func (s *recordingSupervisor) reconcile() {
	published := make(map[bus.StreamKey]bool)
	for _, stat := range s.hub.Stats(nil, 0) {
		if stat.HasPublisher {
			published[stat.Key] = true
		}
	}

	for key := range published {
		if _, ok := s.active[key]; ok {
			continue
		}
		rec := recorder.New(s.hub, key, s.dir, s.logger)
		if err := rec.Start(); err != nil {
			s.logger.Warn("recorder start failed", slog.String("stream", key.String()), slog.String("error", err.Error()))
			continue
		}
		s.active[key] = rec
		go rec.Run()
	}

	for key, rec := range s.active {
		if !published[key] {
			rec.Stop()
			delete(s.active, key)
		}
	}
}

func (s *recordingSupervisor) stopAll() {
	for key, rec := range s.active {
		rec.Stop()
		delete(s.active, key)
	}
}
