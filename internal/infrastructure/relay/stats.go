package relay

import (
	"context"
	"sync"
	"time"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"

	"go.uber.org/zap"
)

// statsController normalizes server-pushed statistics envelopes. The relay
// decides the cadence; this side only reshapes and forwards while started.
type statsController struct {
	mu      sync.Mutex
	cb      ports.StatsCallbacks
	running bool

	now func() time.Time

	logger *zap.SugaredLogger
}

func newStatsController(log *zap.Logger) *statsController {
	return &statsController{
		now:    time.Now,
		logger: log.Named("relay.stats").Sugar(),
	}
}

func (s *statsController) SetCallbacks(cb ports.StatsCallbacks) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *statsController) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	return nil
}

func (s *statsController) Stop() error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// handleStats is fed by the connection read pump.
func (s *statsController) handleStats(payload statsPayload) {
	s.mu.Lock()
	running := s.running
	cb := s.cb
	now := s.now()
	s.mu.Unlock()

	if !running || cb.OnStats == nil {
		return
	}

	stats := payload.toDomain(now)
	cb.OnStats(domain.QualityFromStats(stats), stats)
}

func (s *statsController) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.cb = ports.StatsCallbacks{}
	return nil
}
