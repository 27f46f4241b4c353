package webrtc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"

	"github.com/pion/rtcp"
	"go.uber.org/zap"
)

// statsController folds RTCP feedback and send-path byte counters into the
// normalized quality shape on a fixed interval. Metrics the transport never
// reports stay at their zero value.
type statsController struct {
	interval time.Duration

	bytesSent atomic.Int64

	mu        sync.Mutex
	cb        ports.StatsCallbacks
	cancel    context.CancelFunc
	lastBytes int64
	lastLoss  float64
	lastRTT   time.Duration

	logger *zap.SugaredLogger
}

func newStatsController(interval time.Duration, log *zap.Logger) *statsController {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &statsController{
		interval: interval,
		logger:   log.Named("webrtc.stats").Sugar(),
	}
}

func (s *statsController) SetCallbacks(cb ports.StatsCallbacks) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

// addBytesSent is fed by the media write path to derive the outbound bitrate.
func (s *statsController) addBytesSent(n int) {
	s.bytesSent.Add(int64(n))
}

// processRTCP extracts loss and round-trip feedback from receiver reports.
// The sender read loops feed it.
func (s *statsController) processRTCP(packets []rtcp.Packet) {
	for _, packet := range packets {
		report, ok := packet.(*rtcp.ReceiverReport)
		if !ok {
			continue
		}
		for _, reception := range report.Reports {
			s.mu.Lock()
			s.lastLoss = float64(reception.FractionLost) / 256
			// DLSR is in 1/65536 seconds; zero means the peer never saw an SR.
			if reception.Delay > 0 {
				s.lastRTT = time.Duration(reception.Delay) * time.Second / 65536
			}
			s.mu.Unlock()
		}
	}
}

func (s *statsController) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

func (s *statsController) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.emit(now)
		}
	}
}

func (s *statsController) emit(now time.Time) {
	total := s.bytesSent.Load()

	s.mu.Lock()
	delta := total - s.lastBytes
	s.lastBytes = total
	stats := domain.NetworkStats{
		RTT:         s.lastRTT,
		PacketLoss:  s.lastLoss,
		BitrateKbps: int(delta * 8 / int64(s.interval.Seconds()*1000)),
		Timestamp:   now,
	}
	cb := s.cb
	s.mu.Unlock()

	if cb.OnStats != nil {
		cb.OnStats(domain.QualityFromStats(stats), stats)
	}
}

func (s *statsController) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (s *statsController) Cleanup() error {
	return s.Stop()
}
