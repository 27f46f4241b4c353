package relay

import (
	"time"

	"streamlink/internal/core/ports"
	"streamlink/internal/core/services"
	"streamlink/pkg/config"

	"go.uber.org/zap"
)

// Config holds the relay backend configuration. The ping/pong pair detects a
// dead link; a pong must arrive within PongTimeout or the read pump fails.
type Config struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	WriteTimeout time.Duration
}

// ConfigFromApp maps the application configuration onto the backend config.
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		PingInterval: cfg.Relay.PingInterval,
		PongTimeout:  cfg.Relay.PongTimeout,
		WriteTimeout: cfg.Relay.WriteTimeout,
	}
}

// Backend is the WebSocket relay controller family. One socket carries
// everything: protocol frames, roster events, and server-pushed statistics,
// multiplexed through event envelopes.
type Backend struct {
	controllers ports.ControllerSet
}

// NewBackend builds the controller family around one shared relay socket.
func NewBackend(cfg Config, log *zap.Logger) *Backend {
	registry := services.NewParticipantRegistry(log)
	stats := newStatsController(log)
	adapter := newSocketAdapter(cfg.WriteTimeout, log)
	conn := newConnectionController(cfg, adapter, registry, stats, log)

	return &Backend{
		controllers: ports.ControllerSet{
			Connection:  conn,
			Audio:       newAudioController(adapter, log),
			Video:       newVideoController(adapter, log),
			Participant: registry,
			Stats:       stats,
		},
	}
}

// Controllers returns the controller family for the provider facade.
func (b *Backend) Controllers() ports.ControllerSet {
	return b.controllers
}
