package webrtc

import (
	"time"

	"streamlink/internal/core/ports"
	"streamlink/internal/core/services"
	"streamlink/pkg/config"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// Config holds the WebRTC backend configuration.
type Config struct {
	ICEServers     []webrtc.ICEServer
	ConnectTimeout time.Duration
	StatsInterval  time.Duration
}

// ConfigFromApp maps the application configuration onto the backend config.
func ConfigFromApp(cfg *config.Config) Config {
	out := Config{
		ConnectTimeout: cfg.WebRTC.ConnectTimeout,
		StatsInterval:  2 * time.Second,
	}
	for _, server := range cfg.WebRTC.ICEServers {
		ice := webrtc.ICEServer{URLs: server.URLs}
		if server.Username != "" {
			ice.Username = server.Username
			ice.Credential = server.Credential
		}
		out.ICEServers = append(out.ICEServers, ice)
	}
	return out
}

// MediaWriter feeds captured RTP packets into a published local track.
type MediaWriter interface {
	WriteRTP(packet *rtp.Packet) error
}

// Backend is the pion-based controller family. The session's data channel
// carries the chunked messaging protocol; media travels on RTP tracks.
type Backend struct {
	controllers ports.ControllerSet
	audio       *audioController
	video       *videoController
}

// NewBackend builds the controller family around one shared peer-connection
// session. The signaler exchanges the offer/answer with the remote side.
func NewBackend(cfg Config, signaler Signaler, log *zap.Logger) *Backend {
	sess := &session{}
	stats := newStatsController(cfg.StatsInterval, log)
	registry := services.NewParticipantRegistry(log)

	adapter := newDataChannelAdapter(sess, log)
	audio := newAudioController(sess, stats, log)
	video := newVideoController(sess, stats, registry, log)
	conn := newConnectionController(cfg, signaler, sess, adapter, video, log)

	return &Backend{
		controllers: ports.ControllerSet{
			Connection:  conn,
			Audio:       audio,
			Video:       video,
			Participant: registry,
			Stats:       stats,
		},
		audio: audio,
		video: video,
	}
}

// Controllers returns the controller family for the provider facade.
func (b *Backend) Controllers() ports.ControllerSet {
	return b.controllers
}

// AudioWriter returns the capture sink for the local audio track.
func (b *Backend) AudioWriter() MediaWriter {
	return b.audio
}

// VideoWriter returns the capture sink for the local video track.
func (b *Backend) VideoWriter() MediaWriter {
	return b.video
}
