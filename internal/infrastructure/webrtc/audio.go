package webrtc

import (
	"context"
	"sync"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/pkg/errors"
	"streamlink/pkg/utils"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// audioController owns the local Opus track. Enable creates the track,
// Publish attaches it to the peer connection and starts draining sender RTCP
// so the congestion feedback reaches the stats controller.
type audioController struct {
	sess  *session
	stats *statsController

	mu     sync.Mutex
	cb     ports.AudioCallbacks
	track  *webrtc.TrackLocalStaticRTP
	sender *webrtc.RTPSender
	model  domain.Track

	logger *zap.SugaredLogger
}

func newAudioController(sess *session, stats *statsController, log *zap.Logger) *audioController {
	return &audioController{
		sess:   sess,
		stats:  stats,
		logger: log.Named("webrtc.audio").Sugar(),
	}
}

func (a *audioController) SetCallbacks(cb ports.AudioCallbacks) {
	a.mu.Lock()
	a.cb = cb
	a.mu.Unlock()
}

func (a *audioController) Enable(ctx context.Context, cfg domain.AudioConfig) (domain.Track, error) {
	a.mu.Lock()
	if a.track != nil {
		model := a.model
		a.mu.Unlock()
		return model, nil
	}

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		utils.GenerateTrackID("audio"),
		"streamlink-audio",
	)
	if err != nil {
		a.mu.Unlock()
		return domain.Track{}, errors.NewMediaDeviceError("create audio track", err)
	}

	a.track = track
	a.model = domain.Track{
		ID:      track.ID(),
		Kind:    domain.TrackKindAudio,
		Enabled: true,
		Volume:  cfg.Volume,
	}
	model := a.model
	cb := a.cb
	a.mu.Unlock()

	a.logger.Infow("audio enabled", "track_id", model.ID)
	if cb.OnTrack != nil {
		cb.OnTrack(model)
	}
	return model, nil
}

func (a *audioController) Disable(ctx context.Context) error {
	if err := a.Unpublish(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.track = nil
	a.model = domain.Track{}
	a.mu.Unlock()

	a.logger.Info("audio disabled")
	return nil
}

func (a *audioController) Publish(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.track == nil {
		return errors.NewTrackNotFoundError("audio")
	}
	if a.sender != nil {
		return nil
	}

	pc := a.sess.peer()
	if pc == nil {
		return errors.NewMediaDeviceError("publish audio", domain.ErrNotConnected)
	}

	sender, err := pc.AddTrack(a.track)
	if err != nil {
		return errors.NewMediaDeviceError("publish audio", err)
	}
	a.sender = sender
	go drainSenderRTCP(sender, a.stats)

	a.logger.Infow("audio published", "track_id", a.model.ID)
	return nil
}

func (a *audioController) Unpublish(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sender == nil {
		return nil
	}
	if pc := a.sess.peer(); pc != nil {
		if err := pc.RemoveTrack(a.sender); err != nil {
			return errors.NewMediaDeviceError("unpublish audio", err)
		}
	}
	a.sender = nil

	a.logger.Info("audio unpublished")
	return nil
}

// WriteRTP feeds one captured packet into the published track.
func (a *audioController) WriteRTP(packet *rtp.Packet) error {
	a.mu.Lock()
	track := a.track
	a.mu.Unlock()

	if track == nil {
		return errors.NewTrackNotFoundError("audio")
	}
	if err := track.WriteRTP(packet); err != nil {
		return errors.NewMediaDeviceError("write audio packet", err)
	}
	a.stats.addBytesSent(len(packet.Payload))
	return nil
}

func (a *audioController) Cleanup() error {
	return a.Disable(context.Background())
}

// drainSenderRTCP reads RTCP feedback until the sender closes. pion requires
// the read or the interceptor pipeline stalls.
func drainSenderRTCP(sender *webrtc.RTPSender, stats *statsController) {
	for {
		packets, _, err := sender.ReadRTCP()
		if err != nil {
			return
		}
		stats.processRTCP(packets)
	}
}
