package webrtc

import (
	"context"
	"sync"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/internal/core/services"
	"streamlink/pkg/errors"
	"streamlink/pkg/utils"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// videoController owns the local VP8 track plus the presentation sink for the
// remote stream. The sink element id is an opaque handle; it is attached and
// detached, never inspected.
type videoController struct {
	sess     *session
	stats    *statsController
	registry *services.ParticipantRegistry

	mu          sync.Mutex
	cb          ports.VideoCallbacks
	track       *webrtc.TrackLocalStaticRTP
	sender      *webrtc.RTPSender
	model       domain.Track
	sinkElement string
	remote      *webrtc.TrackRemote

	logger *zap.SugaredLogger
}

func newVideoController(sess *session, stats *statsController, registry *services.ParticipantRegistry, log *zap.Logger) *videoController {
	return &videoController{
		sess:     sess,
		stats:    stats,
		registry: registry,
		logger:   log.Named("webrtc.video").Sugar(),
	}
}

func (v *videoController) SetCallbacks(cb ports.VideoCallbacks) {
	v.mu.Lock()
	v.cb = cb
	v.mu.Unlock()
}

func (v *videoController) Enable(ctx context.Context, cfg domain.VideoConfig) (domain.Track, error) {
	v.mu.Lock()
	if v.track != nil {
		model := v.model
		v.mu.Unlock()
		return model, nil
	}

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		utils.GenerateTrackID("video"),
		"streamlink-video",
	)
	if err != nil {
		v.mu.Unlock()
		return domain.Track{}, errors.NewMediaDeviceError("create video track", err)
	}

	source := cfg.Source
	if source == "" {
		source = "camera"
	}
	v.track = track
	v.model = domain.Track{
		ID:      track.ID(),
		Kind:    domain.TrackKindVideo,
		Enabled: true,
		Source:  source,
	}
	model := v.model
	cb := v.cb
	v.mu.Unlock()

	v.logger.Infow("video enabled", "track_id", model.ID, "source", source)
	if cb.OnTrack != nil {
		cb.OnTrack(model)
	}
	return model, nil
}

func (v *videoController) Disable(ctx context.Context) error {
	if err := v.Unpublish(ctx); err != nil {
		return err
	}

	v.mu.Lock()
	v.track = nil
	v.model = domain.Track{}
	v.mu.Unlock()

	v.logger.Info("video disabled")
	return nil
}

func (v *videoController) Publish(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.track == nil {
		return errors.NewTrackNotFoundError("video")
	}
	if v.sender != nil {
		return nil
	}

	pc := v.sess.peer()
	if pc == nil {
		return errors.NewMediaDeviceError("publish video", domain.ErrNotConnected)
	}

	sender, err := pc.AddTrack(v.track)
	if err != nil {
		return errors.NewMediaDeviceError("publish video", err)
	}
	v.sender = sender
	go drainSenderRTCP(sender, v.stats)

	v.logger.Infow("video published", "track_id", v.model.ID)
	return nil
}

func (v *videoController) Unpublish(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.sender == nil {
		return nil
	}
	if pc := v.sess.peer(); pc != nil {
		if err := pc.RemoveTrack(v.sender); err != nil {
			return errors.NewMediaDeviceError("unpublish video", err)
		}
	}
	v.sender = nil

	v.logger.Info("video unpublished")
	return nil
}

// Play attaches the remote video stream to a presentation element.
func (v *videoController) Play(elementID string) error {
	if elementID == "" {
		return errors.NewElementNotFoundError(elementID)
	}

	v.mu.Lock()
	v.sinkElement = elementID
	remote := v.remote
	v.mu.Unlock()

	if remote == nil {
		v.logger.Infow("video sink attached, awaiting remote track", "element_id", elementID)
		return nil
	}
	v.logger.Infow("video playing", "element_id", elementID, "track_id", remote.ID())
	return nil
}

// Stop detaches the presentation sink. The remote track keeps flowing; only
// the rendering handle is released.
func (v *videoController) Stop() error {
	v.mu.Lock()
	v.sinkElement = ""
	v.mu.Unlock()

	v.logger.Info("video stopped")
	return nil
}

// WriteRTP feeds one captured packet into the published track.
func (v *videoController) WriteRTP(packet *rtp.Packet) error {
	v.mu.Lock()
	track := v.track
	v.mu.Unlock()

	if track == nil {
		return errors.NewTrackNotFoundError("video")
	}
	if err := track.WriteRTP(packet); err != nil {
		return errors.NewMediaDeviceError("write video packet", err)
	}
	v.stats.addBytesSent(len(packet.Payload))
	return nil
}

// handleRemoteTrack records the inbound track and folds it into the roster.
// The peer connection's OnTrack feeds it.
func (v *videoController) handleRemoteTrack(remote *webrtc.TrackRemote) {
	if remote.Kind() != webrtc.RTPCodecTypeVideo {
		return
	}

	v.mu.Lock()
	v.remote = remote
	sink := v.sinkElement
	v.mu.Unlock()

	v.registry.UpdateParticipant(remote.StreamID(), func(p *domain.Participant) {
		p.HasVideo = true
		p.IsConnected = true
		p.VideoTracks = []domain.Track{{
			ID:      remote.ID(),
			Kind:    domain.TrackKindVideo,
			Enabled: true,
			Source:  "camera",
		}}
	})

	if sink != "" {
		v.logger.Infow("video playing", "element_id", sink, "track_id", remote.ID())
	}
}

func (v *videoController) Cleanup() error {
	if err := v.Disable(context.Background()); err != nil {
		return err
	}

	v.mu.Lock()
	v.sinkElement = ""
	v.remote = nil
	v.mu.Unlock()
	return nil
}
