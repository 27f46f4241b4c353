package relay

import (
	"context"
	"sync"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/pkg/errors"
	"streamlink/pkg/utils"

	"go.uber.org/zap"
)

// The relay mixes media server-side, so the media controllers only announce
// track intent with "media" envelopes; no packets flow from this client.

type audioController struct {
	adapter *socketAdapter

	mu        sync.Mutex
	cb        ports.AudioCallbacks
	track     domain.Track
	enabled   bool
	published bool

	logger *zap.SugaredLogger
}

func newAudioController(adapter *socketAdapter, log *zap.Logger) *audioController {
	return &audioController{
		adapter: adapter,
		logger:  log.Named("relay.audio").Sugar(),
	}
}

func (a *audioController) SetCallbacks(cb ports.AudioCallbacks) {
	a.mu.Lock()
	a.cb = cb
	a.mu.Unlock()
}

func (a *audioController) Enable(ctx context.Context, cfg domain.AudioConfig) (domain.Track, error) {
	a.mu.Lock()
	if a.enabled {
		track := a.track
		a.mu.Unlock()
		return track, nil
	}

	a.track = domain.Track{
		ID:      utils.GenerateTrackID("audio"),
		Kind:    domain.TrackKindAudio,
		Enabled: true,
		Volume:  cfg.Volume,
	}
	a.enabled = true
	track := a.track
	cb := a.cb
	a.mu.Unlock()

	a.logger.Infow("audio enabled", "track_id", track.ID)
	if cb.OnTrack != nil {
		cb.OnTrack(track)
	}
	return track, nil
}

func (a *audioController) Disable(ctx context.Context) error {
	if err := a.Unpublish(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.track = domain.Track{}
	a.enabled = false
	a.mu.Unlock()

	a.logger.Info("audio disabled")
	return nil
}

func (a *audioController) Publish(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.enabled {
		return errors.NewTrackNotFoundError("audio")
	}
	if a.published {
		return nil
	}

	if err := announceMedia(a.adapter, "audio", a.track.ID, true, ""); err != nil {
		return errors.NewMediaDeviceError("publish audio", err)
	}
	a.published = true

	a.logger.Infow("audio published", "track_id", a.track.ID)
	return nil
}

func (a *audioController) Unpublish(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.published {
		return nil
	}

	if err := announceMedia(a.adapter, "audio", a.track.ID, false, ""); err != nil {
		return errors.NewMediaDeviceError("unpublish audio", err)
	}
	a.published = false

	a.logger.Info("audio unpublished")
	return nil
}

func (a *audioController) Cleanup() error {
	a.mu.Lock()
	a.track = domain.Track{}
	a.enabled = false
	a.published = false
	a.mu.Unlock()
	return nil
}

type videoController struct {
	adapter *socketAdapter

	mu          sync.Mutex
	cb          ports.VideoCallbacks
	track       domain.Track
	enabled     bool
	published   bool
	sinkElement string

	logger *zap.SugaredLogger
}

func newVideoController(adapter *socketAdapter, log *zap.Logger) *videoController {
	return &videoController{
		adapter: adapter,
		logger:  log.Named("relay.video").Sugar(),
	}
}

func (v *videoController) SetCallbacks(cb ports.VideoCallbacks) {
	v.mu.Lock()
	v.cb = cb
	v.mu.Unlock()
}

func (v *videoController) Enable(ctx context.Context, cfg domain.VideoConfig) (domain.Track, error) {
	v.mu.Lock()
	if v.enabled {
		track := v.track
		v.mu.Unlock()
		return track, nil
	}

	source := cfg.Source
	if source == "" {
		source = "camera"
	}
	v.track = domain.Track{
		ID:      utils.GenerateTrackID("video"),
		Kind:    domain.TrackKindVideo,
		Enabled: true,
		Source:  source,
	}
	v.enabled = true
	track := v.track
	cb := v.cb
	v.mu.Unlock()

	v.logger.Infow("video enabled", "track_id", track.ID, "source", source)
	if cb.OnTrack != nil {
		cb.OnTrack(track)
	}
	return track, nil
}

func (v *videoController) Disable(ctx context.Context) error {
	if err := v.Unpublish(ctx); err != nil {
		return err
	}

	v.mu.Lock()
	v.track = domain.Track{}
	v.enabled = false
	v.mu.Unlock()

	v.logger.Info("video disabled")
	return nil
}

func (v *videoController) Publish(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.enabled {
		return errors.NewTrackNotFoundError("video")
	}
	if v.published {
		return nil
	}

	if err := announceMedia(v.adapter, "video", v.track.ID, true, v.track.Source); err != nil {
		return errors.NewMediaDeviceError("publish video", err)
	}
	v.published = true

	v.logger.Infow("video published", "track_id", v.track.ID)
	return nil
}

func (v *videoController) Unpublish(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.published {
		return nil
	}

	if err := announceMedia(v.adapter, "video", v.track.ID, false, ""); err != nil {
		return errors.NewMediaDeviceError("unpublish video", err)
	}
	v.published = false

	v.logger.Info("video unpublished")
	return nil
}

func (v *videoController) Play(elementID string) error {
	if elementID == "" {
		return errors.NewElementNotFoundError(elementID)
	}

	v.mu.Lock()
	v.sinkElement = elementID
	v.mu.Unlock()

	v.logger.Infow("video playing", "element_id", elementID)
	return nil
}

func (v *videoController) Stop() error {
	v.mu.Lock()
	v.sinkElement = ""
	v.mu.Unlock()

	v.logger.Info("video stopped")
	return nil
}

func (v *videoController) Cleanup() error {
	v.mu.Lock()
	v.track = domain.Track{}
	v.enabled = false
	v.published = false
	v.sinkElement = ""
	v.mu.Unlock()
	return nil
}

func announceMedia(adapter *socketAdapter, kind, trackID string, active bool, source string) error {
	env, err := newEnvelope(eventMedia, mediaPayload{
		Kind:    kind,
		TrackID: trackID,
		Active:  active,
		Source:  source,
	})
	if err != nil {
		return err
	}
	return adapter.writeEnvelope(env)
}
