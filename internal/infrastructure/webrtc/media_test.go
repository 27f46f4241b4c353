package webrtc

import (
	"context"
	"testing"
	"time"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/internal/core/services"
	provErrors "streamlink/pkg/errors"
	"streamlink/pkg/logger"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *services.ParticipantRegistry {
	return services.NewParticipantRegistry(logger.NewNop())
}

func newTestAudio(t *testing.T) (*audioController, *statsController) {
	t.Helper()
	stats := newStatsController(time.Second, logger.NewNop())
	return newAudioController(&session{}, stats, logger.NewNop()), stats
}

func TestAudio_EnableIsIdempotent(t *testing.T) {
	audio, _ := newTestAudio(t)

	var events []domain.Track
	audio.SetCallbacks(ports.AudioCallbacks{
		OnTrack: func(track domain.Track) { events = append(events, track) },
	})

	first, err := audio.Enable(context.Background(), domain.AudioConfig{Volume: 0.8})
	require.NoError(t, err)
	second, err := audio.Enable(context.Background(), domain.AudioConfig{Volume: 0.1})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.TrackKindAudio, first.Kind)
	assert.Equal(t, 0.8, second.Volume)
	assert.Len(t, events, 1, "OnTrack fires only for the first enable")
}

func TestAudio_PublishWithoutTrackFails(t *testing.T) {
	audio, _ := newTestAudio(t)

	err := audio.Publish(context.Background())
	require.Error(t, err)
	assert.Equal(t, provErrors.ErrCodeTrackNotFound, provErrors.GetProviderError(err).Code)
}

func TestAudio_PublishWithoutPeerConnectionFails(t *testing.T) {
	audio, _ := newTestAudio(t)

	_, err := audio.Enable(context.Background(), domain.AudioConfig{})
	require.NoError(t, err)

	err = audio.Publish(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestAudio_WriteRTPCountsBytes(t *testing.T) {
	audio, stats := newTestAudio(t)

	packet := &rtp.Packet{Payload: make([]byte, 120)}
	err := audio.WriteRTP(packet)
	require.Error(t, err, "writing before enable must fail")

	_, err = audio.Enable(context.Background(), domain.AudioConfig{})
	require.NoError(t, err)
	require.NoError(t, audio.WriteRTP(packet))

	assert.Equal(t, int64(120), stats.bytesSent.Load())
}

func TestVideo_PlayRequiresElement(t *testing.T) {
	stats := newStatsController(time.Second, logger.NewNop())
	video := newVideoController(&session{}, stats, newTestRegistry(), logger.NewNop())

	err := video.Play("")
	require.Error(t, err)
	assert.Equal(t, provErrors.ErrCodeElementNotFound, provErrors.GetProviderError(err).Code)

	require.NoError(t, video.Play("stage-main"))
	require.NoError(t, video.Stop())
}

func TestVideo_EnableDefaultsSourceToCamera(t *testing.T) {
	stats := newStatsController(time.Second, logger.NewNop())
	video := newVideoController(&session{}, stats, newTestRegistry(), logger.NewNop())

	track, err := video.Enable(context.Background(), domain.VideoConfig{})
	require.NoError(t, err)
	assert.Equal(t, "camera", track.Source)
	assert.Equal(t, domain.TrackKindVideo, track.Kind)

	require.NoError(t, video.Disable(context.Background()))
	track, err = video.Enable(context.Background(), domain.VideoConfig{Source: "screen"})
	require.NoError(t, err)
	assert.Equal(t, "screen", track.Source)
}

func TestVideo_CleanupReleasesEverything(t *testing.T) {
	stats := newStatsController(time.Second, logger.NewNop())
	video := newVideoController(&session{}, stats, newTestRegistry(), logger.NewNop())

	_, err := video.Enable(context.Background(), domain.VideoConfig{})
	require.NoError(t, err)
	require.NoError(t, video.Play("stage-main"))

	require.NoError(t, video.Cleanup())

	err = video.WriteRTP(&rtp.Packet{})
	require.Error(t, err, "track must be gone after cleanup")
}
