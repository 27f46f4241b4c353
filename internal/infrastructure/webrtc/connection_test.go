package webrtc

import (
	"context"
	"testing"
	"time"

	"streamlink/internal/core/domain"
	"streamlink/pkg/config"
	provErrors "streamlink/pkg/errors"
	"streamlink/pkg/logger"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSignaler struct{}

func (noopSignaler) Negotiate(context.Context, string, webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{}, nil
}

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	cfg := Config{ConnectTimeout: 200 * time.Millisecond, StatsInterval: time.Second}
	backend := NewBackend(cfg, noopSignaler{}, logger.NewNop())
	t.Cleanup(func() {
		_ = backend.Controllers().Connection.Cleanup()
		_ = backend.Controllers().Stats.Cleanup()
	})
	return backend
}

func TestConnection_RejectsForeignCredentialType(t *testing.T) {
	backend := newTestBackend(t)

	err := backend.Controllers().Connection.Connect(context.Background(),
		&domain.RelayCredentials{URL: "wss://relay.example.com", Token: "token"})
	require.Error(t, err)
	assert.Equal(t, provErrors.ErrCodeInvalidCredentials, provErrors.GetProviderError(err).Code)
}

func TestConnection_RejectsEmptyToken(t *testing.T) {
	backend := newTestBackend(t)

	err := backend.Controllers().Connection.Connect(context.Background(),
		&domain.WebRTCCredentials{Room: "room-1", Token: ""})
	require.Error(t, err)
	assert.Equal(t, provErrors.ErrCodeInvalidCredentials, provErrors.GetProviderError(err).Code)
}

func TestConnection_DisconnectWithoutSessionIsNoop(t *testing.T) {
	backend := newTestBackend(t)

	assert.NoError(t, backend.Controllers().Connection.Disconnect(context.Background()))
}

func TestConnection_CleanupIsIdempotent(t *testing.T) {
	backend := newTestBackend(t)

	conn := backend.Controllers().Connection
	require.NoError(t, conn.Cleanup())
	require.NoError(t, conn.Cleanup())
}

func TestConfigFromApp_MapsICEServers(t *testing.T) {
	appCfg := config.DefaultConfig()
	appCfg.WebRTC.ICEServers = []config.ICEServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
		{URLs: []string{"turn:turn.example.com:3478"}, Username: "user", Credential: "pass"},
	}
	appCfg.WebRTC.ConnectTimeout = 7 * time.Second

	cfg := ConfigFromApp(appCfg)

	require.Len(t, cfg.ICEServers, 2)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers[0].URLs)
	assert.Equal(t, "user", cfg.ICEServers[1].Username)
	assert.Equal(t, "pass", cfg.ICEServers[1].Credential)
	assert.Equal(t, 7*time.Second, cfg.ConnectTimeout)
}
