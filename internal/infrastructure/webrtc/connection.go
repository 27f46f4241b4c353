package webrtc

import (
	"context"
	"sync"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/internal/infrastructure/auth"
	"streamlink/pkg/errors"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// Signaler exchanges the SDP offer/answer with the remote side. The backend
// does not care how: HTTP, WebSocket, or a test double all work.
type Signaler interface {
	Negotiate(ctx context.Context, room string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error)
}

type connectionController struct {
	cfg      Config
	signaler Signaler
	sess     *session
	adapter  *dataChannelAdapter
	video    *videoController

	mu      sync.Mutex
	cb      ports.ConnectionCallbacks
	cleaned bool

	logger *zap.SugaredLogger
}

func newConnectionController(cfg Config, signaler Signaler, sess *session, adapter *dataChannelAdapter, video *videoController, log *zap.Logger) *connectionController {
	return &connectionController{
		cfg:      cfg,
		signaler: signaler,
		sess:     sess,
		adapter:  adapter,
		video:    video,
		logger:   log.Named("webrtc.connection").Sugar(),
	}
}

func (c *connectionController) SetCallbacks(cb ports.ConnectionCallbacks) {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
}

func (c *connectionController) callbacks() ports.ConnectionCallbacks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cb
}

// Connect negotiates a peer connection with an ordered data channel and waits
// until the ICE/DTLS handshake lands or ctx expires.
func (c *connectionController) Connect(ctx context.Context, creds domain.Credentials) error {
	wcreds, ok := creds.(*domain.WebRTCCredentials)
	if !ok {
		return errors.NewInvalidCredentialsError("webrtc backend requires WebRTC credentials")
	}
	if err := auth.ValidateToken(wcreds.Token); err != nil {
		return err
	}

	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: c.cfg.ICEServers})
	if err != nil {
		return errors.NewConnectionFailedError("create peer connection", err)
	}

	ordered := true
	dc, err := pc.CreateDataChannel("stream-messages", &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		return errors.NewConnectionFailedError("create data channel", err)
	}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.adapter.dispatch(msg.Data)
	})

	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Infow("remote track", "kind", remote.Kind().String(), "track_id", remote.ID())
		c.video.handleRemoteTrack(remote)
	})

	connected := make(chan struct{})
	var once sync.Once
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.logger.Infow("peer connection state", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateConnected:
			once.Do(func() { close(connected) })
		case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed:
			c.handleLost(pc, state)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return errors.NewConnectionFailedError("create offer", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return errors.NewConnectionFailedError("set local description", err)
	}

	// Non-trickle: wait for gathering so the offer carries every candidate.
	select {
	case <-webrtc.GatheringCompletePromise(pc):
	case <-ctx.Done():
		pc.Close()
		return errors.NewConnectionFailedError("ICE gathering interrupted", ctx.Err())
	}

	answer, err := c.signaler.Negotiate(ctx, wcreds.Room, *pc.LocalDescription())
	if err != nil {
		pc.Close()
		return errors.NewConnectionFailedError("signaling failed", err)
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		pc.Close()
		return errors.NewConnectionFailedError("set remote description", err)
	}

	select {
	case <-connected:
	case <-ctx.Done():
		pc.Close()
		return errors.NewConnectionFailedError("connection handshake timed out", ctx.Err())
	}

	c.sess.set(pc, dc)
	c.logger.Infow("connected", "room", wcreds.Room)
	if cb := c.callbacks(); cb.OnConnected != nil {
		cb.OnConnected()
	}
	return nil
}

// handleLost fires the disconnect callback for a transport-level loss. An
// explicit Disconnect clears the session first, so a late state event for an
// already-released peer connection is ignored.
func (c *connectionController) handleLost(pc *webrtc.PeerConnection, state webrtc.PeerConnectionState) {
	if c.sess.peer() != pc {
		return
	}
	taken := c.sess.take()
	if taken != nil {
		taken.Close()
	}
	if cb := c.callbacks(); cb.OnDisconnected != nil {
		cb.OnDisconnected(errors.NewConnectionFailedError("peer connection "+state.String(), nil))
	}
}

func (c *connectionController) Disconnect(ctx context.Context) error {
	pc := c.sess.take()
	if pc == nil {
		return nil
	}
	if err := pc.Close(); err != nil {
		c.logger.Warnw("peer connection close", "error", err)
	}
	c.logger.Info("disconnected")
	return nil
}

func (c *connectionController) Adapter() ports.BackendAdapter {
	return c.adapter
}

func (c *connectionController) Cleanup() error {
	c.mu.Lock()
	if c.cleaned {
		c.mu.Unlock()
		return nil
	}
	c.cleaned = true
	c.cb = ports.ConnectionCallbacks{}
	c.mu.Unlock()

	return c.Disconnect(context.Background())
}
