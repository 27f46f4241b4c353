package webrtc

import (
	"context"
	"sync"

	"streamlink/internal/core/domain"
	"streamlink/pkg/errors"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// dataChannelAdapter carries raw protocol frames over the session's ordered
// data channel. SCTP preserves ordering within the channel, which is what the
// frame reassembly on the far side relies on.
type dataChannelAdapter struct {
	sess *session

	mu       sync.RWMutex
	listener func(data []byte)

	logger *zap.SugaredLogger
}

func newDataChannelAdapter(sess *session, log *zap.Logger) *dataChannelAdapter {
	return &dataChannelAdapter{
		sess:   sess,
		logger: log.Named("webrtc.adapter").Sugar(),
	}
}

func (a *dataChannelAdapter) SendData(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dc := a.sess.channel()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return errors.NewMessageSendFailedError("data channel not open", domain.ErrAdapterNotReady)
	}
	if err := dc.Send(data); err != nil {
		return errors.NewMessageSendFailedError("data channel send", err)
	}
	return nil
}

func (a *dataChannelAdapter) IsReady() bool {
	pc := a.sess.peer()
	dc := a.sess.channel()
	return pc != nil && pc.ConnectionState() == webrtc.PeerConnectionStateConnected &&
		dc != nil && dc.ReadyState() == webrtc.DataChannelStateOpen
}

func (a *dataChannelAdapter) SetupMessageListener(fn func(data []byte)) {
	a.mu.Lock()
	a.listener = fn
	a.mu.Unlock()
}

func (a *dataChannelAdapter) RemoveMessageListener() {
	a.mu.Lock()
	a.listener = nil
	a.mu.Unlock()
}

// dispatch forwards one inbound frame to the registered listener. Frames that
// arrive before a listener is installed are dropped, matching data channel
// semantics before the session is fully up.
func (a *dataChannelAdapter) dispatch(data []byte) {
	a.mu.RLock()
	fn := a.listener
	a.mu.RUnlock()

	if fn == nil {
		a.logger.Debugw("frame dropped, no listener", "bytes", len(data))
		return
	}
	fn(data)
}

func (a *dataChannelAdapter) Cleanup() error {
	a.RemoveMessageListener()
	return nil
}
