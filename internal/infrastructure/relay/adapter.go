package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"streamlink/internal/core/domain"
	"streamlink/pkg/errors"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// socketAdapter carries raw protocol frames inside "data" envelopes on the
// relay socket. gorilla allows one concurrent writer, so every outbound
// message funnels through writeMu; control frames use WriteControl, which is
// safe alongside it.
type socketAdapter struct {
	writeTimeout time.Duration

	writeMu sync.Mutex
	conn    *websocket.Conn

	listenerMu sync.RWMutex
	listener   func(data []byte)

	logger *zap.SugaredLogger
}

func newSocketAdapter(writeTimeout time.Duration, log *zap.Logger) *socketAdapter {
	return &socketAdapter{
		writeTimeout: writeTimeout,
		logger:       log.Named("relay.adapter").Sugar(),
	}
}

func (a *socketAdapter) setConn(conn *websocket.Conn) {
	a.writeMu.Lock()
	a.conn = conn
	a.writeMu.Unlock()
}

// writeEnvelope serializes one envelope onto the socket with the write
// deadline applied. Shared by the adapter and the connection controller.
func (a *socketAdapter) writeEnvelope(env envelope) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if a.conn == nil {
		return domain.ErrAdapterNotReady
	}
	if err := a.conn.SetWriteDeadline(time.Now().Add(a.writeTimeout)); err != nil {
		return err
	}
	return a.conn.WriteJSON(env)
}

func (a *socketAdapter) SendData(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := envelope{Event: eventData, Data: json.RawMessage(data)}
	if err := a.writeEnvelope(env); err != nil {
		return errors.NewMessageSendFailedError("relay send", err)
	}
	return nil
}

func (a *socketAdapter) IsReady() bool {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.conn != nil
}

func (a *socketAdapter) SetupMessageListener(fn func(data []byte)) {
	a.listenerMu.Lock()
	a.listener = fn
	a.listenerMu.Unlock()
}

func (a *socketAdapter) RemoveMessageListener() {
	a.listenerMu.Lock()
	a.listener = nil
	a.listenerMu.Unlock()
}

// dispatch forwards one inbound frame to the registered listener.
func (a *socketAdapter) dispatch(data []byte) {
	a.listenerMu.RLock()
	fn := a.listener
	a.listenerMu.RUnlock()

	if fn == nil {
		a.logger.Debugw("frame dropped, no listener", "bytes", len(data))
		return
	}
	fn(data)
}

func (a *socketAdapter) Cleanup() error {
	a.RemoveMessageListener()
	a.setConn(nil)
	return nil
}
