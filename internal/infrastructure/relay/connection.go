package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/internal/core/services"
	"streamlink/internal/infrastructure/auth"
	"streamlink/pkg/errors"
	"streamlink/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type connectionController struct {
	cfg      Config
	adapter  *socketAdapter
	registry *services.ParticipantRegistry
	stats    *statsController

	mu      sync.Mutex
	cb      ports.ConnectionCallbacks
	conn    *websocket.Conn
	done    chan struct{}
	cleaned bool

	logger *zap.SugaredLogger
}

func newConnectionController(cfg Config, adapter *socketAdapter, registry *services.ParticipantRegistry, stats *statsController, log *zap.Logger) *connectionController {
	return &connectionController{
		cfg:      cfg,
		adapter:  adapter,
		registry: registry,
		stats:    stats,
		logger:   log.Named("relay.connection").Sugar(),
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

// Connect dials the relay, performs the join handshake, and starts the read
// and ping pumps. The server must answer the join with a "joined" envelope
// carrying the current roster.
func (c *connectionController) Connect(ctx context.Context, creds domain.Credentials) error {
	rcreds, ok := creds.(*domain.RelayCredentials)
	if !ok {
		return errors.NewInvalidCredentialsError("relay backend requires relay credentials")
	}
	if err := auth.ValidateToken(rcreds.Token); err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+rcreds.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, rcreds.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return errors.NewInvalidCredentialsError("relay rejected the token")
		}
		return errors.NewConnectionFailedError("dial relay", err)
	}

	sessionID := rcreds.SessionID
	if sessionID == "" {
		sessionID = utils.GenerateSessionID()
	}

	joined, err := c.handshake(conn, sessionID)
	if err != nil {
		conn.Close()
		return err
	}

	for _, p := range joined.Participants {
		c.registry.AddParticipant(p.toDomain())
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.done = done
	c.mu.Unlock()
	c.adapter.setConn(conn)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	go c.readPump(conn)
	go c.pingLoop(conn, done)

	c.logger.Infow("connected", "session_id", joined.SessionID)
	if cb := c.callbacks(); cb.OnConnected != nil {
		cb.OnConnected()
	}
	return nil
}

func (c *connectionController) handshake(conn *websocket.Conn, sessionID string) (joinedPayload, error) {
	join, err := newEnvelope(eventJoin, joinPayload{SessionID: sessionID})
	if err != nil {
		return joinedPayload{}, errors.NewConnectionFailedError("encode join", err)
	}
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteJSON(join); err != nil {
		return joinedPayload{}, errors.NewConnectionFailedError("send join", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	var ack envelope
	if err := conn.ReadJSON(&ack); err != nil {
		return joinedPayload{}, errors.NewConnectionFailedError("await join ack", err)
	}
	if ack.Event != eventJoined {
		return joinedPayload{}, errors.NewConnectionFailedError("unexpected join ack event "+ack.Event, nil)
	}

	var joined joinedPayload
	if len(ack.Data) > 0 {
		if err := json.Unmarshal(ack.Data, &joined); err != nil {
			return joinedPayload{}, errors.NewConnectionFailedError("decode join ack", err)
		}
	}
	return joined, nil
}

func (c *connectionController) readPump(conn *websocket.Conn) {
	for {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))

		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.handleLost(conn, errors.NewConnectionFailedError("relay read", err))
			return
		}
		c.handleEvent(conn, env)
	}
}

func (c *connectionController) handleEvent(conn *websocket.Conn, env envelope) {
	switch env.Event {
	case eventData:
		c.adapter.dispatch([]byte(env.Data))

	case eventParticipantJoined:
		var p participantPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.logger.Warnw("bad participant-joined payload", "error", err)
			return
		}
		c.registry.AddParticipant(p.toDomain())

	case eventParticipantLeft:
		var p participantLeftPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.logger.Warnw("bad participant-left payload", "error", err)
			return
		}
		c.registry.RemoveParticipant(p.ID)

	case eventParticipantUpdated:
		var p participantPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.logger.Warnw("bad participant-updated payload", "error", err)
			return
		}
		update := p.toDomain()
		c.registry.UpdateParticipant(p.ID, func(existing *domain.Participant) {
			existing.HasAudio = update.HasAudio
			existing.HasVideo = update.HasVideo
			existing.IsSpeaking = update.IsSpeaking
			existing.AudioLevel = update.AudioLevel
			if update.Metadata != nil {
				existing.Metadata = update.Metadata
			}
		})

	case eventSpeaking:
		var p speakingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.logger.Warnw("bad speaking payload", "error", err)
			return
		}
		c.registry.SetSpeaking(p.ID, p.Speaking, p.Level)

	case eventStats:
		var p statsPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.logger.Warnw("bad stats payload", "error", err)
			return
		}
		c.stats.handleStats(p)

	case eventBye:
		c.handleLost(conn, errors.NewConnectionFailedError("relay closed the session", nil))

	default:
		c.logger.Debugw("unknown relay event", "event", env.Event)
	}
}

// handleLost tears down after an unexpected socket failure. An explicit
// Disconnect clears c.conn first, so a read error from a released socket is
// ignored.
func (c *connectionController) handleLost(conn *websocket.Conn, reason error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	done := c.done
	c.done = nil
	cb := c.cb
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	c.adapter.setConn(nil)
	conn.Close()

	c.logger.Warnw("connection lost", "reason", reason)
	if cb.OnDisconnected != nil {
		cb.OnDisconnected(reason)
	}
}

func (c *connectionController) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				// The read pump observes the same failure and tears down.
				c.logger.Debugw("ping failed", "error", err)
				return
			}
		}
	}
}

func (c *connectionController) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	done := c.done
	c.done = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	if done != nil {
		close(done)
	}

	// Best-effort farewell so the server drops the session immediately
	// instead of waiting out the ping timeout.
	if bye, err := newEnvelope(eventBye, nil); err == nil {
		_ = c.adapter.writeEnvelope(bye)
	}
	c.adapter.setConn(nil)

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	if err := conn.Close(); err != nil {
		c.logger.Warnw("socket close", "error", err)
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
