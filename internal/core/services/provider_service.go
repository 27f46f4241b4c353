package services

import (
	"context"
	"encoding/json"
	"sync"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/internal/infrastructure/monitoring"
	"streamlink/pkg/config"
	"streamlink/pkg/errors"
	"streamlink/pkg/retry"
	"streamlink/pkg/utils"

	"go.uber.org/zap"
)

// ProviderService is the single object the application talks to. It owns one
// backend's controller family plus the message controller, exposes the
// backend-agnostic method set, and folds backend events into StreamingState
// snapshots.
type ProviderService struct {
	backend   ports.ControllerSet
	store     *StateStore
	msg       *MessageService
	resources *ResourceManager
	retryCfg  retry.Config
	collector *monitoring.Collector
	logger    *zap.SugaredLogger

	mu         sync.Mutex
	connState  domain.ConnectionState
	joinCancel context.CancelFunc
	lastCreds  domain.Credentials
	localID    string
	cleaned    bool
}

// NewProviderService builds a provider around one backend's controller
// family. The collector may be nil.
func NewProviderService(backend ports.ControllerSet, cfg *config.Config, collector *monitoring.Collector, log *zap.Logger) *ProviderService {
	s := &ProviderService{
		backend:   backend,
		store:     NewStateStore(log),
		resources: NewResourceManager(log),
		collector: collector,
		logger:    log.Named("provider").Sugar(),
		connState: domain.StateDisconnected,
		retryCfg: retry.Config{
			Enabled:      true,
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
		},
	}

	s.msg = NewMessageService(backend.Connection.Adapter(), MessageConfig{
		MaxEncodedSize:        cfg.Messaging.MaxEncodedSize,
		BytesPerSecond:        cfg.Messaging.BytesPerSecond,
		ReassemblyIdleTimeout: cfg.Messaging.ReassemblyIdleTimeout,
	}, collector, log)

	// Teardown order: stats first, then the session, then controllers in
	// reverse activation order, subscribers last.
	s.resources.Register("stop stats collection", backend.Stats.Stop)
	s.resources.Register("disconnect session", func() error {
		return s.Disconnect(context.Background())
	})
	s.resources.Register("audio controller", backend.Audio.Cleanup)
	s.resources.Register("video controller", backend.Video.Cleanup)
	s.resources.Register("message controller", s.msg.Cleanup)
	s.resources.Register("participant controller", backend.Participant.Cleanup)
	s.resources.Register("connection controller", backend.Connection.Cleanup)
	s.resources.Register("clear state subscribers", func() error {
		s.store.Clear()
		return nil
	})

	s.wireCallbacks()
	return s
}

func (s *ProviderService) wireCallbacks() {
	s.backend.Connection.SetCallbacks(ports.ConnectionCallbacks{
		OnDisconnected: s.handleUnexpectedDisconnect,
		OnError: func(err error) {
			s.store.Update(func(state *domain.StreamingState) {
				state.Err = err
			})
		},
	})

	roster := func() { s.syncRoster() }
	s.backend.Participant.SetCallbacks(ports.ParticipantCallbacks{
		OnJoined:  func(domain.Participant) { roster() },
		OnUpdated: func(domain.Participant) { roster() },
		OnLeft:    func(string) { roster() },
		OnSpeaking: func(string, bool, float64) {
			roster()
		},
	})

	s.backend.Stats.SetCallbacks(ports.StatsCallbacks{
		OnStats: func(quality domain.ConnectionQuality, stats domain.NetworkStats) {
			s.store.Update(func(state *domain.StreamingState) {
				q := quality
				state.NetworkQuality = &q
			})
		},
	})

	mediaErr := func(err error) {
		s.store.Update(func(state *domain.StreamingState) {
			state.Err = err
		})
	}
	s.backend.Audio.SetCallbacks(ports.AudioCallbacks{OnError: mediaErr})
	s.backend.Video.SetCallbacks(ports.VideoCallbacks{OnError: mediaErr})
}

// Connect joins the backend session with bounded exponential backoff on
// transient failures. Calling it while connecting or connected is a no-op; a
// failed connect leaves the state disconnected with Err populated.
func (s *ProviderService) Connect(ctx context.Context, creds domain.Credentials) error {
	if creds == nil {
		return errors.NewInvalidCredentialsError("credentials are nil")
	}
	if err := creds.Validate(); err != nil {
		return errors.NewInvalidCredentialsError(err.Error())
	}

	s.mu.Lock()
	if s.cleaned {
		s.mu.Unlock()
		return domain.ErrCleanedUp
	}
	if s.connState == domain.StateConnecting || s.connState == domain.StateConnected {
		s.mu.Unlock()
		return nil
	}
	joinCtx, cancel := context.WithCancel(ctx)
	// Release joinCtx's registration with the parent once the join settles;
	// Disconnect may have fired cancel already, which is harmless.
	defer cancel()
	s.joinCancel = cancel
	s.lastCreds = creds
	s.setStateLocked(domain.StateConnecting)
	s.mu.Unlock()

	s.store.Update(func(state *domain.StreamingState) {
		state.IsConnecting = true
		state.Err = nil
	})

	err := retry.Retry(joinCtx, s.retryCfg, func() error {
		return s.backend.Connection.Connect(joinCtx, creds)
	})

	s.mu.Lock()
	if s.connState != domain.StateConnecting {
		// Disconnect raced the join; it already owns the state.
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.setStateLocked(domain.StateDisconnected)
		s.joinCancel = nil
		s.mu.Unlock()

		provErr := errors.GetProviderError(err)
		if provErr == nil {
			provErr = errors.NewConnectionFailedError("backend join failed", err)
		}
		s.store.Update(func(state *domain.StreamingState) {
			state.IsConnecting = false
			state.Err = provErr
		})
		return provErr
	}

	s.setStateLocked(domain.StateConnected)
	s.joinCancel = nil
	s.localID = utils.GenerateParticipantID()
	localID := s.localID
	s.mu.Unlock()

	s.backend.Participant.AddParticipant(domain.Participant{
		ID:          localID,
		IsLocal:     true,
		IsConnected: true,
	})

	s.msg.Start()
	if err := s.backend.Stats.Start(context.Background()); err != nil {
		s.logger.Warnw("stats collection failed to start", "error", err)
	}

	s.store.Update(func(state *domain.StreamingState) {
		state.IsJoined = true
		state.IsConnecting = false
		state.Err = nil
	})

	s.logger.Infow("connected", "backend", creds.Backend(), "local_id", localID)
	return nil
}

// Disconnect leaves the session. It is terminal for any in-flight connect or
// reconnect attempt and a no-op when already disconnected.
func (s *ProviderService) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.connState == domain.StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	if s.joinCancel != nil {
		s.joinCancel()
		s.joinCancel = nil
	}
	s.setStateLocked(domain.StateDisconnected)
	s.localID = ""
	s.mu.Unlock()

	if err := s.backend.Stats.Stop(); err != nil {
		s.logger.Warnw("stats stop failed", "error", err)
	}
	if err := s.backend.Connection.Disconnect(ctx); err != nil {
		s.logger.Warnw("backend disconnect failed", "error", err)
	}

	s.store.Update(func(state *domain.StreamingState) {
		state.IsJoined = false
		state.IsConnecting = false
		state.IsSpeaking = false
		state.Participants = nil
		state.LocalParticipant = nil
	})

	s.logger.Info("disconnected")
	return nil
}

// handleUnexpectedDisconnect reacts to a backend-reported drop while joined:
// transition to reconnecting and re-run the join with the retry policy.
func (s *ProviderService) handleUnexpectedDisconnect(reason error) {
	s.mu.Lock()
	if s.connState != domain.StateConnected {
		s.mu.Unlock()
		return
	}
	reconnectCtx, cancel := context.WithCancel(context.Background())
	s.joinCancel = cancel
	s.setStateLocked(domain.StateReconnecting)
	creds := s.lastCreds
	s.mu.Unlock()

	s.logger.Warnw("connection lost, reconnecting", "reason", reason)
	s.store.Update(func(state *domain.StreamingState) {
		state.IsConnecting = true
		state.Err = reason
	})

	go func() {
		defer cancel()
		err := retry.Retry(reconnectCtx, s.retryCfg, func() error {
			return s.backend.Connection.Connect(reconnectCtx, creds)
		})

		s.mu.Lock()
		if s.connState != domain.StateReconnecting {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.setStateLocked(domain.StateDisconnected)
			s.joinCancel = nil
			s.mu.Unlock()

			s.store.Update(func(state *domain.StreamingState) {
				state.IsJoined = false
				state.IsConnecting = false
				state.Err = errors.NewConnectionFailedError("reconnect failed", err)
			})
			return
		}
		s.setStateLocked(domain.StateConnected)
		s.joinCancel = nil
		s.mu.Unlock()

		s.store.Update(func(state *domain.StreamingState) {
			state.IsJoined = true
			state.IsConnecting = false
			state.Err = nil
		})
		s.logger.Info("reconnected")
	}()
}

// setStateLocked transitions the connection state machine. Caller holds mu.
func (s *ProviderService) setStateLocked(next domain.ConnectionState) {
	if s.connState == next {
		return
	}
	s.logger.Debugw("state transition", "from", s.connState, "to", next)
	s.connState = next
	s.collector.RecordStateTransition(string(next))
}

// syncRoster folds the participant registry into a new snapshot.
func (s *ProviderService) syncRoster() {
	participants := s.backend.Participant.Participants()
	s.collector.SetParticipantCount(len(participants))

	s.store.Update(func(state *domain.StreamingState) {
		state.Participants = participants
		state.LocalParticipant = nil
		state.IsSpeaking = false
		for i := range participants {
			p := participants[i]
			if p.IsLocal {
				local := p.Clone()
				state.LocalParticipant = &local
				continue
			}
			if p.IsSpeaking {
				state.IsSpeaking = true
			}
		}
	})
}

// EnableAudio enables local audio capture.
func (s *ProviderService) EnableAudio(ctx context.Context, cfg domain.AudioConfig) error {
	track, err := s.backend.Audio.Enable(ctx, cfg)
	if err != nil {
		return err
	}
	s.updateLocal(func(p *domain.Participant) {
		p.HasAudio = true
		p.AudioTracks = []domain.Track{track}
	})
	return nil
}

// DisableAudio disables local audio capture.
func (s *ProviderService) DisableAudio(ctx context.Context) error {
	if err := s.backend.Audio.Disable(ctx); err != nil {
		return err
	}
	s.updateLocal(func(p *domain.Participant) {
		p.HasAudio = false
		p.AudioTracks = nil
	})
	return nil
}

// PublishAudio publishes the enabled audio track to the session.
func (s *ProviderService) PublishAudio(ctx context.Context) error {
	return s.backend.Audio.Publish(ctx)
}

// UnpublishAudio withdraws the audio track from the session.
func (s *ProviderService) UnpublishAudio(ctx context.Context) error {
	return s.backend.Audio.Unpublish(ctx)
}

// EnableVideo enables local video capture.
func (s *ProviderService) EnableVideo(ctx context.Context, cfg domain.VideoConfig) error {
	track, err := s.backend.Video.Enable(ctx, cfg)
	if err != nil {
		return err
	}
	s.updateLocal(func(p *domain.Participant) {
		p.HasVideo = true
		p.HasScreenShare = track.Source == "screen"
		p.VideoTracks = []domain.Track{track}
	})
	return nil
}

// DisableVideo disables local video capture.
func (s *ProviderService) DisableVideo(ctx context.Context) error {
	if err := s.backend.Video.Disable(ctx); err != nil {
		return err
	}
	s.updateLocal(func(p *domain.Participant) {
		p.HasVideo = false
		p.HasScreenShare = false
		p.VideoTracks = nil
	})
	return nil
}

// PublishVideo publishes the enabled video track to the session.
func (s *ProviderService) PublishVideo(ctx context.Context) error {
	return s.backend.Video.Publish(ctx)
}

// UnpublishVideo withdraws the video track from the session.
func (s *ProviderService) UnpublishVideo(ctx context.Context) error {
	return s.backend.Video.Unpublish(ctx)
}

// PlayVideo attaches remote video to the given presentation element. The
// element id is an opaque handle.
func (s *ProviderService) PlayVideo(elementID string) error {
	return s.backend.Video.Play(elementID)
}

// StopVideo detaches remote video from its presentation element.
func (s *ProviderService) StopVideo() error {
	return s.backend.Video.Stop()
}

func (s *ProviderService) updateLocal(update func(p *domain.Participant)) {
	s.mu.Lock()
	localID := s.localID
	s.mu.Unlock()
	if localID == "" {
		return
	}
	s.backend.Participant.UpdateParticipant(localID, update)
}

// SendMessage sends a chat message over the chunked data channel.
func (s *ProviderService) SendMessage(ctx context.Context, text string) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.msg.SendChat(ctx, text)
}

// SendInterrupt asks the remote peer to stop its current response.
func (s *ProviderService) SendInterrupt(ctx context.Context) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.msg.SendCommand(ctx, "interrupt", nil)
}

// SetAvatarParameters pushes avatar metadata to the remote peer.
func (s *ProviderService) SetAvatarParameters(ctx context.Context, metadata map[string]interface{}) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.msg.SendCommand(ctx, "set_params", metadata)
}

func (s *ProviderService) requireConnected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connState != domain.StateConnected {
		return errors.NewMessageSendFailedError("not connected", domain.ErrNotConnected)
	}
	return nil
}

// OnMessage registers a handler for inbound application messages of the
// given type.
func (s *ProviderService) OnMessage(msgType string, handler func(msgType string, payload json.RawMessage)) {
	s.msg.On(msgType, MessageHandler(handler))
}

// Subscribe registers a state subscriber; the returned function
// unsubscribes.
func (s *ProviderService) Subscribe(fn func(state domain.StreamingState)) func() {
	return s.store.Subscribe(fn)
}

// State returns the current snapshot.
func (s *ProviderService) State() domain.StreamingState {
	return s.store.Snapshot()
}

// ConnectionState returns the facade connection state.
func (s *ProviderService) ConnectionState() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// Cleanup tears the provider down in dependency order. Idempotent.
func (s *ProviderService) Cleanup() {
	s.mu.Lock()
	if s.cleaned {
		s.mu.Unlock()
		return
	}
	s.cleaned = true
	s.mu.Unlock()

	s.resources.Cleanup()
	s.logger.Info("provider cleaned up")
}
