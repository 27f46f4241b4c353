package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/internal/infrastructure/monitoring"
	"streamlink/pkg/errors"
	"streamlink/pkg/pacer"

	"go.uber.org/zap"
)

// MessageHandler receives a decoded application message.
type MessageHandler func(msgType string, payload json.RawMessage)

// MessageConfig holds the messaging protocol knobs, supplied per provider
// instance.
type MessageConfig struct {
	MaxEncodedSize        int
	BytesPerSecond        int
	ReassemblyIdleTimeout time.Duration
}

// MessageService implements the chunked messaging protocol over a backend's
// raw data channel: encode, chunk, pace, transmit; and on receipt reassemble,
// decode, dispatch by type.
type MessageService struct {
	adapter     ports.BackendAdapter
	codec       *ChunkCodec
	pacer       *pacer.Pacer
	reassembler *Reassembler
	collector   *monitoring.Collector

	// sendMu serializes frames across logical messages so outbound frames
	// interleave only at frame boundaries.
	sendMu sync.Mutex

	mu         sync.RWMutex
	handlers   map[string][]MessageHandler
	errHandler func(err error)
	started    bool
	cleaned    bool

	logger *zap.SugaredLogger
}

// NewMessageService creates the message controller for one provider instance.
func NewMessageService(adapter ports.BackendAdapter, cfg MessageConfig, collector *monitoring.Collector, log *zap.Logger) *MessageService {
	s := &MessageService{
		adapter:     adapter,
		codec:       NewChunkCodec(cfg.MaxEncodedSize),
		pacer:       pacer.New(cfg.BytesPerSecond, cfg.MaxEncodedSize*2),
		reassembler: NewReassembler(cfg.ReassemblyIdleTimeout, log),
		collector:   collector,
		handlers:    make(map[string][]MessageHandler),
		logger:      log.Named("message").Sugar(),
	}
	s.reassembler.OnEvict(func(mid string) {
		s.collector.RecordReassemblyError()
		s.dispatchError(fmt.Errorf("mid %s: %w", mid, domain.ErrReassemblyTimeout))
	})
	return s
}

// Start registers the raw-bytes listener with the adapter.
func (s *MessageService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.cleaned {
		return
	}
	s.adapter.SetupMessageListener(s.handleRaw)
	s.started = true
}

// On registers a handler for a message type ("chat", "command",
// "commandResponse", "chatResponse"). The empty type matches all messages.
func (s *MessageService) On(msgType string, handler MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[msgType] = append(s.handlers[msgType], handler)
}

// OnError registers the receive-path error handler (decode failures,
// ordering violations).
func (s *MessageService) OnError(handler func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errHandler = handler
}

// Send encodes a message, chunks it, and transmits the frames through the
// pacer. Context cancellation abandons the remaining frames.
func (s *MessageService) Send(ctx context.Context, msgType string, payload interface{}) error {
	if !s.adapter.IsReady() {
		return errors.NewMessageSendFailedError("transport not ready", domain.ErrAdapterNotReady)
	}

	frames, err := s.codec.Encode(msgType, payload)
	if err != nil {
		return err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	for _, frame := range frames {
		raw, err := json.Marshal(frame)
		if err != nil {
			return errors.NewMessageSendFailedError("frame not serializable", err)
		}

		if err := s.pacer.Wait(ctx, len(raw)); err != nil {
			s.logger.Debugw("send abandoned mid-message",
				"mid", frame.MID, "idx", frame.Idx, "error", err)
			return errors.NewMessageSendFailedError("send cancelled", err).
				WithContext("mid", frame.MID).
				WithContext("idx", frame.Idx)
		}

		if err := s.adapter.SendData(ctx, raw); err != nil {
			return errors.NewMessageSendFailedError("backend send failed", err).
				WithContext("mid", frame.MID).
				WithContext("idx", frame.Idx)
		}

		s.collector.RecordFrameSent(len(raw))
	}

	s.collector.RecordMessageSent()
	return nil
}

// SendChat sends a chat message with free-text payload.
func (s *MessageService) SendChat(ctx context.Context, text string) error {
	return s.Send(ctx, domain.MessageTypeChat, text)
}

// SendCommand sends a command message with {cmd, data} payload.
func (s *MessageService) SendCommand(ctx context.Context, cmd string, data interface{}) error {
	return s.Send(ctx, domain.MessageTypeCommand, domain.CommandPayload{Cmd: cmd, Data: data})
}

// handleRaw is the adapter's raw-bytes listener: parse the frame, feed the
// reassembler, and dispatch completed messages.
func (s *MessageService) handleRaw(data []byte) {
	s.collector.RecordFrameReceived()

	var frame domain.StreamMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		s.logger.Warnw("dropping unparseable frame", "error", err, "bytes", len(data))
		s.dispatchError(err)
		return
	}

	message, complete, err := s.reassembler.Push(frame)
	s.collector.SetPendingBuffers(s.reassembler.Pending())
	if err != nil {
		s.collector.RecordReassemblyError()
		s.logger.Warnw("reassembly failed", "mid", frame.MID, "error", err)
		s.dispatchError(err)
		return
	}
	if !complete {
		return
	}

	envelope, err := s.codec.Decode(message)
	if err != nil {
		s.collector.RecordReassemblyError()
		s.logger.Warnw("decoding reassembled message failed", "mid", frame.MID, "error", err)
		s.dispatchError(err)
		return
	}

	s.collector.RecordMessageReceived()
	s.dispatch(envelope)
}

// dispatch fans a decoded message out to registered handlers. Handler panics
// are recovered so one handler cannot break the receive loop.
func (s *MessageService) dispatch(envelope domain.MessageEnvelope) {
	s.mu.RLock()
	handlers := append([]MessageHandler(nil), s.handlers[envelope.Type]...)
	handlers = append(handlers, s.handlers[""]...)
	s.mu.RUnlock()

	if len(handlers) == 0 {
		s.logger.Debugw("no handler for message type", "type", envelope.Type)
		return
	}

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Errorw("message handler panicked", "type", envelope.Type, "panic", r)
				}
			}()
			handler(envelope.Type, envelope.Pld)
		}()
	}
}

func (s *MessageService) dispatchError(err error) {
	s.mu.RLock()
	handler := s.errHandler
	s.mu.RUnlock()

	if handler == nil {
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Errorw("error handler panicked", "panic", r)
			}
		}()
		handler(err)
	}()
}

// Cleanup unregisters the listener and drops in-flight buffers. Idempotent.
func (s *MessageService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleaned {
		return nil
	}
	s.cleaned = true
	s.started = false

	s.adapter.RemoveMessageListener()
	s.reassembler.Reset()
	s.handlers = make(map[string][]MessageHandler)
	return nil
}
