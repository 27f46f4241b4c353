package services

import (
	"context"
	"sync"
	"sync/atomic"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/pkg/logger"
)

// fakeAdapter is an in-memory BackendAdapter. Sent frames are recorded and
// can be looped back through the registered listener.
type fakeAdapter struct {
	mu       sync.Mutex
	ready    bool
	sent     [][]byte
	listener func(data []byte)
	sendErr  error
	cleaned  int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{ready: true}
}

func (a *fakeAdapter) SendData(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sendErr != nil {
		return a.sendErr
	}
	frame := append([]byte(nil), data...)
	a.sent = append(a.sent, frame)
	return nil
}

func (a *fakeAdapter) IsReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ready
}

func (a *fakeAdapter) SetupMessageListener(fn func(data []byte)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listener = fn
}

func (a *fakeAdapter) RemoveMessageListener() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listener = nil
}

func (a *fakeAdapter) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cleaned++
	return nil
}

func (a *fakeAdapter) sentFrames() [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([][]byte(nil), a.sent...)
}

// deliver feeds raw bytes into the registered listener, as the backend would.
func (a *fakeAdapter) deliver(data []byte) {
	a.mu.Lock()
	fn := a.listener
	a.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

// loopback replays everything sent so far into the listener.
func (a *fakeAdapter) loopback() {
	for _, frame := range a.sentFrames() {
		a.deliver(frame)
	}
}

// fakeConnection counts joins so tests can assert idempotent connect, and
// records the last join context for lifecycle assertions.
type fakeConnection struct {
	adapter    *fakeAdapter
	cb         ports.ConnectionCallbacks
	joinCalls  atomic.Int32
	connectErr error
	cleaned    atomic.Int32

	mu      sync.Mutex
	lastCtx context.Context
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{adapter: newFakeAdapter()}
}

func (c *fakeConnection) SetCallbacks(cb ports.ConnectionCallbacks) { c.cb = cb }

func (c *fakeConnection) Connect(ctx context.Context, creds domain.Credentials) error {
	c.joinCalls.Add(1)
	c.mu.Lock()
	c.lastCtx = ctx
	c.mu.Unlock()
	if c.connectErr != nil {
		return c.connectErr
	}
	return ctx.Err()
}

func (c *fakeConnection) joinContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCtx
}

func (c *fakeConnection) Disconnect(ctx context.Context) error { return nil }

func (c *fakeConnection) Adapter() ports.BackendAdapter { return c.adapter }

func (c *fakeConnection) Cleanup() error {
	c.cleaned.Add(1)
	return nil
}

type fakeAudio struct {
	enabled atomic.Bool
	cleaned atomic.Int32
}

func (a *fakeAudio) SetCallbacks(ports.AudioCallbacks) {}

func (a *fakeAudio) Enable(ctx context.Context, cfg domain.AudioConfig) (domain.Track, error) {
	a.enabled.Store(true)
	return domain.Track{ID: "audio_1", Kind: domain.TrackKindAudio, Enabled: true, Volume: cfg.Volume}, nil
}

func (a *fakeAudio) Disable(ctx context.Context) error   { a.enabled.Store(false); return nil }
func (a *fakeAudio) Publish(ctx context.Context) error   { return nil }
func (a *fakeAudio) Unpublish(ctx context.Context) error { return nil }
func (a *fakeAudio) Cleanup() error                      { a.cleaned.Add(1); return nil }

type fakeVideo struct {
	cleaned atomic.Int32
}

func (v *fakeVideo) SetCallbacks(ports.VideoCallbacks) {}

func (v *fakeVideo) Enable(ctx context.Context, cfg domain.VideoConfig) (domain.Track, error) {
	return domain.Track{ID: "video_1", Kind: domain.TrackKindVideo, Enabled: true, Source: cfg.Source}, nil
}

func (v *fakeVideo) Disable(ctx context.Context) error   { return nil }
func (v *fakeVideo) Publish(ctx context.Context) error   { return nil }
func (v *fakeVideo) Unpublish(ctx context.Context) error { return nil }
func (v *fakeVideo) Play(elementID string) error         { return nil }
func (v *fakeVideo) Stop() error                         { return nil }
func (v *fakeVideo) Cleanup() error                      { v.cleaned.Add(1); return nil }

type fakeStats struct {
	cb      ports.StatsCallbacks
	started atomic.Bool
	stopped atomic.Int32
}

func (s *fakeStats) SetCallbacks(cb ports.StatsCallbacks) { s.cb = cb }
func (s *fakeStats) Start(ctx context.Context) error      { s.started.Store(true); return nil }
func (s *fakeStats) Stop() error                          { s.stopped.Add(1); return nil }
func (s *fakeStats) Cleanup() error                       { return nil }

// newFakeBackend builds a controller family backed by in-memory fakes, with
// the shared participant registry as the roster controller.
func newFakeBackend() (ports.ControllerSet, *fakeConnection) {
	conn := newFakeConnection()
	return ports.ControllerSet{
		Connection:  conn,
		Audio:       &fakeAudio{},
		Video:       &fakeVideo{},
		Participant: NewParticipantRegistry(logger.NewNop()),
		Stats:       &fakeStats{},
	}, conn
}
