package ports

import (
	"context"

	"streamlink/internal/core/domain"
)

// ConnectionCallbacks delivers connection lifecycle events to the facade.
// Events arrive on the backend's receive loop; the facade is the only
// consumer, so their ordering is the loop's ordering.
type ConnectionCallbacks struct {
	OnConnected    func()
	OnDisconnected func(reason error)
	OnError        func(err error)
}

// ConnectionController drives one backend's session lifecycle.
type ConnectionController interface {
	SetCallbacks(cb ConnectionCallbacks)

	// Connect joins the backend session. The controller asserts its concrete
	// credential type and fails with an invalid-credentials error otherwise.
	Connect(ctx context.Context, creds domain.Credentials) error

	Disconnect(ctx context.Context) error

	// Adapter returns the data-channel adapter for this connection.
	Adapter() BackendAdapter

	// Cleanup is idempotent and safe on an already-cleaned-up controller.
	Cleanup() error
}

// AudioCallbacks delivers audio track events.
type AudioCallbacks struct {
	OnTrack func(track domain.Track)
	OnError func(err error)
}

// AudioController owns the local audio track. State machine:
// disabled -> enabled -> published -> unpublished/disabled. Enabling twice
// without disabling returns the existing track.
type AudioController interface {
	SetCallbacks(cb AudioCallbacks)
	Enable(ctx context.Context, cfg domain.AudioConfig) (domain.Track, error)
	Disable(ctx context.Context) error
	Publish(ctx context.Context) error
	Unpublish(ctx context.Context) error
	Cleanup() error
}

// VideoCallbacks delivers video track events.
type VideoCallbacks struct {
	OnTrack func(track domain.Track)
	OnError func(err error)
}

// VideoController owns the local video track plus the presentation sink. The
// element id is an opaque handle; it is attached and detached, never
// inspected.
type VideoController interface {
	SetCallbacks(cb VideoCallbacks)
	Enable(ctx context.Context, cfg domain.VideoConfig) (domain.Track, error)
	Disable(ctx context.Context) error
	Publish(ctx context.Context) error
	Unpublish(ctx context.Context) error
	Play(elementID string) error
	Stop() error
	Cleanup() error
}

// ParticipantCallbacks delivers roster events.
type ParticipantCallbacks struct {
	OnJoined   func(p domain.Participant)
	OnLeft     func(id string)
	OnUpdated  func(p domain.Participant)
	OnSpeaking func(id string, speaking bool, level float64)
}

// ParticipantController owns the id-to-participant mapping. Add is
// idempotent (a duplicate join updates); Update on an unknown id auto-creates
// to tolerate update-before-join races from async backend event ordering.
type ParticipantController interface {
	SetCallbacks(cb ParticipantCallbacks)
	AddParticipant(p domain.Participant)
	UpdateParticipant(id string, update func(p *domain.Participant))
	RemoveParticipant(id string)
	SetSpeaking(id string, speaking bool, level float64)
	Participants() []domain.Participant
	Get(id string) (domain.Participant, bool)
	Cleanup() error
}

// StatsCallbacks delivers normalized statistics.
type StatsCallbacks struct {
	OnStats func(quality domain.ConnectionQuality, stats domain.NetworkStats)
}

// StatsController normalizes backend-specific statistics events into the
// uniform quality shape. Missing fields default to zero rather than erroring.
type StatsController interface {
	SetCallbacks(cb StatsCallbacks)
	Start(ctx context.Context) error
	Stop() error
	Cleanup() error
}

// ControllerSet is one backend's controller family. The facade depends only
// on this set, never on a concrete backend type.
type ControllerSet struct {
	Connection  ConnectionController
	Audio       AudioController
	Video       VideoController
	Participant ParticipantController
	Stats       StatsController
}
