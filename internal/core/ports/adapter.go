package ports

import "context"

// BackendAdapter is the minimal capability set every backend must expose for
// the chunked messaging protocol. It is consumed only by the message service,
// never by UI code; media capability is handled by the per-feature
// controllers because a data channel and a media pipeline are orthogonal in
// every backend.
type BackendAdapter interface {
	// SendData transmits one raw frame over the backend's data channel.
	SendData(ctx context.Context, data []byte) error

	// IsReady reports whether the underlying connection is established and
	// capable of carrying application data.
	IsReady() bool

	// SetupMessageListener registers the single raw-bytes listener. A second
	// call replaces the previous listener.
	SetupMessageListener(fn func(data []byte))

	// RemoveMessageListener unregisters the raw-bytes listener.
	RemoveMessageListener()

	// Cleanup releases the adapter. Idempotent.
	Cleanup() error
}
