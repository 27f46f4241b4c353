package pacer

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Pacer throttles outbound frames to a byte budget per second. Frames that
// would exceed the budget are delayed, never dropped. One Pacer serves one
// provider session; sessions pace independently.
type Pacer struct {
	limiter      *rate.Limiter
	maxFrameSize int
}

// New creates a pacer with the given byte rate. The bucket burst equals the
// maximum frame size so a single frame always passes immediately once the
// bucket refills; over any sliding one-second window transmitted bytes exceed
// bytesPerSecond by at most one frame.
func New(bytesPerSecond, maxFrameSize int) *Pacer {
	if bytesPerSecond <= 0 {
		bytesPerSecond = 1
	}
	if maxFrameSize <= 0 {
		maxFrameSize = 1
	}
	return &Pacer{
		limiter:      rate.NewLimiter(rate.Limit(bytesPerSecond), maxFrameSize),
		maxFrameSize: maxFrameSize,
	}
}

// Wait blocks until n bytes of budget are available or ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	// Frames are bounded by maxFrameSize upstream; clamp so WaitN never
	// fails on an oversized reservation.
	if n > p.maxFrameSize {
		n = p.maxFrameSize
	}
	if err := p.limiter.WaitN(ctx, n); err != nil {
		return fmt.Errorf("pacer wait: %w", err)
	}
	return nil
}

// Rate returns the configured byte rate.
func (p *Pacer) Rate() int {
	return int(p.limiter.Limit())
}
