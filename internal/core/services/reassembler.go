package services

import (
	"fmt"
	"sync"
	"time"

	"streamlink/internal/core/domain"

	"go.uber.org/zap"
)

// reassemblyBuffer accumulates ordered frame payloads for one mid.
type reassemblyBuffer struct {
	data     []byte
	lastIdx  int
	lastSeen time.Time
}

// Reassembler inverts chunking on the receive path. Buffers for distinct mids
// are independent, so concurrently in-flight messages reassemble without
// cross-contamination. Out-of-order frames are not reordered: the transports
// in scope deliver in send order within one channel, so a gap means the
// message is corrupt and the buffer is discarded.
type Reassembler struct {
	mu          sync.Mutex
	buffers     map[string]*reassemblyBuffer
	idleTimeout time.Duration
	now         func() time.Time
	onEvict     func(mid string)
	logger      *zap.SugaredLogger
}

// NewReassembler creates a reassembler with the given idle-eviction timeout.
func NewReassembler(idleTimeout time.Duration, logger *zap.Logger) *Reassembler {
	return &Reassembler{
		buffers:     make(map[string]*reassemblyBuffer),
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      logger.Named("reassembler").Sugar(),
	}
}

// OnEvict registers a callback fired for each buffer dropped by idle
// eviction, outside the reassembler lock.
func (r *Reassembler) OnEvict(fn func(mid string)) {
	r.mu.Lock()
	r.onEvict = fn
	r.mu.Unlock()
}

// Push ingests one frame. Once the fin frame lands it returns the complete
// message bytes with complete = true; a zero-length message completes like
// any other. While the message is still in flight it returns complete =
// false. An ordering violation returns an error and discards the buffer for
// that mid.
func (r *Reassembler) Push(frame domain.StreamMessage) (data []byte, complete bool, err error) {
	r.mu.Lock()
	now := r.now()
	evicted := r.evictIdleLocked(now)
	data, complete, err = r.pushLocked(frame, now)
	onEvict := r.onEvict
	r.mu.Unlock()

	if onEvict != nil {
		for _, mid := range evicted {
			onEvict(mid)
		}
	}
	return data, complete, err
}

func (r *Reassembler) pushLocked(frame domain.StreamMessage, now time.Time) ([]byte, bool, error) {
	buf, ok := r.buffers[frame.MID]
	if !ok {
		if frame.Idx != 0 {
			return nil, false, fmt.Errorf("mid %s: first frame has idx %d: %w", frame.MID, frame.Idx, domain.ErrOutOfOrderFrame)
		}
		buf = &reassemblyBuffer{lastIdx: -1}
		r.buffers[frame.MID] = buf
	} else if frame.Idx != buf.lastIdx+1 {
		delete(r.buffers, frame.MID)
		return nil, false, fmt.Errorf("mid %s: expected idx %d, got %d: %w", frame.MID, buf.lastIdx+1, frame.Idx, domain.ErrOutOfOrderFrame)
	}

	buf.data = append(buf.data, frame.Pld...)
	buf.lastIdx = frame.Idx
	buf.lastSeen = now

	if !frame.Fin {
		return nil, false, nil
	}

	delete(r.buffers, frame.MID)
	return buf.data, true, nil
}

// evictIdleLocked drops buffers whose fin frame never arrived, e.g. when the
// remote peer crashed mid-message. Returns the evicted mids.
func (r *Reassembler) evictIdleLocked(now time.Time) []string {
	if r.idleTimeout <= 0 {
		return nil
	}
	var evicted []string
	for mid, buf := range r.buffers {
		if now.Sub(buf.lastSeen) > r.idleTimeout {
			delete(r.buffers, mid)
			evicted = append(evicted, mid)
			r.logger.Warnw("evicted stale reassembly buffer",
				"mid", mid,
				"last_idx", buf.lastIdx,
				"bytes", len(buf.data),
			)
		}
	}
	return evicted
}

// Pending returns the number of in-flight buffers.
func (r *Reassembler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}

// Reset discards all in-flight buffers.
func (r *Reassembler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffers = make(map[string]*reassemblyBuffer)
}
