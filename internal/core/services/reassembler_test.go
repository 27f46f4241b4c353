package services

import (
	"errors"
	"testing"
	"time"

	"streamlink/internal/core/domain"
	"streamlink/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(mid string, idx int, fin bool, pld string) domain.StreamMessage {
	return domain.StreamMessage{
		V:    domain.ProtocolVersion,
		Type: domain.MessageTypeChat,
		MID:  mid,
		Idx:  idx,
		Fin:  fin,
		Pld:  []byte(pld),
	}
}

func TestReassembler_SingleFrame(t *testing.T) {
	r := NewReassembler(0, logger.NewNop())

	data, complete, err := r.Push(frame("m1", 0, true, "hello"))
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, []byte("hello"), data)
	assert.Equal(t, 0, r.Pending())
}

func TestReassembler_EmptyMessageCompletes(t *testing.T) {
	r := NewReassembler(0, logger.NewNop())

	data, complete, err := r.Push(frame("m-empty", 0, true, ""))
	require.NoError(t, err)
	assert.True(t, complete, "a zero-length message still completes on its fin frame")
	assert.Empty(t, data)
	assert.Equal(t, 0, r.Pending())
}

func TestReassembler_MultiFrame(t *testing.T) {
	r := NewReassembler(0, logger.NewNop())

	data, complete, err := r.Push(frame("m1", 0, false, "foo"))
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Nil(t, data)
	assert.Equal(t, 1, r.Pending())

	data, complete, err = r.Push(frame("m1", 1, false, "bar"))
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Nil(t, data)

	data, complete, err = r.Push(frame("m1", 2, true, "baz"))
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, []byte("foobarbaz"), data)
	assert.Equal(t, 0, r.Pending())
}

func TestReassembler_ConcurrentMessageIsolation(t *testing.T) {
	r := NewReassembler(0, logger.NewNop())

	// Interleave: m1 idx0, m2 idx0 fin, m1 idx1 fin.
	data, complete, err := r.Push(frame("m1", 0, false, "alpha-"))
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Nil(t, data)

	data, complete, err = r.Push(frame("m2", 0, true, "whole"))
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, []byte("whole"), data)

	data, complete, err = r.Push(frame("m1", 1, true, "omega"))
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, []byte("alpha-omega"), data)
}

func TestReassembler_OrderingViolationDiscardsBuffer(t *testing.T) {
	r := NewReassembler(0, logger.NewNop())

	_, _, err := r.Push(frame("m3", 0, false, "a"))
	require.NoError(t, err)

	// Skip idx 1.
	_, complete, err := r.Push(frame("m3", 2, true, "c"))
	require.Error(t, err)
	assert.False(t, complete)
	assert.True(t, errors.Is(err, domain.ErrOutOfOrderFrame))
	assert.Equal(t, 0, r.Pending(), "corrupted buffer must be discarded")

	// A fresh sequence for the same mid starts over cleanly.
	data, complete, err := r.Push(frame("m3", 0, true, "fresh"))
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, []byte("fresh"), data)
}

func TestReassembler_FirstFrameMustBeIdxZero(t *testing.T) {
	r := NewReassembler(0, logger.NewNop())

	_, complete, err := r.Push(frame("m4", 1, false, "late"))
	require.Error(t, err)
	assert.False(t, complete)
	assert.True(t, errors.Is(err, domain.ErrOutOfOrderFrame))
	assert.Equal(t, 0, r.Pending())
}

func TestReassembler_IdleEviction(t *testing.T) {
	r := NewReassembler(50*time.Millisecond, logger.NewNop())

	now := time.Now()
	r.now = func() time.Time { return now }

	var evicted []string
	r.OnEvict(func(mid string) { evicted = append(evicted, mid) })

	_, _, err := r.Push(frame("stale", 0, false, "never finished"))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Pending())

	// Advance past the idle timeout; the next push sweeps the stale buffer.
	now = now.Add(time.Second)
	data, complete, err := r.Push(frame("fresh", 0, true, "ok"))
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, []byte("ok"), data)
	assert.Equal(t, 0, r.Pending(), "stale buffer should have been evicted")
	assert.Equal(t, []string{"stale"}, evicted)
}

func TestReassembler_Reset(t *testing.T) {
	r := NewReassembler(0, logger.NewNop())

	_, _, err := r.Push(frame("m5", 0, false, "partial"))
	require.NoError(t, err)
	require.Equal(t, 1, r.Pending())

	r.Reset()
	assert.Equal(t, 0, r.Pending())
}
