package services

import (
	"testing"
	"time"

	"streamlink/internal/core/domain"
	"streamlink/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_UpdatePublishesSynchronously(t *testing.T) {
	store := NewStateStore(logger.NewNop())

	var seen []bool
	store.Subscribe(func(state domain.StreamingState) {
		seen = append(seen, state.IsJoined)
	})

	store.Update(func(state *domain.StreamingState) {
		state.IsJoined = true
	})

	// One delivery at subscribe time plus one per update, in order.
	require.Equal(t, []bool{false, true}, seen)
}

func TestStateStore_SnapshotsAreIsolated(t *testing.T) {
	store := NewStateStore(logger.NewNop())

	store.Update(func(state *domain.StreamingState) {
		state.Participants = []domain.Participant{{
			ID:       "p1",
			Metadata: map[string]string{"role": "avatar"},
		}}
	})

	snapshot := store.Snapshot()
	snapshot.Participants[0].ID = "mutated"
	snapshot.Participants[0].Metadata["role"] = "mutated"

	fresh := store.Snapshot()
	assert.Equal(t, "p1", fresh.Participants[0].ID)
	assert.Equal(t, "avatar", fresh.Participants[0].Metadata["role"])
}

func TestStateStore_SubscriberMutationDoesNotLeak(t *testing.T) {
	store := NewStateStore(logger.NewNop())

	store.Subscribe(func(state domain.StreamingState) {
		if len(state.Participants) > 0 {
			state.Participants[0].ID = "hijacked"
		}
	})

	store.Update(func(state *domain.StreamingState) {
		state.Participants = []domain.Participant{{ID: "p1"}}
	})

	assert.Equal(t, "p1", store.Snapshot().Participants[0].ID)
}

func TestStateStore_SubscriberMayReenterUpdate(t *testing.T) {
	store := NewStateStore(logger.NewNop())

	var seen []bool
	store.Subscribe(func(state domain.StreamingState) {
		seen = append(seen, state.IsJoined)
		if state.IsJoined {
			store.Update(func(s *domain.StreamingState) {
				s.IsJoined = false
			})
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Update(func(s *domain.StreamingState) {
			s.IsJoined = true
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update re-entered from a subscriber did not return")
	}

	// Subscribe delivery, the outer update, then the nested one, in order.
	assert.Equal(t, []bool{false, true, false}, seen)
	assert.False(t, store.Snapshot().IsJoined)
}

func TestStateStore_SubscriberPanicIsIsolated(t *testing.T) {
	store := NewStateStore(logger.NewNop())

	calls := 0
	store.Subscribe(func(domain.StreamingState) {
		panic("subscriber bug")
	})
	store.Subscribe(func(domain.StreamingState) {
		calls++
	})

	store.Update(func(state *domain.StreamingState) {
		state.IsConnecting = true
	})

	assert.Equal(t, 2, calls, "healthy subscriber must receive initial + updated snapshots")
}

func TestStateStore_Unsubscribe(t *testing.T) {
	store := NewStateStore(logger.NewNop())

	calls := 0
	unsubscribe := store.Subscribe(func(domain.StreamingState) {
		calls++
	})
	require.Equal(t, 1, calls)

	unsubscribe()
	store.Update(func(state *domain.StreamingState) {
		state.IsJoined = true
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, store.SubscriberCount())
}

func TestStateStore_Clear(t *testing.T) {
	store := NewStateStore(logger.NewNop())
	store.Subscribe(func(domain.StreamingState) {})
	store.Subscribe(func(domain.StreamingState) {})
	require.Equal(t, 2, store.SubscriberCount())

	store.Clear()
	assert.Equal(t, 0, store.SubscriberCount())
}
