package services

import (
	"testing"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"
	"streamlink/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantRegistry_AddIsIdempotent(t *testing.T) {
	r := NewParticipantRegistry(logger.NewNop())

	joins, updates := 0, 0
	r.SetCallbacks(ports.ParticipantCallbacks{
		OnJoined:  func(domain.Participant) { joins++ },
		OnUpdated: func(domain.Participant) { updates++ },
	})

	r.AddParticipant(domain.Participant{ID: "p1", IsConnected: true})
	r.AddParticipant(domain.Participant{ID: "p1", IsConnected: true, HasAudio: true})

	require.Len(t, r.Participants(), 1, "duplicate join must update, not duplicate")
	assert.Equal(t, 1, joins)
	assert.Equal(t, 1, updates)

	p, ok := r.Get("p1")
	require.True(t, ok)
	assert.True(t, p.HasAudio)
}

func TestParticipantRegistry_UpdateUnknownAutoCreates(t *testing.T) {
	r := NewParticipantRegistry(logger.NewNop())

	joins := 0
	r.SetCallbacks(ports.ParticipantCallbacks{
		OnJoined: func(domain.Participant) { joins++ },
	})

	// Update-before-join race: the update must create the entry.
	r.UpdateParticipant("ghost", func(p *domain.Participant) {
		p.HasVideo = true
	})

	p, ok := r.Get("ghost")
	require.True(t, ok)
	assert.True(t, p.HasVideo)
	assert.True(t, p.IsConnected)
	assert.Equal(t, 1, joins)
}

func TestParticipantRegistry_RemoveParticipant(t *testing.T) {
	r := NewParticipantRegistry(logger.NewNop())

	var left string
	r.SetCallbacks(ports.ParticipantCallbacks{
		OnLeft: func(id string) { left = id },
	})

	r.AddParticipant(domain.Participant{ID: "p1"})
	r.AddParticipant(domain.Participant{ID: "p2"})
	r.RemoveParticipant("p1")

	participants := r.Participants()
	require.Len(t, participants, 1)
	assert.Equal(t, "p2", participants[0].ID)
	assert.Equal(t, "p1", left)

	// Removing an unknown id is a no-op.
	left = ""
	r.RemoveParticipant("nope")
	assert.Empty(t, left)
}

func TestParticipantRegistry_SetSpeaking(t *testing.T) {
	r := NewParticipantRegistry(logger.NewNop())
	r.AddParticipant(domain.Participant{ID: "p1"})

	r.SetSpeaking("p1", true, 0.8)

	p, ok := r.Get("p1")
	require.True(t, ok)
	assert.True(t, p.IsSpeaking)
	assert.InDelta(t, 0.8, p.AudioLevel, 1e-9)
}

func TestParticipantRegistry_JoinOrderIsStable(t *testing.T) {
	r := NewParticipantRegistry(logger.NewNop())

	r.AddParticipant(domain.Participant{ID: "a"})
	r.AddParticipant(domain.Participant{ID: "b"})
	r.AddParticipant(domain.Participant{ID: "c"})
	r.AddParticipant(domain.Participant{ID: "b"}) // re-join keeps position

	ids := make([]string, 0, 3)
	for _, p := range r.Participants() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestParticipantRegistry_CleanupIdempotent(t *testing.T) {
	r := NewParticipantRegistry(logger.NewNop())
	r.AddParticipant(domain.Participant{ID: "p1"})

	require.NoError(t, r.Cleanup())
	require.NoError(t, r.Cleanup())
	assert.Empty(t, r.Participants())
}
