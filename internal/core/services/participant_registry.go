package services

import (
	"sync"

	"streamlink/internal/core/domain"
	"streamlink/internal/core/ports"

	"go.uber.org/zap"
)

// ParticipantRegistry is the participant controller shared by all backend
// families: pure roster bookkeeping over backend join/leave/update events.
// Add is idempotent and Update auto-creates, tolerating update-before-join
// races from async backend event ordering.
type ParticipantRegistry struct {
	mu           sync.Mutex
	participants map[string]domain.Participant
	order        []string
	cb           ports.ParticipantCallbacks
	cleaned      bool

	logger *zap.SugaredLogger
}

// NewParticipantRegistry creates an empty registry.
func NewParticipantRegistry(log *zap.Logger) *ParticipantRegistry {
	return &ParticipantRegistry{
		participants: make(map[string]domain.Participant),
		logger:       log.Named("participants").Sugar(),
	}
}

// SetCallbacks installs the roster event callbacks.
func (r *ParticipantRegistry) SetCallbacks(cb ports.ParticipantCallbacks) {
	r.mu.Lock()
	r.cb = cb
	r.mu.Unlock()
}

// AddParticipant registers a participant. A duplicate join updates the
// existing entry rather than duplicating it.
func (r *ParticipantRegistry) AddParticipant(p domain.Participant) {
	r.mu.Lock()
	_, exists := r.participants[p.ID]
	r.participants[p.ID] = p.Clone()
	if !exists {
		r.order = append(r.order, p.ID)
	}
	cb := r.cb
	r.mu.Unlock()

	if exists {
		if cb.OnUpdated != nil {
			cb.OnUpdated(p)
		}
		return
	}
	if cb.OnJoined != nil {
		cb.OnJoined(p)
	}
}

// UpdateParticipant mutates a participant in place. An unknown id is
// auto-created instead of erroring.
func (r *ParticipantRegistry) UpdateParticipant(id string, update func(p *domain.Participant)) {
	r.mu.Lock()
	p, exists := r.participants[id]
	if !exists {
		p = domain.Participant{ID: id, IsConnected: true}
		r.order = append(r.order, id)
		r.logger.Debugw("update for unknown participant, auto-creating", "participant_id", id)
	}
	update(&p)
	p.ID = id // the update callback must not reassign identity
	r.participants[id] = p
	cb := r.cb
	r.mu.Unlock()

	if !exists && cb.OnJoined != nil {
		cb.OnJoined(p.Clone())
		return
	}
	if cb.OnUpdated != nil {
		cb.OnUpdated(p.Clone())
	}
}

// RemoveParticipant drops a participant on leave/disconnect. Unknown ids are
// ignored.
func (r *ParticipantRegistry) RemoveParticipant(id string) {
	r.mu.Lock()
	_, exists := r.participants[id]
	if exists {
		delete(r.participants, id)
		for i, pid := range r.order {
			if pid == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	cb := r.cb
	r.mu.Unlock()

	if exists && cb.OnLeft != nil {
		cb.OnLeft(id)
	}
}

// SetSpeaking updates a participant's speaking flag and audio level.
func (r *ParticipantRegistry) SetSpeaking(id string, speaking bool, level float64) {
	r.UpdateParticipant(id, func(p *domain.Participant) {
		p.IsSpeaking = speaking
		p.AudioLevel = level
	})

	r.mu.Lock()
	cb := r.cb
	r.mu.Unlock()
	if cb.OnSpeaking != nil {
		cb.OnSpeaking(id, speaking, level)
	}
}

// Participants returns the roster in join order.
func (r *ParticipantRegistry) Participants() []domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.participants[id].Clone())
	}
	return out
}

// Get looks up one participant by id.
func (r *ParticipantRegistry) Get(id string) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return domain.Participant{}, false
	}
	return p.Clone(), true
}

// Cleanup empties the roster. Idempotent.
func (r *ParticipantRegistry) Cleanup() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cleaned {
		return nil
	}
	r.cleaned = true
	r.participants = make(map[string]domain.Participant)
	r.order = nil
	r.cb = ports.ParticipantCallbacks{}
	return nil
}
