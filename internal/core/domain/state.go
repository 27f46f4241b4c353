package domain

// ConnectionState is the facade-level connection state machine.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// StreamingState is the immutable snapshot handed to subscribers. Every
// mutation produces a fresh snapshot; prior snapshots are never altered, so
// they are safe to share with application code.
type StreamingState struct {
	IsJoined         bool
	IsConnecting     bool
	IsSpeaking       bool
	Participants     []Participant
	LocalParticipant *Participant
	NetworkQuality   *ConnectionQuality
	Err              error
}

// Clone deep-copies the snapshot so mutations on the copy never leak into
// internal state.
func (s StreamingState) Clone() StreamingState {
	out := s

	if s.Participants != nil {
		out.Participants = make([]Participant, len(s.Participants))
		for i, p := range s.Participants {
			out.Participants[i] = p.Clone()
		}
	}

	if s.LocalParticipant != nil {
		local := s.LocalParticipant.Clone()
		out.LocalParticipant = &local
	}

	if s.NetworkQuality != nil {
		quality := *s.NetworkQuality
		out.NetworkQuality = &quality
	}

	return out
}
