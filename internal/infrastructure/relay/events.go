package relay

import (
	"encoding/json"
	"time"

	"streamlink/internal/core/domain"
)

// Relay wire events. Every socket message is one envelope; the event name
// selects the payload shape.
const (
	eventJoin               = "join"
	eventJoined             = "joined"
	eventData               = "data"
	eventParticipantJoined  = "participant-joined"
	eventParticipantLeft    = "participant-left"
	eventParticipantUpdated = "participant-updated"
	eventSpeaking           = "speaking"
	eventStats              = "stats"
	eventMedia              = "media"
	eventBye                = "bye"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func newEnvelope(event string, payload interface{}) (envelope, error) {
	if payload == nil {
		return envelope{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, err
	}
	return envelope{Event: event, Data: data}, nil
}

type joinPayload struct {
	SessionID string `json:"session_id,omitempty"`
}

type joinedPayload struct {
	SessionID    string               `json:"session_id"`
	Participants []participantPayload `json:"participants,omitempty"`
}

// participantPayload is the relay's roster entry. Absent fields fold to zero
// values rather than erroring.
type participantPayload struct {
	ID         string            `json:"id"`
	HasAudio   bool              `json:"has_audio"`
	HasVideo   bool              `json:"has_video"`
	IsSpeaking bool              `json:"is_speaking"`
	AudioLevel float64           `json:"audio_level"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (p participantPayload) toDomain() domain.Participant {
	return domain.Participant{
		ID:          p.ID,
		HasAudio:    p.HasAudio,
		HasVideo:    p.HasVideo,
		IsSpeaking:  p.IsSpeaking,
		AudioLevel:  p.AudioLevel,
		IsConnected: true,
		Metadata:    p.Metadata,
	}
}

type participantLeftPayload struct {
	ID string `json:"id"`
}

type speakingPayload struct {
	ID       string  `json:"id"`
	Speaking bool    `json:"speaking"`
	Level    float64 `json:"level"`
}

// statsPayload is the relay's server-pushed statistics shape. Fields the
// server omits stay zero after unmarshal, which is exactly the normalization
// rule.
type statsPayload struct {
	RTTMs       float64 `json:"rtt_ms"`
	PacketLoss  float64 `json:"packet_loss"`
	BitrateKbps int     `json:"bitrate_kbps"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FrameRate   float64 `json:"frame_rate"`
}

func (s statsPayload) toDomain(now time.Time) domain.NetworkStats {
	return domain.NetworkStats{
		RTT:         time.Duration(s.RTTMs * float64(time.Millisecond)),
		PacketLoss:  s.PacketLoss,
		BitrateKbps: s.BitrateKbps,
		Width:       s.Width,
		Height:      s.Height,
		FrameRate:   s.FrameRate,
		Timestamp:   now,
	}
}

// mediaPayload announces local track intent to the relay, which mixes media
// server-side.
type mediaPayload struct {
	Kind    string `json:"kind"`
	TrackID string `json:"track_id"`
	Active  bool   `json:"active"`
	Source  string `json:"source,omitempty"`
}
