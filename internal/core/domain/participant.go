package domain

// TrackKind distinguishes audio from video tracks.
type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// Track is one media track owned by the controller that created it. Lifetime
// is bounded by enable/disable calls.
type Track struct {
	ID      string
	Kind    TrackKind
	Enabled bool
	Muted   bool
	Volume  float64 // audio only
	Source  string  // video only: camera, screen
}

// Participant represents one session member, local or remote. The id is
// unique within one provider instance, backend-assigned or synthesized.
type Participant struct {
	ID                string
	IsLocal           bool
	HasAudio          bool
	HasVideo          bool
	HasScreenShare    bool
	IsConnected       bool
	IsSpeaking        bool
	AudioLevel        float64
	ConnectionQuality *ConnectionQuality
	VideoTracks       []Track
	AudioTracks       []Track
	Metadata          map[string]string
}

// Clone deep-copies the participant.
func (p Participant) Clone() Participant {
	out := p

	if p.ConnectionQuality != nil {
		quality := *p.ConnectionQuality
		out.ConnectionQuality = &quality
	}

	if p.VideoTracks != nil {
		out.VideoTracks = append([]Track(nil), p.VideoTracks...)
	}
	if p.AudioTracks != nil {
		out.AudioTracks = append([]Track(nil), p.AudioTracks...)
	}

	if p.Metadata != nil {
		out.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}

	return out
}

// AudioConfig configures audio capture.
type AudioConfig struct {
	DeviceID string
	Volume   float64
}

// VideoConfig configures video capture.
type VideoConfig struct {
	DeviceID  string
	Width     int
	Height    int
	FrameRate float64
	Source    string
}
