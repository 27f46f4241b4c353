package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateMessageID generates a message id correlating all frames of one
// logical message: timestamp plus a random suffix.
func GenerateMessageID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("msg_%d_%s", time.Now().UnixNano(), suffix)
}

// GenerateParticipantID synthesizes a participant id for backends that do not
// assign one.
func GenerateParticipantID() string {
	return "participant_" + uuid.NewString()
}

// GenerateSessionID generates a unique session ID
func GenerateSessionID() string {
	return "session_" + uuid.NewString()
}

// GenerateTrackID generates a track ID for the given kind ("audio", "video")
func GenerateTrackID(kind string) string {
	return fmt.Sprintf("%s_%s", kind, uuid.NewString())
}
