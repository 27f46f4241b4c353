package services

import (
	"encoding/json"
	"fmt"

	"streamlink/internal/core/domain"
	"streamlink/pkg/errors"
	"streamlink/pkg/utils"
)

// ChunkCodec turns an application message into one or more wire frames whose
// payload slices are bounded by maxEncodedSize, and decodes the inverse.
type ChunkCodec struct {
	maxEncodedSize int
}

// NewChunkCodec creates a codec with the given payload slice bound.
func NewChunkCodec(maxEncodedSize int) *ChunkCodec {
	return &ChunkCodec{maxEncodedSize: maxEncodedSize}
}

// Encode serializes {type, pld} and splits the bytes into frames sharing one
// generated mid. An empty payload still produces exactly one frame; a payload
// of exactly maxEncodedSize produces one frame, not two.
func (c *ChunkCodec) Encode(msgType string, payload interface{}) ([]domain.StreamMessage, error) {
	if c.maxEncodedSize <= 0 {
		return nil, errors.NewMessageTooLargeError("frame size bound is not positive")
	}

	var pld json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.NewMessageTooLargeError(fmt.Sprintf("payload not serializable: %v", err))
		}
		pld = encoded
	}

	data, err := json.Marshal(domain.MessageEnvelope{Type: msgType, Pld: pld})
	if err != nil {
		return nil, errors.NewMessageTooLargeError(fmt.Sprintf("envelope not serializable: %v", err))
	}

	return c.split(msgType, data), nil
}

// EncodeBytes chunks an already-serialized message body.
func (c *ChunkCodec) EncodeBytes(msgType string, data []byte) ([]domain.StreamMessage, error) {
	if c.maxEncodedSize <= 0 {
		return nil, errors.NewMessageTooLargeError("frame size bound is not positive")
	}
	return c.split(msgType, data), nil
}

func (c *ChunkCodec) split(msgType string, data []byte) []domain.StreamMessage {
	mid := utils.GenerateMessageID()

	frameCount := (len(data) + c.maxEncodedSize - 1) / c.maxEncodedSize
	if frameCount == 0 {
		frameCount = 1
	}

	frames := make([]domain.StreamMessage, 0, frameCount)
	for i := 0; i < frameCount; i++ {
		start := i * c.maxEncodedSize
		end := start + c.maxEncodedSize
		if end > len(data) {
			end = len(data)
		}

		frames = append(frames, domain.StreamMessage{
			V:    domain.ProtocolVersion,
			Type: msgType,
			MID:  mid,
			Idx:  i,
			Fin:  i == frameCount-1,
			Pld:  data[start:end],
		})
	}

	return frames
}

// Decode unmarshals a reassembled byte sequence into the message envelope.
func (c *ChunkCodec) Decode(data []byte) (domain.MessageEnvelope, error) {
	var envelope domain.MessageEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return domain.MessageEnvelope{}, fmt.Errorf("decode message: %w", err)
	}
	return envelope, nil
}
