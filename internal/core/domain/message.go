package domain

import "encoding/json"

// ProtocolVersion is the chunking protocol version carried in every frame.
const ProtocolVersion = 1

// Message types dispatched by the message service.
const (
	MessageTypeChat            = "chat"
	MessageTypeChatResponse    = "chatResponse"
	MessageTypeCommand         = "command"
	MessageTypeCommandResponse = "commandResponse"
)

// StreamMessage is one wire frame of the chunking protocol. MID correlates
// all frames of one logical message; Idx is the zero-based frame sequence
// number; Fin marks the last frame. Invariant: for a given MID, frames are
// sent with monotonically increasing Idx starting at 0, and exactly one frame
// has Fin = true, which is also the highest Idx.
//
// Pld carries a slice of the message's encoded bytes; middle slices are not
// standalone JSON documents, so it travels base64-encoded on the wire.
type StreamMessage struct {
	V    int    `json:"v"`
	Type string `json:"type"`
	MID  string `json:"mid"`
	Idx  int    `json:"idx"`
	Fin  bool   `json:"fin"`
	Pld  []byte `json:"pld"`
}

// MessageEnvelope is the decoded application message reconstructed from a
// frame sequence.
type MessageEnvelope struct {
	Type string          `json:"type"`
	Pld  json.RawMessage `json:"pld"`
}

// CommandPayload is the pld shape of a "command" message.
type CommandPayload struct {
	Cmd  string      `json:"cmd"`
	Data interface{} `json:"data,omitempty"`
}

// CommandResponsePayload is the pld shape of a "commandResponse" message.
type CommandResponsePayload struct {
	Cmd  string `json:"cmd"`
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
}

// ChatResponsePayload is the pld shape of a "chatResponse" message. Final
// marks the last fragment of a streamed reply.
type ChatResponsePayload struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}
