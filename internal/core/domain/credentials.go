package domain

import (
	"errors"
)

// Credentials is the opaque per-backend credential object. Each backend's
// connection controller asserts the concrete type at construction time, so
// no runtime type probing happens downstream.
type Credentials interface {
	Backend() string
	Validate() error
}

// WebRTCCredentials joins a WebRTC session.
type WebRTCCredentials struct {
	Room  string
	Token string
}

func (c *WebRTCCredentials) Backend() string { return "webrtc" }

func (c *WebRTCCredentials) Validate() error {
	if c == nil {
		return errors.New("credentials are nil")
	}
	if c.Room == "" {
		return errors.New("room must not be empty")
	}
	if c.Token == "" {
		return errors.New("token must not be empty")
	}
	return nil
}

// RelayCredentials joins a relay session over websocket.
type RelayCredentials struct {
	URL       string
	Token     string
	SessionID string
}

func (c *RelayCredentials) Backend() string { return "relay" }

func (c *RelayCredentials) Validate() error {
	if c == nil {
		return errors.New("credentials are nil")
	}
	if c.URL == "" {
		return errors.New("relay url must not be empty")
	}
	if c.Token == "" {
		return errors.New("token must not be empty")
	}
	return nil
}
