package webrtc

import (
	"sync"

	"github.com/pion/webrtc/v3"
)

// session is the shared connection state for one backend instance. The
// connection controller populates it on join; the adapter and media
// controllers read it.
type session struct {
	mu sync.RWMutex
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel
}

func (s *session) set(pc *webrtc.PeerConnection, dc *webrtc.DataChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pc = pc
	s.dc = dc
}

// take clears the session and returns the peer connection for closing.
func (s *session) take() *webrtc.PeerConnection {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc := s.pc
	s.pc = nil
	s.dc = nil
	return pc
}

func (s *session) peer() *webrtc.PeerConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pc
}

func (s *session) channel() *webrtc.DataChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dc
}
