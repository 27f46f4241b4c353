package webrtc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pion/webrtc/v3"
)

// HTTPSignaler negotiates over a plain HTTP endpoint: it posts the local
// offer and expects the remote answer in the response body.
type HTTPSignaler struct {
	Endpoint string
	Client   *http.Client
}

type negotiateRequest struct {
	Room  string                    `json:"room"`
	Offer webrtc.SessionDescription `json:"offer"`
}

type negotiateResponse struct {
	Answer webrtc.SessionDescription `json:"answer"`
}

func (s *HTTPSignaler) Negotiate(ctx context.Context, room string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	body, err := json.Marshal(negotiateRequest{Room: room, Offer: offer})
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("encode offer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("build signaling request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("post offer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return webrtc.SessionDescription{}, fmt.Errorf("signaling endpoint returned %s", resp.Status)
	}

	var out negotiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("decode answer: %w", err)
	}
	return out.Answer, nil
}
