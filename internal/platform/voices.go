package platform

import (
	"context"
	"net/http"

	"github.com/relaydial/relaydial/internal/model"
)

// ListVoices fetches the platform's voice catalog. Voices are read-only from
// the dashboard's perspective.
func (c *Client) ListVoices(ctx context.Context) ([]model.Voice, error) {
	var wire []wireVoice
	if err := c.do(ctx, http.MethodGet, "/list-voices", nil, &wire); err != nil {
		return nil, err
	}
	voices := make([]model.Voice, 0, len(wire))
	for _, w := range wire {
		voices = append(voices, voiceFromWire(w))
	}
	return voices, nil
}

// GetVoice fetches a single voice by ID.
func (c *Client) GetVoice(ctx context.Context, voiceID string) (model.Voice, error) {
	var wire wireVoice
	if err := c.do(ctx, http.MethodGet, "/get-voice/"+voiceID, nil, &wire); err != nil {
		return model.Voice{}, err
	}
	return voiceFromWire(wire), nil
}
