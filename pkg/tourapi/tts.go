package tourapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Synthesize requests narration synthesis for the given text and returns the
// backend's resource name for the produced audio.
func (c *Client) Synthesize(ctx context.Context, text string) (*SynthesisResponse, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tts request: %w", err)
	}

	raw, err := c.http.Post(ctx, c.base+"/tts/tts", body, "")
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}

	var resp SynthesisResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode tts response: %w", err)
	}
	if resp.Filename == "" {
		return nil, fmt.Errorf("tts response missing filename")
	}
	return &resp, nil
}

// FetchAudio downloads the synthesized audio resource into spoolDir and
// returns the local file path. The spool file name is unique per fetch so a
// superseded download never clobbers the current one.
func (c *Client) FetchAudio(ctx context.Context, filename, spoolDir string) (string, error) {
	raw, err := c.http.Get(ctx, c.base+"/tts/audio/"+url.PathEscape(filename), "")
	if err != nil {
		return "", fmt.Errorf("audio fetch failed: %w", err)
	}

	if err := os.MkdirAll(spoolDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create spool dir: %w", err)
	}

	path := filepath.Join(spoolDir, uuid.New().String()+".wav")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to spool audio: %w", err)
	}
	return path, nil
}
