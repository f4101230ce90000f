package session

import (
	"context"

	"tourflow/pkg/tourapi"
)

// spoolSynthesizer bridges the backend's two-step synthesis flow (synthesize,
// then download) into the single file-producing call narration expects.
type spoolSynthesizer struct {
	client   *tourapi.Client
	spoolDir string
}

func (s *spoolSynthesizer) SynthesizeToFile(ctx context.Context, text string) (string, error) {
	resp, err := s.client.Synthesize(ctx, text)
	if err != nil {
		return "", err
	}
	return s.client.FetchAudio(ctx, resp.Filename, s.spoolDir)
}
