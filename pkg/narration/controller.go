// Package narration turns stop text into speech and hands it to the player.
package narration

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"tourflow/pkg/audio"
)

// Synthesizer produces a playable audio file for a piece of text. The
// returned path is a local spool file owned by the caller.
type Synthesizer interface {
	SynthesizeToFile(ctx context.Context, text string) (string, error)
}

// Controller owns the narration slot: at most one piece of text is current,
// and setting a new one supersedes any synthesis still in flight. A stale
// synthesis result is discarded and its spool file deleted; it never reaches
// the player.
type Controller struct {
	synth  Synthesizer
	player audio.Service

	mu      sync.Mutex
	token   uint64
	loading bool

	// OnError is invoked (outside the lock) when synthesis or playback of
	// the current narration fails. Optional.
	OnError func(err error)
}

// NewController creates a Controller over the given synthesizer and player.
func NewController(synth Synthesizer, player audio.Service) *Controller {
	return &Controller{synth: synth, player: player}
}

// SetNarration makes text the current narration. Any playing audio stops
// immediately; synthesis runs in the background and, if this call is still
// the newest when it completes, the result is loaded into the player
// (playing, or paused when autoplay is false). Empty text clears the slot.
func (c *Controller) SetNarration(ctx context.Context, text string, autoplay bool) {
	c.mu.Lock()
	c.token++
	token := c.token
	c.loading = text != ""
	c.mu.Unlock()

	c.player.Stop()

	if text == "" {
		return
	}

	go c.synthesize(ctx, token, text, autoplay)
}

func (c *Controller) synthesize(ctx context.Context, token uint64, text string, autoplay bool) {
	path, err := c.synth.SynthesizeToFile(ctx, text)

	c.mu.Lock()
	stale := token != c.token
	if !stale {
		c.loading = false
	}
	c.mu.Unlock()

	if stale {
		// A newer narration owns the slot now; this result just cleans up.
		if err == nil {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				slog.Warn("Narration: stale spool cleanup failed", "path", path, "error", rmErr)
			}
		}
		slog.Debug("Narration: discarded superseded synthesis")
		return
	}

	if err != nil {
		slog.Error("Narration: synthesis failed", "error", err)
		c.reportError(err)
		return
	}

	if err := c.player.Play(path, !autoplay, nil); err != nil {
		slog.Error("Narration: playback failed", "path", path, "error", err)
		c.reportError(err)
	}
}

func (c *Controller) reportError(err error) {
	c.mu.Lock()
	cb := c.OnError
	c.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// Play resumes or starts playback of the loaded narration.
func (c *Controller) Play() {
	if c.player.IsPaused() {
		c.player.Resume()
	}
}

// Pause pauses playback.
func (c *Controller) Pause() {
	c.player.Pause()
}

// IsPlaying reports whether narration audio is playing.
func (c *Controller) IsPlaying() bool {
	return c.player.IsPlaying()
}

// IsLoading reports whether synthesis for the current narration is still in
// flight.
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}
