// Package audio plays synthesized narration through the system speaker.
package audio

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// Service controls playback of narration audio.
type Service interface {
	// Play starts playback of an audio file. With startPaused the file is
	// loaded but held at the start. onComplete fires when playback reaches
	// the end naturally, not when it is stopped or superseded.
	Play(filepath string, startPaused bool, onComplete func()) error
	// Pause pauses current playback.
	Pause()
	// Resume resumes paused playback.
	Resume()
	// Stop stops current playback.
	Stop()
	// Shutdown stops playback and removes residual spool files.
	Shutdown()

	// IsPlaying returns true while audio is playing (not paused).
	IsPlaying() bool
	// IsBusy returns true while a track is loaded, playing or paused.
	IsBusy() bool
	// IsPaused returns true if playback is paused.
	IsPaused() bool
	// SetVolume sets playback volume (0.0 to 1.0).
	SetVolume(vol float64)
	// Volume returns the current volume level.
	Volume() float64
	// Position returns the current playback position.
	Position() time.Duration
	// Duration returns the total duration of the loaded track.
	Duration() time.Duration
}

// Manager implements Service using gopxl/beep. The speaker is initialized
// lazily at 48kHz on the first Play; every track is resampled to that rate.
type Manager struct {
	mu         sync.RWMutex
	ctrl       *beep.Ctrl
	volumeCtl  *effects.Volume
	volume     float64
	isPaused   bool
	track      beep.StreamSeekCloser
	format     beep.Format
	spoolFile  string
	sampleRate beep.SampleRate
}

// New creates a Manager with the given initial volume.
func New(volume float64) *Manager {
	return &Manager{volume: clampVolume(volume)}
}

// Play starts playback of an audio file, replacing whatever was loaded.
func (m *Manager) Play(filepath string, startPaused bool, onComplete func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	track, format, err := decode(filepath)
	if err != nil {
		return err
	}

	if err := m.initSpeakerLocked(track); err != nil {
		return err
	}

	resampled := beep.Resample(3, format.SampleRate, m.sampleRate, track)
	volumeCtl := &effects.Volume{
		Streamer: resampled,
		Base:     2,
		Volume:   volumeToPower(m.volume),
		Silent:   m.volume <= 0.01,
	}

	m.volumeCtl = volumeCtl
	m.track = track
	m.format = format
	m.ctrl = &beep.Ctrl{Streamer: volumeCtl, Paused: startPaused}
	m.isPaused = startPaused

	speaker.Play(beep.Seq(m.ctrl, beep.Callback(func() {
		// Runs on the speaker thread; hand off so cleanup never blocks it.
		go func() {
			m.mu.Lock()
			m.ctrl = nil
			m.isPaused = false
			m.mu.Unlock()
			track.Close()

			if onComplete != nil {
				onComplete()
			}
		}()
	})))

	// The previous spool file is dead once its successor is loaded.
	if m.spoolFile != "" && m.spoolFile != filepath {
		removeSpool(m.spoolFile)
	}
	m.spoolFile = filepath

	if startPaused {
		slog.Info("Audio: loaded paused", "path", filepath)
	} else {
		slog.Debug("Audio: playing", "path", filepath)
	}
	return nil
}

// Pause pauses current playback.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctrl != nil {
		speaker.Lock()
		m.ctrl.Paused = true
		speaker.Unlock()
		m.isPaused = true
	}
}

// Resume resumes paused playback.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctrl != nil && m.isPaused {
		speaker.Lock()
		m.ctrl.Paused = false
		speaker.Unlock()
		m.isPaused = false
	}
}

// Stop stops current playback and releases the track.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.track != nil {
		m.track.Close()
		m.track = nil
	}
	if m.ctrl != nil {
		speaker.Clear()
		m.ctrl = nil
		m.isPaused = false
	}
}

// Shutdown stops playback and deletes the remaining spool file.
func (m *Manager) Shutdown() {
	m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.spoolFile != "" {
		removeSpool(m.spoolFile)
		m.spoolFile = ""
	}
}

// IsPlaying returns true while audio is playing.
func (m *Manager) IsPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctrl != nil && !m.isPaused
}

// IsBusy returns true while a track is loaded.
func (m *Manager) IsBusy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctrl != nil
}

// IsPaused returns true if playback is paused.
func (m *Manager) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isPaused
}

// SetVolume sets playback volume, clamped to [0,1], and applies it to the
// live streamer if one is playing.
func (m *Manager) SetVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.volume = clampVolume(vol)

	if m.volumeCtl != nil {
		speaker.Lock()
		m.volumeCtl.Volume = volumeToPower(m.volume)
		m.volumeCtl.Silent = m.volume <= 0.01
		speaker.Unlock()
	}
}

// Volume returns the current volume level.
func (m *Manager) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// Position returns the current playback position.
func (m *Manager) Position() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.track == nil || m.format.SampleRate == 0 {
		return 0
	}
	return m.format.SampleRate.D(m.track.Position())
}

// Duration returns the total duration of the loaded track.
func (m *Manager) Duration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.track == nil || m.format.SampleRate == 0 {
		return 0
	}
	return m.format.SampleRate.D(m.track.Len())
}

func (m *Manager) initSpeakerLocked(track beep.StreamSeekCloser) error {
	const targetRate = 48000
	if m.sampleRate != 0 {
		return nil
	}
	rate := beep.SampleRate(targetRate)
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		track.Close()
		slog.Error("Audio: speaker init failed", "error", err)
		return err
	}
	m.sampleRate = rate
	return nil
}

// decode opens and decodes an audio file. The synthesis backend serves WAV,
// so that format is tried first; MP3 is the fallback for pre-encoded assets.
func decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("Audio: open failed", "path", path, "error", err)
		return nil, beep.Format{}, err
	}

	streamer, format, err := wav.Decode(f)
	if err == nil {
		return streamer, format, nil
	}

	// A failed decode may have consumed part of the file; reopen for MP3.
	f.Close()
	f, err = os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	streamer, format, err = mp3.Decode(f)
	if err != nil {
		f.Close()
		slog.Error("Audio: decode failed", "path", path, "error", err)
		return nil, beep.Format{}, err
	}
	return streamer, format, nil
}

func removeSpool(path string) {
	if err := os.Remove(path); err == nil {
		slog.Debug("Audio: removed spool file", "path", path)
	} else if !os.IsNotExist(err) {
		slog.Warn("Audio: spool cleanup failed", "path", path, "error", err)
	}
}

func clampVolume(vol float64) float64 {
	if vol < 0 {
		return 0
	}
	if vol > 1 {
		return 1
	}
	return vol
}
