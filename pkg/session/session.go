// Package session composes the engine's capabilities into one tour session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourflow/pkg/audio"
	"tourflow/pkg/camera"
	"tourflow/pkg/config"
	"tourflow/pkg/constraints"
	"tourflow/pkg/generation"
	"tourflow/pkg/model"
	"tourflow/pkg/narration"
	"tourflow/pkg/position"
	"tourflow/pkg/suggest"
	"tourflow/pkg/tour"
	"tourflow/pkg/tourapi"
)

// ErrTourNotReady is returned by stop navigation before a tour has arrived.
var ErrTourNotReady = errors.New("tour is not ready")

// ErrGenerationActive is returned when a theme is chosen while a tour is
// already being generated or present.
var ErrGenerationActive = errors.New("tour generation already started")

// Scope is the parsed form of the user's free-text constraints.
type Scope struct {
	Minutes int     `json:"minutes"`
	Km      float64 `json:"km"`
}

// Session is one user's tour session: position, suggestions, generation,
// navigation, camera and narration, wired together. All methods are safe for
// concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	cfg    *config.Config
	client *tourapi.Client

	ctx    context.Context
	cancel context.CancelFunc

	watcher *position.Watcher
	source  *position.PushSource
	fetcher *suggest.Fetcher
	poller  *generation.Poller
	camera  *camera.Engine
	player  audio.Service
	voice   *narration.Controller

	mu            sync.RWMutex
	scope         Scope
	tourID        string
	tour          *model.Tour
	nav           *tour.Navigator
	generating    bool
	narrationText string
	lastError     string
}

// New creates a Session and starts its position watcher. The viewport is the
// surface the camera engine drives; it stays owned by the caller.
func New(cfg *config.Config, client *tourapi.Client, viewport camera.Viewport) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	player := audio.New(cfg.Audio.Volume)
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		cfg:       cfg,
		client:    client,
		ctx:       ctx,
		cancel:    cancel,
		watcher:   position.NewWatcher(),
		source:    position.NewPushSource(),
		fetcher:   suggest.NewFetcher(client),
		poller:    generation.NewPoller(client, time.Duration(cfg.Poll.Interval)),
		camera:    camera.NewEngine(viewport, time.Duration(cfg.Camera.Duration), cfg.Camera.FrameRate),
		player:    player,
	}
	s.voice = narration.NewController(&spoolSynthesizer{client: client, spoolDir: cfg.Audio.SpoolDir}, player)
	s.voice.OnError = s.recordError

	go s.watcher.Run(ctx, s.source)

	slog.Info("Session: created", "id", s.ID)
	return s
}

// PushPosition feeds a position update into the session.
func (s *Session) PushPosition(lat, lng float64) {
	s.source.Push(lat, lng)
}

// Position returns the most recent accepted position.
func (s *Session) Position() model.UserPosition {
	return s.watcher.Current()
}

// RequestSuggestions triggers the theme suggestion fetch for the current
// position. Fire-and-forget: repeated triggers collapse into one request.
func (s *Session) RequestSuggestions() {
	pos := s.watcher.Current()
	go s.fetcher.Request(s.ctx, pos)
}

// Suggestions returns the observable suggestion state.
func (s *Session) Suggestions() model.SuggestionState {
	return s.fetcher.State()
}

// ChooseTheme validates the user's choice with the backend and, if accepted,
// starts polling for the generated tour. The theme may be a suggested label
// or free text; maxTime and distance are the user's phrasing ("2 hours",
// "5 km"). Returns the tour id.
func (s *Session) ChooseTheme(ctx context.Context, theme, maxTime, distance string) (string, error) {
	s.mu.Lock()
	if s.generating || s.tour != nil {
		s.mu.Unlock()
		return "", ErrGenerationActive
	}
	s.generating = true
	s.mu.Unlock()

	// Parsed values bound the tour's scope; the backend sees the raw phrasing.
	scope := Scope{
		Minutes: constraints.ParseTimeToMinutes(maxTime),
		Km:      constraints.ParseDistanceToKm(distance),
	}
	s.mu.Lock()
	s.scope = scope
	s.mu.Unlock()
	slog.Debug("Session: tour constraints", "id", s.ID, "minutes", scope.Minutes, "km", scope.Km)

	id, err := s.client.Guardrail(ctx, tourapi.Constraints{
		MaxTime:     maxTime,
		Distance:    distance,
		CustomTheme: theme,
		Address:     s.fetcher.Address(),
	})
	if err != nil {
		s.mu.Lock()
		s.generating = false
		s.mu.Unlock()
		return "", err
	}

	s.mu.Lock()
	s.tourID = id
	s.mu.Unlock()

	slog.Info("Session: tour generation started", "id", s.ID, "tour", id)
	go s.poller.Poll(s.ctx, id, s.onTourReady)
	return id, nil
}

// onTourReady installs the generated tour and positions the user at the
// introduction, with narration loaded but not playing.
func (s *Session) onTourReady(t *model.Tour) {
	nav := tour.NewNavigator(t, tour.PoseDefaults{
		Zoom: s.cfg.Camera.Zoom,
		Tilt: s.cfg.Camera.Tilt,
	})

	s.mu.Lock()
	s.tour = t
	s.nav = nav
	s.generating = false
	s.mu.Unlock()

	slog.Info("Session: tour ready", "id", s.ID, "tour", t.ID, "stops", len(t.POIs))

	if tr, ok := nav.ResolveFromExternalOrder(nil); ok {
		s.applyTransition(tr, false)
	}
}

// TourScope returns the parsed constraints of the current tour request. Zero
// before a theme has been chosen.
func (s *Session) TourScope() Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// TourState returns the generation status and, once ready, the tour itself.
func (s *Session) TourState() (model.TourStatus, *model.Tour) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tour == nil {
		return model.TourStatusPending, nil
	}
	return model.TourStatusReady, s.tour
}

// Generating reports whether a tour has been requested but not yet arrived.
func (s *Session) Generating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generating
}

// HasLocatablePOI reports whether any polled snapshot carried a locatable
// stop. The flag only ever latches on.
func (s *Session) HasLocatablePOI() bool {
	return s.poller.HasLocatablePOI()
}

// NextStop advances to the next stop. At the final stop it is a no-op.
func (s *Session) NextStop() (*int, error) {
	return s.navigate(func(n *tour.Navigator) (tour.Transition, bool) {
		return n.Next()
	})
}

// PreviousStop steps back toward the introduction.
func (s *Session) PreviousStop() (*int, error) {
	return s.navigate(func(n *tour.Navigator) (tour.Transition, bool) {
		return n.Previous()
	})
}

// JumpToStop jumps directly to the stop with the given order number.
func (s *Session) JumpToStop(order int) (*int, error) {
	return s.navigate(func(n *tour.Navigator) (tour.Transition, bool) {
		return n.ResolveFromExternalOrder(&order)
	})
}

// ResolveStop reconstructs the pointer from an externally persisted order
// number: nil or unknown orders resolve to the introduction. The narration is
// loaded paused rather than played, matching a cold start.
func (s *Session) ResolveStop(order *int) (*int, error) {
	s.mu.RLock()
	nav := s.nav
	s.mu.RUnlock()
	if nav == nil {
		return nil, ErrTourNotReady
	}

	if tr, ok := nav.ResolveFromExternalOrder(order); ok {
		s.applyTransition(tr, false)
	}
	return nav.CurrentOrder(), nil
}

// CurrentStopOrder returns the order of the current stop, or nil at the
// introduction (or before the tour is ready).
func (s *Session) CurrentStopOrder() *int {
	s.mu.RLock()
	nav := s.nav
	s.mu.RUnlock()
	if nav == nil {
		return nil
	}
	return nav.CurrentOrder()
}

func (s *Session) navigate(move func(*tour.Navigator) (tour.Transition, bool)) (*int, error) {
	s.mu.RLock()
	nav := s.nav
	s.mu.RUnlock()
	if nav == nil {
		return nil, ErrTourNotReady
	}

	if tr, ok := move(nav); ok {
		s.applyTransition(tr, true)
	}
	return nav.CurrentOrder(), nil
}

// applyTransition routes a navigator transition into narration and camera.
// The narration always changes; the camera only moves when the new state has
// a target (the introduction keeps the viewport where it is).
func (s *Session) applyTransition(tr tour.Transition, autoplay bool) {
	s.mu.Lock()
	s.narrationText = tr.Narration
	s.mu.Unlock()

	s.voice.SetNarration(s.ctx, tr.Narration, autoplay)
	if tr.Target != nil {
		s.camera.FlyTo(*tr.Target)
	}
}

// PlayNarration resumes paused narration audio.
func (s *Session) PlayNarration() { s.voice.Play() }

// PauseNarration pauses narration audio.
func (s *Session) PauseNarration() { s.voice.Pause() }

// SetVolume sets narration playback volume (0.0 to 1.0).
func (s *Session) SetVolume(vol float64) { s.player.SetVolume(vol) }

// Volume returns the narration playback volume.
func (s *Session) Volume() float64 { return s.player.Volume() }

// Playback returns the observable narration playback state.
func (s *Session) Playback() model.PlaybackState {
	s.mu.RLock()
	text := s.narrationText
	s.mu.RUnlock()

	return model.PlaybackState{
		Text:      text,
		IsLoading: s.voice.IsLoading(),
		IsPlaying: s.voice.IsPlaying(),
	}
}

// LastError returns the most recent narration error, if any.
func (s *Session) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Session) recordError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}

// Close stops the session: the poller and watcher exit via context
// cancellation, the camera settles, and playback shuts down with its spool
// files removed.
func (s *Session) Close() {
	s.cancel()
	s.camera.Stop()
	s.player.Shutdown()
	slog.Info("Session: closed", "id", s.ID)
}
