// Package position wraps a continuous location stream into a single
// current-position value.
package position

import (
	"context"
	"log/slog"
	"sync"

	"tourflow/pkg/model"
)

// Update is one position sample from the capability stream. Seq is a
// monotonically increasing sequence number assigned by the source.
type Update struct {
	Seq      uint64
	Position model.UserPosition
}

// Source is the location capability: a stream of position updates that is
// released when the subscription context is cancelled.
type Source interface {
	// Updates returns the channel carrying position samples.
	Updates() <-chan Update
}

// Watcher consumes a Source and exposes the latest position. Older samples
// are never applied after newer ones.
type Watcher struct {
	mu      sync.RWMutex
	current model.UserPosition
	lastSeq uint64
}

// NewWatcher creates a Watcher with an unset position.
func NewWatcher() *Watcher {
	return &Watcher{}
}

// Run consumes updates from the source until ctx is cancelled. The source's
// stream is the session's position capability; cancelling ctx releases it.
func (w *Watcher) Run(ctx context.Context, src Source) {
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Position: watch released")
			return
		case u, ok := <-src.Updates():
			if !ok {
				return
			}
			w.apply(u)
		}
	}
}

// apply installs the sample unless an equal-or-newer one was already seen.
func (w *Watcher) apply(u Update) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if u.Seq != 0 && u.Seq <= w.lastSeq {
		return
	}
	w.lastSeq = u.Seq
	w.current = u.Position
}

// Current returns the latest known position.
func (w *Watcher) Current() model.UserPosition {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Reset clears the position at session end.
func (w *Watcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = model.UserPosition{}
	w.lastSeq = 0
}

// PushSource is a Source fed by explicit updates (e.g. positions reported by
// the client device over the API).
type PushSource struct {
	mu  sync.Mutex
	ch  chan Update
	seq uint64
}

// NewPushSource creates a push-fed source.
func NewPushSource() *PushSource {
	return &PushSource{ch: make(chan Update, 16)}
}

// Updates implements Source.
func (s *PushSource) Updates() <-chan Update {
	return s.ch
}

// Push reports a new position sample. If the consumer is behind, the oldest
// buffered sample is dropped; only the freshest positions matter.
func (s *PushSource) Push(lat, lng float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	u := Update{
		Seq:      s.seq,
		Position: model.UserPosition{Latitude: &lat, Longitude: &lng},
	}
	for {
		select {
		case s.ch <- u:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}
