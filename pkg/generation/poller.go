// Package generation polls the tour backend until a tour's narrative
// introduction has been produced.
package generation

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"tourflow/pkg/model"
)

// TourGetter is the slice of the backend client the poller needs.
type TourGetter interface {
	Tour(ctx context.Context, id string) (*model.Tour, error)
}

// Poller repeatedly queries tour status on a fixed interval. There is no
// backoff and no attempt cap: a failed attempt is logged and the loop
// continues unperturbed.
type Poller struct {
	client   TourGetter
	interval time.Duration

	// hasLocatable flips true as soon as any polled POI carries a resolvable
	// location. It can become true before the tour is ready and never flips
	// back within a session.
	hasLocatable atomic.Bool
}

// NewPoller creates a Poller. A non-positive interval falls back to 10s.
func NewPoller(client TourGetter, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{client: client, interval: interval}
}

// Poll queries the tour immediately and then on every interval tick until the
// introduction is populated, at which point onReady is invoked exactly once
// and polling stops. Cancelling ctx stops the loop and releases the timer.
func (p *Poller) Poll(ctx context.Context, tourID string, onReady func(*model.Tour)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	attempt := 0
	for {
		attempt++
		tour, err := p.client.Tour(ctx, tourID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("Generation: poll attempt failed", "tour", tourID, "attempt", attempt, "error", err)
		} else {
			p.recordLocatable(tour)
			if tour.Introduction != "" {
				slog.Info("Generation: tour ready", "tour", tourID, "attempts", attempt, "pois", len(tour.POIs))
				onReady(tour)
				return
			}
			slog.Debug("Generation: tour not ready yet", "tour", tourID, "attempt", attempt)
		}

		select {
		case <-ctx.Done():
			slog.Debug("Generation: polling cancelled", "tour", tourID)
			return
		case <-ticker.C:
		}
	}
}

// HasLocatablePOI reports whether any polled POI carries a resolvable
// location. Presentation uses this for layout; it does not affect polling.
func (p *Poller) HasLocatablePOI() bool {
	return p.hasLocatable.Load()
}

func (p *Poller) recordLocatable(tour *model.Tour) {
	if p.hasLocatable.Load() {
		return
	}
	for _, poi := range tour.POIs {
		if poi.Locatable() {
			p.hasLocatable.Store(true)
			return
		}
	}
}
