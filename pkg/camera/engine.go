// Package camera animates the map viewport between poses.
package camera

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"tourflow/pkg/model"
)

// Viewport is the surface the engine drives. Pose returns the current pose
// and whether one has been established yet; SetPose applies a frame.
type Viewport interface {
	Pose() (model.CameraPose, bool)
	SetPose(model.CameraPose)
}

// Engine tweens the viewport from its current pose to a target. Each FlyTo
// supersedes any animation still in flight: the newest target always wins and
// the viewport settles exactly on it.
type Engine struct {
	viewport  Viewport
	duration  time.Duration
	frameRate int

	mu         sync.Mutex
	generation uint64

	wg sync.WaitGroup
}

// NewEngine creates an Engine. Non-positive duration or frame rate fall back
// to 1.5s at 60fps.
func NewEngine(viewport Viewport, duration time.Duration, frameRate int) *Engine {
	if duration <= 0 {
		duration = 1500 * time.Millisecond
	}
	if frameRate <= 0 {
		frameRate = 60
	}
	return &Engine{
		viewport:  viewport,
		duration:  duration,
		frameRate: frameRate,
	}
}

// FlyTo starts an animation toward target. If the viewport has no pose yet
// the target is applied immediately with no animation. Returns once the
// animation has been started (or applied); the tween itself runs in the
// background.
func (e *Engine) FlyTo(target model.CameraPose) {
	from, ok := e.viewport.Pose()

	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	if !ok {
		e.apply(gen, target)
		return
	}
	if from == target {
		return
	}

	e.wg.Add(1)
	go e.animate(gen, from, target)
}

// JumpTo applies target immediately, cancelling any animation in flight.
func (e *Engine) JumpTo(target model.CameraPose) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	e.apply(gen, target)
}

// Stop cancels any animation in flight and waits for its goroutine to exit.
// The viewport is left at whatever frame was applied last.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.generation++
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) animate(gen uint64, from, to model.CameraPose) {
	defer e.wg.Done()

	interval := time.Second / time.Duration(e.frameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for range ticker.C {
		elapsed := time.Since(start)
		if elapsed >= e.duration {
			break
		}
		t := easeOutCubic(float64(elapsed) / float64(e.duration))
		if !e.apply(gen, interpolate(from, to, t)) {
			return
		}
	}

	// Final frame lands exactly on the target.
	if !e.apply(gen, to) {
		return
	}
	slog.Debug("Camera: animation settled",
		"lon", to.Center.Lon(), "lat", to.Center.Lat())
}

// apply writes a frame to the viewport only if gen is still the newest
// animation. The check and the write happen under the same lock so a stale
// animation can never clobber a frame from its successor.
func (e *Engine) apply(gen uint64, pose model.CameraPose) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return false
	}
	e.viewport.SetPose(pose)
	return true
}

func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

func interpolate(from, to model.CameraPose, t float64) model.CameraPose {
	return model.CameraPose{
		Center: [2]float64{
			lerp(from.Center.Lon(), to.Center.Lon(), t),
			lerp(from.Center.Lat(), to.Center.Lat(), t),
		},
		Zoom:    lerp(from.Zoom, to.Zoom, t),
		Tilt:    lerp(from.Tilt, to.Tilt, t),
		Heading: lerpHeading(from.Heading, to.Heading, t),
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// lerpHeading interpolates along the shorter way around the compass, so a
// 350°→10° transition sweeps 20° through north rather than 340° backwards.
func lerpHeading(a, b, t float64) float64 {
	delta := math.Mod(b-a+540, 360) - 180
	h := math.Mod(a+delta*t+360, 360)
	return h
}
