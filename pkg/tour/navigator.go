// Package tour navigates between a tour's introduction and its ordered stops.
package tour

import (
	"log/slog"
	"sync"

	"github.com/paulmach/orb/geo"

	"tourflow/pkg/model"
)

// StopPointer is where the user currently is in the tour: either the
// introduction sentinel or an index into the sorted POI sequence.
type StopPointer struct {
	atStop bool
	index  int
}

// Introduction returns the introduction pointer.
func Introduction() StopPointer {
	return StopPointer{}
}

// AtIndex returns a pointer at the given stop index.
func AtIndex(i int) StopPointer {
	return StopPointer{atStop: true, index: i}
}

// IsIntroduction reports whether the pointer is at the introduction.
func (p StopPointer) IsIntroduction() bool {
	return !p.atStop
}

// Index returns the stop index. Only meaningful when not at the introduction.
func (p StopPointer) Index() int {
	return p.index
}

// Transition describes the result of a pointer move: the new pointer, the
// narration text for the new state, and the camera target if the state has
// one (the introduction has none, as do stops without GPS data).
type Transition struct {
	Pointer   StopPointer
	Narration string
	Target    *model.CameraPose
}

// PoseDefaults are the fixed zoom/tilt applied to derived camera targets.
type PoseDefaults struct {
	Zoom float64
	Tilt float64
}

// Navigator is the state machine over a tour's stop sequence. The pointer is
// mutated only through its transition methods; downstream consumers react to
// transitions, they never write the pointer.
type Navigator struct {
	mu       sync.Mutex
	intro    string
	stops    []model.POI
	pointer  StopPointer
	defaults PoseDefaults
}

// NewNavigator creates a Navigator positioned at the introduction. POIs are
// sorted ascending by order; that sorted sequence is canonical.
func NewNavigator(t *model.Tour, defaults PoseDefaults) *Navigator {
	return &Navigator{
		intro:    t.Introduction,
		stops:    t.SortedPOIs(),
		pointer:  Introduction(),
		defaults: defaults,
	}
}

// Pointer returns the current stop pointer.
func (n *Navigator) Pointer() StopPointer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pointer
}

// Stops returns the canonical stop sequence.
func (n *Navigator) Stops() []model.POI {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.POI(nil), n.stops...)
}

// CurrentOrder returns the order number of the current stop, or nil at the
// introduction. The external route is a projection of this value.
func (n *Navigator) CurrentOrder() *int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pointer.IsIntroduction() {
		return nil
	}
	order := n.stops[n.pointer.index].Order
	return &order
}

// Next advances the pointer. From the introduction it enters the first stop;
// at the last stop it is a no-op (no wraparound).
func (n *Navigator) Next() (Transition, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch {
	case n.pointer.IsIntroduction():
		if len(n.stops) == 0 {
			return Transition{}, false
		}
		return n.moveTo(AtIndex(0)), true
	case n.pointer.index < len(n.stops)-1:
		return n.moveTo(AtIndex(n.pointer.index + 1)), true
	default:
		return Transition{}, false
	}
}

// Previous steps the pointer back. The first stop goes back to the
// introduction; the introduction has no predecessor.
func (n *Navigator) Previous() (Transition, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch {
	case n.pointer.IsIntroduction():
		return Transition{}, false
	case n.pointer.index == 0:
		return n.moveTo(Introduction()), true
	default:
		return n.moveTo(AtIndex(n.pointer.index - 1)), true
	}
}

// JumpTo resolves the POI's order to its index in the sorted sequence and
// transitions there regardless of the current state. This is how list taps
// and marker taps are expressed.
func (n *Navigator) JumpTo(poi model.POI) (Transition, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.jumpToOrder(poi.Order)
}

// ResolveFromExternalOrder reconstructs the pointer from an order number on
// cold start. nil means the introduction; an unknown order stays at the
// introduction. Idempotent: resolving the same order twice yields the same
// state.
func (n *Navigator) ResolveFromExternalOrder(order *int) (Transition, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if order == nil {
		return n.moveTo(Introduction()), true
	}
	if tr, ok := n.jumpToOrder(*order); ok {
		return tr, true
	}
	slog.Warn("Tour: unknown stop order, staying at introduction", "order", *order)
	return n.moveTo(Introduction()), true
}

func (n *Navigator) jumpToOrder(order int) (Transition, bool) {
	for i, stop := range n.stops {
		if stop.Order == order {
			return n.moveTo(AtIndex(i)), true
		}
	}
	return Transition{}, false
}

// moveTo installs the pointer and derives the transition outputs.
// Callers hold the mutex.
func (n *Navigator) moveTo(p StopPointer) Transition {
	n.pointer = p

	if p.IsIntroduction() {
		return Transition{Pointer: p, Narration: n.intro}
	}

	stop := n.stops[p.index]
	return Transition{
		Pointer:   p,
		Narration: stop.NarrationText,
		Target:    n.targetPose(p.index),
	}
}

// targetPose derives the camera target for a stop: centered on the stop with
// the heading facing along the travel direction from the previous stop.
// Stops without GPS data have no target.
func (n *Navigator) targetPose(index int) *model.CameraPose {
	stop := n.stops[index]
	if stop.GPSLocation == nil {
		return nil
	}

	pose := &model.CameraPose{
		Center: *stop.GPSLocation,
		Zoom:   n.defaults.Zoom,
		Tilt:   n.defaults.Tilt,
	}

	if index > 0 {
		if prev := n.stops[index-1].GPSLocation; prev != nil {
			pose.Heading = normalizeHeading(geo.Bearing(*prev, *stop.GPSLocation))
		}
	}
	return pose
}

// normalizeHeading maps orb's -180..180 bearing into 0..360.
func normalizeHeading(bearing float64) float64 {
	if bearing < 0 {
		return bearing + 360
	}
	return bearing
}
