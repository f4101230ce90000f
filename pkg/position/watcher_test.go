package position

import (
	"context"
	"testing"
	"time"

	"tourflow/pkg/model"
)

func coords(lat, lng float64) model.UserPosition {
	return model.UserPosition{Latitude: &lat, Longitude: &lng}
}

func TestApplyOrdering(t *testing.T) {
	w := NewWatcher()

	w.apply(Update{Seq: 1, Position: coords(53.0, 10.0)})
	w.apply(Update{Seq: 3, Position: coords(53.3, 10.3)})
	// Late sample with an older sequence number must be dropped.
	w.apply(Update{Seq: 2, Position: coords(53.2, 10.2)})

	got := w.Current()
	if *got.Latitude != 53.3 {
		t.Errorf("latitude = %v, want 53.3 (stale sample applied)", *got.Latitude)
	}

	// Duplicate sequence numbers are dropped too.
	w.apply(Update{Seq: 3, Position: coords(0, 0)})
	if *w.Current().Latitude != 53.3 {
		t.Error("duplicate sequence number overwrote the position")
	}
}

func TestCurrentStartsUnset(t *testing.T) {
	w := NewWatcher()
	if w.Current().Valid() {
		t.Error("fresh watcher should report an unset position")
	}
}

func TestReset(t *testing.T) {
	w := NewWatcher()
	w.apply(Update{Seq: 5, Position: coords(53, 10)})
	w.Reset()

	if w.Current().Valid() {
		t.Error("Reset should clear the position")
	}
	// Sequence tracking restarts: an old seq is acceptable again.
	w.apply(Update{Seq: 1, Position: coords(54, 11)})
	if !w.Current().Valid() {
		t.Error("post-reset sample was dropped")
	}
}

func TestRunConsumesUntilCancel(t *testing.T) {
	w := NewWatcher()
	src := NewPushSource()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx, src)
		close(done)
	}()

	src.Push(53.55, 10.0)

	deadline := time.After(time.Second)
	for !w.Current().Valid() {
		select {
		case <-deadline:
			t.Fatal("update never applied")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit on cancel")
	}
}

func TestPushSourceDropsOldestWhenFull(t *testing.T) {
	src := NewPushSource()

	// Overfill the buffer with no consumer attached.
	for i := 0; i < 40; i++ {
		src.Push(float64(i), float64(i))
	}

	// The freshest sample must still be in the buffer.
	var last Update
	drained := 0
	for {
		select {
		case u := <-src.Updates():
			last = u
			drained++
			continue
		default:
		}
		break
	}

	if drained == 0 {
		t.Fatal("buffer empty after pushes")
	}
	if *last.Position.Latitude != 39 {
		t.Errorf("freshest buffered sample = %v, want 39", *last.Position.Latitude)
	}
	if last.Seq != 40 {
		t.Errorf("freshest seq = %d, want 40", last.Seq)
	}
}
