package audio

import (
	"math"
	"testing"
)

func TestVolumeToPower(t *testing.T) {
	if got := volumeToPower(1.0); got != 0 {
		t.Errorf("unity gain should map to exponent 0, got %v", got)
	}
	if got := volumeToPower(0.5); math.Abs(got-(-1)) > 1e-9 {
		t.Errorf("half volume should map to -1, got %v", got)
	}
	if got := volumeToPower(0); got != -10 {
		t.Errorf("zero volume should map to the silent floor, got %v", got)
	}
	if got := volumeToPower(0.005); got != -10 {
		t.Errorf("sub-threshold volume should map to the silent floor, got %v", got)
	}

	// Monotonic above the silence threshold.
	prev := volumeToPower(0.02)
	for v := 0.03; v <= 1.0; v += 0.01 {
		cur := volumeToPower(v)
		if cur < prev {
			t.Fatalf("volumeToPower not monotonic at %v", v)
		}
		prev = cur
	}
}

func TestClampVolume(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.7, 0.7},
		{1, 1},
		{1.5, 1},
	}
	for _, tc := range tests {
		if got := clampVolume(tc.in); got != tc.want {
			t.Errorf("clampVolume(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestManagerVolumeState(t *testing.T) {
	m := New(0.8)
	if m.Volume() != 0.8 {
		t.Errorf("initial volume = %v, want 0.8", m.Volume())
	}

	m.SetVolume(2.0)
	if m.Volume() != 1.0 {
		t.Errorf("volume = %v, want clamped to 1.0", m.Volume())
	}

	m.SetVolume(-1)
	if m.Volume() != 0 {
		t.Errorf("volume = %v, want clamped to 0", m.Volume())
	}
}

func TestManagerIdleState(t *testing.T) {
	m := New(1.0)

	if m.IsPlaying() || m.IsBusy() || m.IsPaused() {
		t.Error("fresh manager should be idle")
	}
	if m.Position() != 0 || m.Duration() != 0 {
		t.Error("idle manager should report zero position and duration")
	}

	// Pause/Resume/Stop on an idle manager are harmless no-ops.
	m.Pause()
	m.Resume()
	m.Stop()
	if m.IsBusy() {
		t.Error("manager became busy without a track")
	}
}
