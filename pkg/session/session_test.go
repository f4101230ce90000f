package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tourflow/pkg/config"
	"tourflow/pkg/model"
	"tourflow/pkg/request"
	"tourflow/pkg/tourapi"
	"tourflow/pkg/tracker"
)

// fakeViewport records camera frames without a real map surface.
type fakeViewport struct {
	mu    sync.Mutex
	pose  model.CameraPose
	hasIt bool
	sets  int
}

func (v *fakeViewport) Pose() (model.CameraPose, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pose, v.hasIt
}

func (v *fakeViewport) SetPose(p model.CameraPose) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pose = p
	v.hasIt = true
	v.sets++
}

func newTestSession(t *testing.T, handler http.Handler) (*Session, *fakeViewport) {
	t.Helper()
	svr := httptest.NewServer(handler)
	t.Cleanup(svr.Close)

	cfg := config.DefaultConfig()
	cfg.Poll.Interval = config.Duration(time.Hour) // polled once at most during a test
	cfg.Camera.Duration = config.Duration(20 * time.Millisecond)
	cfg.Audio.SpoolDir = t.TempDir()

	httpClient := request.New(nil, tracker.New(), request.ClientConfig{
		Retries:   1,
		Timeout:   2 * time.Second,
		BaseDelay: time.Millisecond,
	})
	client := tourapi.New(svr.URL, httpClient, cfg.Suggest.CacheResolution)

	vp := &fakeViewport{}
	s := New(cfg, client, vp)
	t.Cleanup(s.Close)
	return s, vp
}

func TestNavigationBeforeTourReady(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	if _, err := s.NextStop(); !errors.Is(err, ErrTourNotReady) {
		t.Errorf("NextStop error = %v, want ErrTourNotReady", err)
	}
	if _, err := s.PreviousStop(); !errors.Is(err, ErrTourNotReady) {
		t.Errorf("PreviousStop error = %v, want ErrTourNotReady", err)
	}
	if _, err := s.JumpToStop(2); !errors.Is(err, ErrTourNotReady) {
		t.Errorf("JumpToStop error = %v, want ErrTourNotReady", err)
	}
	if _, err := s.ResolveStop(nil); !errors.Is(err, ErrTourNotReady) {
		t.Errorf("ResolveStop error = %v, want ErrTourNotReady", err)
	}
	if order := s.CurrentStopOrder(); order != nil {
		t.Errorf("CurrentStopOrder = %v, want nil", *order)
	}
}

func TestChooseThemeRejected(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/guardrail" {
			_, _ = w.Write([]byte(`{"valid": false}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := s.ChooseTheme(context.Background(), "Street Art", "1 hour", "2 km")
	if !errors.Is(err, tourapi.ErrRequestRejected) {
		t.Fatalf("expected ErrRequestRejected, got %v", err)
	}

	// A rejected request must not leave the session stuck generating.
	if s.Generating() {
		t.Error("session still generating after rejection")
	}
	if _, err := s.ChooseTheme(context.Background(), "History", "1 hour", "2 km"); errors.Is(err, ErrGenerationActive) {
		t.Error("retry after rejection blocked by ErrGenerationActive")
	}
}

func TestChooseThemeOnlyOnce(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/guardrail":
			_, _ = w.Write([]byte(`{"valid": true, "transaction_id": "tx-1"}`))
		default:
			// Pending tour: no introduction yet.
			_, _ = w.Write([]byte(`{"id": "tx-1", "introduction": "", "pois": []}`))
		}
	}))

	id, err := s.ChooseTheme(context.Background(), "Harbor", "90 minutes", "3 km")
	require.NoError(t, err)
	require.Equal(t, "tx-1", id)
	require.True(t, s.Generating())

	_, err = s.ChooseTheme(context.Background(), "Harbor", "90 minutes", "3 km")
	require.ErrorIs(t, err, ErrGenerationActive)
}

func TestChooseThemeParsesScope(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/guardrail" {
			_, _ = w.Write([]byte(`{"valid": true, "transaction_id": "tx-2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id": "tx-2", "introduction": "", "pois": []}`))
	}))

	_, err := s.ChooseTheme(context.Background(), "Food", "1.5 hours", "2.5 km")
	require.NoError(t, err)

	scope := s.TourScope()
	require.Equal(t, 90, scope.Minutes)
	require.InDelta(t, 2.5, scope.Km, 0.001)
}

func TestPositionFlow(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	s.PushPosition(53.5503, 9.9937)

	require.Eventually(t, func() bool {
		return s.Position().Valid()
	}, time.Second, 5*time.Millisecond)

	pos := s.Position()
	require.InDelta(t, 53.5503, *pos.Latitude, 0.0001)
	require.InDelta(t, 9.9937, *pos.Longitude, 0.0001)
}

func TestTourReadyNavigation(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	// Install a ready tour directly; narration texts stay empty so playback
	// is a no-op.
	s.onTourReady(&model.Tour{
		ID:     "t1",
		Status: model.TourStatusReady,
		POIs: []model.POI{
			{Order: 1, Title: "Rathaus"},
			{Order: 2, Title: "Speicherstadt"},
		},
	})

	if order := s.CurrentStopOrder(); order != nil {
		t.Fatalf("expected introduction after tour ready, got order %d", *order)
	}

	status, tr := s.TourState()
	require.Equal(t, model.TourStatusReady, status)
	require.NotNil(t, tr)

	order, err := s.NextStop()
	require.NoError(t, err)
	require.NotNil(t, order)
	require.Equal(t, 1, *order)

	order, err = s.NextStop()
	require.NoError(t, err)
	require.Equal(t, 2, *order)

	// Final stop: staying put.
	order, err = s.NextStop()
	require.NoError(t, err)
	require.Equal(t, 2, *order)

	order, err = s.JumpToStop(1)
	require.NoError(t, err)
	require.Equal(t, 1, *order)

	order, err = s.PreviousStop()
	require.NoError(t, err)
	require.Nil(t, order)
}

func TestResolveStopUnknownOrder(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	s.onTourReady(&model.Tour{
		ID:     "t1",
		Status: model.TourStatusReady,
		POIs:   []model.POI{{Order: 1, Title: "Rathaus"}},
	})

	unknown := 99
	order, err := s.ResolveStop(&unknown)
	require.NoError(t, err)
	require.Nil(t, order, "unknown order should fall back to the introduction")

	one := 1
	order, err = s.ResolveStop(&one)
	require.NoError(t, err)
	require.NotNil(t, order)
	require.Equal(t, 1, *order)
}

func TestVolumeControl(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	s.SetVolume(0.4)
	require.InDelta(t, 0.4, s.Volume(), 0.001)

	// Out of range values clamp.
	s.SetVolume(7)
	require.InDelta(t, 1.0, s.Volume(), 0.001)
}
