package api

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"

	"tourflow/pkg/model"
)

func dialViewport(t *testing.T, h *testHarness, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/api/sessions/" + sessionID + "/viewport"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("viewport dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestViewportSeedAndReplay(t *testing.T) {
	h := newHarness(t, notFoundBackend())
	id := h.createSession(t)

	// First client reports where the map actually is.
	first := dialViewport(t, h, id)
	seed := model.CameraPose{
		Center:  orb.Point{9.9937, 53.5503},
		Zoom:    17,
		Tilt:    45,
		Heading: 90,
	}
	if err := first.WriteJSON(seed); err != nil {
		t.Fatalf("failed to send pose readback: %v", err)
	}

	// The seed lands asynchronously; a fresh subscriber gets the last known
	// pose immediately on connect once it has.
	deadline := time.Now().Add(2 * time.Second)
	for {
		second := dialViewport(t, h, id)
		second.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

		var got model.CameraPose
		err := second.ReadJSON(&got)
		second.Close()
		if err == nil {
			if got.Zoom != seed.Zoom || got.Heading != seed.Heading {
				t.Fatalf("replayed pose = %+v, want %+v", got, seed)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("seeded pose never replayed to a new subscriber")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestViewportUnknownSession(t *testing.T) {
	h := newHarness(t, notFoundBackend())

	wsURL := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/api/sessions/nope/viewport"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown session")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Errorf("expected 404 handshake response, got %+v", resp)
	}
}
