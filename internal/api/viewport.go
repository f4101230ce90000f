package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"tourflow/pkg/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The engine is a localhost companion process; the map client connects
	// from a file:// or localhost origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewportFeed is the bridge between the camera engine and the map client.
// The engine writes frames through SetPose; every connected client receives
// them over its websocket. The client may push its own pose upstream, which
// seeds the feed on reconnect so the next animation starts from where the
// map actually is.
type ViewportFeed struct {
	mu      sync.Mutex
	pose    model.CameraPose
	hasPose bool
	subs    map[*websocket.Conn]chan model.CameraPose
	closed  bool
}

// NewViewportFeed creates an empty feed with no established pose.
func NewViewportFeed() *ViewportFeed {
	return &ViewportFeed{subs: make(map[*websocket.Conn]chan model.CameraPose)}
}

// Pose returns the last known pose and whether one has been established.
func (f *ViewportFeed) Pose() (model.CameraPose, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pose, f.hasPose
}

// SetPose records a frame and fans it out to subscribers. Slow subscribers
// drop frames rather than stall the animation; the final frame of a tween is
// re-sent by the next SetPose or on reconnect, so drops are cosmetic.
func (f *ViewportFeed) SetPose(pose model.CameraPose) {
	f.mu.Lock()
	f.pose = pose
	f.hasPose = true
	for _, ch := range f.subs {
		select {
		case ch <- pose:
		default:
		}
	}
	f.mu.Unlock()
}

// Close disconnects all subscribers. The feed accepts no new connections.
func (f *ViewportFeed) Close() {
	f.mu.Lock()
	f.closed = true
	for conn, ch := range f.subs {
		close(ch)
		conn.Close()
		delete(f.subs, conn)
	}
	f.mu.Unlock()
}

func (f *ViewportFeed) subscribe(conn *websocket.Conn) (chan model.CameraPose, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false
	}
	ch := make(chan model.CameraPose, 8)
	f.subs[conn] = ch
	if f.hasPose {
		ch <- f.pose
	}
	return ch, true
}

func (f *ViewportFeed) unsubscribe(conn *websocket.Conn) {
	f.mu.Lock()
	if ch, ok := f.subs[conn]; ok {
		close(ch)
		delete(f.subs, conn)
	}
	f.mu.Unlock()
}

// HandleViewport handles GET /api/sessions/{id}/viewport, upgrading to a
// websocket that streams camera poses and accepts client pose readbacks.
func (h *SessionHandler) HandleViewport(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Viewport: upgrade failed", "error", err)
		return
	}

	feed := e.viewport
	frames, ok := feed.subscribe(conn)
	if !ok {
		conn.Close()
		return
	}
	slog.Debug("Viewport: client connected", "session", e.session.ID)

	// Reader: client pose readbacks seed the feed.
	go func() {
		defer feed.unsubscribe(conn)
		defer conn.Close()
		for {
			var pose model.CameraPose
			if err := conn.ReadJSON(&pose); err != nil {
				return
			}
			feed.seed(pose)
		}
	}()

	// Writer: engine frames out to the client.
	for pose := range frames {
		if err := conn.WriteJSON(pose); err != nil {
			conn.Close()
			return
		}
	}
}

// seed records a client-reported pose without fanning it back out.
func (f *ViewportFeed) seed(pose model.CameraPose) {
	f.mu.Lock()
	f.pose = pose
	f.hasPose = true
	f.mu.Unlock()
}
