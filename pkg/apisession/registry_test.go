package apisession

import (
	"sync"
	"testing"
	"time"
)

type testState struct {
	closed int
	mu     sync.Mutex
}

func (s *testState) close() {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
}

func (s *testState) closedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newTestRegistry(ttl time.Duration) *Registry[testState] {
	return New(ttl, func(s *testState) { s.close() })
}

func TestPutAndLookup(t *testing.T) {
	r := newTestRegistry(time.Minute)

	a := &testState{}
	r.Put("a", a)

	got, ok := r.Lookup("a")
	if !ok || got != a {
		t.Fatalf("Lookup returned %v ok=%v, want the stored pointer", got, ok)
	}
	if _, ok := r.Lookup("unknown"); ok {
		t.Error("unknown id must not resolve")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestPutReplaceClosesPrevious(t *testing.T) {
	r := newTestRegistry(time.Minute)

	old := &testState{}
	r.Put("a", old)
	r.Put("a", &testState{})

	if old.closedCount() != 1 {
		t.Errorf("replaced value closed %d times, want 1", old.closedCount())
	}
}

func TestDeleteClosesExactlyOnce(t *testing.T) {
	r := newTestRegistry(time.Minute)

	s := &testState{}
	r.Put("a", s)

	if !r.Delete("a") {
		t.Fatal("Delete of existing id should return true")
	}
	if r.Delete("a") {
		t.Error("second Delete should return false")
	}
	if s.closedCount() != 1 {
		t.Errorf("closed %d times, want 1", s.closedCount())
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestTTLEviction(t *testing.T) {
	r := newTestRegistry(30 * time.Millisecond)

	s := &testState{}
	r.Put("ephemeral", s)

	time.Sleep(60 * time.Millisecond)
	r.Cleanup()

	if r.Len() != 0 {
		t.Fatalf("expected eviction, Len = %d", r.Len())
	}
	if s.closedCount() != 1 {
		t.Errorf("evicted value closed %d times, want 1", s.closedCount())
	}
	if _, ok := r.Lookup("ephemeral"); ok {
		t.Error("evicted id must not resolve")
	}
}

func TestLookupRefreshesTTL(t *testing.T) {
	r := newTestRegistry(60 * time.Millisecond)
	r.Put("a", &testState{})

	// Keep touching the entry past its original TTL.
	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		if _, ok := r.Lookup("a"); !ok {
			t.Fatal("entry expired despite being active")
		}
	}

	r.Cleanup()
	if r.Len() != 1 {
		t.Error("active entry was evicted")
	}
}

func TestCloseEvictsEverything(t *testing.T) {
	r := newTestRegistry(time.Minute)

	a, b := &testState{}, &testState{}
	r.Put("a", a)
	r.Put("b", b)

	r.Close()

	if r.Len() != 0 {
		t.Errorf("Len = %d after Close, want 0", r.Len())
	}
	if a.closedCount() != 1 || b.closedCount() != 1 {
		t.Error("Close must close every entry exactly once")
	}
}
