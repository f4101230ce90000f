package tracker

import (
	"sync"
	"testing"
)

func TestTrackerCounts(t *testing.T) {
	tr := New()

	tr.TrackCacheHit("backend")
	tr.TrackCacheHit("backend")
	tr.TrackCacheMiss("backend")
	tr.TrackAPISuccess("backend")
	tr.TrackAPIFailure("other")

	stats := tr.Snapshot()

	b := stats["backend"]
	if b.CacheHits != 2 || b.CacheMisses != 1 || b.APISuccess != 1 || b.APIFailures != 0 {
		t.Errorf("backend stats = %+v", b)
	}
	if stats["other"].APIFailures != 1 {
		t.Errorf("other stats = %+v", stats["other"])
	}
}

func TestTrackerConcurrent(t *testing.T) {
	tr := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackCacheHit("p")
			tr.TrackAPISuccess("p")
		}()
	}
	wg.Wait()

	stats := tr.Snapshot()
	if stats["p"].CacheHits != 50 || stats["p"].APISuccess != 50 {
		t.Errorf("expected 50/50, got %+v", stats["p"])
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := New()
	tr.TrackCacheHit("p")

	snap := tr.Snapshot()
	tr.TrackCacheHit("p")

	if snap["p"].CacheHits != 1 {
		t.Error("snapshot should not reflect later updates")
	}
}
