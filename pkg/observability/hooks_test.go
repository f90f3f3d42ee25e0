package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	e := NoopEngineHooks{}
	e.OnRunStart(ctx, "placement", "analytical", 10)
	e.OnRunComplete(ctx, "placement", "analytical", time.Second, true, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "routing")
	c.OnCacheMiss(ctx, "routing")
	c.OnCacheSet(ctx, "routing", 1024)
	c.OnCacheError(ctx, "get", errors.New("down"))

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/runs")
	h.OnResponse(ctx, "POST", "/v1/runs", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Engine() should return NoopEngineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	s := NewStats()
	SetEngineHooks(s)
	SetCacheHooks(s)
	SetHTTPHooks(s)
	if Engine() != EngineHooks(s) || Cache() != CacheHooks(s) || HTTP() != HTTPHooks(s) {
		t.Error("Set*Hooks should register custom hooks")
	}

	SetEngineHooks(nil)
	if Engine() != EngineHooks(s) {
		t.Error("nil should not replace registered hooks")
	}

	Reset()
	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Reset should restore NoopEngineHooks")
	}
}

func TestStatsCounts(t *testing.T) {
	ctx := context.Background()
	s := NewStats()

	s.OnRunComplete(ctx, "routing", "maze", time.Second, true, nil)
	s.OnRunComplete(ctx, "routing", "maze", time.Second, false, nil)
	s.OnRunComplete(ctx, "routing", "maze", 0, false, errors.New("bad input"))
	s.OnCacheHit(ctx, "routing")
	s.OnCacheMiss(ctx, "routing")
	s.OnCacheMiss(ctx, "routing")
	s.OnCacheError(ctx, "set", errors.New("down"))
	s.OnRequest(ctx, "GET", "/healthz")

	snap := s.Snapshot()
	r := snap.Runs["routing/maze"]
	if r.Runs != 3 || r.Succeeded != 1 || r.Failed != 1 || r.Errors != 1 {
		t.Errorf("run counters = %+v", r)
	}
	if r.Total != 2*time.Second {
		t.Errorf("total = %v", r.Total)
	}
	if snap.CacheHits != 1 || snap.CacheMisses != 2 || snap.CacheErrors != 1 || snap.Requests != 1 {
		t.Errorf("snapshot = %+v", snap)
	}

	// Snapshots are copies.
	snap.Runs["routing/maze"] = RunStats{}
	if s.Snapshot().Runs["routing/maze"].Runs != 3 {
		t.Error("snapshot aliases internal state")
	}
}
