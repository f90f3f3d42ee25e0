package observability

import (
	"context"
	"sync"
	"time"
)

// RunStats aggregates runs of one algorithm.
type RunStats struct {
	Runs      int           `json:"runs"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Errors    int           `json:"errors"`
	Total     time.Duration `json:"total_ns"`
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Runs        map[string]RunStats `json:"runs"`
	CacheHits   int                 `json:"cache_hits"`
	CacheMisses int                 `json:"cache_misses"`
	CacheErrors int                 `json:"cache_errors"`
	Requests    int                 `json:"requests"`
}

// Stats counts engine, cache and HTTP events in memory. It implements all
// three hook interfaces.
type Stats struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewStats returns empty counters.
func NewStats() *Stats {
	return &Stats{snap: Snapshot{Runs: make(map[string]RunStats)}}
}

func (s *Stats) OnRunStart(context.Context, string, string, int) {}

func (s *Stats) OnRunComplete(_ context.Context, category, algorithm string, d time.Duration, success bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := category + "/" + algorithm
	r := s.snap.Runs[key]
	r.Runs++
	r.Total += d
	switch {
	case err != nil:
		r.Errors++
	case success:
		r.Succeeded++
	default:
		r.Failed++
	}
	s.snap.Runs[key] = r
}

func (s *Stats) OnCacheHit(context.Context, string) {
	s.mu.Lock()
	s.snap.CacheHits++
	s.mu.Unlock()
}

func (s *Stats) OnCacheMiss(context.Context, string) {
	s.mu.Lock()
	s.snap.CacheMisses++
	s.mu.Unlock()
}

func (s *Stats) OnCacheSet(context.Context, string, int) {}

func (s *Stats) OnCacheError(context.Context, string, error) {
	s.mu.Lock()
	s.snap.CacheErrors++
	s.mu.Unlock()
}

func (s *Stats) OnRequest(context.Context, string, string) {
	s.mu.Lock()
	s.snap.Requests++
	s.mu.Unlock()
}

func (s *Stats) OnResponse(context.Context, string, string, int, time.Duration) {}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	out.Runs = make(map[string]RunStats, len(s.snap.Runs))
	for k, v := range s.snap.Runs {
		out.Runs[k] = v
	}
	return out
}

var (
	_ EngineHooks = (*Stats)(nil)
	_ CacheHooks  = (*Stats)(nil)
	_ HTTPHooks   = (*Stats)(nil)
)
