// Package observability lets callers receive events from engine runs, the
// result cache and the HTTP API without the engine depending on a metrics
// backend.
//
// Hooks are registered once at startup and read by the instrumented code:
//
//	observability.SetEngineHooks(observability.NewStats())
//
//	observability.Engine().OnRunStart(ctx, "routing", "maze", 12)
//	// ... run ...
//	observability.Engine().OnRunComplete(ctx, "routing", "maze", elapsed, true, nil)
package observability

import (
	"context"
	"sync"
	"time"
)

// EngineHooks receives events from engine dispatch.
type EngineHooks interface {
	OnRunStart(ctx context.Context, category, algorithm string, cells int)
	OnRunComplete(ctx context.Context, category, algorithm string, duration time.Duration, success bool, err error)
}

// CacheHooks receives events from result cache lookups.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, category string)
	OnCacheMiss(ctx context.Context, category string)
	OnCacheSet(ctx context.Context, category string, size int)
	// OnCacheError records a backend failure that was tolerated.
	OnCacheError(ctx context.Context, op string, err error)
}

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, status int, duration time.Duration)
}

// NoopEngineHooks ignores every event.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnRunStart(context.Context, string, string, int) {}
func (NoopEngineHooks) OnRunComplete(context.Context, string, string, time.Duration, bool, error) {
}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)          {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)         {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int)     {}
func (NoopCacheHooks) OnCacheError(context.Context, string, error) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                       {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

var (
	engineHooks EngineHooks = NoopEngineHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetEngineHooks registers engine hooks. Nil is ignored.
func SetEngineHooks(h EngineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engineHooks = h
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Engine returns the registered engine hooks.
func Engine() EngineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores the no-op hooks. Used by tests.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engineHooks = NoopEngineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
