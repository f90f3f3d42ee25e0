package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chipforge/pkg/cache"
	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/observability"
	"github.com/matzehuels/chipforge/pkg/place"
)

// Runner wraps Dispatch with a response cache, a model store for the
// learning placement strategies, observability hooks and logging. The CLI
// and the HTTP server share it.
//
// A Runner holds no per-run state; one Runner can serve concurrent runs.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Models *ModelStore
	Logger *log.Logger
	// TTL is how long responses stay cached. Zero means cache.TTLResult.
	TTL time.Duration
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// means the default keyer and a nil logger means log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Models: NewModelStore(c, keyer), Logger: logger, TTL: cache.TTLResult}
}

// Run dispatches req, serving it from the cache when an identical request
// has been answered before. The second return value reports a cache hit.
//
// Cache failures are logged and otherwise ignored. Interrupted runs are not
// cached because their result depends on timing. Learning placement runs
// are not cached either: they read or write the model store.
func (r *Runner) Run(ctx context.Context, req *Request) (*Response, bool, error) {
	algo, err := ParseAlgorithm(req.Category, req.Algorithm)
	if err != nil {
		return nil, false, err
	}
	if err := req.Params.Validate(); err != nil {
		return nil, false, err
	}
	key, err := r.key(req)
	if err != nil {
		return nil, false, err
	}
	category := string(algo.Category)
	cacheable := !(algo.Category == Placement && place.Learns(place.Algorithm(algo.Name)))

	if !cacheable {
		r.Logger.Debug("result cache bypassed", "algorithm", algo)
	} else if resp, ok := r.lookup(ctx, key, category); ok {
		r.Logger.Debug("served from cache", "algorithm", algo, "cells", len(req.Cells))
		return resp, true, nil
	}

	observability.Engine().OnRunStart(ctx, category, algo.Name, len(req.Cells))
	r.Logger.Debug("run started", "algorithm", algo, "cells", len(req.Cells), "nets", len(req.Nets), "seed", req.Params.Seed)
	start := time.Now()
	resp, err := dispatch(ctx, req, r.Logger, r.Models)
	elapsed := time.Since(start)
	if err != nil {
		observability.Engine().OnRunComplete(ctx, category, algo.Name, elapsed, false, err)
		return nil, false, err
	}
	observability.Engine().OnRunComplete(ctx, category, algo.Name, elapsed, resp.Success, nil)
	r.Logger.Debug("run finished",
		"algorithm", algo,
		"success", resp.Success,
		"iterations", resp.Iterations,
		"duration", elapsed)

	if cacheable && !resp.Interrupted {
		r.store(ctx, key, category, resp)
	}
	return resp, false, nil
}

// key hashes the canonical JSON encoding of the request. Map keys are
// encoded in sorted order, so equal requests always share a key.
func (r *Runner) key(req *Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidInput, err, "encode request")
	}
	return r.Keyer.ResultKey(cache.ResultKeyOpts{
		Category:    req.Category,
		Algorithm:   req.Algorithm,
		RequestHash: cache.Hash(data),
	}), nil
}

func (r *Runner) lookup(ctx context.Context, key, category string) (*Response, bool) {
	data, ok, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "error", err)
		observability.Cache().OnCacheError(ctx, "get", err)
		return nil, false
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, category)
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		r.Logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		_ = r.Cache.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, category)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, category)
	return &resp, true
}

func (r *Runner) store(ctx context.Context, key, category string, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		r.Logger.Warn("cannot encode response for cache", "error", err)
		return
	}
	ttl := r.TTL
	if ttl == 0 {
		ttl = cache.TTLResult
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "error", err)
		observability.Cache().OnCacheError(ctx, "set", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, category, len(data))
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
