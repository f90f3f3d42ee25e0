// Package cache stores serialized engine responses keyed by a hash of the
// request that produced them.
//
// Every run of the engine is deterministic for a fixed request and seed, so
// a stored response can be returned verbatim instead of recomputing it.
// Backends:
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [MemoryCache]: a process-local map, for tests and the HTTP server
//   - [RedisCache]: a shared Redis instance
//   - [MongoCache]: a MongoDB collection with a TTL index
//   - [NullCache]: caching disabled
//
// Cache failures are never fatal to callers; the engine runner logs them and
// computes the result instead.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiration.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// TTLResult is how long an engine response stays cached.
const TTLResult = 7 * 24 * time.Hour

// TTLModel is the expiry of trained placement models: they never expire and
// leave only through an explicit delete.
const TTLModel time.Duration = 0

// ResultKeyOpts identifies one engine run.
type ResultKeyOpts struct {
	Category  string `json:"category"`
	Algorithm string `json:"algorithm"`
	// RequestHash is the hash of the canonical request body, including the
	// problem and every parameter.
	RequestHash string `json:"request_hash"`
}

// Keyer derives cache keys.
type Keyer interface {
	ResultKey(opts ResultKeyOpts) string
	// ModelKey is the key of the trained model stored under name.
	ModelKey(name string) string
	// ModelIndexKey is the key of the list of stored model names.
	ModelIndexKey() string
}

// DefaultKeyer builds keys of the form "result:<sha256>" and
// "model:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ResultKey hashes the run identity.
func (DefaultKeyer) ResultKey(opts ResultKeyOpts) string {
	return hashKey("result", opts.Category, opts.Algorithm, opts.RequestHash)
}

// ModelKey hashes the model name.
func (DefaultKeyer) ModelKey(name string) string {
	return hashKey("model", name)
}

// ModelIndexKey returns "models".
func (DefaultKeyer) ModelIndexKey() string { return "models" }
