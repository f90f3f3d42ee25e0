package cache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// exercise runs the behavior every backend shares.
func exercise(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}
	if err := c.Set(ctx, "k", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Get(k) = hit %v, err %v", hit, err)
	}
	if !bytes.Equal(data, []byte("value")) {
		t.Errorf("Get(k) = %q", data)
	}
	if err := c.Set(ctx, "k", []byte("other"), 0); err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	if data, _, _ := c.Get(ctx, "k"); string(data) != "other" {
		t.Errorf("overwrite not visible: %q", data)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("entry survived Delete")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
}

func TestMemoryCache(t *testing.T) {
	exercise(t, NewMemoryCache())
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry returned")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not dropped, len %d", c.Len())
	}
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	buf := []byte("abc")
	_ = c.Set(ctx, "k", buf, 0)
	buf[0] = 'x'
	data, _, _ := c.Get(ctx, "k")
	if string(data) != "abc" {
		t.Errorf("stored value aliased caller buffer: %q", data)
	}
}

func TestFileCache(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, c)
}

func TestFileCacheExpiryAndClear(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	_ = c.Set(ctx, "c", []byte("3"), 0)
	now = now.Add(time.Hour)
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("expired entry returned")
	}
	if _, hit, _ := c.Get(ctx, "b"); !hit {
		t.Error("entry without ttl expired")
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d entries, want 2", n)
	}
	if c.Dir() != dir {
		t.Errorf("Dir() = %s", c.Dir())
	}
}

func TestFileCacheUsageAndPrune(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("1"), time.Minute)
	_ = c.Set(ctx, "long", []byte("2"), 24*time.Hour)
	_ = c.Set(ctx, "forever", []byte("3"), 0)
	if err := os.MkdirAll(filepath.Dir(c.path("broken")), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("broken"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Hour)

	u, err := c.Usage()
	if err != nil {
		t.Fatal(err)
	}
	if u.Entries != 4 || u.Expired != 2 || u.Bytes <= 0 {
		t.Errorf("Usage() = %+v, want 4 entries with 2 expired", u)
	}

	n, err := c.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Prune removed %d entries, want 2", n)
	}
	for key, want := range map[string]bool{"short": false, "long": true, "forever": true} {
		if _, hit, _ := c.Get(ctx, key); hit != want {
			t.Errorf("Get(%q) hit = %v after prune, want %v", key, hit, want)
		}
	}
}

func TestFileCacheCorruptEntryIsMiss(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = c.Set(ctx, "k", []byte("v"), 0)
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit %v, err %v", hit, err)
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("corrupt entry not removed")
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("CHIPFORGE_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHIPFORGE_REDIS_ADDR not set")
	}
	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr, Prefix: "chipforge-test:"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exercise(t, c)
}

func TestMongoCache(t *testing.T) {
	uri := os.Getenv("CHIPFORGE_MONGO_URI")
	if uri == "" {
		t.Skip("CHIPFORGE_MONGO_URI not set")
	}
	c, err := NewMongoCache(context.Background(), MongoConfig{URI: uri, Database: "chipforge_test"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exercise(t, c)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{"", BackendNone, BackendMemory} {
		c, err := Open(ctx, Config{Backend: backend})
		if err != nil || c == nil {
			t.Errorf("Open(%q) = %v, %v", backend, c, err)
		}
	}
	if _, err := Open(ctx, Config{Backend: BackendFile}); err == nil {
		t.Error("file backend without directory accepted")
	}
	if _, err := Open(ctx, Config{Backend: "etcd"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("unknown backend: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	a := k.ResultKey(ResultKeyOpts{Category: "placement", Algorithm: "quadratic", RequestHash: "abc"})
	b := k.ResultKey(ResultKeyOpts{Category: "placement", Algorithm: "simulated-annealing", RequestHash: "abc"})
	if a == b {
		t.Error("different algorithms share a key")
	}
	if a != k.ResultKey(ResultKeyOpts{Category: "placement", Algorithm: "quadratic", RequestHash: "abc"}) {
		t.Error("ResultKey not deterministic")
	}
	if a[:7] != "result:" {
		t.Errorf("unexpected prefix: %s", a)
	}
}

func TestScopedKeyer(t *testing.T) {
	opts := ResultKeyOpts{Category: "routing", Algorithm: "maze", RequestHash: "h"}
	scoped := NewScopedKeyer(nil, "bench:")
	want := "bench:" + NewDefaultKeyer().ResultKey(opts)
	if got := scoped.ResultKey(opts); got != want {
		t.Errorf("ResultKey = %s, want %s", got, want)
	}
}

func TestModelKeys(t *testing.T) {
	k := NewDefaultKeyer()
	a := k.ModelKey("small-grid")
	if a[:6] != "model:" {
		t.Errorf("unexpected prefix: %s", a)
	}
	if a == k.ModelKey("large-grid") {
		t.Error("different names share a key")
	}
	if a == k.ModelIndexKey() {
		t.Error("a model key collides with the index key")
	}

	scoped := NewScopedKeyer(nil, "bench:")
	if got := scoped.ModelKey("small-grid"); got != "bench:"+a {
		t.Errorf("ModelKey = %s", got)
	}
	if got := scoped.ModelIndexKey(); got != "bench:models" {
		t.Errorf("ModelIndexKey = %s", got)
	}
}

func TestRetryWithBackoff(t *testing.T) {
	retryDelay = time.Millisecond
	defer func() { retryDelay = time.Second }()
	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 3 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("retryable: err %v after %d calls", err, calls)
	}

	calls = 0
	permanent := errors.New("bad")
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("permanent error retried: err %v, calls %d", err, calls)
	}
}

func TestTransientClassifiesDeadline(t *testing.T) {
	if !IsRetryable(transient(context.DeadlineExceeded)) {
		t.Error("deadline not retryable")
	}
	if IsRetryable(transient(errors.New("x"))) {
		t.Error("plain error retryable")
	}
	if transient(nil) != nil {
		t.Error("nil not preserved")
	}
}
