package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/chipforge/pkg/cache"
	errs "github.com/matzehuels/chipforge/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), configFile)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Cache.Backend != cache.BackendFile {
		t.Errorf("backend = %q, want %q", cfg.Cache.Backend, cache.BackendFile)
	}
	if want := filepath.Join(cacheHome, appName); cfg.Cache.Dir != want {
		t.Errorf("dir = %q, want %q", cfg.Cache.Dir, want)
	}
	if cfg.Server.Addr == "" {
		t.Error("server address should have a default")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
[engine]
seed = 7
timeout_ms = 2500
parallel = 3

[cache]
backend = "redis"
ttl = "72h"

[cache.redis]
addr = "localhost:6379"
db = 2
prefix = "cf:"

[cache.mongo]
uri = "mongodb://localhost"

[server]
addr = ":9000"
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Engine.Seed != 7 || cfg.Engine.TimeoutMS != 2500 || cfg.Engine.Parallel != 3 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	b := cfg.Cache.backend()
	if b.Backend != cache.BackendRedis || b.Redis.Addr != "localhost:6379" || b.Redis.DB != 2 || b.Redis.Prefix != "cf:" {
		t.Errorf("cache backend = %+v", b)
	}
	if b.Mongo.URI != "mongodb://localhost" {
		t.Errorf("mongo uri = %q", b.Mongo.URI)
	}
	if ttl, err := cfg.Cache.ttl(); err != nil || ttl != 72*time.Hour {
		t.Errorf("ttl = %v, %v", ttl, err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Cache.Dir == "" {
		t.Error("unset keys should keep their defaults")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code errs.Code
	}{
		{"unknown key", "[engine]\nseeds = 1\n", errs.ErrCodeInvalidFormat},
		{"unknown table", "[render]\nstyle = \"x\"\n", errs.ErrCodeInvalidFormat},
		{"syntax", "[engine\n", errs.ErrCodeInvalidFormat},
		{"bad ttl", "[cache]\nttl = \"soon\"\n", errs.ErrCodeInvalidFormat},
		{"negative timeout", "[engine]\ntimeout_ms = -1\n", errs.ErrCodeInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body))
			if !errs.Is(err, tt.code) {
				t.Errorf("loadConfig() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("loadConfig() error = %v, want FILE_NOT_FOUND", err)
	}
}
