package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chipforge/pkg/cache"
	errs "github.com/matzehuels/chipforge/pkg/errors"
)

// configFile is the file name inside the config directory.
const configFile = "config.toml"

// Config is the contents of config.toml. Flags override it.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// EngineConfig holds run defaults.
type EngineConfig struct {
	Seed      uint64 `toml:"seed"`
	TimeoutMS int    `toml:"timeout_ms"`
	// Parallel bounds concurrent runs in bench. Zero means one per CPU.
	Parallel int `toml:"parallel"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend string            `toml:"backend"`
	Dir     string            `toml:"dir"`
	TTL     string            `toml:"ttl"`
	Redis   cache.RedisConfig `toml:"redis"`
	Mongo   cache.MongoConfig `toml:"mongo"`
}

func (c CacheConfig) backend() cache.Config {
	return cache.Config{Backend: c.Backend, Dir: c.Dir, Redis: c.Redis, Mongo: c.Mongo}
}

func (c CacheConfig) ttl() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0, errs.New(errs.ErrCodeInvalidFormat, "cache.ttl must be a duration like \"72h\", got %q", c.TTL)
	}
	return d, nil
}

// ServerConfig configures chipforge serve.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

func defaultConfig() Config {
	cfg := Config{
		Cache:  CacheConfig{Backend: cache.BackendFile},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
	if dir, err := cacheDir(); err == nil {
		cfg.Cache.Dir = dir
	} else {
		cfg.Cache.Backend = cache.BackendNone
	}
	return cfg
}

// configPath resolves an explicit path or the default location.
func configPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// loadConfig reads the config file over the defaults. A missing default file
// is not an error; a missing explicit file is.
func loadConfig(explicit string) (Config, error) {
	cfg := defaultConfig()
	path, err := configPath(explicit)
	if err != nil {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if explicit != "" {
				return cfg, errs.Wrap(errs.ErrCodeFileNotFound, err, "config %s", path)
			}
			return defaultConfig(), nil
		}
		return cfg, errs.Wrap(errs.ErrCodeInvalidFormat, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errs.New(errs.ErrCodeInvalidFormat, "config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if _, err := cfg.Cache.ttl(); err != nil {
		return cfg, err
	}
	if err := errs.ValidateNonNegativeInt("engine.timeout_ms", cfg.Engine.TimeoutMS); err != nil {
		return cfg, err
	}
	if err := errs.ValidateNonNegativeInt("engine.parallel", cfg.Engine.Parallel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// =============================================================================
// config command
// =============================================================================

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configInitCommand())
	return cmd
}

func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(c.configPath)
			if err != nil {
				return fmt.Errorf("get config path: %w", err)
			}
			fmt.Fprintln(stdout, path)
			return nil
		},
	}
}

func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return toml.NewEncoder(stdout).Encode(c.cfg)
		},
	}
}

func (c *CLI) configInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(c.configPath)
			if err != nil {
				return fmt.Errorf("get config path: %w", err)
			}
			if _, err := os.Stat(path); err == nil && !force {
				printWarning("%s already exists", path)
				printNextStep("Overwrite it with", appName+" config init --force")
				return nil
			}
			var buf bytes.Buffer
			if err := toml.NewEncoder(&buf).Encode(defaultConfig()); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return err
			}
			printSuccess("Wrote configuration")
			printFile(path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
