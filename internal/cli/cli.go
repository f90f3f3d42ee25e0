// Package cli implements the chipforge command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chipforge/pkg/buildinfo"
	"github.com/matzehuels/chipforge/pkg/cache"
	"github.com/matzehuels/chipforge/pkg/engine"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "chipforge"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        Config
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    defaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The configuration file is loaded before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Chipforge places, routes, partitions and floorplans netlists",
		Long: `Chipforge is a physical-design toolkit. It reads a chip outline with cells and
nets, runs one of several placement, routing, partitioning or floorplanning
strategies, and reports quality metrics for the result.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+filepath.Join("$XDG_CONFIG_HOME", appName, configFile)+")")

	root.AddCommand(c.runCommand())
	for _, cat := range engine.Categories() {
		root.AddCommand(c.shortcutCommand(cat))
	}
	root.AddCommand(c.algorithmsCommand())
	root.AddCommand(c.benchCommand())
	root.AddCommand(c.netlistCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.modelCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates an engine runner backed by the configured cache. A cache
// that cannot be opened is reported and replaced by no caching.
func (c *CLI) newRunner(ctx context.Context, noCache bool) *engine.Runner {
	store := c.openCache(ctx, noCache)
	r := engine.NewRunner(store, cache.NewScopedKeyer(nil, appName+":"), c.Logger)
	if ttl, err := c.cfg.Cache.ttl(); err == nil && ttl > 0 {
		r.TTL = ttl
	}
	return r
}

func (c *CLI) openCache(ctx context.Context, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	store, err := cache.Open(ctx, c.cfg.Cache.backend())
	if err != nil {
		c.Logger.Warn("cache unavailable, running without it", "backend", c.cfg.Cache.Backend, "error", err)
		return cache.NewNullCache()
	}
	c.Logger.Debug("cache opened", "backend", c.cfg.Cache.Backend)
	return store
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/chipforge/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the config directory using XDG standard (~/.config/chipforge/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
