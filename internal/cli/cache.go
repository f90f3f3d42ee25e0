package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chipforge/pkg/cache"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clean the result cache",
		Long: `Inspect and clean the result cache.

Only the file backend is managed here. Redis and MongoDB expire entries on
their own after the configured ttl. Trained placement models share the
backend and never expire; clear removes them too.`,
	}
	cmd.AddCommand(c.cacheInfoCommand(), c.cachePruneCommand(), c.cacheClearCommand(), c.cachePathCommand())
	return cmd
}

// fileCacheDir is the configured file cache directory, or the default one
// when another backend is configured.
func (c *CLI) fileCacheDir() (string, error) {
	if c.cfg.Cache.Backend == cache.BackendFile && c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir, nil
	}
	return cacheDir()
}

// openFileCache opens the file cache directory. It returns nil without error
// when the directory does not exist yet.
func (c *CLI) openFileCache() (*cache.FileCache, error) {
	dir, err := c.fileCacheDir()
	if err != nil {
		return nil, fmt.Errorf("get cache dir: %w", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	return cache.NewFileCache(dir)
}

func (c *CLI) warnForeignBackend() {
	if b := c.cfg.Cache.Backend; b != cache.BackendFile && b != cache.BackendNone && b != "" {
		printWarning("The configured %s backend is not managed by this command", b)
	}
}

func (c *CLI) cacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the backend and the size of the file cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := c.cfg.Cache.Backend
			if backend == "" {
				backend = cache.BackendNone
			}
			printKeyValue("backend", backend)
			if ttl, err := c.cfg.Cache.ttl(); err == nil && ttl > 0 {
				printKeyValue("ttl", ttl.String())
			}
			fc, err := c.openFileCache()
			if err != nil {
				return err
			}
			if fc == nil {
				printInfo("Cache is empty")
				return nil
			}
			u, err := fc.Usage()
			if err != nil {
				return err
			}
			printKeyValue("directory", fc.Dir())
			printKeyValue("entries", fmt.Sprintf("%d (%d expired)", u.Entries, u.Expired))
			printKeyValue("size", formatBytes(u.Bytes))
			if u.Expired > 0 {
				printNextStep("Remove expired entries with", appName+" cache prune")
			}
			return nil
		},
	}
}

func (c *CLI) cachePruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired and unreadable entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.openFileCache()
			if err != nil || fc == nil {
				if fc == nil && err == nil {
					printInfo("Cache is empty")
				}
				return err
			}
			n, err := fc.Prune()
			if err != nil {
				return err
			}
			printSuccess("Pruned %d cached entries", n)
			c.warnForeignBackend()
			return nil
		},
	}
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.openFileCache()
			if err != nil || fc == nil {
				if fc == nil && err == nil {
					printInfo("Cache is empty")
				}
				return err
			}
			n, err := fc.Clear()
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached entries", n)
			printDetail("Directory: %s", fc.Dir())
			c.warnForeignBackend()
			return nil
		},
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.fileCacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(stdout, dir)
			return nil
		},
	}
}

// formatBytes prints n with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
