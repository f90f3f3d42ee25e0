package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/chipforge/internal/server"
	"github.com/matzehuels/chipforge/pkg/cache"
	"github.com/matzehuels/chipforge/pkg/observability"
)

// serveCommand exposes the engine over HTTP until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP",
		Long: `Serve the engine over HTTP.

POST an engine request to /v1/runs and fetch it again from /v1/runs/{id}.
GET /v1/algorithms lists the strategies and /v1/stats reports counters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("addr") {
				addr = c.cfg.Server.Addr
			}

			stats := observability.NewStats()
			observability.SetEngineHooks(stats)
			observability.SetCacheHooks(stats)
			observability.SetHTTPHooks(stats)
			defer observability.Reset()

			runner := c.newRunner(ctx, noCache)
			defer runner.Close()

			// Runs live next to cached results.
			runs := runner.Cache
			if _, ok := runs.(cache.NullCache); ok {
				runs = cache.NewMemoryCache()
			}

			printInfo("Listening on %s", StyleHighlight.Render("http://"+addr))
			printDetail("Press Ctrl+C to stop")
			return server.New(runner, runs, stats, c.Logger).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not cache results")
	return cmd
}
