package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"runtime"
	"slices"

	"github.com/markkurossi/tabulate"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chipforge/pkg/engine"
	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/netlist"
)

// benchCommand runs every strategy of a category on the same problem.
func (c *CLI) benchCommand() *cobra.Command {
	var (
		opts     runOpts
		parallel int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "bench <problem>",
		Short: "Compare every strategy of a category on one problem",
		Example: `  chipforge bench design.json -c placement -p iterations=2000
  chipforge bench design.json -c partitioning --json > partitions.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, err := engine.ParseCategory(opts.category)
			if err != nil {
				return err
			}
			params, err := c.buildParams(cmd, &opts)
			if err != nil {
				return err
			}
			p, err := netlist.ReadFile(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("parallel") {
				parallel = c.cfg.Engine.Parallel
			}
			if parallel == 0 {
				parallel = runtime.NumCPU()
			}

			runner := c.newRunner(ctx, opts.noCache)
			defer runner.Close()

			base := engine.NewRequest(engine.Algorithm{Category: cat}, p, params)
			spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Running %d %s strategies...", len(engine.AlgorithmsFor(cat)), cat))
			spinner.Start()
			outcomes, err := runner.Compare(ctx, base, parallel)
			spinner.Stop()
			if err != nil {
				return err
			}

			if asJSON {
				return writeOutcomesJSON(stdout, outcomes)
			}
			benchTable(outcomes).Print(stdout)
			for _, o := range outcomes {
				if o.Err != nil {
					printError("%s: %s", o.Algorithm.Name, errs.UserMessage(o.Err))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "strategy category to compare")
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "strategy parameter as name=value (repeatable)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed (default from config, then 42)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "time limit per strategy")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "always compute, never read or write the result cache")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "strategies run at once (default from config, then one per CPU)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print outcomes as JSON")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.RegisterFlagCompletionFunc("category", completeCategories)
	return cmd
}

// benchTable lays out one row per strategy with the union of all metric
// columns in name order.
func benchTable(outcomes []engine.Outcome) *tabulate.Tabulate {
	keys := map[string]bool{}
	for _, o := range outcomes {
		if o.Response != nil {
			for k := range o.Response.Metrics {
				keys[k] = true
			}
		}
	}
	metrics := slices.Sorted(maps.Keys(keys))

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Algorithm").SetAlign(tabulate.ML)
	tab.Header("OK").SetAlign(tabulate.ML)
	tab.Header("Runtime").SetAlign(tabulate.MR)
	for _, m := range metrics {
		tab.Header(m).SetAlign(tabulate.MR)
	}

	for _, o := range outcomes {
		row := tab.Row()
		row.Column(o.Algorithm.Name)
		if o.Response == nil {
			row.Column(iconError)
			row.Column("-")
			for range metrics {
				row.Column("-")
			}
			continue
		}
		ok := iconSuccess
		if !o.Response.Success {
			ok = iconWarning
		}
		if o.Cached {
			ok += " " + iconCached
		}
		row.Column(ok)
		row.Column(formatRuntime(o.Response.RuntimeMS))
		for _, m := range metrics {
			v, has := o.Response.Metrics[m]
			if !has {
				row.Column("-")
				continue
			}
			row.Column(formatMetric(v))
		}
	}
	return tab
}

type outcomeJSON struct {
	Algorithm string           `json:"algorithm"`
	Cached    bool             `json:"cached"`
	Error     string           `json:"error,omitempty"`
	Response  *engine.Response `json:"response,omitempty"`
}

func writeOutcomesJSON(w io.Writer, outcomes []engine.Outcome) error {
	out := make([]outcomeJSON, len(outcomes))
	for i, o := range outcomes {
		out[i] = outcomeJSON{Algorithm: o.Algorithm.String(), Cached: o.Cached, Response: o.Response}
		if o.Err != nil {
			out[i].Error = errs.UserMessage(o.Err)
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
