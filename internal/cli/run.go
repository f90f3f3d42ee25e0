package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/chipforge/pkg/engine"
	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
	"github.com/matzehuels/chipforge/pkg/netlist"
)

// runOpts holds the command-line flags shared by run and the category
// shortcuts.
type runOpts struct {
	category    string
	algorithm   string
	params      []string
	seed        uint64
	timeout     time.Duration
	output      string
	interactive bool
	noCache     bool
	strict      bool
}

// runCommand runs any strategy on a problem file.
func (c *CLI) runCommand() *cobra.Command {
	var opts runOpts
	cmd := &cobra.Command{
		Use:   "run <problem>",
		Short: "Run a strategy on a problem file",
		Long: `Run one placement, routing, partitioning or floorplanning strategy on a problem
file (JSON with comments, or YAML) and print its quality metrics.

Parameters are passed by their JSON name, e.g. --param iterations=5000.`,
		Example: `  chipforge run design.json -c placement -a quadratic
  chipforge run design.yaml -c routing -a negotiated -p grid_size=2 -o routed.json
  chipforge run design.json -i`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args[0], &opts)
		},
	}
	c.addRunFlags(cmd, &opts)
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "strategy category: placement, routing, partitioning, floorplanning")
	_ = cmd.RegisterFlagCompletionFunc("category", completeCategories)
	return cmd
}

// shortcutCommand is run with the category fixed, e.g. "chipforge place".
func (c *CLI) shortcutCommand(cat engine.Category) *cobra.Command {
	opts := runOpts{category: string(cat)}
	verb := shortcutVerb(cat)
	cmd := &cobra.Command{
		Use:   verb + " <problem>",
		Short: fmt.Sprintf("Run a %s strategy", cat),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args[0], &opts)
		},
	}
	c.addRunFlags(cmd, &opts)
	return cmd
}

func shortcutVerb(cat engine.Category) string {
	switch cat {
	case engine.Placement:
		return "place"
	case engine.Routing:
		return "route"
	case engine.Partitioning:
		return "partition"
	}
	return "floorplan"
}

func (c *CLI) addRunFlags(cmd *cobra.Command, opts *runOpts) {
	cmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", "", "strategy name (see chipforge algorithms)")
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "strategy parameter as name=value (repeatable)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed (default from config, then 42)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "stop the run after this long and keep the best result")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the full response as JSON")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick the strategy from a list")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "always compute, never read or write the result cache")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit with an error when the run is unsuccessful")
	_ = cmd.RegisterFlagCompletionFunc("algorithm", completeAlgorithms(opts))
}

func completeAlgorithms(opts *runOpts) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, a := range engine.Algorithms() {
			if opts.category == "" || string(a.Category) == opts.category {
				out = append(out, a.Name)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

// buildParams layers config defaults, then flags.
func (c *CLI) buildParams(cmd *cobra.Command, opts *runOpts) (engine.Params, error) {
	params := engine.Params{Seed: c.cfg.Engine.Seed, TimeoutMS: c.cfg.Engine.TimeoutMS}
	for _, kv := range opts.params {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return params, errs.New(errs.ErrCodeInvalidParameter, "parameter %q must be name=value", kv)
		}
		if err := params.Set(name, value); err != nil {
			return params, err
		}
	}
	if cmd.Flags().Changed("seed") {
		params.Seed = opts.seed
	}
	if cmd.Flags().Changed("timeout") {
		params.TimeoutMS = int(opts.timeout.Milliseconds())
	}
	return params, nil
}

// resolveAlgorithm returns the requested strategy, asking interactively when
// --interactive is set or no strategy was named.
func resolveAlgorithm(opts *runOpts) (engine.Algorithm, error) {
	if opts.category != "" && opts.algorithm != "" && !opts.interactive {
		return engine.ParseAlgorithm(opts.category, opts.algorithm)
	}
	if !opts.interactive {
		if opts.category == "" {
			return engine.Algorithm{}, errs.New(errs.ErrCodeInvalidCategory, "no category given (use --category or --interactive)")
		}
		return engine.Algorithm{}, errs.New(errs.ErrCodeUnsupportedAlgorithm, "no %s algorithm given (use --algorithm or --interactive)", opts.category)
	}

	algos := engine.Algorithms()
	if opts.category != "" {
		cat, err := engine.ParseCategory(opts.category)
		if err != nil {
			return engine.Algorithm{}, err
		}
		algos = engine.AlgorithmsFor(cat)
	}
	picked, err := pickAlgorithm(algos)
	if err != nil {
		return engine.Algorithm{}, err
	}
	if picked == nil {
		return engine.Algorithm{}, context.Canceled
	}
	return *picked, nil
}

func (c *CLI) run(cmd *cobra.Command, input string, opts *runOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	algo, err := resolveAlgorithm(opts)
	if err != nil {
		return err
	}
	params, err := c.buildParams(cmd, opts)
	if err != nil {
		return err
	}
	p, err := netlist.ReadFile(input)
	if err != nil {
		return err
	}
	logger.Debug("problem loaded", "file", input, "cells", len(p.Cells), "nets", len(p.Nets))

	runner := c.newRunner(ctx, opts.noCache)
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Running %s on %d cells...", algo, len(p.Cells)))
	spinner.Start()
	resp, cached, err := runner.Run(ctx, engine.NewRequest(algo, p, params))
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("%s failed", algo))
		return err
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	printReport(algo, p, resp, cached)

	if opts.output != "" {
		if err := netlist.WriteResponseFile(opts.output, resp); err != nil {
			return err
		}
		printFile(opts.output)
		if algo.Category == engine.Placement || algo.Category == engine.Floorplanning || algo.Category == engine.Partitioning {
			printNextStep("Render it with", fmt.Sprintf("%s netlist render %s --result %s -o layout.svg", appName, input, opts.output))
		}
	}
	if opts.strict && !resp.Success {
		return fmt.Errorf("%s did not produce a successful result", algo)
	}
	return nil
}

// printReport summarizes a response.
func printReport(algo engine.Algorithm, p *model.Problem, resp *engine.Response, cached bool) {
	switch {
	case resp.Success:
		printSuccess("%s finished in %s", StyleHighlight.Render(algo.String()), formatRuntime(resp.RuntimeMS))
	case resp.Interrupted:
		printWarning("%s stopped early after %s", algo, formatRuntime(resp.RuntimeMS))
	default:
		printWarning("%s finished without a successful result", algo)
	}
	printStats(len(p.Cells), len(p.Nets), resp.Iterations, cached)
	printNewline()
	printMetrics(resp.Metrics)
	for _, d := range resp.Diagnostics {
		printDetail("%s", d)
	}
}

func formatRuntime(ms float64) string {
	return time.Duration(ms * float64(time.Millisecond)).Round(time.Millisecond).String()
}
