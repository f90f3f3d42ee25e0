package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
	"github.com/matzehuels/chipforge/pkg/netlist"
	"github.com/matzehuels/chipforge/pkg/render/nodelink"
)

// Render output formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"
)

// validFormats is the set of supported render formats.
var validFormats = map[string]bool{formatDOT: true, formatSVG: true, formatPDF: true, formatPNG: true}

// netlistCommand groups the problem-file tools.
func (c *CLI) netlistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "netlist",
		Short: "Render, generate and check problem files",
	}
	cmd.AddCommand(c.netlistRenderCommand())
	cmd.AddCommand(c.netlistGenerateCommand())
	cmd.AddCommand(c.netlistCheckCommand())
	return cmd
}

// renderOpts holds the command-line flags for netlist render.
type renderOpts struct {
	output    string  // output file path; the extension selects the format
	format    string  // dot, svg, pdf or png
	result    string  // response file whose positions and partitions are drawn
	positions bool    // pin cells to their coordinates
	detailed  bool    // add size, kind and position to labels
	scale     float64 // PNG scale factor
}

func (c *CLI) netlistRenderCommand() *cobra.Command {
	var opts renderOpts
	cmd := &cobra.Command{
		Use:   "render <problem>",
		Short: "Draw cells and nets with Graphviz",
		Example: `  chipforge netlist render design.json -o design.svg
  chipforge netlist render design.json --result placed.json -o placed.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format == "" {
				opts.format = formatFromPath(opts.output)
			}
			if !validFormats[opts.format] {
				return fmt.Errorf("invalid format: %s (must be 'dot', 'svg', 'pdf', or 'png')", opts.format)
			}
			if opts.output == "" {
				opts.output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "." + opts.format
			}
			return runRender(cmd.Context(), args[0], &opts, cmd.Flags().Changed("positions"))
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: input name with the format's extension)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: svg (default), dot, pdf, png")
	cmd.Flags().StringVarP(&opts.result, "result", "r", "", "response file to overlay (positions, partitions, blocks)")
	cmd.Flags().BoolVar(&opts.positions, "positions", false, "draw cells at their coordinates (default when the result places cells)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show size, kind and position in labels")
	cmd.Flags().Float64Var(&opts.scale, "scale", 2, "PNG scale factor")
	return cmd
}

// formatFromPath returns the render format named by a path's extension, or
// svg.
func formatFromPath(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if validFormats[ext] {
		return ext
	}
	return formatSVG
}

func runRender(ctx context.Context, input string, opts *renderOpts, positionsSet bool) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	p, err := netlist.ReadFile(input)
	if err != nil {
		return err
	}
	dopts := nodelink.Options{Detailed: opts.detailed, Positions: opts.positions}
	if opts.result != "" {
		resp, err := netlist.ReadResponseFile(opts.result)
		if err != nil {
			return err
		}
		p = netlist.Apply(p, resp)
		dopts.Assignment = resp.Assignment
		if !positionsSet {
			dopts.Positions = len(resp.Cells) > 0 || len(resp.Blocks) > 0
		}
		logger.Debug("result applied", "file", opts.result, "category", resp.Category, "algorithm", resp.Algorithm)
	}

	data, err := renderProblem(ctx, p, dopts, opts.format, opts.scale)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return err
	}
	prog.done("rendered", "cells", len(p.Cells), "nets", len(p.Nets), "format", opts.format)
	printFile(opts.output)
	return nil
}

func renderProblem(ctx context.Context, p *model.Problem, opts nodelink.Options, format string, scale float64) ([]byte, error) {
	dot := nodelink.ToDOT(p, opts)
	switch format {
	case formatDOT:
		return []byte(dot), nil
	case formatPDF:
		return nodelink.RenderPDF(ctx, dot)
	case formatPNG:
		return nodelink.RenderPNG(ctx, dot, scale)
	}
	return nodelink.RenderSVG(ctx, dot)
}

func (c *CLI) netlistGenerateCommand() *cobra.Command {
	var (
		gen    netlist.GenerateOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a random problem for experiments",
		Example: `  chipforge netlist generate --cells 200 --macros 4 -o bench.json
  chipforge netlist generate --cells 50 --pins -o small.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := netlist.Generate(gen)
			if err != nil {
				return err
			}
			if output == "" {
				return netlist.Write(stdout, p, netlist.JSON)
			}
			if err := netlist.WriteFile(output, p); err != nil {
				return err
			}
			printSuccess("Generated %d cells and %d nets on a %gx%g chip", len(p.Cells), len(p.Nets), p.ChipWidth, p.ChipHeight)
			printFile(output)
			printNextStep("Place it with", fmt.Sprintf("%s place %s -a quadratic", appName, output))
			return nil
		},
	}
	cmd.Flags().IntVar(&gen.Cells, "cells", 100, "number of cells")
	cmd.Flags().IntVar(&gen.Nets, "nets", 0, "number of nets (default: one per cell)")
	cmd.Flags().IntVar(&gen.MaxFanout, "max-fanout", 0, "largest net size (default 4)")
	cmd.Flags().IntVar(&gen.Macros, "macros", 0, "number of macro cells")
	cmd.Flags().Float64Var(&gen.Utilization, "utilization", 0, "cell area over chip area (default 0.5)")
	cmd.Flags().BoolVar(&gen.Pins, "pins", false, "connect nets to pins instead of cells")
	cmd.Flags().Uint64Var(&gen.Seed, "seed", 1, "random seed")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .json or .yaml (default: stdout)")
	return cmd
}

func (c *CLI) netlistCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <problem>",
		Short: "Validate a problem file and print its statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := netlist.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				printError("%s", errs.UserMessage(err))
				return err
			}
			printSuccess("%s is valid", args[0])
			printNewline()
			for _, kv := range problemSummary(p) {
				printKeyValue(kv[0], kv[1])
			}
			return nil
		},
	}
}

// problemSummary lists label/value pairs describing p.
func problemSummary(p *model.Problem) [][2]string {
	var macros, pins, placed int
	for _, c := range p.Cells {
		if c.IsMacro() {
			macros++
		}
		if c.Placed() {
			placed++
		}
		pins += len(c.Pins)
	}
	chip := p.ChipWidth * p.ChipHeight
	return [][2]string{
		{"Chip", fmt.Sprintf("%g x %g", p.ChipWidth, p.ChipHeight)},
		{"Cells", fmt.Sprintf("%d (%d macros, %d placed)", len(p.Cells), macros, placed)},
		{"Pins", fmt.Sprintf("%d", pins)},
		{"Nets", fmt.Sprintf("%d", len(p.Nets))},
		{"Obstacles", fmt.Sprintf("%d", len(p.Obstacles))},
		{"Regions", fmt.Sprintf("%d", len(p.Regions))},
		{"Utilization", fmt.Sprintf("%.1f%%", 100*p.TotalCellArea()/chip)},
	}
}
