package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/chipforge/pkg/model"
	"github.com/matzehuels/chipforge/pkg/render"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds size, kind and position to cell labels.
	Detailed bool
	// Assignment groups cells into one cluster per part.
	Assignment model.Assignment
	// Positions pins placed cells to their coordinates, scaled so the chip
	// spans Scale inches. Unplaced cells float.
	Positions bool
	Scale     float64
}

var palette = []string{"#cfe8ff", "#ffe3c2", "#d6f5d6", "#f3d1f4", "#fff4b3", "#e0e0e0", "#ffd1d1", "#c9f1ee"}

// ToDOT converts a problem to an undirected Graphviz graph.
func ToDOT(p *model.Problem, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	if opts.Positions {
		buf.WriteString("  layout=neato;\n  overlap=true;\n  splines=true;\n")
	} else {
		buf.WriteString("  layout=dot;\n  rankdir=LR;\n")
	}
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n\n")

	scale := opts.Scale
	if scale <= 0 {
		scale = 10
	}
	unit := scale / max(p.ChipWidth, p.ChipHeight, 1)

	cell := func(c model.Cell, indent string) {
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(c, opts.Detailed))}
		if c.Kind == model.CellMacro {
			attrs = append(attrs, "penwidth=2")
		}
		if part, ok := opts.Assignment[c.ID]; ok {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", palette[part%len(palette)]))
		}
		if opts.Positions && c.Placed() {
			center := c.Center()
			// DOT's y axis points up, the chip's points down.
			attrs = append(attrs, fmt.Sprintf("pos=\"%.3f,%.3f!\"", center.X*unit, (p.ChipHeight-center.Y)*unit))
			attrs = append(attrs, fmt.Sprintf("width=%.3f", c.Width*unit), fmt.Sprintf("height=%.3f", c.Height*unit), "fixedsize=true")
		}
		fmt.Fprintf(&buf, "%s%q [%s];\n", indent, c.ID, strings.Join(attrs, ", "))
	}

	if len(opts.Assignment) > 0 {
		groups := map[int][]model.Cell{}
		var free []model.Cell
		for _, c := range p.Cells {
			if part, ok := opts.Assignment[c.ID]; ok {
				groups[part] = append(groups[part], c)
			} else {
				free = append(free, c)
			}
		}
		for _, part := range slices.Sorted(maps.Keys(groups)) {
			fmt.Fprintf(&buf, "  subgraph cluster_%d {\n    label=\"part %d\";\n    style=dashed;\n", part, part)
			for _, c := range groups[part] {
				cell(c, "    ")
			}
			buf.WriteString("  }\n")
		}
		for _, c := range free {
			cell(c, "  ")
		}
	} else {
		for _, c := range p.Cells {
			cell(c, "  ")
		}
	}

	buf.WriteString("\n")
	ix := model.NewIndex(p.Cells, p.Nets)
	for n, net := range p.Nets {
		members := ix.NetCells[n]
		style := ""
		if w := net.EffectiveWeight(); w != 1 {
			style = fmt.Sprintf(" [penwidth=%.2f]", min(1+w/2, 6))
		}
		switch {
		case len(members) < 2:
			continue
		case len(members) == 2:
			fmt.Fprintf(&buf, "  %q -- %q%s;\n", p.Cells[members[0]].ID, p.Cells[members[1]].ID, style)
		default:
			junction := "net:" + net.ID
			fmt.Fprintf(&buf, "  %q [shape=point, width=0.08, label=\"\"];\n", junction)
			for _, m := range members {
				fmt.Fprintf(&buf, "  %q -- %q%s;\n", junction, p.Cells[m].ID, style)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(c model.Cell, detailed bool) string {
	label := c.ID
	if c.Name != "" {
		label = c.Name
	}
	if !detailed {
		return label
	}
	parts := []string{fmt.Sprintf("%gx%g", c.Width, c.Height)}
	if c.Kind != "" {
		parts = append(parts, string(c.Kind))
	}
	if c.Placed() {
		parts = append(parts, fmt.Sprintf("@(%g, %g)", c.Position.X, c.Position.Y))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one that
// scales cleanly when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}

// RenderPDF renders DOT source as PDF via SVG.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders DOT source as PNG via SVG.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
