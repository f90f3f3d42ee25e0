// Package render turns problems and engine results into images.
//
// The [nodelink] subpackage draws the netlist as a Graphviz diagram. This
// package converts the resulting SVG to other formats with the external
// rsvg-convert tool:
//
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0) // 2x scale
package render
