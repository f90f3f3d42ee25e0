// Package nodelink draws a netlist as a node-link diagram with Graphviz.
//
// Cells are boxes. Two-pin nets are plain edges; nets with more pins get a
// small junction node joined to every member, which is the usual way to draw
// a hypergraph in DOT. With a partition assignment, each part becomes a
// cluster; with placed cells and [Options.Positions], cells are pinned to
// their chip coordinates and laid out with neato.
//
//	dot := nodelink.ToDOT(p, nodelink.Options{Assignment: resp.Assignment})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [github.com/goccy/go-graphviz] renders SVG in-process; see the parent
// package for PDF and PNG.
package nodelink
