package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/chipforge/pkg/model"
)

func sample() *model.Problem {
	return &model.Problem{
		ChipWidth: 100, ChipHeight: 100,
		Cells: []model.Cell{
			{ID: "a", Width: 10, Height: 10, Position: &model.Point{X: 0, Y: 0}},
			{ID: "b", Width: 10, Height: 10, Kind: model.CellMacro},
			{ID: "c", Width: 10, Height: 10},
		},
		Nets: []model.Net{
			{ID: "ab", Pins: []string{"a", "b"}},
			{ID: "abc", Pins: []string{"a", "b", "c"}, Weight: 3},
			{ID: "solo", Pins: []string{"c"}},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sample(), Options{})
	for _, want := range []string{
		"graph G {",
		`"a" -- "b";`,
		`"net:abc" [shape=point`,
		`"net:abc" -- "c" [penwidth=2.50];`,
		`penwidth=2`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "net:solo") {
		t.Error("single-cell net should not be drawn")
	}
}

func TestToDOTClusters(t *testing.T) {
	dot := ToDOT(sample(), Options{Assignment: model.Assignment{"a": 0, "b": 1, "c": 1}})
	if strings.Count(dot, "subgraph cluster_") != 2 {
		t.Errorf("expected two clusters:\n%s", dot)
	}
	if !strings.Contains(dot, `fillcolor="#ffe3c2"`) {
		t.Error("part 1 color missing")
	}
}

func TestToDOTPositions(t *testing.T) {
	dot := ToDOT(sample(), Options{Positions: true, Scale: 10, Detailed: true})
	if !strings.Contains(dot, "layout=neato") {
		t.Error("positions need neato")
	}
	// Cell a is centered at (5, 5); flipped y gives 95 -> 9.5 inches.
	if !strings.Contains(dot, `pos="0.500,9.500!"`) {
		t.Errorf("pinned position missing:\n%s", dot)
	}
	if !strings.Contains(dot, `@(0, 0)`) {
		t.Error("detailed label missing position")
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(sample(), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(svg)), "<") || !strings.Contains(string(svg), "<svg") {
		t.Errorf("not an svg document: %.80s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 10.00 20.00" width="10" height="20"`) {
		t.Errorf("unexpected header: %s", out)
	}
	if string(normalizeViewBox([]byte("<svg/>"))) != "<svg/>" {
		t.Error("svg without viewBox must pass through")
	}
}
