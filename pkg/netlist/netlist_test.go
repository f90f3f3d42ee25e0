package netlist

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/chipforge/pkg/engine"
	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
)

const commented = `{
  // two connected cells
  "chip_width": 100, "chip_height": 100,
  "cells": [
    {"id": "a", "width": 10, "height": 10, "type": "macro"},
    {"id": "b", "width": 10, "height": 10, "pins": [{"id": "b.in", "offset": {"x": 1, "y": 2}, "direction": "input"}]},
  ],
  "nets": [{"id": "n1", "pins": ["a", "b.in"], "weight": 2}],
}`

const yamlProblem = `
chip_width: 50
chip_height: 40
cells:
  - id: a
    width: 5
    height: 5
    position: {x: 1, y: 2}
  - id: b
    width: 5
    height: 5
nets:
  - id: n
    pins: [a, b]
regions:
  a: {x: 0, y: 0, width: 20, height: 20}
`

func TestReadCommentedJSON(t *testing.T) {
	p, err := Read(strings.NewReader(commented), JSON)
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.Len(t, p.Cells, 2)
	assert.Equal(t, model.CellMacro, p.Cells[0].Kind)
	assert.Equal(t, model.PinInput, p.Cells[1].Pins[0].Direction)
	assert.Equal(t, 2.0, p.Nets[0].Weight)
}

func TestReadYAML(t *testing.T) {
	p, err := Read(strings.NewReader(yamlProblem), YAML)
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.Equal(t, 50.0, p.ChipWidth)
	require.NotNil(t, p.Cells[0].Position)
	assert.Equal(t, model.Point{X: 1, Y: 2}, *p.Cells[0].Position)
	assert.Nil(t, p.Cells[1].Position)
	assert.Equal(t, 20.0, p.Regions["a"].Width)
}

func TestReadRejectsMalformedInput(t *testing.T) {
	_, err := Read(strings.NewReader(`{"chip_width": "wide"}`), JSON)
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidFormat))

	_, err = Read(strings.NewReader(`{"chip_widht": 10}`), JSON)
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidFormat), "unknown fields are rejected")

	_, err = Read(strings.NewReader("cells: [unterminated"), YAML)
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidFormat))
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, YAML, FormatOf("a/b.yaml"))
	assert.Equal(t, YAML, FormatOf("B.YML"))
	assert.Equal(t, JSON, FormatOf("x.json"))
	assert.Equal(t, JSON, FormatOf("x.jsonc"))
}

func TestFileRoundTrip(t *testing.T) {
	p, err := Read(strings.NewReader(yamlProblem), YAML)
	require.NoError(t, err)
	dir := t.TempDir()
	for _, name := range []string{"p.json", "p.yaml"} {
		path := filepath.Join(dir, "nested", name)
		require.NoError(t, WriteFile(path, p))
		back, err := ReadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, p, back, name)
	}

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	assert.True(t, errs.Is(err, errs.ErrCodeFileNotFound))
}

func TestResponseFileAndApply(t *testing.T) {
	p, err := Read(strings.NewReader(yamlProblem), YAML)
	require.NoError(t, err)

	resp := &engine.Response{
		Success:  true,
		Category: engine.Floorplanning,
		Blocks:   []model.Block{{ID: "b", X: 7, Y: 3, Width: 5, Height: 5}},
		Metrics:  map[string]float64{"utilization": 0.5},
	}
	path := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, WriteResponseFile(path, resp))
	back, err := ReadResponseFile(path)
	require.NoError(t, err)
	assert.Equal(t, resp.Blocks, back.Blocks)

	applied := Apply(p, back)
	require.NotNil(t, applied.Cells[1].Position)
	assert.Equal(t, model.Point{X: 7, Y: 3}, *applied.Cells[1].Position)
	assert.Nil(t, p.Cells[1].Position, "input problem is not modified")
}

func TestWriteResponseIsIndented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, &engine.Response{Metrics: map[string]float64{"x": 1}}))
	assert.Contains(t, buf.String(), "\n  \"metrics\"")
}

func TestGenerate(t *testing.T) {
	opts := GenerateOptions{Cells: 30, Nets: 40, Macros: 2, Pins: true, Seed: 3}
	p, err := Generate(opts)
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.Len(t, p.Cells, 30)
	assert.Len(t, p.Nets, 40)
	assert.Equal(t, model.CellMacro, p.Cells[0].Kind)
	assert.Equal(t, model.CellStandard, p.Cells[29].Kind)
	for _, n := range p.Nets {
		assert.GreaterOrEqual(t, len(n.Pins), 2)
		assert.LessOrEqual(t, len(n.Pins), 4)
	}
	util := p.TotalCellArea() / (p.ChipWidth * p.ChipHeight)
	assert.InDelta(t, 0.5, util, 0.05)

	again, err := Generate(opts)
	require.NoError(t, err)
	assert.Equal(t, p, again)

	_, err = Generate(GenerateOptions{})
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidParameter))
	_, err = Generate(GenerateOptions{Cells: 3, Utilization: 1})
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidParameter))
}

func TestExampleProblemsAreValid(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "*"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			p, err := ReadFile(path)
			require.NoError(t, err)
			assert.NoError(t, p.Validate())
			assert.NotEmpty(t, p.Nets)
		})
	}
}
