// Package netlist reads and writes problem instances and engine responses.
//
// Problems are stored as JSON or YAML; the format follows the file
// extension. JSON input may contain comments and trailing commas:
//
//	{
//	  // 100x100 chip with two connected cells
//	  "chip_width": 100, "chip_height": 100,
//	  "cells": [{"id": "a", "width": 10, "height": 10},
//	            {"id": "b", "width": 10, "height": 10},],
//	  "nets": [{"id": "n1", "pins": ["a", "b"]}]
//	}
//
// Responses are always written as indented JSON.
package netlist

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/chipforge/pkg/engine"
	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
)

// Format is a problem file encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatOf returns the format implied by a file extension. Anything that is
// not .yaml or .yml is read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// Read decodes a problem. It does not validate it; engines do.
func Read(r io.Reader, f Format) (*model.Problem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var p model.Problem
	switch f {
	case YAML:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode yaml problem")
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode json problem")
		}
	}
	return &p, nil
}

// ReadFile reads a problem file in the format given by its extension.
func ReadFile(path string) (*model.Problem, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "problem file %s", path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Read(f, FormatOf(path))
	if err != nil {
		return nil, errs.Wrap(errs.GetCode(err), err, "read %s", path)
	}
	return p, nil
}

// Write encodes a problem.
func Write(w io.Writer, p *model.Problem, f Format) error {
	if f == YAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	}
	return writeJSON(w, p)
}

// WriteFile writes a problem in the format given by the extension.
func WriteFile(path string, p *model.Problem) error {
	return writeFile(path, func(w io.Writer) error { return Write(w, p, FormatOf(path)) })
}

// WriteResponse encodes a response as indented JSON.
func WriteResponse(w io.Writer, resp *engine.Response) error {
	return writeJSON(w, resp)
}

// WriteResponseFile writes a response file.
func WriteResponseFile(path string, resp *engine.Response) error {
	return writeFile(path, func(w io.Writer) error { return WriteResponse(w, resp) })
}

// ReadResponseFile reads a response written by WriteResponseFile.
func ReadResponseFile(path string) (*engine.Response, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "result file %s", path)
	}
	if err != nil {
		return nil, err
	}
	var resp engine.Response
	if err := json.Unmarshal(jsonc.ToJSON(data), &resp); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode result %s", path)
	}
	return &resp, nil
}

// Apply copies the outcome of a response onto a problem: placed positions
// for placement and floorplan block positions as cell positions (with
// rotated sizes). Other categories leave the problem unchanged.
func Apply(p *model.Problem, resp *engine.Response) *model.Problem {
	out := p.Clone()
	byID := make(map[string]int, len(out.Cells))
	for i, c := range out.Cells {
		byID[c.ID] = i
	}
	for _, c := range resp.Cells {
		if i, ok := byID[c.ID]; ok && c.Position != nil {
			pos := *c.Position
			out.Cells[i].Position = &pos
		}
	}
	for _, b := range resp.Blocks {
		if i, ok := byID[b.ID]; ok {
			out.Cells[i].Position = &model.Point{X: b.X, Y: b.Y}
			out.Cells[i].Width, out.Cells[i].Height = b.Width, b.Height
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
