package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorText(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		want     string
		wantUser string
	}{
		{
			"plain",
			New(ErrCodeInvalidCategory, "unknown category %q", "timing"),
			`INVALID_CATEGORY: unknown category "timing"`,
			`unknown category "timing"`,
		},
		{
			"parameter",
			Parameter("cooling_rate", "must be within (0, 1), got %v", 1.5),
			"INVALID_PARAMETER: cooling_rate must be within (0, 1), got 1.5",
			"cooling_rate must be within (0, 1), got 1.5",
		},
		{
			"wrapped",
			Wrap(ErrCodeFileNotFound, errors.New("no such file"), "read %s", "adder.json"),
			"FILE_NOT_FOUND: read adder.json: no such file",
			"read adder.json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.Equal(t, tt.wantUser, UserMessage(tt.err))
		})
	}
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeInternal, cause, "open cache")
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, fmt.Errorf("run: %w", err), cause)
}

func TestCodeLookup(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		code  Code
		field string
	}{
		{"direct", New(ErrCodeNotFound, "run"), ErrCodeNotFound, ""},
		{"parameter", Parameter("iterations", "bad"), ErrCodeInvalidParameter, "iterations"},
		{"fmt wrapped", fmt.Errorf("dispatch: %w", Parameter("seed", "bad")), ErrCodeInvalidParameter, "seed"},
		// The outermost coded error wins.
		{"coded wrapped", Wrap(ErrCodeTimeout, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeTimeout, ""},
		{"plain", errors.New("plain"), "", ""},
		{"nil", nil, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, GetCode(tt.err))
			assert.Equal(t, tt.field, FieldOf(tt.err))
			if tt.code != "" {
				assert.True(t, Is(tt.err, tt.code))
			}
			assert.False(t, Is(tt.err, ErrCodeUnsupported))
		})
	}
}

func TestKinds(t *testing.T) {
	tests := []struct {
		code Code
		kind Kind
	}{
		{ErrCodeInvalidInput, KindConfiguration},
		{ErrCodeInvalidParameter, KindConfiguration},
		{ErrCodeInvalidCategory, KindConfiguration},
		{ErrCodeInvalidFormat, KindConfiguration},
		{ErrCodeUnsupportedAlgorithm, KindUnsupported},
		{ErrCodeUnsupported, KindUnsupported},
		{ErrCodeNotFound, KindNotFound},
		{ErrCodeFileNotFound, KindNotFound},
		{ErrCodeTimeout, KindTimeout},
		{ErrCodeInternal, KindInternal},
		{"SOMETHING_ELSE", KindUnknown},
		{"", KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.code.Kind(), "code %q", tt.code)
	}
}

func TestIsConfiguration(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unsupported algorithm", New(ErrCodeUnsupportedAlgorithm, "nope"), true},
		{"invalid parameter", Parameter("damping", "bad"), true},
		{"wrapped invalid input", Wrap(ErrCodeInvalidInput, errors.New("x"), "cells"), true},
		{"missing file", New(ErrCodeFileNotFound, "gone"), false},
		{"internal", New(ErrCodeInternal, "broken"), false},
		{"plain", errors.New("plain"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConfiguration(tt.err))
		})
	}
}
