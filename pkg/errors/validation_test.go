package errors

import (
	"math"
	"testing"
)

func TestValidateNumbers(t *testing.T) {
	tests := []struct {
		name    string
		check   func() error
		wantErr bool
	}{
		{"positive int ok", func() error { return ValidatePositiveInt("iterations", 10) }, false},
		{"positive int zero", func() error { return ValidatePositiveInt("iterations", 0) }, true},
		{"positive int negative", func() error { return ValidatePositiveInt("iterations", -3) }, true},
		{"non-negative int zero", func() error { return ValidateNonNegativeInt("population", 0) }, false},
		{"non-negative int negative", func() error { return ValidateNonNegativeInt("population", -1) }, true},
		{"positive real ok", func() error { return ValidatePositive("temperature", 0.5) }, false},
		{"positive real zero", func() error { return ValidatePositive("temperature", 0) }, true},
		{"positive real NaN", func() error { return ValidatePositive("temperature", math.NaN()) }, true},
		{"positive real Inf", func() error { return ValidatePositive("temperature", math.Inf(1)) }, true},
		{"non-negative real zero", func() error { return ValidateNonNegative("damping", 0) }, false},
		{"non-negative real negative", func() error { return ValidateNonNegative("damping", -0.1) }, true},
		{"fraction ok", func() error { return ValidateFraction("mutation_rate", 1) }, false},
		{"fraction too big", func() error { return ValidateFraction("mutation_rate", 1.5) }, true},
		{"open fraction ok", func() error { return ValidateOpenFraction("cooling_rate", 0.95) }, false},
		{"open fraction one", func() error { return ValidateOpenFraction("cooling_rate", 1) }, true},
		{"open fraction zero", func() error { return ValidateOpenFraction("cooling_rate", 0) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidParameter) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidParameter)
			}
			if err != nil && FieldOf(err) == "" {
				t.Errorf("error %v names no field", err)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "c1", false},
		{"hierarchical", "top/alu/u12", false},
		{"pin style", "c1.A", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", string(make([]byte, 300)), true},
		{"control char", "c\x01", true},
		{"newline", "c\n1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID("cell", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}
