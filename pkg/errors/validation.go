package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidatePositiveInt rejects counts that are zero or negative.
func ValidatePositiveInt(name string, v int) error {
	if v <= 0 {
		return Parameter(name, "must be a positive integer, got %d", v)
	}
	return nil
}

// ValidateNonNegativeInt rejects negative counts. Zero is accepted because
// option structs use it to mean "use the default".
func ValidateNonNegativeInt(name string, v int) error {
	if v < 0 {
		return Parameter(name, "must not be negative, got %d", v)
	}
	return nil
}

// ValidatePositive rejects reals that are zero, negative, NaN or infinite.
func ValidatePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return Parameter(name, "must be a positive number, got %v", v)
	}
	return nil
}

// ValidateNonNegative rejects negative, NaN or infinite reals.
func ValidateNonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Parameter(name, "must not be negative, got %v", v)
	}
	return nil
}

// ValidateFraction checks that v lies in [0, 1]. Rates and probabilities use it.
func ValidateFraction(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return Parameter(name, "must be within [0, 1], got %v", v)
	}
	return nil
}

// ValidateOpenFraction checks that v lies in (0, 1). Cooling rates use it:
// a rate of 1 never cools and a rate of 0 freezes immediately.
func ValidateOpenFraction(name string, v float64) error {
	if math.IsNaN(v) || v <= 0 || v >= 1 {
		return Parameter(name, "must be within (0, 1), got %v", v)
	}
	return nil
}

// ValidateID validates an identifier for cells, pins, nets and blocks.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters
//   - Maximum length of 256 characters
func ValidateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return New(ErrCodeInvalidInput, "%s id cannot be empty", kind)
	}
	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "%s id too long (max 256 characters)", kind)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s id %q contains control characters", kind, id)
		}
	}
	return nil
}
