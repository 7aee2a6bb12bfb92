// Package validation checks requested spindle speeds before a batch starts.
// Validation runs once per batch; all files share one validated target.
package validation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidSpeed indicates a speed that can never be valid regardless
	// of configured bounds: zero, negative, non-finite, or unparseable.
	ErrInvalidSpeed = errors.New("invalid spindle speed")
	// ErrOutOfRange indicates a speed outside the configured RPM range.
	ErrOutOfRange = errors.New("spindle speed out of range")
)

// CheckSpeed accepts rpm if it lies within the inclusive [min, max] range.
// Zero and negative speeds are rejected unconditionally.
func CheckSpeed(rpm, min, max int) error {
	if rpm <= 0 {
		return fmt.Errorf("%w: %d RPM", ErrInvalidSpeed, rpm)
	}
	if rpm < min || rpm > max {
		return fmt.Errorf("%w: %d RPM is outside %d-%d RPM", ErrOutOfRange, rpm, min, max)
	}
	return nil
}

// ParseSpeed parses operator input into an integer RPM value. Integral
// decimal forms ("12000.0") are tolerated; non-finite, fractional, signed,
// and non-numeric input is rejected.
func ParseSpeed(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSpeed, input)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSpeed, input)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSpeed, input)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %q is not a whole RPM value", ErrInvalidSpeed, input)
	}

	return int(v), nil
}
