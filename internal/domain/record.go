package domain

import (
	"fmt"
	"math"
)

// Record is one overlap pair with its relative pose offset.
type Record struct {
	IDA, IDB   string
	DirA, DirB string
	Overlap    float64
	Yaw        float64
	Pitch      float64
	Roll       float64
	TX, TY, TZ float64
}

// FormatID renders a numeric identifier the way range-image files are named:
// zero-padded to six decimal digits, truncated toward zero.
func FormatID(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%w: %v", ErrInvalidID, v)
	}
	if v >= math.MaxInt64 || v <= math.MinInt64 {
		return "", fmt.Errorf("%w: %v out of range", ErrInvalidID, v)
	}
	return fmt.Sprintf("%06d", int64(v)), nil
}

// FormatIntID is FormatID for identifiers stored as integers.
func FormatIntID(v int64) string { return fmt.Sprintf("%06d", v) }
