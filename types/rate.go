package types

import (
	"fmt"
	"math/big"
)

// RateScale is the parts-per-million fixed-point scale used for decay
// rates, penalty multipliers and coverage ratios.
const RateScale int64 = 1_000_000

// RatePPM is a fractional rate in parts per million.
// PercentRate(5) = 50_000 ppm = 5%.
type RatePPM int64

// PercentRate creates a RatePPM from a whole percentage.
func PercentRate(pct int64) RatePPM { return RatePPM(pct * RateScale / 100) }

// BasisPoints creates a RatePPM from basis points (1 bp = 0.01%).
func BasisPoints(bp int64) RatePPM { return RatePPM(bp * RateScale / 10_000) }

// PPM returns the raw parts-per-million value.
func (r RatePPM) PPM() int64 { return int64(r) }

// IsZero returns true if the rate is zero.
func (r RatePPM) IsZero() bool { return r == 0 }

// String returns the rate as a percentage, e.g. "5.0000%".
func (r RatePPM) String() string {
	return fmt.Sprintf("%d.%04d%%", int64(r)/10_000, abs64(int64(r))%10_000)
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// mulDivFloor computes a*b/c with arbitrary-precision intermediates and
// floor rounding toward negative infinity for non-negative inputs.
// Panics if c is zero.
func mulDivFloor(a, b, c int64) int64 {
	if c == 0 {
		panic("types: division by zero")
	}
	var x, y, z big.Int
	x.SetInt64(a)
	y.SetInt64(b)
	z.SetInt64(c)
	x.Mul(&x, &y)
	x.Quo(&x, &z)
	return x.Int64()
}

// MulDivFloor exposes overflow-safe a*b/c for fixed-point callers.
func MulDivFloor(a, b, c int64) int64 { return mulDivFloor(a, b, c) }
