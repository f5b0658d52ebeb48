package ledger

import (
	"math/big"
	"time"

	"github.com/statusdothealth/autophage/types"
)

// factorScale is the fixed-point scale for decay factors. A factor of
// factorScale means no decay; 0 means total decay.
const factorScale int64 = 1_000_000_000_000

// VaultReduction returns the decay-rate reduction earned by a vault lock
// of the given length. Longer commitments earn steeper discounts; the
// reduction is a step function of the lock length, not interpolated.
func VaultReduction(lockDays int) types.RatePPM {
	switch {
	case lockDays >= 365:
		return types.PercentRate(90)
	case lockDays >= 180:
		return types.PercentRate(45)
	case lockDays >= 90:
		return types.PercentRate(27)
	case lockDays >= 30:
		return types.PercentRate(9)
	default:
		return 0
	}
}

// EffectiveRate combines the category base rate, the large-balance penalty
// multiplier and the vault-lock reduction into the daily rate actually
// applied. The result is clamped to at most 100% per day.
func EffectiveRate(base types.RatePPM, penalty types.RatePPM, reduction types.RatePPM) types.RatePPM {
	r := types.MulDivFloor(base.PPM(), penalty.PPM(), types.RateScale)
	r = types.MulDivFloor(r, types.RateScale-reduction.PPM(), types.RateScale)
	if r > types.RateScale {
		r = types.RateScale
	}
	if r < 0 {
		r = 0
	}
	return types.RatePPM(r)
}

// ElapsedDays returns the number of whole days between from and to.
// Partial days do not decay.
func ElapsedDays(from, to time.Time) int64 {
	if !to.After(from) {
		return 0
	}
	return int64(to.Sub(from) / (24 * time.Hour))
}

// decayFactor computes (1 - rate)^days at factorScale precision using
// exponentiation by squaring. Every intermediate product is floored back
// to factorScale, so the result never exceeds the true value and a
// positive rate always shrinks the balance.
func decayFactor(rate types.RatePPM, days int64) int64 {
	if days <= 0 {
		return factorScale
	}
	keep := types.RateScale - rate.PPM()
	if keep <= 0 {
		return 0
	}
	base := types.MulDivFloor(keep, factorScale, types.RateScale)

	result := factorScale
	var x, y, s big.Int
	s.SetInt64(factorScale)
	mul := func(a, b int64) int64 {
		x.SetInt64(a)
		y.SetInt64(b)
		x.Mul(&x, &y)
		x.Quo(&x, &s)
		return x.Int64()
	}
	for days > 0 {
		if days&1 == 1 {
			result = mul(result, base)
		}
		base = mul(base, base)
		days >>= 1
	}
	return result
}

// ApplyDecay computes the balance remaining after the given number of
// whole days at the given effective daily rate, and the amount decayed
// away. The remaining balance is floored, so the decayed portion absorbs
// any rounding dust.
func ApplyDecay(balance types.Amount, rate types.RatePPM, days int64) (remaining, decayed types.Amount) {
	if balance.IsZero() || days <= 0 || rate.IsZero() {
		return balance, 0
	}
	f := decayFactor(rate, days)
	remaining = types.Amount(types.MulDivFloor(balance.Micro(), f, factorScale))
	return remaining, balance.Sub(remaining)
}
