// Package ledger implements the decay ledger: per-account, per-category
// balances whose values shrink exponentially over time. Decay is lazy — it
// is realized only when an operation touches a record, never by a
// background process.
package ledger

import (
	"time"

	"github.com/statusdothealth/autophage/types"
)

// Category is one of the fixed balance classes, each with its own decay
// rate.
type Category uint8

// The protocol's balance categories.
const (
	CategoryRhythm     Category = iota // high-velocity daily activity tokens
	CategoryHealing                    // recovery and treatment tokens
	CategoryFoundation                 // long-horizon baseline tokens
	CategoryCatalyst                   // demand-signal tokens

	categoryCount
)

// NumCategories is the number of fixed balance categories.
const NumCategories = int(categoryCount)

// Valid reports whether the category is within range.
func (c Category) Valid() bool { return c < categoryCount }

// String implements fmt.Stringer.
func (c Category) String() string {
	switch c {
	case CategoryRhythm:
		return "rhythm"
	case CategoryHealing:
		return "healing"
	case CategoryFoundation:
		return "foundation"
	case CategoryCatalyst:
		return "catalyst"
	default:
		return "invalid"
	}
}

// Categories returns all valid categories in order.
func Categories() []Category {
	return []Category{CategoryRhythm, CategoryHealing, CategoryFoundation, CategoryCatalyst}
}

// AccountBalance is one (account, category) balance record.
//
// Amount is never negative. Between touches the stored value only shrinks:
// the decayed-to-now value is computed on read and realized on write.
type AccountBalance struct {
	types.Entity
	Account    string       `json:"account"`
	Category   Category     `json:"category"`
	Amount     types.Amount `json:"amount"`
	LastUpdate time.Time    `json:"last_update"`

	// LockedUntil is the vault lock expiry; zero when unlocked. LockDays
	// is the original lock length, which fixes the decay reduction for
	// the lock's whole life.
	LockedUntil time.Time `json:"locked_until,omitempty"`
	LockDays    int       `json:"lock_days,omitempty"`
}

// Locked reports whether an active vault lock covers the given instant.
func (b *AccountBalance) Locked(now time.Time) bool {
	return !b.LockedUntil.IsZero() && b.LockedUntil.After(now)
}

// PenaltyTier is one large-balance penalty step: balances at or above
// Threshold decay at the base rate times Multiplier.
type PenaltyTier struct {
	Threshold  types.Amount  `json:"threshold"`
	Multiplier types.RatePPM `json:"multiplier"` // 1_500_000 = 1.5x
}

// CategoryConfig holds the per-category decay parameters and aggregate
// issuance counter.
type CategoryConfig struct {
	types.Entity
	Category    Category      `json:"category"`
	DecayRate   types.RatePPM `json:"decay_rate"` // daily fraction
	Tiers       []PenaltyTier `json:"tiers,omitempty"`
	TotalIssued types.Amount  `json:"total_issued"`
}

// PenaltyMultiplier returns the multiplier of the highest tier whose
// threshold the balance meets. Tiers are checked from highest to lowest
// and the first match wins — multipliers are not cumulative. With no
// matching tier the multiplier is 1x.
func (c *CategoryConfig) PenaltyMultiplier(balance types.Amount) types.RatePPM {
	for i := len(c.Tiers) - 1; i >= 0; i-- {
		if !balance.LessThan(c.Tiers[i].Threshold) {
			return c.Tiers[i].Multiplier
		}
	}
	return types.RatePPM(types.RateScale)
}

// DecayResult is the outcome of one (account, category) pair in a bulk
// decay collection pass.
type DecayResult struct {
	Account   string       `json:"account"`
	Category  Category     `json:"category"`
	Collected types.Amount `json:"collected"`
}

// DefaultCategoryConfigs returns the seed configuration: base daily decay
// rates per category and the standard large-balance penalty tiers.
func DefaultCategoryConfigs() []*CategoryConfig {
	tiers := []PenaltyTier{
		{Threshold: types.Tokens(10_000), Multiplier: types.RatePPM(1_250_000)},
		{Threshold: types.Tokens(50_000), Multiplier: types.RatePPM(1_500_000)},
		{Threshold: types.Tokens(100_000), Multiplier: types.RatePPM(2_000_000)},
	}
	return []*CategoryConfig{
		{Category: CategoryRhythm, DecayRate: types.PercentRate(5), Tiers: tiers},
		{Category: CategoryHealing, DecayRate: types.BasisPoints(75), Tiers: tiers},
		{Category: CategoryFoundation, DecayRate: types.BasisPoints(10), Tiers: tiers},
		{Category: CategoryCatalyst, DecayRate: types.PercentRate(3), Tiers: tiers},
	}
}
