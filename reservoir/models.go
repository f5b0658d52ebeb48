// Package reservoir implements the settlement reservoir: the claim
// priority queue, the two-part reserve, and the solvency rule that gates
// every payout.
package reservoir

import (
	"time"

	"github.com/statusdothealth/autophage/id"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/types"
)

// Urgency bounds for claims.
const (
	MinUrgency = 1
	MaxUrgency = 10
)

// Priority score weights. Urgency dominates, waiting time breaks in over
// days, and externally verified claims get a fixed bump.
const (
	urgencyWeight      = 70
	hoursWaitingWeight = 2
	verificationBonus  = 10
)

// Claim is one settlement request against the reserve.
type Claim struct {
	types.Entity
	ID               uint64       `json:"id"`
	Ref              id.ClaimRef  `json:"ref"`
	Claimant         string       `json:"claimant"`
	Amount           types.Amount `json:"amount"`
	Urgency          int          `json:"urgency"`
	ClaimType        string       `json:"claim_type,omitempty"`
	VerificationHash string       `json:"verification_hash,omitempty"`
	SubmittedAt      time.Time    `json:"submitted_at"`
	Processed        bool         `json:"processed"`
	ProcessedAt      time.Time    `json:"processed_at,omitempty"`
}

// PriorityScore returns the claim's settlement priority at the given
// instant. Higher settles first. Waiting time counts in whole hours, so a
// pending claim's score ratchets upward and urgency-1 claims eventually
// outrank fresh urgency-10 ones.
func (c *Claim) PriorityScore(now time.Time) int64 {
	score := int64(c.Urgency) * urgencyWeight
	if now.After(c.SubmittedAt) {
		score += int64(now.Sub(c.SubmittedAt)/time.Hour) * hoursWaitingWeight
	}
	if c.VerificationHash != "" {
		score += verificationBonus
	}
	return score
}

// TokenChamber accumulates decayed tokens per category for redistribution
// as rewards. Collected and Distributed only grow; Current is the
// spendable difference.
type TokenChamber struct {
	types.Entity
	Category    ledger.Category `json:"category"`
	Collected   types.Amount    `json:"collected"`
	Distributed types.Amount    `json:"distributed"`
	Current     types.Amount    `json:"current"`
}

// spendWindowDays is the length of the rolling daily-spend window used to
// estimate monthly settlement outflow.
const spendWindowDays = 30

// ReserveChamber is the fiat-side reserve singleton: the payout balance
// plus the aggregates the solvency rule is computed from.
type ReserveChamber struct {
	types.Entity
	Balance       types.Amount `json:"balance"`
	TotalDeposits types.Amount `json:"total_deposits"`
	AnnualRevenue types.Amount `json:"annual_revenue"`

	// DailySpend is a rolling window of settlement outflow keyed by epoch
	// day modulo spendWindowDays. CurrentEpochDay marks the slot that is
	// live; slots older than the window are zeroed as the window advances.
	DailySpend      [spendWindowDays]types.Amount `json:"daily_spend"`
	CurrentEpochDay int64                         `json:"current_epoch_day"`
}

// epochDay returns the whole days since the Unix epoch for t.
func epochDay(t time.Time) int64 {
	return t.Unix() / 86_400
}

// recordSpend adds a settlement payout to the rolling window, zeroing any
// slots skipped since the last recorded day.
func (r *ReserveChamber) recordSpend(amount types.Amount, now time.Time) {
	day := epochDay(now)
	if day > r.CurrentEpochDay {
		gap := day - r.CurrentEpochDay
		if gap > spendWindowDays {
			gap = spendWindowDays
		}
		for i := int64(1); i <= gap; i++ {
			r.DailySpend[(r.CurrentEpochDay+i)%spendWindowDays] = 0
		}
		r.CurrentEpochDay = day
	}
	r.DailySpend[day%spendWindowDays] = r.DailySpend[day%spendWindowDays].Add(amount)
}

// MonthlySpending returns total settlement outflow over the rolling
// window as of now. Slots that have aged past the window since the last
// recorded payout are excluded.
func (r *ReserveChamber) MonthlySpending(now time.Time) types.Amount {
	day := epochDay(now)
	gap := day - r.CurrentEpochDay
	if gap >= spendWindowDays {
		return 0
	}
	var total types.Amount
	for i := range r.DailySpend {
		total = total.Add(r.DailySpend[i])
	}
	// Slots between the last recorded day and today hold spend from a
	// full window ago; they would be zeroed by the next recordSpend.
	for i := int64(1); i <= gap; i++ {
		total = total.Sub(r.DailySpend[(r.CurrentEpochDay+i)%spendWindowDays])
	}
	return total
}

// ReservoirStats is the read-model snapshot returned to operators.
type ReservoirStats struct {
	ReserveBalance  types.Amount                     `json:"reserve_balance"`
	RequiredReserve types.Amount                     `json:"required_reserve"`
	Solvent         bool                             `json:"solvent"`
	TotalDeposits   types.Amount                     `json:"total_deposits"`
	AnnualRevenue   types.Amount                     `json:"annual_revenue"`
	MonthlySpending types.Amount                     `json:"monthly_spending"`
	PendingClaims   int                              `json:"pending_claims"`
	PendingValue    types.Amount                     `json:"pending_value"`
	Chambers        map[ledger.Category]TokenChamber `json:"chambers"`
}
