// Package journal defines the append-only economic event record shared by
// the decay ledger and the settlement reservoir.
package journal

import (
	"time"

	"github.com/statusdothealth/autophage/id"
	"github.com/statusdothealth/autophage/types"
)

// Kind classifies a journal event.
type Kind string

// Event kinds written by the protocol core.
const (
	KindMint           Kind = "mint"
	KindTransfer       Kind = "transfer"
	KindVaultLock      Kind = "vault_lock"
	KindDecayCollected Kind = "decay_collected"
	KindRateChange     Kind = "rate_change"
	KindClaimSubmitted Kind = "claim_submitted"
	KindClaimSettled   Kind = "claim_settled"
	KindDeposit        Kind = "deposit"
	KindWithdrawal     Kind = "withdrawal"
	KindReward         Kind = "reward"
	KindRevenueUpdate  Kind = "revenue_update"
)

// Event is one append-only journal record. Events are never updated or
// deleted; the journal is the audit trail of every balance movement.
type Event struct {
	ID       id.EventID   `json:"id"`
	Kind     Kind         `json:"kind"`
	Account  string       `json:"account,omitempty"`
	Category uint8        `json:"category"`
	Amount   types.Amount `json:"amount"`
	ClaimID  uint64       `json:"claim_id,omitempty"`
	At       time.Time    `json:"at"`
	Note     string       `json:"note,omitempty"`
}

// New creates an Event with a fresh id and the given occurrence time.
func New(kind Kind, at time.Time) *Event {
	return &Event{ID: id.NewEventID(), Kind: kind, At: at}
}

// ListOpts filters journal queries.
type ListOpts struct {
	Kind    Kind
	Account string
	Since   time.Time
	Limit   int
	Offset  int
}
