package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/statusdothealth/autophage/id"
	"github.com/statusdothealth/autophage/journal"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/reservoir"
	"github.com/statusdothealth/autophage/types"
)

// ==================== Balance models ====================

type balanceModel struct {
	grove.BaseModel `grove:"table:autophage_balances"`

	Account     string     `grove:"account,pk"`
	Category    uint8      `grove:"category,pk"`
	Amount      int64      `grove:"amount"`
	LastUpdate  time.Time  `grove:"last_update"`
	LockedUntil *time.Time `grove:"locked_until"`
	LockDays    int        `grove:"lock_days"`
	CreatedAt   time.Time  `grove:"created_at"`
	UpdatedAt   time.Time  `grove:"updated_at"`
}

func toBalanceModel(b *ledger.AccountBalance) *balanceModel {
	m := &balanceModel{
		Account:    b.Account,
		Category:   uint8(b.Category),
		Amount:     b.Amount.Micro(),
		LastUpdate: b.LastUpdate,
		LockDays:   b.LockDays,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
	if !b.LockedUntil.IsZero() {
		t := b.LockedUntil
		m.LockedUntil = &t
	}
	return m
}

func fromBalanceModel(m *balanceModel) *ledger.AccountBalance {
	b := &ledger.AccountBalance{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Account:    m.Account,
		Category:   ledger.Category(m.Category),
		Amount:     types.Amount(m.Amount),
		LastUpdate: m.LastUpdate,
		LockDays:   m.LockDays,
	}
	if m.LockedUntil != nil {
		b.LockedUntil = *m.LockedUntil
	}
	return b
}

// ==================== Category models ====================

type categoryModel struct {
	grove.BaseModel `grove:"table:autophage_categories"`

	Category    uint8           `grove:"category,pk"`
	DecayRate   int64           `grove:"decay_rate"`
	Tiers       json.RawMessage `grove:"tiers,type:jsonb"`
	TotalIssued int64           `grove:"total_issued"`
	CreatedAt   time.Time       `grove:"created_at"`
	UpdatedAt   time.Time       `grove:"updated_at"`
}

func toCategoryModel(c *ledger.CategoryConfig) *categoryModel {
	tiers, _ := json.Marshal(c.Tiers) //nolint:errcheck // best-effort

	return &categoryModel{
		Category:    uint8(c.Category),
		DecayRate:   c.DecayRate.PPM(),
		Tiers:       tiers,
		TotalIssued: c.TotalIssued.Micro(),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func fromCategoryModel(m *categoryModel) *ledger.CategoryConfig {
	var tiers []ledger.PenaltyTier
	if len(m.Tiers) > 0 {
		_ = json.Unmarshal(m.Tiers, &tiers) //nolint:errcheck // best-effort
	}

	return &ledger.CategoryConfig{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Category:    ledger.Category(m.Category),
		DecayRate:   types.RatePPM(m.DecayRate),
		Tiers:       tiers,
		TotalIssued: types.Amount(m.TotalIssued),
	}
}

// ==================== Claim models ====================

type claimModel struct {
	grove.BaseModel `grove:"table:autophage_claims"`

	ID               uint64     `grove:"id,pk"`
	Ref              string     `grove:"ref"`
	Claimant         string     `grove:"claimant"`
	Amount           int64      `grove:"amount"`
	Urgency          int        `grove:"urgency"`
	ClaimType        string     `grove:"claim_type"`
	VerificationHash string     `grove:"verification_hash"`
	SubmittedAt      time.Time  `grove:"submitted_at"`
	Processed        bool       `grove:"processed"`
	ProcessedAt      *time.Time `grove:"processed_at"`
	CreatedAt        time.Time  `grove:"created_at"`
	UpdatedAt        time.Time  `grove:"updated_at"`
}

func toClaimModel(c *reservoir.Claim) *claimModel {
	m := &claimModel{
		ID:               c.ID,
		Ref:              c.Ref.String(),
		Claimant:         c.Claimant,
		Amount:           c.Amount.Micro(),
		Urgency:          c.Urgency,
		ClaimType:        c.ClaimType,
		VerificationHash: c.VerificationHash,
		SubmittedAt:      c.SubmittedAt,
		Processed:        c.Processed,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if !c.ProcessedAt.IsZero() {
		t := c.ProcessedAt
		m.ProcessedAt = &t
	}
	return m
}

func fromClaimModel(m *claimModel) (*reservoir.Claim, error) {
	ref, err := id.ParseClaimRef(m.Ref)
	if err != nil {
		return nil, err
	}

	c := &reservoir.Claim{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               m.ID,
		Ref:              ref,
		Claimant:         m.Claimant,
		Amount:           types.Amount(m.Amount),
		Urgency:          m.Urgency,
		ClaimType:        m.ClaimType,
		VerificationHash: m.VerificationHash,
		SubmittedAt:      m.SubmittedAt,
		Processed:        m.Processed,
	}
	if m.ProcessedAt != nil {
		c.ProcessedAt = *m.ProcessedAt
	}
	return c, nil
}

// ==================== Reserve models ====================

type reserveModel struct {
	grove.BaseModel `grove:"table:autophage_reserve"`

	ID              int             `grove:"id,pk"`
	Balance         int64           `grove:"balance"`
	TotalDeposits   int64           `grove:"total_deposits"`
	AnnualRevenue   int64           `grove:"annual_revenue"`
	DailySpend      json.RawMessage `grove:"daily_spend,type:jsonb"`
	CurrentEpochDay int64           `grove:"current_epoch_day"`
	CreatedAt       time.Time       `grove:"created_at"`
	UpdatedAt       time.Time       `grove:"updated_at"`
}

// reserveRowID is the fixed primary key of the reserve singleton row.
const reserveRowID = 1

func toReserveModel(r *reservoir.ReserveChamber) *reserveModel {
	spend, _ := json.Marshal(r.DailySpend) //nolint:errcheck // best-effort

	return &reserveModel{
		ID:              reserveRowID,
		Balance:         r.Balance.Micro(),
		TotalDeposits:   r.TotalDeposits.Micro(),
		AnnualRevenue:   r.AnnualRevenue.Micro(),
		DailySpend:      spend,
		CurrentEpochDay: r.CurrentEpochDay,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func fromReserveModel(m *reserveModel) *reservoir.ReserveChamber {
	r := &reservoir.ReserveChamber{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Balance:         types.Amount(m.Balance),
		TotalDeposits:   types.Amount(m.TotalDeposits),
		AnnualRevenue:   types.Amount(m.AnnualRevenue),
		CurrentEpochDay: m.CurrentEpochDay,
	}
	if len(m.DailySpend) > 0 {
		_ = json.Unmarshal(m.DailySpend, &r.DailySpend) //nolint:errcheck // best-effort
	}
	return r
}

// ==================== Chamber models ====================

type chamberModel struct {
	grove.BaseModel `grove:"table:autophage_chambers"`

	Category    uint8     `grove:"category,pk"`
	Collected   int64     `grove:"collected"`
	Distributed int64     `grove:"distributed"`
	Current     int64     `grove:"current"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

func toChamberModel(ch *reservoir.TokenChamber) *chamberModel {
	return &chamberModel{
		Category:    uint8(ch.Category),
		Collected:   ch.Collected.Micro(),
		Distributed: ch.Distributed.Micro(),
		Current:     ch.Current.Micro(),
		CreatedAt:   ch.CreatedAt,
		UpdatedAt:   ch.UpdatedAt,
	}
}

func fromChamberModel(m *chamberModel) *reservoir.TokenChamber {
	return &reservoir.TokenChamber{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Category:    ledger.Category(m.Category),
		Collected:   types.Amount(m.Collected),
		Distributed: types.Amount(m.Distributed),
		Current:     types.Amount(m.Current),
	}
}

// ==================== Journal models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:autophage_journal"`

	ID       string    `grove:"id,pk"`
	Kind     string    `grove:"kind"`
	Account  string    `grove:"account"`
	Category uint8     `grove:"category"`
	Amount   int64     `grove:"amount"`
	ClaimID  uint64    `grove:"claim_id"`
	At       time.Time `grove:"at"`
	Note     string    `grove:"note"`
}

func toEventModel(ev *journal.Event) *eventModel {
	return &eventModel{
		ID:       ev.ID.String(),
		Kind:     string(ev.Kind),
		Account:  ev.Account,
		Category: ev.Category,
		Amount:   ev.Amount.Micro(),
		ClaimID:  ev.ClaimID,
		At:       ev.At,
		Note:     ev.Note,
	}
}

func fromEventModel(m *eventModel) (*journal.Event, error) {
	eid, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}

	return &journal.Event{
		ID:       eid,
		Kind:     journal.Kind(m.Kind),
		Account:  m.Account,
		Category: m.Category,
		Amount:   types.Amount(m.Amount),
		ClaimID:  m.ClaimID,
		At:       m.At,
		Note:     m.Note,
	}, nil
}
