// Package store defines the unified storage interface implemented by the
// memory, sqlite and postgres backends.
package store

import (
	"context"

	"github.com/statusdothealth/autophage/journal"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/reservoir"
)

// Store is the unified storage interface for all protocol entities.
// Instead of embedding the per-component interfaces, all methods are
// declared explicitly to avoid naming conflicts.
type Store interface {
	// Decay ledger methods
	GetBalance(ctx context.Context, account string, category ledger.Category) (*ledger.AccountBalance, error)
	ListBalances(ctx context.Context, account string) ([]*ledger.AccountBalance, error)
	UpsertBalances(ctx context.Context, balances ...*ledger.AccountBalance) error
	GetCategory(ctx context.Context, category ledger.Category) (*ledger.CategoryConfig, error)
	PutCategory(ctx context.Context, cfg *ledger.CategoryConfig) error
	ListCategories(ctx context.Context) ([]*ledger.CategoryConfig, error)

	// Settlement reservoir methods
	InsertClaim(ctx context.Context, c *reservoir.Claim) error
	GetClaim(ctx context.Context, claimID uint64) (*reservoir.Claim, error)
	UpdateClaim(ctx context.Context, c *reservoir.Claim) error
	ListPendingClaims(ctx context.Context) ([]*reservoir.Claim, error)
	GetReserve(ctx context.Context) (*reservoir.ReserveChamber, error)
	PutReserve(ctx context.Context, r *reservoir.ReserveChamber) error
	GetChamber(ctx context.Context, category ledger.Category) (*reservoir.TokenChamber, error)
	PutChamber(ctx context.Context, ch *reservoir.TokenChamber) error
	ListChambers(ctx context.Context) ([]*reservoir.TokenChamber, error)

	// Journal methods
	AppendEvent(ctx context.Context, ev *journal.Event) error
	ListEvents(ctx context.Context, opts journal.ListOpts) ([]*journal.Event, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
