package ledger

import (
	"context"
	"errors"

	"github.com/statusdothealth/autophage/journal"
)

// Store-level sentinels.
var (
	// ErrBalanceNotFound is returned when no balance record exists for an
	// (account, category) pair.
	ErrBalanceNotFound = errors.New("ledger: balance not found")

	// ErrCategoryNotFound is returned when a category has no stored
	// configuration.
	ErrCategoryNotFound = errors.New("ledger: category config not found")
)

// Store is the persistence surface the decay ledger requires. The unified
// store implementations in store/memory, store/sqlite and store/postgres
// satisfy it.
type Store interface {
	// GetBalance returns the stored record for one (account, category)
	// pair, or ErrBalanceNotFound.
	GetBalance(ctx context.Context, account string, category Category) (*AccountBalance, error)

	// ListBalances returns every stored balance for account, or every
	// balance in the ledger when account is empty.
	ListBalances(ctx context.Context, account string) ([]*AccountBalance, error)

	// UpsertBalances writes the given records in one atomic batch. A
	// transfer's debit and credit must land together or not at all.
	UpsertBalances(ctx context.Context, balances ...*AccountBalance) error

	// GetCategory returns the configuration for one category, or
	// ErrCategoryNotFound.
	GetCategory(ctx context.Context, category Category) (*CategoryConfig, error)

	// PutCategory creates or replaces a category configuration.
	PutCategory(ctx context.Context, cfg *CategoryConfig) error

	// ListCategories returns all stored category configurations.
	ListCategories(ctx context.Context) ([]*CategoryConfig, error)

	// AppendEvent appends one record to the economic journal.
	AppendEvent(ctx context.Context, ev *journal.Event) error
}
