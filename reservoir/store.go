package reservoir

import (
	"context"
	"errors"

	"github.com/statusdothealth/autophage/journal"
	"github.com/statusdothealth/autophage/ledger"
)

// Store-level sentinels.
var (
	// ErrClaimNotFound is returned when no claim exists with the given id.
	ErrClaimNotFound = errors.New("reservoir: claim not found")

	// ErrReserveNotFound is returned before the reserve singleton has been
	// seeded.
	ErrReserveNotFound = errors.New("reservoir: reserve not initialized")

	// ErrChamberNotFound is returned when a category has no token chamber
	// record.
	ErrChamberNotFound = errors.New("reservoir: chamber not found")
)

// Store is the persistence surface the settlement reservoir requires. The
// unified store implementations in store/memory, store/sqlite and
// store/postgres satisfy it.
type Store interface {
	// InsertClaim persists a new claim, assigning its sequential ID.
	InsertClaim(ctx context.Context, c *Claim) error

	// GetClaim returns one claim by ID, or ErrClaimNotFound.
	GetClaim(ctx context.Context, claimID uint64) (*Claim, error)

	// UpdateClaim replaces a stored claim.
	UpdateClaim(ctx context.Context, c *Claim) error

	// ListPendingClaims returns all unprocessed claims in ID order.
	ListPendingClaims(ctx context.Context) ([]*Claim, error)

	// GetReserve returns the reserve singleton, or ErrReserveNotFound.
	GetReserve(ctx context.Context) (*ReserveChamber, error)

	// PutReserve creates or replaces the reserve singleton.
	PutReserve(ctx context.Context, r *ReserveChamber) error

	// GetChamber returns one category's token chamber, or
	// ErrChamberNotFound.
	GetChamber(ctx context.Context, category ledger.Category) (*TokenChamber, error)

	// PutChamber creates or replaces a token chamber.
	PutChamber(ctx context.Context, ch *TokenChamber) error

	// ListChambers returns all token chambers.
	ListChambers(ctx context.Context) ([]*TokenChamber, error)

	// AppendEvent appends one record to the economic journal.
	AppendEvent(ctx context.Context, ev *journal.Event) error
}
