package autophage

import (
	"errors"

	"github.com/statusdothealth/autophage/auth"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/reservoir"
)

// Sentinel errors re-exported from the component packages so callers can
// match them without extra imports.
var (
	// Authorization
	ErrUnauthorized = auth.ErrUnauthorized

	// Decay ledger
	ErrInvalidCategory     = ledger.ErrInvalidCategory
	ErrInvalidAmount       = ledger.ErrInvalidAmount
	ErrInsufficientBalance = ledger.ErrInsufficientBalance
	ErrBalanceLocked       = ledger.ErrBalanceLocked
	ErrAlreadyLocked       = ledger.ErrAlreadyLocked
	ErrInvalidLockDuration = ledger.ErrInvalidLockDuration
	ErrRateAboveCeiling    = ledger.ErrRateAboveCeiling
	ErrBalanceNotFound     = ledger.ErrBalanceNotFound
	ErrCategoryNotFound    = ledger.ErrCategoryNotFound

	// Settlement reservoir
	ErrInvalidUrgency      = reservoir.ErrInvalidUrgency
	ErrSolvencyAtRisk      = reservoir.ErrSolvencyAtRisk
	ErrChamberInsufficient = reservoir.ErrChamberInsufficient
	ErrNoMarketData        = reservoir.ErrNoMarketData
	ErrDegenerateMarket    = reservoir.ErrDegenerateMarket
	ErrClaimNotFound       = reservoir.ErrClaimNotFound
	ErrReserveNotFound     = reservoir.ErrReserveNotFound
	ErrChamberNotFound     = reservoir.ErrChamberNotFound
)

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ledger.ErrBalanceNotFound) ||
		errors.Is(err, ledger.ErrCategoryNotFound) ||
		errors.Is(err, reservoir.ErrClaimNotFound) ||
		errors.Is(err, reservoir.ErrReserveNotFound) ||
		errors.Is(err, reservoir.ErrChamberNotFound)
}

// IsValidation returns true if the error is an input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ledger.ErrInvalidCategory) ||
		errors.Is(err, ledger.ErrInvalidAmount) ||
		errors.Is(err, ledger.ErrInvalidLockDuration) ||
		errors.Is(err, ledger.ErrRateAboveCeiling) ||
		errors.Is(err, reservoir.ErrInvalidUrgency) ||
		errors.Is(err, reservoir.ErrInvalidAmount)
}

// IsAuthorization returns true if the error is a capability failure.
func IsAuthorization(err error) bool {
	return errors.Is(err, auth.ErrUnauthorized)
}

// IsSolvency returns true if the error is a solvency-rule rejection.
func IsSolvency(err error) bool {
	return errors.Is(err, reservoir.ErrSolvencyAtRisk)
}

// IsPaused returns true if the error is a pause-state rejection.
func IsPaused(err error) bool {
	return errors.Is(err, ledger.ErrPaused) || errors.Is(err, reservoir.ErrPaused)
}
