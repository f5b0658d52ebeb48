// Package plugin provides an extensible plugin system for the autophage
// protocol core. Plugins can hook into economic lifecycle events to extend
// functionality without touching ledger or reservoir internals.
package plugin

import (
	"context"

	"github.com/statusdothealth/autophage/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, core any) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Decay ledger hooks
// ──────────────────────────────────────────────────

// OnMinted is called after new balance is minted into a category.
type OnMinted interface {
	Plugin
	OnMinted(ctx context.Context, account string, category uint8, amount types.Amount) error
}

// OnTransferred is called after a balance transfer commits.
type OnTransferred interface {
	Plugin
	OnTransferred(ctx context.Context, from, to string, category uint8, amount types.Amount) error
}

// OnVaultLocked is called after a vault lock is created.
type OnVaultLocked interface {
	Plugin
	OnVaultLocked(ctx context.Context, account string, category uint8, amount types.Amount, lockDays int) error
}

// OnDecayCollected is called after a bulk decay collection pass.
type OnDecayCollected interface {
	Plugin
	OnDecayCollected(ctx context.Context, pairs int, total types.Amount) error
}

// OnDecayRateChanged is called when governance adjusts a category's rate.
type OnDecayRateChanged interface {
	Plugin
	OnDecayRateChanged(ctx context.Context, category uint8, oldRate, newRate types.RatePPM) error
}

// ──────────────────────────────────────────────────
// Settlement reservoir hooks
// ──────────────────────────────────────────────────

// OnClaimSubmitted is called when a new claim enters the queue.
type OnClaimSubmitted interface {
	Plugin
	OnClaimSubmitted(ctx context.Context, claim any) error
}

// OnClaimSettled is called when a claim is paid out.
type OnClaimSettled interface {
	Plugin
	OnClaimSettled(ctx context.Context, claim any, reserveAfter types.Amount) error
}

// OnClaimDeferred is called when a claim cannot currently be funded and
// remains pending. This is normal control flow, not an error.
type OnClaimDeferred interface {
	Plugin
	OnClaimDeferred(ctx context.Context, claim any, shortfall types.Amount) error
}

// OnReserveDeposited is called after a reserve deposit commits.
type OnReserveDeposited interface {
	Plugin
	OnReserveDeposited(ctx context.Context, amount, balance types.Amount) error
}

// OnReserveWithdrawn is called after an administrative withdrawal commits.
type OnReserveWithdrawn interface {
	Plugin
	OnReserveWithdrawn(ctx context.Context, amount, balance types.Amount) error
}

// OnRewardDistributed is called after a chamber-funded reward mint.
type OnRewardDistributed interface {
	Plugin
	OnRewardDistributed(ctx context.Context, recipient string, category uint8, amount types.Amount) error
}

// OnSolvencyBlocked is called when an operation is rejected because it
// would drop the reserve below the required minimum.
type OnSolvencyBlocked interface {
	Plugin
	OnSolvencyBlocked(ctx context.Context, required, available types.Amount) error
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnPauseChanged is called when the pause authority freezes or resumes
// mutating operations.
type OnPauseChanged interface {
	Plugin
	OnPauseChanged(ctx context.Context, paused bool) error
}
