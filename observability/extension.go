// Package observability provides a metrics extension for the autophage
// protocol that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/statusdothealth/autophage/plugin"
	"github.com/statusdothealth/autophage/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnMinted            = (*MetricsExtension)(nil)
	_ plugin.OnTransferred       = (*MetricsExtension)(nil)
	_ plugin.OnVaultLocked       = (*MetricsExtension)(nil)
	_ plugin.OnDecayCollected    = (*MetricsExtension)(nil)
	_ plugin.OnDecayRateChanged  = (*MetricsExtension)(nil)
	_ plugin.OnClaimSubmitted    = (*MetricsExtension)(nil)
	_ plugin.OnClaimSettled      = (*MetricsExtension)(nil)
	_ plugin.OnClaimDeferred     = (*MetricsExtension)(nil)
	_ plugin.OnReserveDeposited  = (*MetricsExtension)(nil)
	_ plugin.OnReserveWithdrawn  = (*MetricsExtension)(nil)
	_ plugin.OnRewardDistributed = (*MetricsExtension)(nil)
	_ plugin.OnSolvencyBlocked   = (*MetricsExtension)(nil)
	_ plugin.OnPauseChanged      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a protocol plugin to automatically track economic metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Ledger metrics
	Mints         Counter
	MintedTokens  Histogram
	Transfers     Counter
	VaultLocks    Counter
	VaultLockDays Histogram
	DecaySweeps   Counter
	DecayedTokens Histogram
	RateChanges   Counter

	// Settlement metrics
	ClaimsSubmitted Counter
	ClaimsSettled   Counter
	ClaimsDeferred  Counter
	ClaimTokens     Histogram
	SolvencyBlocks  Counter

	// Reserve metrics
	ReserveDeposits    Counter
	ReserveWithdrawals Counter
	RewardsDistributed Counter
	RewardTokens       Histogram

	// Administrative metrics
	PauseToggles Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Ledger metrics
		Mints:         factory.Counter("autophage.ledger.mints"),
		MintedTokens:  factory.Histogram("autophage.ledger.minted_tokens"),
		Transfers:     factory.Counter("autophage.ledger.transfers"),
		VaultLocks:    factory.Counter("autophage.ledger.vault_locks"),
		VaultLockDays: factory.Histogram("autophage.ledger.vault_lock_days"),
		DecaySweeps:   factory.Counter("autophage.ledger.decay_sweeps"),
		DecayedTokens: factory.Histogram("autophage.ledger.decayed_tokens"),
		RateChanges:   factory.Counter("autophage.ledger.rate_changes"),

		// Settlement metrics
		ClaimsSubmitted: factory.Counter("autophage.reservoir.claims.submitted"),
		ClaimsSettled:   factory.Counter("autophage.reservoir.claims.settled"),
		ClaimsDeferred:  factory.Counter("autophage.reservoir.claims.deferred"),
		ClaimTokens:     factory.Histogram("autophage.reservoir.claim_tokens"),
		SolvencyBlocks:  factory.Counter("autophage.reservoir.solvency_blocks"),

		// Reserve metrics
		ReserveDeposits:    factory.Counter("autophage.reservoir.deposits"),
		ReserveWithdrawals: factory.Counter("autophage.reservoir.withdrawals"),
		RewardsDistributed: factory.Counter("autophage.reservoir.rewards"),
		RewardTokens:       factory.Histogram("autophage.reservoir.reward_tokens"),

		// Administrative metrics
		PauseToggles: factory.Counter("autophage.protocol.pause_toggles"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Ledger lifecycle hooks
// ──────────────────────────────────────────────────

// OnMinted implements plugin.OnMinted.
func (m *MetricsExtension) OnMinted(_ context.Context, _ string, _ uint8, amount types.Amount) error {
	m.Mints.Inc()
	m.MintedTokens.Observe(tokens(amount))
	return nil
}

// OnTransferred implements plugin.OnTransferred.
func (m *MetricsExtension) OnTransferred(_ context.Context, _, _ string, _ uint8, _ types.Amount) error {
	m.Transfers.Inc()
	return nil
}

// OnVaultLocked implements plugin.OnVaultLocked.
func (m *MetricsExtension) OnVaultLocked(_ context.Context, _ string, _ uint8, _ types.Amount, lockDays int) error {
	m.VaultLocks.Inc()
	m.VaultLockDays.Observe(float64(lockDays))
	return nil
}

// OnDecayCollected implements plugin.OnDecayCollected.
func (m *MetricsExtension) OnDecayCollected(_ context.Context, _ int, total types.Amount) error {
	m.DecaySweeps.Inc()
	m.DecayedTokens.Observe(tokens(total))
	return nil
}

// OnDecayRateChanged implements plugin.OnDecayRateChanged.
func (m *MetricsExtension) OnDecayRateChanged(_ context.Context, _ uint8, _, _ types.RatePPM) error {
	m.RateChanges.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Settlement lifecycle hooks
// ──────────────────────────────────────────────────

// OnClaimSubmitted implements plugin.OnClaimSubmitted.
func (m *MetricsExtension) OnClaimSubmitted(_ context.Context, _ any) error {
	m.ClaimsSubmitted.Inc()
	return nil
}

// OnClaimSettled implements plugin.OnClaimSettled.
func (m *MetricsExtension) OnClaimSettled(_ context.Context, _ any, _ types.Amount) error {
	m.ClaimsSettled.Inc()
	return nil
}

// OnClaimDeferred implements plugin.OnClaimDeferred.
func (m *MetricsExtension) OnClaimDeferred(_ context.Context, _ any, shortfall types.Amount) error {
	m.ClaimsDeferred.Inc()
	m.ClaimTokens.Observe(tokens(shortfall))
	return nil
}

// OnSolvencyBlocked implements plugin.OnSolvencyBlocked.
func (m *MetricsExtension) OnSolvencyBlocked(_ context.Context, _, _ types.Amount) error {
	m.SolvencyBlocks.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Reserve lifecycle hooks
// ──────────────────────────────────────────────────

// OnReserveDeposited implements plugin.OnReserveDeposited.
func (m *MetricsExtension) OnReserveDeposited(_ context.Context, _, _ types.Amount) error {
	m.ReserveDeposits.Inc()
	return nil
}

// OnReserveWithdrawn implements plugin.OnReserveWithdrawn.
func (m *MetricsExtension) OnReserveWithdrawn(_ context.Context, _, _ types.Amount) error {
	m.ReserveWithdrawals.Inc()
	return nil
}

// OnRewardDistributed implements plugin.OnRewardDistributed.
func (m *MetricsExtension) OnRewardDistributed(_ context.Context, _ string, _ uint8, amount types.Amount) error {
	m.RewardsDistributed.Inc()
	m.RewardTokens.Observe(tokens(amount))
	return nil
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnPauseChanged implements plugin.OnPauseChanged.
func (m *MetricsExtension) OnPauseChanged(_ context.Context, _ bool) error {
	m.PauseToggles.Inc()
	return nil
}

// tokens converts a micro-unit amount to whole tokens for observation.
func tokens(a types.Amount) float64 {
	return float64(a) / 1e6
}
