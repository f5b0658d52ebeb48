// Package audithook bridges autophage lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/plugin"
	"github.com/statusdothealth/autophage/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnMinted            = (*Extension)(nil)
	_ plugin.OnTransferred       = (*Extension)(nil)
	_ plugin.OnVaultLocked       = (*Extension)(nil)
	_ plugin.OnDecayCollected    = (*Extension)(nil)
	_ plugin.OnDecayRateChanged  = (*Extension)(nil)
	_ plugin.OnClaimSubmitted    = (*Extension)(nil)
	_ plugin.OnClaimSettled      = (*Extension)(nil)
	_ plugin.OnClaimDeferred     = (*Extension)(nil)
	_ plugin.OnReserveDeposited  = (*Extension)(nil)
	_ plugin.OnReserveWithdrawn  = (*Extension)(nil)
	_ plugin.OnRewardDistributed = (*Extension)(nil)
	_ plugin.OnSolvencyBlocked   = (*Extension)(nil)
	_ plugin.OnPauseChanged      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the audit_hook package does not import a
// concrete audit store — callers inject one at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges autophage lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Ledger lifecycle hooks
// ──────────────────────────────────────────────────

// OnMinted implements plugin.OnMinted.
func (e *Extension) OnMinted(ctx context.Context, account string, category uint8, amount types.Amount) error {
	return e.record(ctx, ActionMinted, SeverityInfo, OutcomeSuccess,
		ResourceBalance, account, CategoryLedger, nil,
		"account", account,
		"category", ledger.Category(category).String(),
		"amount", amount.String(),
	)
}

// OnTransferred implements plugin.OnTransferred.
func (e *Extension) OnTransferred(ctx context.Context, from, to string, category uint8, amount types.Amount) error {
	return e.record(ctx, ActionTransferred, SeverityInfo, OutcomeSuccess,
		ResourceBalance, from, CategoryLedger, nil,
		"from", from,
		"to", to,
		"category", ledger.Category(category).String(),
		"amount", amount.String(),
	)
}

// OnVaultLocked implements plugin.OnVaultLocked.
func (e *Extension) OnVaultLocked(ctx context.Context, account string, category uint8, amount types.Amount, lockDays int) error {
	return e.record(ctx, ActionVaultLocked, SeverityInfo, OutcomeSuccess,
		ResourceVault, account, CategoryLedger, nil,
		"account", account,
		"category", ledger.Category(category).String(),
		"amount", amount.String(),
		"lock_days", lockDays,
	)
}

// OnDecayCollected implements plugin.OnDecayCollected.
func (e *Extension) OnDecayCollected(ctx context.Context, pairs int, total types.Amount) error {
	return e.record(ctx, ActionDecayCollected, SeverityInfo, OutcomeSuccess,
		ResourceBalance, "", CategoryLedger, nil,
		"pairs", pairs,
		"total", total.String(),
	)
}

// OnDecayRateChanged implements plugin.OnDecayRateChanged.
func (e *Extension) OnDecayRateChanged(ctx context.Context, category uint8, oldRate, newRate types.RatePPM) error {
	return e.record(ctx, ActionDecayRateChanged, SeverityWarning, OutcomeSuccess,
		ResourceBalance, "", CategoryGovernance, nil,
		"category", ledger.Category(category).String(),
		"old_rate_ppm", int64(oldRate),
		"new_rate_ppm", int64(newRate),
	)
}

// ──────────────────────────────────────────────────
// Settlement lifecycle hooks
// ──────────────────────────────────────────────────

// OnClaimSubmitted implements plugin.OnClaimSubmitted.
func (e *Extension) OnClaimSubmitted(ctx context.Context, _ any) error {
	return e.record(ctx, ActionClaimSubmitted, SeverityInfo, OutcomeSuccess,
		ResourceClaim, "", CategorySettlement, nil,
		"event", "claim_submitted",
	)
}

// OnClaimSettled implements plugin.OnClaimSettled.
func (e *Extension) OnClaimSettled(ctx context.Context, _ any, reserveAfter types.Amount) error {
	return e.record(ctx, ActionClaimSettled, SeverityInfo, OutcomeSuccess,
		ResourceClaim, "", CategorySettlement, nil,
		"reserve_after", reserveAfter.String(),
	)
}

// OnClaimDeferred implements plugin.OnClaimDeferred.
func (e *Extension) OnClaimDeferred(ctx context.Context, _ any, shortfall types.Amount) error {
	return e.record(ctx, ActionClaimDeferred, SeverityWarning, OutcomePartial,
		ResourceClaim, "", CategorySettlement, nil,
		"shortfall", shortfall.String(),
	)
}

// OnReserveDeposited implements plugin.OnReserveDeposited.
func (e *Extension) OnReserveDeposited(ctx context.Context, amount, balance types.Amount) error {
	return e.record(ctx, ActionReserveDeposited, SeverityInfo, OutcomeSuccess,
		ResourceReserve, "", CategoryTreasury, nil,
		"amount", amount.String(),
		"balance", balance.String(),
	)
}

// OnReserveWithdrawn implements plugin.OnReserveWithdrawn.
func (e *Extension) OnReserveWithdrawn(ctx context.Context, amount, balance types.Amount) error {
	return e.record(ctx, ActionReserveWithdrawn, SeverityWarning, OutcomeSuccess,
		ResourceReserve, "", CategoryTreasury, nil,
		"amount", amount.String(),
		"balance", balance.String(),
	)
}

// OnRewardDistributed implements plugin.OnRewardDistributed.
func (e *Extension) OnRewardDistributed(ctx context.Context, recipient string, category uint8, amount types.Amount) error {
	return e.record(ctx, ActionRewardDistributed, SeverityInfo, OutcomeSuccess,
		ResourceChamber, recipient, CategorySettlement, nil,
		"recipient", recipient,
		"category", ledger.Category(category).String(),
		"amount", amount.String(),
	)
}

// OnSolvencyBlocked implements plugin.OnSolvencyBlocked.
func (e *Extension) OnSolvencyBlocked(ctx context.Context, required, available types.Amount) error {
	return e.record(ctx, ActionSolvencyBlocked, SeverityCritical, OutcomeFailure,
		ResourceReserve, "", CategoryTreasury, nil,
		"required", required.String(),
		"available", available.String(),
	)
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnPauseChanged implements plugin.OnPauseChanged.
func (e *Extension) OnPauseChanged(ctx context.Context, paused bool) error {
	severity := SeverityWarning
	if !paused {
		severity = SeverityInfo
	}
	return e.record(ctx, ActionPauseChanged, severity, OutcomeSuccess,
		ResourceProtocol, "", CategoryGovernance, nil,
		"paused", paused,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
