package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/statusdothealth/autophage/types"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onMinted            []OnMinted
	onTransferred       []OnTransferred
	onVaultLocked       []OnVaultLocked
	onDecayCollected    []OnDecayCollected
	onDecayRateChanged  []OnDecayRateChanged
	onClaimSubmitted    []OnClaimSubmitted
	onClaimSettled      []OnClaimSettled
	onClaimDeferred     []OnClaimDeferred
	onReserveDeposited  []OnReserveDeposited
	onReserveWithdrawn  []OnReserveWithdrawn
	onRewardDistributed []OnRewardDistributed
	onSolvencyBlocked   []OnSolvencyBlocked
	onPauseChanged      []OnPauseChanged
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnMinted); ok {
		r.onMinted = append(r.onMinted, v)
	}
	if v, ok := p.(OnTransferred); ok {
		r.onTransferred = append(r.onTransferred, v)
	}
	if v, ok := p.(OnVaultLocked); ok {
		r.onVaultLocked = append(r.onVaultLocked, v)
	}
	if v, ok := p.(OnDecayCollected); ok {
		r.onDecayCollected = append(r.onDecayCollected, v)
	}
	if v, ok := p.(OnDecayRateChanged); ok {
		r.onDecayRateChanged = append(r.onDecayRateChanged, v)
	}
	if v, ok := p.(OnClaimSubmitted); ok {
		r.onClaimSubmitted = append(r.onClaimSubmitted, v)
	}
	if v, ok := p.(OnClaimSettled); ok {
		r.onClaimSettled = append(r.onClaimSettled, v)
	}
	if v, ok := p.(OnClaimDeferred); ok {
		r.onClaimDeferred = append(r.onClaimDeferred, v)
	}
	if v, ok := p.(OnReserveDeposited); ok {
		r.onReserveDeposited = append(r.onReserveDeposited, v)
	}
	if v, ok := p.(OnReserveWithdrawn); ok {
		r.onReserveWithdrawn = append(r.onReserveWithdrawn, v)
	}
	if v, ok := p.(OnRewardDistributed); ok {
		r.onRewardDistributed = append(r.onRewardDistributed, v)
	}
	if v, ok := p.(OnSolvencyBlocked); ok {
		r.onSolvencyBlocked = append(r.onSolvencyBlocked, v)
	}
	if v, ok := p.(OnPauseChanged); ok {
		r.onPauseChanged = append(r.onPauseChanged, v)
	}

	r.logger.Info("plugin registered", "name", p.Name())

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, core any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, core)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitMinted emits a mint event.
func (r *Registry) EmitMinted(ctx context.Context, account string, category uint8, amount types.Amount) {
	r.mu.RLock()
	plugins := r.onMinted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMinted(ctx, account, category, amount)
		}); err != nil {
			r.logger.Warn("plugin OnMinted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitTransferred emits a transfer event.
func (r *Registry) EmitTransferred(ctx context.Context, from, to string, category uint8, amount types.Amount) {
	r.mu.RLock()
	plugins := r.onTransferred
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransferred(ctx, from, to, category, amount)
		}); err != nil {
			r.logger.Warn("plugin OnTransferred failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitVaultLocked emits a vault lock event.
func (r *Registry) EmitVaultLocked(ctx context.Context, account string, category uint8, amount types.Amount, lockDays int) {
	r.mu.RLock()
	plugins := r.onVaultLocked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnVaultLocked(ctx, account, category, amount, lockDays)
		}); err != nil {
			r.logger.Warn("plugin OnVaultLocked failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitDecayCollected emits a bulk decay collection event.
func (r *Registry) EmitDecayCollected(ctx context.Context, pairs int, total types.Amount) {
	r.mu.RLock()
	plugins := r.onDecayCollected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDecayCollected(ctx, pairs, total)
		}); err != nil {
			r.logger.Warn("plugin OnDecayCollected failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitDecayRateChanged emits a governance rate change event.
func (r *Registry) EmitDecayRateChanged(ctx context.Context, category uint8, oldRate, newRate types.RatePPM) {
	r.mu.RLock()
	plugins := r.onDecayRateChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDecayRateChanged(ctx, category, oldRate, newRate)
		}); err != nil {
			r.logger.Warn("plugin OnDecayRateChanged failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitClaimSubmitted emits a claim submission event.
func (r *Registry) EmitClaimSubmitted(ctx context.Context, claim any) {
	r.mu.RLock()
	plugins := r.onClaimSubmitted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnClaimSubmitted(ctx, claim)
		}); err != nil {
			r.logger.Warn("plugin OnClaimSubmitted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitClaimSettled emits a claim settlement event.
func (r *Registry) EmitClaimSettled(ctx context.Context, claim any, reserveAfter types.Amount) {
	r.mu.RLock()
	plugins := r.onClaimSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnClaimSettled(ctx, claim, reserveAfter)
		}); err != nil {
			r.logger.Warn("plugin OnClaimSettled failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitClaimDeferred emits a claim deferral event.
func (r *Registry) EmitClaimDeferred(ctx context.Context, claim any, shortfall types.Amount) {
	r.mu.RLock()
	plugins := r.onClaimDeferred
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnClaimDeferred(ctx, claim, shortfall)
		}); err != nil {
			r.logger.Warn("plugin OnClaimDeferred failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitReserveDeposited emits a deposit event.
func (r *Registry) EmitReserveDeposited(ctx context.Context, amount, balance types.Amount) {
	r.mu.RLock()
	plugins := r.onReserveDeposited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReserveDeposited(ctx, amount, balance)
		}); err != nil {
			r.logger.Warn("plugin OnReserveDeposited failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitReserveWithdrawn emits a withdrawal event.
func (r *Registry) EmitReserveWithdrawn(ctx context.Context, amount, balance types.Amount) {
	r.mu.RLock()
	plugins := r.onReserveWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReserveWithdrawn(ctx, amount, balance)
		}); err != nil {
			r.logger.Warn("plugin OnReserveWithdrawn failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitRewardDistributed emits a reward distribution event.
func (r *Registry) EmitRewardDistributed(ctx context.Context, recipient string, category uint8, amount types.Amount) {
	r.mu.RLock()
	plugins := r.onRewardDistributed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRewardDistributed(ctx, recipient, category, amount)
		}); err != nil {
			r.logger.Warn("plugin OnRewardDistributed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitSolvencyBlocked emits a solvency rejection event.
func (r *Registry) EmitSolvencyBlocked(ctx context.Context, required, available types.Amount) {
	r.mu.RLock()
	plugins := r.onSolvencyBlocked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSolvencyBlocked(ctx, required, available)
		}); err != nil {
			r.logger.Warn("plugin OnSolvencyBlocked failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitPauseChanged emits a pause state change event.
func (r *Registry) EmitPauseChanged(ctx context.Context, paused bool) {
	r.mu.RLock()
	plugins := r.onPauseChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPauseChanged(ctx, paused)
		}); err != nil {
			r.logger.Warn("plugin OnPauseChanged failed", "plugin", p.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block the settlement pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
