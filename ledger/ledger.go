package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/statusdothealth/autophage/auth"
	"github.com/statusdothealth/autophage/journal"
	"github.com/statusdothealth/autophage/plugin"
	"github.com/statusdothealth/autophage/types"
)

// Validation and policy sentinels.
var (
	// ErrInvalidCategory is returned for a category outside the fixed set.
	ErrInvalidCategory = errors.New("ledger: invalid category")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")

	// ErrInsufficientBalance is returned when a debit exceeds the decayed
	// balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrBalanceLocked is returned when a transfer touches a balance under
	// an active vault lock.
	ErrBalanceLocked = errors.New("ledger: balance is vault-locked")

	// ErrAlreadyLocked is returned when locking a balance that already has
	// an active lock.
	ErrAlreadyLocked = errors.New("ledger: balance already vault-locked")

	// ErrInvalidLockDuration is returned for lock lengths outside 30-365
	// days.
	ErrInvalidLockDuration = errors.New("ledger: lock duration must be 30-365 days")

	// ErrRateAboveCeiling is returned when governance proposes a decay
	// rate above the ceiling.
	ErrRateAboveCeiling = errors.New("ledger: decay rate above ceiling")

	// ErrPaused is returned by mutating operations while the ledger is
	// paused.
	ErrPaused = errors.New("ledger: operations paused")
)

// RateCeiling is the maximum daily decay rate governance may set (10%).
const RateCeiling types.RatePPM = 100_000

// Lock length bounds in days.
const (
	MinLockDays = 30
	MaxLockDays = 365
)

// Ledger is the decay ledger service. All mutating operations realize any
// pending decay on the records they touch before applying their own
// change, so stored balances are exact as of their LastUpdate and the
// decayed-to-now view is pure computation.
type Ledger struct {
	mu     sync.Mutex
	store  Store
	authz  auth.Authorizer
	hooks  *plugin.Registry
	logger *slog.Logger
	now    func() time.Time
	paused bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithAuthorizer sets the capability authorizer.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(l *Ledger) { l.authz = a }
}

// WithHooks sets the plugin registry events are emitted to.
func WithHooks(r *plugin.Registry) Option {
	return func(l *Ledger) { l.hooks = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the time source. Test use.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a decay ledger backed by the given store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		hooks:  plugin.NewRegistry(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetPaused freezes or resumes mutating operations. Reads stay available
// while paused.
func (l *Ledger) SetPaused(paused bool) {
	l.mu.Lock()
	l.paused = paused
	l.mu.Unlock()
}

// Paused reports the current pause state.
func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// GetBalance returns the decayed-to-now value of one (account, category)
// balance. Missing records read as zero. Nothing is written.
func (l *Ledger) GetBalance(ctx context.Context, account string, category Category) (types.Amount, error) {
	if !category.Valid() {
		return 0, ErrInvalidCategory
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.store.GetBalance(ctx, account, category)
	if errors.Is(err, ErrBalanceNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	cfg, err := l.store.GetCategory(ctx, category)
	if err != nil {
		return 0, err
	}
	remaining, _ := l.decayView(b, cfg, l.now())
	return remaining, nil
}

// GetAllBalances returns the decayed-to-now value of every category
// balance held by account. Categories without a record read as zero.
func (l *Ledger) GetAllBalances(ctx context.Context, account string) (map[Category]types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[Category]types.Amount, NumCategories)
	for _, c := range Categories() {
		out[c] = 0
	}
	balances, err := l.store.ListBalances(ctx, account)
	if err != nil {
		return nil, err
	}
	now := l.now()
	for _, b := range balances {
		cfg, err := l.store.GetCategory(ctx, b.Category)
		if err != nil {
			return nil, err
		}
		remaining, _ := l.decayView(b, cfg, now)
		out[b.Category] = remaining
	}
	return out, nil
}

// GetDecayRate returns the base daily decay rate for a category.
func (l *Ledger) GetDecayRate(ctx context.Context, category Category) (types.RatePPM, error) {
	if !category.Valid() {
		return 0, ErrInvalidCategory
	}
	cfg, err := l.store.GetCategory(ctx, category)
	if err != nil {
		return 0, err
	}
	return cfg.DecayRate, nil
}

// TotalIssued returns the cumulative amount ever minted into a category.
// Decay does not reduce it.
func (l *Ledger) TotalIssued(ctx context.Context, category Category) (types.Amount, error) {
	if !category.Valid() {
		return 0, ErrInvalidCategory
	}
	cfg, err := l.store.GetCategory(ctx, category)
	if err != nil {
		return 0, err
	}
	return cfg.TotalIssued, nil
}

// ──────────────────────────────────────────────────
// Mutations
// ──────────────────────────────────────────────────

// Mint creates new balance in an account's category. Requires the minter
// capability. Pending decay on the target record is realized first, so
// the new tokens start their own decay clock at now.
func (l *Ledger) Mint(ctx context.Context, account string, category Category, amount types.Amount) error {
	if err := auth.Require(ctx, l.authz, auth.CapMinter); err != nil {
		return err
	}
	if !category.Valid() {
		return ErrInvalidCategory
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return ErrPaused
	}

	now := l.now()
	b, cfg, err := l.touch(ctx, account, category, now)
	if err != nil {
		return err
	}
	b.Amount = b.Amount.Add(amount)
	b.Touch()
	if err := l.store.UpsertBalances(ctx, b); err != nil {
		return fmt.Errorf("mint: %w", err)
	}

	cfg.TotalIssued = cfg.TotalIssued.Add(amount)
	cfg.Touch()
	if err := l.store.PutCategory(ctx, cfg); err != nil {
		return fmt.Errorf("mint: update issuance: %w", err)
	}

	l.journal(ctx, journal.KindMint, now, func(ev *journal.Event) {
		ev.Account = account
		ev.Category = uint8(category)
		ev.Amount = amount
	})
	l.logger.Info("minted", "account", account, "category", category.String(), "amount", amount.String())
	l.hooks.EmitMinted(ctx, account, uint8(category), amount)
	return nil
}

// Transfer moves amount between two accounts within one category. The
// acting principal must be the source account. An active vault lock on
// the sender blocks the transfer; a locked recipient still receives
// credits.
func (l *Ledger) Transfer(ctx context.Context, from, to string, category Category, amount types.Amount) error {
	if p := auth.PrincipalFromContext(ctx); p == "" || p != from {
		return auth.ErrUnauthorized
	}
	if !category.Valid() {
		return ErrInvalidCategory
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if from == to {
		return fmt.Errorf("%w: self transfer", ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return ErrPaused
	}

	now := l.now()
	src, _, err := l.touch(ctx, from, category, now)
	if err != nil {
		return err
	}
	if src.Locked(now) {
		return ErrBalanceLocked
	}
	if src.Amount.LessThan(amount) {
		return ErrInsufficientBalance
	}
	dst, _, err := l.touch(ctx, to, category, now)
	if err != nil {
		return err
	}

	src.Amount = src.Amount.Sub(amount)
	dst.Amount = dst.Amount.Add(amount)
	src.Touch()
	dst.Touch()

	// Debit and credit commit in one batch.
	if err := l.store.UpsertBalances(ctx, src, dst); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}

	l.journal(ctx, journal.KindTransfer, now, func(ev *journal.Event) {
		ev.Account = from
		ev.Category = uint8(category)
		ev.Amount = amount
		ev.Note = "to " + to
	})
	l.logger.Info("transferred", "from", from, "to", to, "category", category.String(), "amount", amount.String())
	l.hooks.EmitTransferred(ctx, from, to, uint8(category), amount)
	return nil
}

// LockInVault places an account's category balance under a vault lock of
// lockDays (30-365). The acting principal must be the account owner, the
// decayed balance must cover amount, and no lock may already be active.
// The lock's decay reduction is fixed by the original length for its
// whole life.
func (l *Ledger) LockInVault(ctx context.Context, account string, category Category, amount types.Amount, lockDays int) error {
	if p := auth.PrincipalFromContext(ctx); p == "" || p != account {
		return auth.ErrUnauthorized
	}
	if !category.Valid() {
		return ErrInvalidCategory
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if lockDays < MinLockDays || lockDays > MaxLockDays {
		return ErrInvalidLockDuration
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return ErrPaused
	}

	now := l.now()
	b, _, err := l.touch(ctx, account, category, now)
	if err != nil {
		return err
	}
	if b.Locked(now) {
		return ErrAlreadyLocked
	}
	if b.Amount.LessThan(amount) {
		return ErrInsufficientBalance
	}

	b.LockedUntil = now.Add(time.Duration(lockDays) * 24 * time.Hour)
	b.LockDays = lockDays
	b.Touch()
	if err := l.store.UpsertBalances(ctx, b); err != nil {
		return fmt.Errorf("vault lock: %w", err)
	}

	l.journal(ctx, journal.KindVaultLock, now, func(ev *journal.Event) {
		ev.Account = account
		ev.Category = uint8(category)
		ev.Amount = amount
		ev.Note = fmt.Sprintf("%d days", lockDays)
	})
	l.logger.Info("vault locked", "account", account, "category", category.String(),
		"amount", amount.String(), "days", lockDays)
	l.hooks.EmitVaultLocked(ctx, account, uint8(category), amount, lockDays)
	return nil
}

// CollectDecay realizes pending decay on the targeted balances and
// returns the per-pair amounts collected. Empty accounts or categories
// mean "all"; non-empty slices restrict the sweep to their cross
// product. Requires the reservoir capability. Each pair commits
// independently; a write failure on one pair is logged and skipped so a
// single bad record cannot stall the sweep.
func (l *Ledger) CollectDecay(ctx context.Context, accounts []string, categories []Category) ([]DecayResult, error) {
	if err := auth.Require(ctx, l.authz, auth.CapReservoir); err != nil {
		return nil, err
	}
	var wanted map[Category]bool
	if len(categories) > 0 {
		wanted = make(map[Category]bool, len(categories))
		for _, c := range categories {
			if !c.Valid() {
				return nil, ErrInvalidCategory
			}
			wanted[c] = true
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return nil, ErrPaused
	}

	now := l.now()
	var balances []*AccountBalance
	if len(accounts) == 0 {
		var err error
		balances, err = l.store.ListBalances(ctx, "")
		if err != nil {
			return nil, err
		}
	} else {
		for _, account := range accounts {
			bs, err := l.store.ListBalances(ctx, account)
			if err != nil {
				return nil, err
			}
			balances = append(balances, bs...)
		}
	}

	configs := make(map[Category]*CategoryConfig, NumCategories)
	var results []DecayResult
	var total types.Amount
	for _, b := range balances {
		if wanted != nil && !wanted[b.Category] {
			continue
		}
		cfg, ok := configs[b.Category]
		if !ok {
			var err error
			cfg, err = l.store.GetCategory(ctx, b.Category)
			if err != nil {
				return nil, err
			}
			configs[b.Category] = cfg
		}
		decayed := l.realizeDecay(b, cfg, now)
		if decayed.IsZero() {
			continue
		}
		if err := l.store.UpsertBalances(ctx, b); err != nil {
			l.logger.Warn("decay commit failed", "account", b.Account,
				"category", b.Category.String(), "error", err)
			continue
		}
		results = append(results, DecayResult{Account: b.Account, Category: b.Category, Collected: decayed})
		total = total.Add(decayed)
	}

	if len(results) > 0 {
		l.journal(ctx, journal.KindDecayCollected, now, func(ev *journal.Event) {
			ev.Amount = total
			ev.Note = fmt.Sprintf("%d pairs", len(results))
		})
	}
	l.logger.Info("decay collected", "pairs", len(results), "total", total.String())
	l.hooks.EmitDecayCollected(ctx, len(results), total)
	return results, nil
}

// UpdateDecayRate sets a category's base daily decay rate. Requires the
// governance capability. Rates above RateCeiling are rejected. The new
// rate applies only to days after balances are next touched; already
// realized decay is never recomputed.
func (l *Ledger) UpdateDecayRate(ctx context.Context, category Category, rate types.RatePPM) error {
	if err := auth.Require(ctx, l.authz, auth.CapGovernance); err != nil {
		return err
	}
	if !category.Valid() {
		return ErrInvalidCategory
	}
	if rate < 0 || rate > RateCeiling {
		return ErrRateAboveCeiling
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return ErrPaused
	}

	cfg, err := l.store.GetCategory(ctx, category)
	if err != nil {
		return err
	}
	old := cfg.DecayRate
	cfg.DecayRate = rate
	cfg.Touch()
	if err := l.store.PutCategory(ctx, cfg); err != nil {
		return fmt.Errorf("rate change: %w", err)
	}

	now := l.now()
	l.journal(ctx, journal.KindRateChange, now, func(ev *journal.Event) {
		ev.Category = uint8(category)
		ev.Note = fmt.Sprintf("%s -> %s", old, rate)
	})
	l.logger.Info("decay rate changed", "category", category.String(),
		"old", old.String(), "new", rate.String())
	l.hooks.EmitDecayRateChanged(ctx, uint8(category), old, rate)
	return nil
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

// touch loads (or initializes) the record for one pair and realizes its
// pending decay in memory. Callers mutate the record further and commit
// it with UpsertBalances.
func (l *Ledger) touch(ctx context.Context, account string, category Category, now time.Time) (*AccountBalance, *CategoryConfig, error) {
	cfg, err := l.store.GetCategory(ctx, category)
	if err != nil {
		return nil, nil, err
	}
	b, err := l.store.GetBalance(ctx, account, category)
	if errors.Is(err, ErrBalanceNotFound) {
		b = &AccountBalance{
			Entity:     types.NewEntity(),
			Account:    account,
			Category:   category,
			LastUpdate: now,
		}
		return b, cfg, nil
	}
	if err != nil {
		return nil, nil, err
	}
	l.realizeDecay(b, cfg, now)
	return b, cfg, nil
}

// realizeDecay applies pending whole-day decay to the record in place and
// returns the amount decayed away. LastUpdate advances by exactly the
// days applied, never to now, so sub-day touches cannot suppress decay.
// Expired locks are cleared once their covered days are realized.
func (l *Ledger) realizeDecay(b *AccountBalance, cfg *CategoryConfig, now time.Time) types.Amount {
	days := ElapsedDays(b.LastUpdate, now)
	if days <= 0 {
		return 0
	}
	var reduction types.RatePPM
	if b.Locked(now) || b.Locked(b.LastUpdate) {
		reduction = VaultReduction(b.LockDays)
	}
	rate := EffectiveRate(cfg.DecayRate, cfg.PenaltyMultiplier(b.Amount), reduction)
	remaining, decayed := ApplyDecay(b.Amount, rate, days)
	b.Amount = remaining
	b.LastUpdate = b.LastUpdate.Add(time.Duration(days) * 24 * time.Hour)
	if !b.LockedUntil.IsZero() && !b.LockedUntil.After(now) {
		b.LockedUntil = time.Time{}
		b.LockDays = 0
	}
	return decayed
}

// decayView computes the decayed-to-now value without mutating the stored
// record.
func (l *Ledger) decayView(b *AccountBalance, cfg *CategoryConfig, now time.Time) (types.Amount, types.Amount) {
	days := ElapsedDays(b.LastUpdate, now)
	var reduction types.RatePPM
	if b.Locked(now) || b.Locked(b.LastUpdate) {
		reduction = VaultReduction(b.LockDays)
	}
	rate := EffectiveRate(cfg.DecayRate, cfg.PenaltyMultiplier(b.Amount), reduction)
	return ApplyDecay(b.Amount, rate, days)
}

// journal appends one event, logging rather than failing the operation if
// the append errors.
func (l *Ledger) journal(ctx context.Context, kind journal.Kind, at time.Time, fill func(*journal.Event)) {
	ev := journal.New(kind, at)
	fill(ev)
	if err := l.store.AppendEvent(ctx, ev); err != nil {
		l.logger.Warn("journal append failed", "kind", string(kind), "error", err)
	}
}
