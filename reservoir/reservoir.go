package reservoir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/statusdothealth/autophage/auth"
	"github.com/statusdothealth/autophage/id"
	"github.com/statusdothealth/autophage/journal"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/plugin"
	"github.com/statusdothealth/autophage/types"
)

// Validation and policy sentinels.
var (
	// ErrInvalidUrgency is returned for urgency outside 1-10.
	ErrInvalidUrgency = errors.New("reservoir: urgency must be 1-10")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("reservoir: amount must be positive")

	// ErrSolvencyAtRisk is returned when a withdrawal would drop the
	// reserve below the required minimum.
	ErrSolvencyAtRisk = errors.New("reservoir: reserve would fall below required minimum")

	// ErrChamberInsufficient is returned when a reward exceeds a
	// chamber's spendable balance.
	ErrChamberInsufficient = errors.New("reservoir: chamber balance insufficient")

	// ErrNoMarketData is returned by price calculation when no market
	// data provider is configured.
	ErrNoMarketData = errors.New("reservoir: no market data provider")

	// ErrPaused is returned by mutating operations while the reservoir is
	// paused.
	ErrPaused = errors.New("reservoir: operations paused")
)

// Config carries the solvency-rule ratios and settlement tuning knobs.
type Config struct {
	// DepositRatio is the fraction of cumulative deposits the reserve
	// must retain.
	DepositRatio types.RatePPM

	// MonthsCoverage is how many months of rolling settlement outflow the
	// reserve must cover.
	MonthsCoverage int64

	// RevenueRatio is the fraction of declared annual revenue the reserve
	// must retain.
	RevenueRatio types.RatePPM

	// OpportunisticBatch caps how many claims a submission may settle
	// inline before handing off to explicit processing.
	OpportunisticBatch int

	// ServicePrincipal is the principal the reservoir acts as when it
	// calls into the ledger. Grant it minter and reservoir capabilities.
	ServicePrincipal string
}

// DefaultConfig returns the standard solvency parameters: 20% of
// deposits, 3 months of spending, 5% of annual revenue.
func DefaultConfig() Config {
	return Config{
		DepositRatio:       types.PercentRate(20),
		MonthsCoverage:     3,
		RevenueRatio:       types.PercentRate(5),
		OpportunisticBatch: 10,
		ServicePrincipal:   "reservoir",
	}
}

// Reservoir is the settlement reservoir service.
type Reservoir struct {
	mu     sync.Mutex
	store  Store
	ledger *ledger.Ledger
	authz  auth.Authorizer
	hooks  *plugin.Registry
	logger *slog.Logger
	now    func() time.Time
	market MarketDataProvider
	cfg    Config
	paused bool
}

// Option configures a Reservoir.
type Option func(*Reservoir)

// WithAuthorizer sets the capability authorizer.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(r *Reservoir) { r.authz = a }
}

// WithHooks sets the plugin registry events are emitted to.
func WithHooks(reg *plugin.Registry) Option {
	return func(r *Reservoir) { r.hooks = reg }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reservoir) { r.logger = logger }
}

// WithClock overrides the time source. Test use.
func WithClock(now func() time.Time) Option {
	return func(r *Reservoir) { r.now = now }
}

// WithMarketData sets the provider used for metabolic price calculation.
func WithMarketData(m MarketDataProvider) Option {
	return func(r *Reservoir) { r.market = m }
}

// WithConfig replaces the solvency configuration.
func WithConfig(cfg Config) Option {
	return func(r *Reservoir) { r.cfg = cfg }
}

// New creates a settlement reservoir backed by the given store and paying
// rewards through the given ledger.
func New(store Store, led *ledger.Ledger, opts ...Option) *Reservoir {
	r := &Reservoir{
		store:  store,
		ledger: led,
		hooks:  plugin.NewRegistry(),
		logger: slog.Default(),
		now:    time.Now,
		cfg:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetPaused freezes or resumes mutating operations.
func (r *Reservoir) SetPaused(paused bool) {
	r.mu.Lock()
	r.paused = paused
	r.mu.Unlock()
}

// Paused reports the current pause state.
func (r *Reservoir) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// serviceContext returns ctx acting as the reservoir's own principal, for
// calls into the ledger.
func (r *Reservoir) serviceContext(ctx context.Context) context.Context {
	return auth.WithPrincipal(ctx, r.cfg.ServicePrincipal)
}

// RequiredReserve returns the solvency floor for the given reserve state:
// the largest of the deposit-ratio, spending-coverage and revenue-ratio
// terms.
func (r *Reservoir) RequiredReserve(res *ReserveChamber, now time.Time) types.Amount {
	byDeposits := res.TotalDeposits.MulPPM(r.cfg.DepositRatio.PPM())
	bySpending := res.MonthlySpending(now).Multiply(r.cfg.MonthsCoverage)
	byRevenue := res.AnnualRevenue.MulPPM(r.cfg.RevenueRatio.PPM())
	return byDeposits.Max(bySpending).Max(byRevenue)
}

// ──────────────────────────────────────────────────
// Claims
// ──────────────────────────────────────────────────

// SubmitClaim enqueues a settlement request. Any principal may submit.
// After the claim is durably queued the reservoir opportunistically
// settles up to OpportunisticBatch pending claims, so a well-funded
// reserve pays small claims at submission time.
func (r *Reservoir) SubmitClaim(ctx context.Context, claimant string, amount types.Amount, urgency int, claimType, verificationHash string) (*Claim, error) {
	if claimant == "" {
		return nil, fmt.Errorf("%w: empty claimant", ErrInvalidAmount)
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if urgency < MinUrgency || urgency > MaxUrgency {
		return nil, ErrInvalidUrgency
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return nil, ErrPaused
	}

	now := r.now()
	c := &Claim{
		Entity:           types.NewEntity(),
		Ref:              id.NewClaimRef(),
		Claimant:         claimant,
		Amount:           amount,
		Urgency:          urgency,
		ClaimType:        claimType,
		VerificationHash: verificationHash,
		SubmittedAt:      now,
	}
	if err := r.store.InsertClaim(ctx, c); err != nil {
		return nil, fmt.Errorf("submit claim: %w", err)
	}

	r.journal(ctx, journal.KindClaimSubmitted, now, func(ev *journal.Event) {
		ev.Account = claimant
		ev.Amount = amount
		ev.ClaimID = c.ID
		ev.Note = claimType
	})
	r.logger.Info("claim submitted", "claim", c.ID, "claimant", claimant,
		"amount", amount.String(), "urgency", urgency)
	r.hooks.EmitClaimSubmitted(ctx, c)

	// Best effort: a settlement failure here leaves the claim pending for
	// the next explicit processing pass.
	if _, err := r.settlePending(ctx, r.cfg.OpportunisticBatch); err != nil {
		r.logger.Warn("opportunistic settlement failed", "error", err)
	}
	return c, nil
}

// GetClaim returns one claim by ID.
func (r *Reservoir) GetClaim(ctx context.Context, claimID uint64) (*Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.GetClaim(ctx, claimID)
}

// ProcessClaims settles up to maxCount pending claims in priority order.
// Requires the settlement capability. maxCount <= 0 means no limit.
// Returns the claims settled in this pass.
func (r *Reservoir) ProcessClaims(ctx context.Context, maxCount int) ([]*Claim, error) {
	if err := auth.Require(ctx, r.authz, auth.CapSettlement); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return nil, ErrPaused
	}
	return r.settlePending(ctx, maxCount)
}

// settlePending pays pending claims strictly in priority order, stopping
// at the first claim the solvency rule cannot fund. Lower-priority claims
// never jump an unfundable higher-priority one; they wait for the next
// pass. Caller holds the mutex.
func (r *Reservoir) settlePending(ctx context.Context, maxCount int) ([]*Claim, error) {
	pending, err := r.store.ListPendingClaims(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}
	res, err := r.store.GetReserve(ctx)
	if err != nil {
		return nil, err
	}

	q := newClaimQueue(pending)
	now := r.now()
	var settled []*Claim
	for c := q.pop(); c != nil; c = q.pop() {
		if maxCount > 0 && len(settled) >= maxCount {
			break
		}

		// Solvency check against the state the payout would leave behind.
		after := *res
		after.Balance = after.Balance.Sub(c.Amount)
		after.recordSpend(c.Amount, now)
		required := r.RequiredReserve(&after, now)
		if after.Balance.IsNegative() || after.Balance.LessThan(required) {
			shortfall := required.Sub(after.Balance)
			r.logger.Info("claim deferred", "claim", c.ID, "amount", c.Amount.String(),
				"required", required.String(), "reserve", res.Balance.String())
			r.hooks.EmitSolvencyBlocked(ctx, required, res.Balance)
			r.hooks.EmitClaimDeferred(ctx, c, shortfall)
			break
		}

		res.Balance = after.Balance
		res.DailySpend = after.DailySpend
		res.CurrentEpochDay = after.CurrentEpochDay
		res.Touch()
		c.Processed = true
		c.ProcessedAt = now
		c.Touch()
		if err := r.store.PutReserve(ctx, res); err != nil {
			return settled, fmt.Errorf("settle claim %d: %w", c.ID, err)
		}
		if err := r.store.UpdateClaim(ctx, c); err != nil {
			return settled, fmt.Errorf("settle claim %d: %w", c.ID, err)
		}

		r.journal(ctx, journal.KindClaimSettled, now, func(ev *journal.Event) {
			ev.Account = c.Claimant
			ev.Amount = c.Amount
			ev.ClaimID = c.ID
		})
		r.logger.Info("claim settled", "claim", c.ID, "claimant", c.Claimant,
			"amount", c.Amount.String(), "reserve", res.Balance.String())
		r.hooks.EmitClaimSettled(ctx, c, res.Balance)
		settled = append(settled, c)
	}
	return settled, nil
}

// ──────────────────────────────────────────────────
// Reserve
// ──────────────────────────────────────────────────

// DepositReserve credits the fiat reserve. Requires the oracle
// capability. Deposits grow both the balance and the cumulative deposit
// total that feeds the solvency floor, then opportunistically settle up
// to OpportunisticBatch pending claims the new funds can cover.
func (r *Reservoir) DepositReserve(ctx context.Context, amount types.Amount) error {
	if err := auth.Require(ctx, r.authz, auth.CapOracle); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return ErrPaused
	}

	res, err := r.store.GetReserve(ctx)
	if err != nil {
		return err
	}
	res.Balance = res.Balance.Add(amount)
	res.TotalDeposits = res.TotalDeposits.Add(amount)
	res.Touch()
	if err := r.store.PutReserve(ctx, res); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}

	now := r.now()
	r.journal(ctx, journal.KindDeposit, now, func(ev *journal.Event) {
		ev.Amount = amount
	})
	r.logger.Info("reserve deposited", "amount", amount.String(), "balance", res.Balance.String())
	r.hooks.EmitReserveDeposited(ctx, amount, res.Balance)

	// Best effort: claims deferred while the reserve was thin settle now
	// that it can fund them.
	if _, err := r.settlePending(ctx, r.cfg.OpportunisticBatch); err != nil {
		r.logger.Warn("opportunistic settlement failed", "error", err)
	}
	return nil
}

// WithdrawReserve debits the fiat reserve for operational use. Requires
// the treasury capability and is gated by the solvency rule: the
// remaining balance must still meet the required minimum.
func (r *Reservoir) WithdrawReserve(ctx context.Context, amount types.Amount) error {
	if err := auth.Require(ctx, r.authz, auth.CapTreasury); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return ErrPaused
	}

	res, err := r.store.GetReserve(ctx)
	if err != nil {
		return err
	}
	now := r.now()
	remaining := res.Balance.Sub(amount)
	required := r.RequiredReserve(res, now)
	if remaining.IsNegative() || remaining.LessThan(required) {
		r.hooks.EmitSolvencyBlocked(ctx, required, res.Balance)
		return ErrSolvencyAtRisk
	}

	res.Balance = remaining
	res.Touch()
	if err := r.store.PutReserve(ctx, res); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}

	r.journal(ctx, journal.KindWithdrawal, now, func(ev *journal.Event) {
		ev.Amount = amount
	})
	r.logger.Info("reserve withdrawn", "amount", amount.String(), "balance", res.Balance.String())
	r.hooks.EmitReserveWithdrawn(ctx, amount, res.Balance)
	return nil
}

// UpdateAnnualRevenue records the declared annual revenue figure that
// feeds the solvency floor. Requires the treasury capability.
func (r *Reservoir) UpdateAnnualRevenue(ctx context.Context, revenue types.Amount) error {
	if err := auth.Require(ctx, r.authz, auth.CapTreasury); err != nil {
		return err
	}
	if revenue.IsNegative() {
		return ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return ErrPaused
	}

	res, err := r.store.GetReserve(ctx)
	if err != nil {
		return err
	}
	res.AnnualRevenue = revenue
	res.Touch()
	if err := r.store.PutReserve(ctx, res); err != nil {
		return fmt.Errorf("revenue update: %w", err)
	}

	r.journal(ctx, journal.KindRevenueUpdate, r.now(), func(ev *journal.Event) {
		ev.Amount = revenue
	})
	r.logger.Info("annual revenue updated", "revenue", revenue.String())
	return nil
}

// ──────────────────────────────────────────────────
// Chambers and rewards
// ──────────────────────────────────────────────────

// SweepDecay runs a ledger-wide decay collection and credits the decayed
// tokens to the per-category chambers for later redistribution. Requires
// the oracle capability. Returns the total collected.
func (r *Reservoir) SweepDecay(ctx context.Context) (types.Amount, error) {
	if err := auth.Require(ctx, r.authz, auth.CapOracle); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return 0, ErrPaused
	}

	results, err := r.ledger.CollectDecay(r.serviceContext(ctx), nil, nil)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	perCategory := make(map[ledger.Category]types.Amount)
	var total types.Amount
	for _, dr := range results {
		perCategory[dr.Category] = perCategory[dr.Category].Add(dr.Collected)
		total = total.Add(dr.Collected)
	}
	for cat, amount := range perCategory {
		ch, err := r.store.GetChamber(ctx, cat)
		if errors.Is(err, ErrChamberNotFound) {
			ch = &TokenChamber{Entity: types.NewEntity(), Category: cat}
		} else if err != nil {
			return total, err
		}
		ch.Collected = ch.Collected.Add(amount)
		ch.Current = ch.Current.Add(amount)
		ch.Touch()
		if err := r.store.PutChamber(ctx, ch); err != nil {
			return total, fmt.Errorf("sweep: credit chamber %s: %w", cat, err)
		}
	}

	r.logger.Info("decay swept", "pairs", len(results), "total", total.String())
	return total, nil
}

// DistributeReward mints amount to recipient from a category's chamber.
// Requires the oracle capability. The chamber's spendable balance funds
// the mint, so rewards recycle decayed tokens rather than inflating
// supply.
func (r *Reservoir) DistributeReward(ctx context.Context, recipient string, category ledger.Category, amount types.Amount) error {
	if err := auth.Require(ctx, r.authz, auth.CapOracle); err != nil {
		return err
	}
	if !category.Valid() {
		return ledger.ErrInvalidCategory
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return ErrPaused
	}

	ch, err := r.store.GetChamber(ctx, category)
	if errors.Is(err, ErrChamberNotFound) {
		return ErrChamberInsufficient
	}
	if err != nil {
		return err
	}
	if ch.Current.LessThan(amount) {
		return ErrChamberInsufficient
	}

	if err := r.ledger.Mint(r.serviceContext(ctx), recipient, category, amount); err != nil {
		return fmt.Errorf("reward mint: %w", err)
	}

	ch.Current = ch.Current.Sub(amount)
	ch.Distributed = ch.Distributed.Add(amount)
	ch.Touch()
	if err := r.store.PutChamber(ctx, ch); err != nil {
		return fmt.Errorf("reward: debit chamber: %w", err)
	}

	now := r.now()
	r.journal(ctx, journal.KindReward, now, func(ev *journal.Event) {
		ev.Account = recipient
		ev.Category = uint8(category)
		ev.Amount = amount
	})
	r.logger.Info("reward distributed", "recipient", recipient,
		"category", category.String(), "amount", amount.String())
	r.hooks.EmitRewardDistributed(ctx, recipient, uint8(category), amount)
	return nil
}

// ──────────────────────────────────────────────────
// Pricing and stats
// ──────────────────────────────────────────────────

// CalculateMetabolicPrice computes the current token price from the
// configured market data provider.
func (r *Reservoir) CalculateMetabolicPrice(ctx context.Context) (decimal.Decimal, error) {
	if r.market == nil {
		return decimal.Zero, ErrNoMarketData
	}
	snap, err := r.market.Snapshot(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("market snapshot: %w", err)
	}
	return metabolicPrice(snap)
}

// GetReservoirStats returns an operator snapshot of reserve health, queue
// depth and chamber balances.
func (r *Reservoir) GetReservoirStats(ctx context.Context) (*ReservoirStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.store.GetReserve(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := r.store.ListPendingClaims(ctx)
	if err != nil {
		return nil, err
	}
	chambers, err := r.store.ListChambers(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	stats := &ReservoirStats{
		ReserveBalance:  res.Balance,
		RequiredReserve: r.RequiredReserve(res, now),
		TotalDeposits:   res.TotalDeposits,
		AnnualRevenue:   res.AnnualRevenue,
		MonthlySpending: res.MonthlySpending(now),
		PendingClaims:   len(pending),
		Chambers:        make(map[ledger.Category]TokenChamber, len(chambers)),
	}
	stats.Solvent = !stats.ReserveBalance.LessThan(stats.RequiredReserve)
	for _, c := range pending {
		stats.PendingValue = stats.PendingValue.Add(c.Amount)
	}
	for _, ch := range chambers {
		stats.Chambers[ch.Category] = *ch
	}
	return stats, nil
}

// journal appends one event, logging rather than failing the operation if
// the append errors.
func (r *Reservoir) journal(ctx context.Context, kind journal.Kind, at time.Time, fill func(*journal.Event)) {
	ev := journal.New(kind, at)
	fill(ev)
	if err := r.store.AppendEvent(ctx, ev); err != nil {
		r.logger.Warn("journal append failed", "kind", string(kind), "error", err)
	}
}
