package reservoir_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/statusdothealth/autophage/auth"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/reservoir"
	"github.com/statusdothealth/autophage/store/memory"
	"github.com/statusdothealth/autophage/types"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestReservoir(t *testing.T, opts ...reservoir.Option) (*reservoir.Reservoir, *ledger.Ledger, *testClock) {
	t.Helper()

	s := memory.New()
	ctx := context.Background()
	for _, cfg := range ledger.DefaultCategoryConfigs() {
		cfg.Entity = types.NewEntity()
		if err := s.PutCategory(ctx, cfg); err != nil {
			t.Fatalf("seed category: %v", err)
		}
	}
	if err := s.PutReserve(ctx, &reservoir.ReserveChamber{Entity: types.NewEntity()}); err != nil {
		t.Fatalf("seed reserve: %v", err)
	}

	clock := &testClock{t: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	grants := auth.StaticGrants{}.
		Grant("minter", auth.CapMinter).
		Grant("oracle", auth.CapOracle).
		Grant("treasury", auth.CapTreasury).
		Grant("settler", auth.CapSettlement).
		Grant("reservoir", auth.CapMinter, auth.CapReservoir)

	led := ledger.New(s,
		ledger.WithAuthorizer(grants),
		ledger.WithClock(clock.Now),
	)
	opts = append([]reservoir.Option{
		reservoir.WithAuthorizer(grants),
		reservoir.WithClock(clock.Now),
	}, opts...)
	res := reservoir.New(s, led, opts...)
	return res, led, clock
}

func asPrincipal(p string) context.Context {
	return auth.WithPrincipal(context.Background(), p)
}

func TestSubmitClaimValidation(t *testing.T) {
	r, _, _ := newTestReservoir(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		amount  types.Amount
		urgency int
		wantErr error
	}{
		{"zero amount", 0, 5, reservoir.ErrInvalidAmount},
		{"negative amount", types.Tokens(-1), 5, reservoir.ErrInvalidAmount},
		{"urgency too low", types.Tokens(10), 0, reservoir.ErrInvalidUrgency},
		{"urgency too high", types.Tokens(10), 11, reservoir.ErrInvalidUrgency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.SubmitClaim(ctx, "alice", tt.amount, tt.urgency, "", "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SubmitClaim err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubmitClaimPendsOnEmptyReserve(t *testing.T) {
	r, _, _ := newTestReservoir(t)

	c, err := r.SubmitClaim(context.Background(), "alice", types.Tokens(100), 5, "treatment", "")
	if err != nil {
		t.Fatalf("SubmitClaim: %v", err)
	}
	if c.ID == 0 {
		t.Error("claim id not assigned")
	}
	if c.Ref.IsNil() {
		t.Error("claim ref not assigned")
	}

	got, err := r.GetClaim(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if got.Processed {
		t.Error("claim settled against an empty reserve")
	}
}

func TestOpportunisticSettlementOnSubmit(t *testing.T) {
	r, _, _ := newTestReservoir(t)

	if err := r.DepositReserve(asPrincipal("oracle"), types.Tokens(1_000_000)); err != nil {
		t.Fatalf("DepositReserve: %v", err)
	}

	c, err := r.SubmitClaim(context.Background(), "alice", types.Tokens(100), 5, "", "")
	if err != nil {
		t.Fatalf("SubmitClaim: %v", err)
	}

	got, err := r.GetClaim(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if !got.Processed {
		t.Error("well-funded reserve should settle at submission")
	}
}

func TestProcessClaimsPriorityOrder(t *testing.T) {
	r, _, _ := newTestReservoir(t)
	ctx := context.Background()

	// Empty reserve: all three stay pending.
	low, _ := r.SubmitClaim(ctx, "carol", types.Tokens(50), 3, "", "")
	verified, _ := r.SubmitClaim(ctx, "bob", types.Tokens(200), 7, "", "hash")
	high, _ := r.SubmitClaim(ctx, "alice", types.Tokens(100), 9, "", "")

	if err := r.DepositReserve(asPrincipal("oracle"), types.Tokens(1_000_000)); err != nil {
		t.Fatalf("DepositReserve: %v", err)
	}

	settled, err := r.ProcessClaims(asPrincipal("settler"), 2)
	if err != nil {
		t.Fatalf("ProcessClaims: %v", err)
	}
	if len(settled) != 2 {
		t.Fatalf("settled %d claims, want 2", len(settled))
	}
	if settled[0].ID != high.ID || settled[1].ID != verified.ID {
		t.Errorf("settled order = [%d %d], want [%d %d]",
			settled[0].ID, settled[1].ID, high.ID, verified.ID)
	}

	got, _ := r.GetClaim(ctx, low.ID)
	if got.Processed {
		t.Error("low-priority claim settled beyond maxCount")
	}

	// Next pass picks up the remainder.
	settled, err = r.ProcessClaims(asPrincipal("settler"), 0)
	if err != nil {
		t.Fatalf("ProcessClaims: %v", err)
	}
	if len(settled) != 1 || settled[0].ID != low.ID {
		t.Errorf("second pass settled %v, want the remaining claim", settled)
	}
}

func TestProcessClaimsRequiresCapability(t *testing.T) {
	r, _, _ := newTestReservoir(t)
	if _, err := r.ProcessClaims(asPrincipal("oracle"), 0); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("ProcessClaims err = %v, want ErrUnauthorized", err)
	}
}

func TestSolvencyBoundary(t *testing.T) {
	r, _, _ := newTestReservoir(t)
	ctx := context.Background()

	if err := r.DepositReserve(asPrincipal("oracle"), types.Tokens(1000)); err != nil {
		t.Fatalf("DepositReserve: %v", err)
	}

	// Paying X leaves balance 1000-X and requires coverage of 3X rolling
	// spend, so X = 250 sits exactly on the floor.
	c, err := r.SubmitClaim(ctx, "alice", types.Tokens(250), 5, "", "")
	if err != nil {
		t.Fatalf("SubmitClaim: %v", err)
	}
	got, _ := r.GetClaim(ctx, c.ID)
	if !got.Processed {
		t.Fatal("boundary claim should settle")
	}

	// One more token of payout would breach the floor: 749 < 3*251.
	c2, err := r.SubmitClaim(ctx, "bob", types.Tokens(1), 5, "", "")
	if err != nil {
		t.Fatalf("SubmitClaim: %v", err)
	}
	got, _ = r.GetClaim(ctx, c2.ID)
	if got.Processed {
		t.Error("claim settled past the solvency floor")
	}

	stats, err := r.GetReservoirStats(ctx)
	if err != nil {
		t.Fatalf("GetReservoirStats: %v", err)
	}
	if stats.ReserveBalance != types.Tokens(750) {
		t.Errorf("reserve = %s, want 750.000000", stats.ReserveBalance)
	}
	if stats.PendingClaims != 1 {
		t.Errorf("pending = %d, want 1", stats.PendingClaims)
	}
	// 750 on a 750 floor is exactly solvent.
	if !stats.Solvent {
		t.Error("Solvent = false with the reserve on the floor")
	}
}

func TestDeferredClaimSettlesAfterDeposit(t *testing.T) {
	r, _, _ := newTestReservoir(t)
	ctx := context.Background()

	// Deferred against the empty reserve.
	c, err := r.SubmitClaim(ctx, "alice", types.Tokens(1000), 8, "", "")
	if err != nil {
		t.Fatalf("SubmitClaim: %v", err)
	}
	got, _ := r.GetClaim(ctx, c.ID)
	if got.Processed {
		t.Fatal("claim settled against an empty reserve")
	}

	// The deposit itself settles it; no explicit processing pass needed.
	if err := r.DepositReserve(asPrincipal("oracle"), types.Tokens(1_000_000)); err != nil {
		t.Fatalf("DepositReserve: %v", err)
	}
	got, err = r.GetClaim(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if !got.Processed {
		t.Fatal("deferred claim still pending after a funding deposit")
	}

	stats, err := r.GetReservoirStats(ctx)
	if err != nil {
		t.Fatalf("GetReservoirStats: %v", err)
	}
	if stats.ReserveBalance != types.Tokens(999_000) {
		t.Errorf("reserve = %s, want 999000.000000", stats.ReserveBalance)
	}
	if stats.PendingClaims != 0 {
		t.Errorf("pending = %d, want 0", stats.PendingClaims)
	}
}

func TestWithdrawReserve(t *testing.T) {
	r, _, _ := newTestReservoir(t)

	if err := r.DepositReserve(asPrincipal("oracle"), types.Tokens(1000)); err != nil {
		t.Fatalf("DepositReserve: %v", err)
	}

	// Floor is 20% of deposits = 200. Withdrawing 800 lands exactly on it.
	if err := r.WithdrawReserve(asPrincipal("treasury"), types.Tokens(800)); err != nil {
		t.Fatalf("WithdrawReserve: %v", err)
	}

	err := r.WithdrawReserve(asPrincipal("treasury"), types.Tokens(1))
	if !errors.Is(err, reservoir.ErrSolvencyAtRisk) {
		t.Errorf("WithdrawReserve err = %v, want ErrSolvencyAtRisk", err)
	}

	err = r.WithdrawReserve(asPrincipal("oracle"), types.Tokens(1))
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("WithdrawReserve err = %v, want ErrUnauthorized", err)
	}
}

func TestAnnualRevenueRaisesFloor(t *testing.T) {
	r, _, _ := newTestReservoir(t)

	if err := r.DepositReserve(asPrincipal("oracle"), types.Tokens(1000)); err != nil {
		t.Fatalf("DepositReserve: %v", err)
	}
	// 5% of 100k revenue = 5000, far above the 200 deposit floor.
	if err := r.UpdateAnnualRevenue(asPrincipal("treasury"), types.Tokens(100_000)); err != nil {
		t.Fatalf("UpdateAnnualRevenue: %v", err)
	}

	stats, err := r.GetReservoirStats(context.Background())
	if err != nil {
		t.Fatalf("GetReservoirStats: %v", err)
	}
	if stats.RequiredReserve != types.Tokens(5000) {
		t.Errorf("required = %s, want 5000.000000", stats.RequiredReserve)
	}
	if stats.Solvent {
		t.Error("Solvent = true with the reserve below the revenue floor")
	}

	// Everything is below the floor now; nothing can be withdrawn.
	err = r.WithdrawReserve(asPrincipal("treasury"), types.Tokens(1))
	if !errors.Is(err, reservoir.ErrSolvencyAtRisk) {
		t.Errorf("WithdrawReserve err = %v, want ErrSolvencyAtRisk", err)
	}
}

func TestSweepDecayAndDistributeReward(t *testing.T) {
	r, led, clock := newTestReservoir(t)

	if err := led.Mint(asPrincipal("minter"), "alice", ledger.CategoryRhythm, types.Tokens(1000)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	clock.Advance(24 * time.Hour)

	total, err := r.SweepDecay(asPrincipal("oracle"))
	if err != nil {
		t.Fatalf("SweepDecay: %v", err)
	}
	if total != types.Tokens(50) {
		t.Errorf("swept = %s, want 50.000000", total)
	}

	// The chamber funds a reward mint to bob.
	if err := r.DistributeReward(asPrincipal("oracle"), "bob", ledger.CategoryRhythm, types.Tokens(30)); err != nil {
		t.Fatalf("DistributeReward: %v", err)
	}
	got, err := led.GetBalance(context.Background(), "bob", ledger.CategoryRhythm)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got != types.Tokens(30) {
		t.Errorf("bob = %s, want 30.000000", got)
	}

	// Only 20 remain in the chamber.
	err = r.DistributeReward(asPrincipal("oracle"), "bob", ledger.CategoryRhythm, types.Tokens(21))
	if !errors.Is(err, reservoir.ErrChamberInsufficient) {
		t.Errorf("DistributeReward err = %v, want ErrChamberInsufficient", err)
	}

	stats, err := r.GetReservoirStats(context.Background())
	if err != nil {
		t.Fatalf("GetReservoirStats: %v", err)
	}
	ch := stats.Chambers[ledger.CategoryRhythm]
	if ch.Collected != types.Tokens(50) || ch.Distributed != types.Tokens(30) || ch.Current != types.Tokens(20) {
		t.Errorf("chamber = collected %s distributed %s current %s, want 50/30/20",
			ch.Collected, ch.Distributed, ch.Current)
	}
}

func TestCalculateMetabolicPrice(t *testing.T) {
	market := reservoir.StaticMarketData{
		EnergyCost:         decimal.NewFromInt(100),
		TransactionVolume:  decimal.NewFromInt(50),
		CatalystInfluence:  decimal.RequireFromString("0.5"),
		TokenSupply:        decimal.NewFromInt(1000),
		TokenVelocity:      decimal.NewFromInt(2),
		ActivityMultiplier: decimal.RequireFromString("0.25"),
	}
	r, _, _ := newTestReservoir(t, reservoir.WithMarketData(market))

	price, err := r.CalculateMetabolicPrice(context.Background())
	if err != nil {
		t.Fatalf("CalculateMetabolicPrice: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.09")) {
		t.Errorf("price = %s, want 0.09", price)
	}
}

func TestCalculateMetabolicPriceNoProvider(t *testing.T) {
	r, _, _ := newTestReservoir(t)
	_, err := r.CalculateMetabolicPrice(context.Background())
	if !errors.Is(err, reservoir.ErrNoMarketData) {
		t.Errorf("err = %v, want ErrNoMarketData", err)
	}
}

func TestReservoirPaused(t *testing.T) {
	r, _, _ := newTestReservoir(t)
	r.SetPaused(true)

	_, err := r.SubmitClaim(context.Background(), "alice", types.Tokens(1), 5, "", "")
	if !errors.Is(err, reservoir.ErrPaused) {
		t.Errorf("SubmitClaim err = %v, want ErrPaused", err)
	}
	err = r.DepositReserve(asPrincipal("oracle"), types.Tokens(1))
	if !errors.Is(err, reservoir.ErrPaused) {
		t.Errorf("DepositReserve err = %v, want ErrPaused", err)
	}

	// Reads stay available.
	if _, err := r.GetReservoirStats(context.Background()); err != nil {
		t.Errorf("GetReservoirStats while paused: %v", err)
	}
}
