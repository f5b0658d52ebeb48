package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/statusdothealth/autophage/auth"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/store/memory"
	"github.com/statusdothealth/autophage/types"
)

// testClock is a manually advanced time source.
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLedger(t *testing.T) (*ledger.Ledger, *testClock) {
	t.Helper()

	s := memory.New()
	ctx := context.Background()
	for _, cfg := range ledger.DefaultCategoryConfigs() {
		cfg.Entity = types.NewEntity()
		if err := s.PutCategory(ctx, cfg); err != nil {
			t.Fatalf("seed category: %v", err)
		}
	}

	clock := &testClock{t: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	grants := auth.StaticGrants{}.
		Grant("minter", auth.CapMinter).
		Grant("sweeper", auth.CapReservoir).
		Grant("gov", auth.CapGovernance)

	l := ledger.New(s,
		ledger.WithAuthorizer(grants),
		ledger.WithClock(clock.Now),
	)
	return l, clock
}

func asPrincipal(p string) context.Context {
	return auth.WithPrincipal(context.Background(), p)
}

func TestMint(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := asPrincipal("minter")

	if err := l.Mint(ctx, "alice", ledger.CategoryRhythm, types.Tokens(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	got, err := l.GetBalance(ctx, "alice", ledger.CategoryRhythm)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got != types.Tokens(100) {
		t.Errorf("balance = %s, want 100.000000", got)
	}

	issued, err := l.TotalIssued(ctx, ledger.CategoryRhythm)
	if err != nil {
		t.Fatalf("TotalIssued: %v", err)
	}
	if issued != types.Tokens(100) {
		t.Errorf("total issued = %s, want 100.000000", issued)
	}
}

func TestMintValidation(t *testing.T) {
	l, _ := newTestLedger(t)

	tests := []struct {
		name     string
		ctx      context.Context
		category ledger.Category
		amount   types.Amount
		wantErr  error
	}{
		{"no principal", context.Background(), ledger.CategoryRhythm, types.Tokens(1), auth.ErrUnauthorized},
		{"wrong capability", asPrincipal("gov"), ledger.CategoryRhythm, types.Tokens(1), auth.ErrUnauthorized},
		{"bad category", asPrincipal("minter"), ledger.Category(9), types.Tokens(1), ledger.ErrInvalidCategory},
		{"zero amount", asPrincipal("minter"), ledger.CategoryRhythm, 0, ledger.ErrInvalidAmount},
		{"negative amount", asPrincipal("minter"), ledger.CategoryRhythm, types.Tokens(-5), ledger.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Mint(tt.ctx, "alice", tt.category, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Mint err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecayOverTime(t *testing.T) {
	l, clock := newTestLedger(t)
	ctx := asPrincipal("minter")

	// Rhythm decays 5% per day.
	if err := l.Mint(ctx, "alice", ledger.CategoryRhythm, types.Tokens(1000)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	check := func(days int, wantMicro int64) {
		t.Helper()
		got, err := l.GetBalance(ctx, "alice", ledger.CategoryRhythm)
		if err != nil {
			t.Fatalf("GetBalance after %d days: %v", days, err)
		}
		diff := got.Micro() - wantMicro
		if diff < -5 || diff > 5 {
			t.Errorf("after %d days balance = %s, want ~%d micro", days, got, wantMicro)
		}
	}

	clock.Advance(24 * time.Hour)
	check(1, 950_000_000)

	clock.Advance(6 * 24 * time.Hour)
	check(7, 698_337_296)

	clock.Advance(7 * 24 * time.Hour)
	check(14, 487_674_979)
}

func TestPartialDaysDoNotDecay(t *testing.T) {
	l, clock := newTestLedger(t)
	ctx := asPrincipal("minter")

	if err := l.Mint(ctx, "alice", ledger.CategoryRhythm, types.Tokens(1000)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// Repeated sub-day reads must not advance the decay clock.
	for i := 0; i < 10; i++ {
		clock.Advance(2 * time.Hour)
		if _, err := l.GetBalance(ctx, "alice", ledger.CategoryRhythm); err != nil {
			t.Fatalf("GetBalance: %v", err)
		}
	}

	// 20 hours elapsed in total: still day zero.
	got, _ := l.GetBalance(ctx, "alice", ledger.CategoryRhythm)
	if got != types.Tokens(1000) {
		t.Errorf("balance = %s, want 1000.000000 before a full day", got)
	}

	clock.Advance(4 * time.Hour)
	got, _ = l.GetBalance(ctx, "alice", ledger.CategoryRhythm)
	if got != types.Tokens(950) {
		t.Errorf("balance = %s, want 950.000000 after one full day", got)
	}
}

func TestFrequentTouchesDoNotSuppressDecay(t *testing.T) {
	l, clock := newTestLedger(t)
	ctx := asPrincipal("minter")

	if err := l.Mint(ctx, "alice", ledger.CategoryRhythm, types.Tokens(1000)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// Touch the record with a tiny mint every 20 hours. If touches reset
	// the clock to now, no decay would ever apply.
	for i := 0; i < 6; i++ {
		clock.Advance(20 * time.Hour)
		if err := l.Mint(ctx, "bob", ledger.CategoryRhythm, types.Micro(1)); err != nil {
			t.Fatalf("Mint: %v", err)
		}
		if _, err := l.GetBalance(ctx, "alice", ledger.CategoryRhythm); err != nil {
			t.Fatalf("GetBalance: %v", err)
		}
	}

	// 120 hours = 5 whole days elapsed.
	got, _ := l.GetBalance(ctx, "alice", ledger.CategoryRhythm)
	want, _ := ledger.ApplyDecay(types.Tokens(1000), types.PercentRate(5), 5)
	if got != want {
		t.Errorf("balance = %s, want %s after 5 days of touches", got, want)
	}
}

func TestTransfer(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.Mint(asPrincipal("minter"), "alice", ledger.CategoryHealing, types.Tokens(50)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if err := l.Transfer(asPrincipal("alice"), "alice", "bob", ledger.CategoryHealing, types.Tokens(20)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	got, _ := l.GetBalance(context.Background(), "alice", ledger.CategoryHealing)
	if got != types.Tokens(30) {
		t.Errorf("alice = %s, want 30.000000", got)
	}
	got, _ = l.GetBalance(context.Background(), "bob", ledger.CategoryHealing)
	if got != types.Tokens(20) {
		t.Errorf("bob = %s, want 20.000000", got)
	}
}

func TestTransferValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	if err := l.Mint(asPrincipal("minter"), "alice", ledger.CategoryHealing, types.Tokens(50)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	tests := []struct {
		name    string
		ctx     context.Context
		from    string
		amount  types.Amount
		wantErr error
	}{
		{"not the owner", asPrincipal("mallory"), "alice", types.Tokens(1), auth.ErrUnauthorized},
		{"no principal", context.Background(), "alice", types.Tokens(1), auth.ErrUnauthorized},
		{"insufficient", asPrincipal("alice"), "alice", types.Tokens(500), ledger.ErrInsufficientBalance},
		{"zero amount", asPrincipal("alice"), "alice", 0, ledger.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Transfer(tt.ctx, tt.from, "bob", ledger.CategoryHealing, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Transfer err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVaultLock(t *testing.T) {
	l, clock := newTestLedger(t)
	ctx := asPrincipal("minter")

	if err := l.Mint(ctx, "alice", ledger.CategoryRhythm, types.Tokens(1000)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// 365-day lock reduces the 5% rate by 90% to 0.5%/day.
	if err := l.LockInVault(asPrincipal("alice"), "alice", ledger.CategoryRhythm, types.Tokens(1000), 365); err != nil {
		t.Fatalf("LockInVault: %v", err)
	}

	clock.Advance(24 * time.Hour)
	got, _ := l.GetBalance(ctx, "alice", ledger.CategoryRhythm)
	if got != types.Tokens(995) {
		t.Errorf("locked balance = %s, want 995.000000 after one day", got)
	}

	// Locked balances cannot be transferred.
	err := l.Transfer(asPrincipal("alice"), "alice", "bob", ledger.CategoryRhythm, types.Tokens(10))
	if !errors.Is(err, ledger.ErrBalanceLocked) {
		t.Errorf("Transfer err = %v, want ErrBalanceLocked", err)
	}

	// A second lock on the same record is rejected.
	err = l.LockInVault(asPrincipal("alice"), "alice", ledger.CategoryRhythm, types.Tokens(1), 30)
	if !errors.Is(err, ledger.ErrAlreadyLocked) {
		t.Errorf("second LockInVault err = %v, want ErrAlreadyLocked", err)
	}
}

func TestTransferToLockedAccount(t *testing.T) {
	l, _ := newTestLedger(t)
	mint := asPrincipal("minter")

	if err := l.Mint(mint, "alice", ledger.CategoryRhythm, types.Tokens(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.Mint(mint, "bob", ledger.CategoryRhythm, types.Tokens(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.LockInVault(asPrincipal("bob"), "bob", ledger.CategoryRhythm, types.Tokens(100), 90); err != nil {
		t.Fatalf("LockInVault: %v", err)
	}

	// Only the sender's lock matters; a locked recipient still receives.
	if err := l.Transfer(asPrincipal("alice"), "alice", "bob", ledger.CategoryRhythm, types.Tokens(25)); err != nil {
		t.Fatalf("Transfer to locked account: %v", err)
	}
	got, _ := l.GetBalance(context.Background(), "bob", ledger.CategoryRhythm)
	if got != types.Tokens(125) {
		t.Errorf("bob = %s, want 125.000000", got)
	}

	// The locked recipient still cannot send.
	err := l.Transfer(asPrincipal("bob"), "bob", "alice", ledger.CategoryRhythm, types.Tokens(1))
	if !errors.Is(err, ledger.ErrBalanceLocked) {
		t.Errorf("Transfer from locked account err = %v, want ErrBalanceLocked", err)
	}
}

func TestVaultLockValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	if err := l.Mint(asPrincipal("minter"), "alice", ledger.CategoryRhythm, types.Tokens(10)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	tests := []struct {
		name    string
		ctx     context.Context
		days    int
		amount  types.Amount
		wantErr error
	}{
		{"too short", asPrincipal("alice"), 29, types.Tokens(1), ledger.ErrInvalidLockDuration},
		{"too long", asPrincipal("alice"), 366, types.Tokens(1), ledger.ErrInvalidLockDuration},
		{"not the owner", asPrincipal("bob"), 90, types.Tokens(1), auth.ErrUnauthorized},
		{"exceeds balance", asPrincipal("alice"), 90, types.Tokens(100), ledger.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.LockInVault(tt.ctx, "alice", ledger.CategoryRhythm, tt.amount, tt.days)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LockInVault err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLockExpiry(t *testing.T) {
	l, clock := newTestLedger(t)

	if err := l.Mint(asPrincipal("minter"), "alice", ledger.CategoryFoundation, types.Tokens(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.LockInVault(asPrincipal("alice"), "alice", ledger.CategoryFoundation, types.Tokens(100), 30); err != nil {
		t.Fatalf("LockInVault: %v", err)
	}

	// Past expiry the balance transfers again.
	clock.Advance(31 * 24 * time.Hour)
	if err := l.Transfer(asPrincipal("alice"), "alice", "bob", ledger.CategoryFoundation, types.Tokens(1)); err != nil {
		t.Errorf("Transfer after lock expiry: %v", err)
	}
}

func TestCollectDecay(t *testing.T) {
	l, clock := newTestLedger(t)
	mint := asPrincipal("minter")

	if err := l.Mint(mint, "alice", ledger.CategoryRhythm, types.Tokens(1000)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.Mint(mint, "bob", ledger.CategoryCatalyst, types.Tokens(500)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	clock.Advance(24 * time.Hour)

	results, err := l.CollectDecay(asPrincipal("sweeper"), nil, nil)
	if err != nil {
		t.Fatalf("CollectDecay: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	var total types.Amount
	for _, r := range results {
		total = total.Add(r.Collected)
	}
	// 5% of 1000 + 3% of 500 = 50 + 15.
	if total != types.Tokens(65) {
		t.Errorf("total collected = %s, want 65.000000", total)
	}

	// Second pass on the same day collects nothing.
	results, err = l.CollectDecay(asPrincipal("sweeper"), nil, nil)
	if err != nil {
		t.Fatalf("CollectDecay: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("second pass collected %d pairs, want 0", len(results))
	}
}

func TestCollectDecayTargeted(t *testing.T) {
	l, clock := newTestLedger(t)
	mint := asPrincipal("minter")

	if err := l.Mint(mint, "alice", ledger.CategoryRhythm, types.Tokens(1000)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.Mint(mint, "alice", ledger.CategoryCatalyst, types.Tokens(500)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.Mint(mint, "bob", ledger.CategoryRhythm, types.Tokens(200)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	clock.Advance(24 * time.Hour)

	// Restricting both dimensions collects exactly the named pair.
	results, err := l.CollectDecay(asPrincipal("sweeper"),
		[]string{"alice"}, []ledger.Category{ledger.CategoryRhythm})
	if err != nil {
		t.Fatalf("CollectDecay: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Account != "alice" || results[0].Category != ledger.CategoryRhythm {
		t.Errorf("collected pair = %s/%s, want alice/rhythm",
			results[0].Account, results[0].Category)
	}
	if results[0].Collected != types.Tokens(50) {
		t.Errorf("collected = %s, want 50.000000", results[0].Collected)
	}

	// The untargeted pairs keep their pending decay for a later sweep.
	results, err = l.CollectDecay(asPrincipal("sweeper"), nil, nil)
	if err != nil {
		t.Fatalf("CollectDecay: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("second sweep got %d results, want 2", len(results))
	}

	// Invalid category filter is rejected before touching anything.
	_, err = l.CollectDecay(asPrincipal("sweeper"), nil, []ledger.Category{ledger.Category(9)})
	if !errors.Is(err, ledger.ErrInvalidCategory) {
		t.Errorf("err = %v, want ErrInvalidCategory", err)
	}
}

func TestCollectDecayRequiresCapability(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.CollectDecay(asPrincipal("minter"), nil, nil); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("CollectDecay err = %v, want ErrUnauthorized", err)
	}
}

func TestUpdateDecayRate(t *testing.T) {
	l, clock := newTestLedger(t)

	if err := l.UpdateDecayRate(asPrincipal("gov"), ledger.CategoryRhythm, types.PercentRate(10)); err != nil {
		t.Fatalf("UpdateDecayRate: %v", err)
	}
	rate, err := l.GetDecayRate(context.Background(), ledger.CategoryRhythm)
	if err != nil {
		t.Fatalf("GetDecayRate: %v", err)
	}
	if rate != types.PercentRate(10) {
		t.Errorf("rate = %s, want 10%%", rate)
	}

	// New rate applies going forward.
	if err := l.Mint(asPrincipal("minter"), "alice", ledger.CategoryRhythm, types.Tokens(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	clock.Advance(24 * time.Hour)
	got, _ := l.GetBalance(context.Background(), "alice", ledger.CategoryRhythm)
	if got != types.Tokens(90) {
		t.Errorf("balance = %s, want 90.000000 at 10%%/day", got)
	}

	// Above the ceiling.
	err = l.UpdateDecayRate(asPrincipal("gov"), ledger.CategoryRhythm, types.PercentRate(11))
	if !errors.Is(err, ledger.ErrRateAboveCeiling) {
		t.Errorf("err = %v, want ErrRateAboveCeiling", err)
	}

	// Requires governance.
	err = l.UpdateDecayRate(asPrincipal("minter"), ledger.CategoryRhythm, types.PercentRate(1))
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestPenaltyTiersAccelerateDecay(t *testing.T) {
	l, clock := newTestLedger(t)
	ctx := asPrincipal("minter")

	// 100k tokens sits in the 2x tier: rhythm decays at 10%/day.
	if err := l.Mint(ctx, "whale", ledger.CategoryRhythm, types.Tokens(100_000)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	clock.Advance(24 * time.Hour)

	got, _ := l.GetBalance(ctx, "whale", ledger.CategoryRhythm)
	if got != types.Tokens(90_000) {
		t.Errorf("whale balance = %s, want 90000.000000", got)
	}
}

func TestPaused(t *testing.T) {
	l, _ := newTestLedger(t)
	l.SetPaused(true)

	err := l.Mint(asPrincipal("minter"), "alice", ledger.CategoryRhythm, types.Tokens(1))
	if !errors.Is(err, ledger.ErrPaused) {
		t.Errorf("Mint while paused err = %v, want ErrPaused", err)
	}

	// Reads stay available.
	if _, err := l.GetBalance(context.Background(), "alice", ledger.CategoryRhythm); err != nil {
		t.Errorf("GetBalance while paused: %v", err)
	}

	l.SetPaused(false)
	if err := l.Mint(asPrincipal("minter"), "alice", ledger.CategoryRhythm, types.Tokens(1)); err != nil {
		t.Errorf("Mint after resume: %v", err)
	}
}

func TestGetAllBalances(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := asPrincipal("minter")

	if err := l.Mint(ctx, "alice", ledger.CategoryRhythm, types.Tokens(10)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := l.Mint(ctx, "alice", ledger.CategoryHealing, types.Tokens(20)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	all, err := l.GetAllBalances(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetAllBalances: %v", err)
	}
	if len(all) != ledger.NumCategories {
		t.Fatalf("got %d categories, want %d", len(all), ledger.NumCategories)
	}
	if all[ledger.CategoryRhythm] != types.Tokens(10) {
		t.Errorf("rhythm = %s, want 10.000000", all[ledger.CategoryRhythm])
	}
	if all[ledger.CategoryHealing] != types.Tokens(20) {
		t.Errorf("healing = %s, want 20.000000", all[ledger.CategoryHealing])
	}
	if all[ledger.CategoryFoundation] != 0 {
		t.Errorf("foundation = %s, want 0", all[ledger.CategoryFoundation])
	}
}
