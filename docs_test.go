package autophage_test

import (
	"context"
	"log"
	"testing"

	"github.com/statusdothealth/autophage"
	"github.com/statusdothealth/autophage/auth"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/store/memory"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Grant capabilities to the application's principals. The
		// "reservoir" service principal needs minter+reservoir so decay
		// sweeps and reward mints work.
		grants := auth.StaticGrants{}.
			Grant("minter-service", auth.CapMinter).
			Grant("oracle-service", auth.CapOracle).
			Grant("settlement-service", auth.CapSettlement).
			Grant("reservoir", auth.CapMinter, auth.CapReservoir)

		p := autophage.New(store,
			autophage.WithAuthorizer(grants),
		)

		// Start the protocol: migrates the store and seeds the four
		// category configurations and the reserve singleton.
		ctx := context.Background()
		if err := p.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer p.Stop()

		// Mint activity rewards into the rhythm category.
		mintCtx := auth.WithPrincipal(ctx, "minter-service")
		if err := p.Ledger().Mint(mintCtx, "acct-alice", ledger.CategoryRhythm, autophage.Tokens(100)); err != nil {
			t.Fatal(err)
		}

		// Balances decay lazily; reading never mutates state.
		balance, err := p.Ledger().GetBalance(ctx, "acct-alice", ledger.CategoryRhythm)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("rhythm balance: %s\n", balance)

		// Fund the reserve, then submit a health-cost claim against it.
		oracleCtx := auth.WithPrincipal(ctx, "oracle-service")
		if err := p.Reservoir().DepositReserve(oracleCtx, autophage.Tokens(10_000)); err != nil {
			t.Fatal(err)
		}

		claim, err := p.Reservoir().SubmitClaim(ctx, "acct-alice", autophage.Tokens(50), 7, "treatment", "sha256:...")
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("claim %d submitted with ref %s\n", claim.ID, claim.Ref)

		// Explicitly drain whatever the opportunistic pass left pending.
		settleCtx := auth.WithPrincipal(ctx, "settlement-service")
		if _, err := p.Reservoir().ProcessClaims(settleCtx, 0); err != nil {
			t.Fatal(err)
		}

		stats, err := p.Reservoir().GetReservoirStats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("reserve %s, required %s, pending %d\n",
			stats.ReserveBalance, stats.RequiredReserve, stats.PendingClaims)
	})

	// Test Amount type examples
	t.Run("AmountExamples", func(t *testing.T) {
		// Constructors
		_ = autophage.Tokens(100)    // 100.000000 tokens
		_ = autophage.Micro(2500)    // 0.002500 tokens
		_ = autophage.PercentRate(5) // 5% as 50_000 ppm

		// Arithmetic
		a := autophage.Tokens(100)
		b := autophage.Tokens(200)
		_ = a.Add(b)          // 300 tokens
		_ = a.Multiply(3)     // 300 tokens
		_ = a.MulPPM(200_000) // 20 tokens

		// Comparison
		if a.LessThan(b) {
			// a is less than b
		}

		// Formatting
		_ = a.String() // "100.000000"
	})
}
