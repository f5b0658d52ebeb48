package autophage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/statusdothealth/autophage"
	"github.com/statusdothealth/autophage/auth"
	"github.com/statusdothealth/autophage/journal"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/store/memory"
)

func newTestProtocol(t *testing.T) *autophage.Protocol {
	t.Helper()

	grants := auth.StaticGrants{}.
		Grant("minter", auth.CapMinter).
		Grant("operator", auth.CapPause).
		Grant("reservoir", auth.CapMinter, auth.CapReservoir)

	p := autophage.New(memory.New(), autophage.WithAuthorizer(grants))
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = p.Stop() })
	return p
}

func TestStartSeedsCategories(t *testing.T) {
	p := newTestProtocol(t)
	ctx := context.Background()

	for _, cat := range ledger.Categories() {
		rate, err := p.Ledger().GetDecayRate(ctx, cat)
		if err != nil {
			t.Fatalf("GetDecayRate(%s): %v", cat, err)
		}
		if rate.IsZero() {
			t.Errorf("category %s seeded with zero decay rate", cat)
		}
	}

	// Starting twice must not reset seeded state.
	if err := p.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
}

func TestPauseRequiresCapability(t *testing.T) {
	p := newTestProtocol(t)
	ctx := context.Background()

	err := p.Pause(auth.WithPrincipal(ctx, "minter"))
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("Pause as minter: err = %v, want ErrUnauthorized", err)
	}
	if p.Paused() {
		t.Fatal("protocol paused after denied request")
	}

	opCtx := auth.WithPrincipal(ctx, "operator")
	if err := p.Pause(opCtx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !p.Paused() {
		t.Fatal("Paused() = false after Pause")
	}

	// Mutations on both components are frozen, reads still work.
	mintCtx := auth.WithPrincipal(ctx, "minter")
	err = p.Ledger().Mint(mintCtx, "acct-1", ledger.CategoryRhythm, autophage.Tokens(1))
	if !autophage.IsPaused(err) {
		t.Errorf("Mint while paused: err = %v, want pause rejection", err)
	}
	if _, err := p.Ledger().GetBalance(ctx, "acct-1", ledger.CategoryRhythm); err != nil {
		t.Errorf("GetBalance while paused: %v", err)
	}

	if err := p.Resume(opCtx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := p.Ledger().Mint(mintCtx, "acct-1", ledger.CategoryRhythm, autophage.Tokens(1)); err != nil {
		t.Errorf("Mint after resume: %v", err)
	}
}

func TestJournalRecordsMints(t *testing.T) {
	p := newTestProtocol(t)
	ctx := context.Background()
	mintCtx := auth.WithPrincipal(ctx, "minter")

	if err := p.Ledger().Mint(mintCtx, "acct-a", ledger.CategoryHealing, autophage.Tokens(10)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := p.Ledger().Mint(mintCtx, "acct-b", ledger.CategoryHealing, autophage.Tokens(20)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	events, err := p.Journal(ctx, journal.ListOpts{Kind: journal.KindMint})
	if err != nil {
		t.Fatalf("Journal: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d mint events, want 2", len(events))
	}

	events, err = p.Journal(ctx, journal.ListOpts{Kind: journal.KindMint, Account: "acct-b"})
	if err != nil {
		t.Fatalf("Journal: %v", err)
	}
	if len(events) != 1 || events[0].Amount != autophage.Tokens(20) {
		t.Fatalf("filtered journal = %+v, want one 20-token mint for acct-b", events)
	}
}
