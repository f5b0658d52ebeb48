// Package autophage provides the economic core of the autophage protocol:
// a token system for health incentives in which value must circulate to
// survive.
//
// Autophage is designed as a library, not a service. Import it directly
// into your Go application. It provides two cooperating components:
//
//   - Decay ledger: per-account, per-category balances that shrink by a
//     configurable daily rate, with large-balance penalty tiers and
//     vault-lock decay discounts
//   - Settlement reservoir: a priority queue of health-cost claims paid
//     from a fiat reserve under a hard solvency rule, plus token chambers
//     that recycle decayed tokens into activity rewards
//
// # Quick Start
//
// Create a protocol instance with your preferred store:
//
//	import (
//	    "github.com/statusdothealth/autophage"
//	    "github.com/statusdothealth/autophage/store/memory"
//	)
//
//	p := autophage.New(memory.New(),
//	    autophage.WithAuthorizer(grants),
//	)
//	if err := p.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Stop()
//
// # Core Concepts
//
// Balances live in four categories, each with its own decay profile:
// rhythm (fast decay, daily activity), healing (slow decay, recovery),
// foundation (slowest decay, long-horizon habits) and catalyst (demand
// signals). Decay is lazy: it is computed from elapsed whole days when a
// balance is read or touched, never by a background job.
//
//	ctx = auth.WithPrincipal(ctx, "minter-service")
//	err := p.Ledger().Mint(ctx, account, ledger.CategoryRhythm, autophage.Tokens(100))
//
// Claims against the reserve settle strictly by priority, and only while
// the reserve stays above its solvency floor:
//
//	claim, err := p.Reservoir().SubmitClaim(ctx, account, amount, urgency, "treatment", hash)
//
// All token arithmetic is integer-only: amounts are int64 micro-units and
// rates are parts per million, so decay results are deterministic across
// platforms.
//
// # Authorization
//
// Every mutating operation is gated by a capability check against an
// injected Authorizer. The acting principal travels in the context via
// auth.WithPrincipal. See the auth package for the capability catalog.
//
// # TypeID
//
// Journal events and claim references use TypeID for globally unique,
// type-safe identifiers:
//
//	evt_01h2xcejqtf2nbrexx3vqjhp41  // Journal event
//	clm_01h455vb4pex5vsknk084sn02q  // Claim reference
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of records.
package autophage
