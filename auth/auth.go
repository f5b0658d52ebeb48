// Package auth provides the capability check abstraction that gates every
// mutating protocol operation.
//
// The protocol does not own a permission registry. Callers identify
// themselves by attaching a principal to the context, and an injected
// Authorizer decides whether that principal holds a given capability.
package auth

import (
	"context"
	"errors"
)

// Capability names a privileged protocol operation class.
type Capability string

// Capabilities checked by the protocol core.
const (
	CapMinter     Capability = "minter"     // mint new balances
	CapReservoir  Capability = "reservoir"  // collect decay in bulk
	CapGovernance Capability = "governance" // adjust decay rates
	CapTreasury   Capability = "treasury"   // revenue figures, withdrawals
	CapOracle     Capability = "oracle"     // deposits, reward distribution
	CapSettlement Capability = "settlement" // drive claim processing
	CapPause      Capability = "pause"      // freeze mutating operations
)

// ErrUnauthorized is returned when the acting principal lacks the
// capability an operation requires.
var ErrUnauthorized = errors.New("auth: missing capability")

// Authorizer answers capability checks for principals.
type Authorizer interface {
	HasCapability(ctx context.Context, principal string, cap Capability) bool
}

type principalKey struct{}

// WithPrincipal returns a context carrying the acting principal.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext extracts the acting principal, or "" if absent.
func PrincipalFromContext(ctx context.Context) string {
	if v := ctx.Value(principalKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Require checks that the context's principal holds cap, returning
// ErrUnauthorized otherwise. A nil authorizer denies everything.
func Require(ctx context.Context, a Authorizer, cap Capability) error {
	if a == nil {
		return ErrUnauthorized
	}
	if !a.HasCapability(ctx, PrincipalFromContext(ctx), cap) {
		return ErrUnauthorized
	}
	return nil
}

// StaticGrants is a fixed principal→capability table. Suitable for tests
// and single-operator deployments; production callers typically adapt
// their own access-control system to the Authorizer interface.
type StaticGrants map[string][]Capability

// HasCapability implements Authorizer.
func (g StaticGrants) HasCapability(_ context.Context, principal string, cap Capability) bool {
	for _, c := range g[principal] {
		if c == cap {
			return true
		}
	}
	return false
}

// Grant adds a capability to a principal, returning the receiver for
// chaining during setup.
func (g StaticGrants) Grant(principal string, caps ...Capability) StaticGrants {
	g[principal] = append(g[principal], caps...)
	return g
}

// AllowAll grants every capability to every principal. Test use only.
type AllowAll struct{}

// HasCapability implements Authorizer.
func (AllowAll) HasCapability(context.Context, string, Capability) bool { return true }
