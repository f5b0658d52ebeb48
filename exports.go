package autophage

import "github.com/statusdothealth/autophage/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// RatePPM is re-exported from types package.
type RatePPM = types.RatePPM

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount and rate constructors
var (
	Tokens      = types.Tokens
	Micro       = types.Micro
	PercentRate = types.PercentRate
	BasisPoints = types.BasisPoints
	SumAmounts  = types.SumAmounts
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
