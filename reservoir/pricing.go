package reservoir

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDegenerateMarket is returned when the metabolic price denominator is
// zero or negative, i.e. no circulating supply or no velocity.
var ErrDegenerateMarket = errors.New("reservoir: degenerate market inputs")

// MarketSnapshot carries the externally observed inputs to the metabolic
// price. Values are decimal because they originate in off-protocol market
// feeds, not in fixed-point ledger state.
type MarketSnapshot struct {
	EnergyCost         decimal.Decimal `json:"energy_cost"`
	TransactionVolume  decimal.Decimal `json:"transaction_volume"`
	CatalystInfluence  decimal.Decimal `json:"catalyst_influence"` // 0..1
	TokenSupply        decimal.Decimal `json:"token_supply"`
	TokenVelocity      decimal.Decimal `json:"token_velocity"`
	ActivityMultiplier decimal.Decimal `json:"activity_multiplier"`
}

// MarketDataProvider supplies market snapshots for price calculation.
// Implementations typically wrap an off-chain oracle feed.
type MarketDataProvider interface {
	Snapshot(ctx context.Context) (MarketSnapshot, error)
}

// StaticMarketData is a fixed MarketDataProvider for tests and manual
// pricing runs.
type StaticMarketData MarketSnapshot

// Snapshot implements MarketDataProvider.
func (s StaticMarketData) Snapshot(context.Context) (MarketSnapshot, error) {
	return MarketSnapshot(s), nil
}

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

// metabolicPrice computes
//
//	(energy*(1 + 2*catalyst) + volume*(1 - catalyst))
//	-----------------------------------------------
//	     supply * velocity * (1 + activity)
//
// Catalyst influence amplifies the energy term and damps the volume term:
// strong demand signals make the price track cost of production, weak
// ones make it track trade flow.
func metabolicPrice(m MarketSnapshot) (decimal.Decimal, error) {
	numerator := m.EnergyCost.Mul(one.Add(two.Mul(m.CatalystInfluence))).
		Add(m.TransactionVolume.Mul(one.Sub(m.CatalystInfluence)))
	denominator := m.TokenSupply.Mul(m.TokenVelocity).Mul(one.Add(m.ActivityMultiplier))
	if denominator.Sign() <= 0 {
		return decimal.Zero, ErrDegenerateMarket
	}
	return numerator.Div(denominator), nil
}
