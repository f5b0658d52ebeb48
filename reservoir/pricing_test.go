package reservoir

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMetabolicPrice(t *testing.T) {
	tests := []struct {
		name string
		snap MarketSnapshot
		want string
	}{
		{
			"balanced market",
			MarketSnapshot{
				EnergyCost:         decimal.NewFromInt(100),
				TransactionVolume:  decimal.NewFromInt(50),
				CatalystInfluence:  decimal.RequireFromString("0.5"),
				TokenSupply:        decimal.NewFromInt(1000),
				TokenVelocity:      decimal.NewFromInt(2),
				ActivityMultiplier: decimal.RequireFromString("0.25"),
			},
			// (100*2 + 50*0.5) / (1000*2*1.25) = 225 / 2500
			"0.09",
		},
		{
			"no catalyst influence",
			MarketSnapshot{
				EnergyCost:        decimal.NewFromInt(10),
				TransactionVolume: decimal.NewFromInt(90),
				TokenSupply:       decimal.NewFromInt(100),
				TokenVelocity:     decimal.NewFromInt(1),
			},
			// (10 + 90) / 100
			"1",
		},
		{
			"full catalyst influence drops volume term",
			MarketSnapshot{
				EnergyCost:        decimal.NewFromInt(30),
				TransactionVolume: decimal.NewFromInt(1000),
				CatalystInfluence: decimal.NewFromInt(1),
				TokenSupply:       decimal.NewFromInt(90),
				TokenVelocity:     decimal.NewFromInt(1),
			},
			// 30*3 / 90
			"1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := metabolicPrice(tt.snap)
			if err != nil {
				t.Fatalf("metabolicPrice: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("price = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMetabolicPriceDegenerate(t *testing.T) {
	_, err := metabolicPrice(MarketSnapshot{
		EnergyCost:    decimal.NewFromInt(100),
		TokenVelocity: decimal.NewFromInt(2),
		// zero supply
	})
	if !errors.Is(err, ErrDegenerateMarket) {
		t.Errorf("err = %v, want ErrDegenerateMarket", err)
	}
}
