package types

import (
	"encoding/json"
	"testing"
)

func TestAmountConstructors(t *testing.T) {
	tests := []struct {
		name    string
		amount  Amount
		micro   int64
		display string
	}{
		{"Whole tokens", Tokens(1000), 1_000_000_000, "1000.000000"},
		{"Micro units", Micro(500_000), 500_000, "0.500000"},
		{"One micro", Micro(1), 1, "0.000001"},
		{"Zero", ZeroAmount, 0, "0.000000"},
		{"Negative", Tokens(-5), -5_000_000, "-5.000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.amount.Micro() != tt.micro {
				t.Errorf("Micro: got %d, want %d", tt.amount.Micro(), tt.micro)
			}
			if tt.amount.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.amount.String(), tt.display)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Amount
		expected Amount
	}{
		{"Add", func() Amount { return Tokens(100).Add(Tokens(200)) }, Tokens(300)},
		{"Sub", func() Amount { return Tokens(500).Sub(Tokens(200)) }, Tokens(300)},
		{"Multiply", func() Amount { return Tokens(100).Multiply(3) }, Tokens(300)},
		{"Divide", func() Amount { return Tokens(900).Divide(3) }, Tokens(300)},
		{"Divide floors", func() Amount { return Micro(7).Divide(2) }, Micro(3)},
		{"Negate", func() Amount { return Tokens(100).Negate() }, Tokens(-100)},
		{"MulPPM twenty percent", func() Amount { return Tokens(1000).MulPPM(200_000) }, Tokens(200)},
		{"MulPPM floors", func() Amount { return Micro(3).MulPPM(500_000) }, Micro(1)},
		{"Complex", func() Amount {
			return Tokens(1000).Add(Tokens(500)).Multiply(2).Sub(Tokens(1000))
		}, Tokens(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.op(); result != tt.expected {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAmountDivisionByZero(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for division by zero")
		}
	}()

	_ = Tokens(100).Divide(0)
}

func TestAmountComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Amount
		less    bool
		greater bool
	}{
		{"Equal", Tokens(100), Tokens(100), false, false},
		{"Less", Tokens(50), Tokens(100), true, false},
		{"Greater", Tokens(100), Tokens(50), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
		})
	}

	if got := Tokens(3).Min(Tokens(7)); got != Tokens(3) {
		t.Errorf("Min: got %v, want 3 tokens", got)
	}
	if got := Tokens(3).Max(Tokens(7)); got != Tokens(7) {
		t.Errorf("Max: got %v, want 7 tokens", got)
	}
}

func TestAmountSignPredicates(t *testing.T) {
	if !ZeroAmount.IsZero() || Tokens(1).IsZero() {
		t.Error("IsZero misclassified")
	}
	if !Tokens(1).IsPositive() || Tokens(-1).IsPositive() {
		t.Error("IsPositive misclassified")
	}
	if !Tokens(-1).IsNegative() || Tokens(1).IsNegative() {
		t.Error("IsNegative misclassified")
	}
}

func TestAmountJSON(t *testing.T) {
	data, err := json.Marshal(Tokens(42))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Amount
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != Tokens(42) {
		t.Errorf("Round trip: got %v, want 42 tokens", decoded)
	}

	// Bare micro-unit integers are also accepted.
	if err := json.Unmarshal([]byte("1500000"), &decoded); err != nil {
		t.Fatalf("Unmarshal bare int: %v", err)
	}
	if decoded != Micro(1_500_000) {
		t.Errorf("Bare int: got %v, want 1.500000", decoded)
	}
}

func TestSumAmounts(t *testing.T) {
	if got := SumAmounts(Tokens(1), Tokens(2), Tokens(3)); got != Tokens(6) {
		t.Errorf("SumAmounts: got %v, want 6 tokens", got)
	}
	if got := SumAmounts(); got != 0 {
		t.Errorf("SumAmounts empty: got %v, want 0", got)
	}
}

func TestRateConstructors(t *testing.T) {
	tests := []struct {
		name    string
		rate    RatePPM
		ppm     int64
		display string
	}{
		{"Five percent", PercentRate(5), 50_000, "5.0000%"},
		{"Seventy five bp", BasisPoints(75), 7_500, "0.7500%"},
		{"Ten bp", BasisPoints(10), 1_000, "0.1000%"},
		{"Full rate", PercentRate(100), 1_000_000, "100.0000%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.rate.PPM() != tt.ppm {
				t.Errorf("PPM: got %d, want %d", tt.rate.PPM(), tt.ppm)
			}
			if tt.rate.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.rate.String(), tt.display)
			}
		})
	}
}

func TestMulDivFloor(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c int64
		want    int64
	}{
		{"Exact", 100, 50, 10, 500},
		{"Floors", 7, 1, 2, 3},
		// a*b overflows int64; the big.Int intermediate keeps the result exact.
		{"Wide intermediate", 4_000_000_000_000, 4_000_000_000_000, 4_000_000_000_000, 4_000_000_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mulDivFloor(tt.a, tt.b, tt.c); got != tt.want {
				t.Errorf("mulDivFloor(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.want)
			}
		})
	}
}

func BenchmarkAmountMulPPM(b *testing.B) {
	a := Tokens(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.MulPPM(200_000)
	}
}

func BenchmarkAmountString(b *testing.B) {
	a := Tokens(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.String()
	}
}
