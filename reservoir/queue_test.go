package reservoir

import (
	"testing"
	"time"

	"github.com/statusdothealth/autophage/types"
)

func TestPriorityScore(t *testing.T) {
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		claim Claim
		at    time.Time
		want  int64
	}{
		{
			"fresh urgency 5",
			Claim{Urgency: 5, SubmittedAt: base},
			base,
			350,
		},
		{
			"verified bonus",
			Claim{Urgency: 5, SubmittedAt: base, VerificationHash: "abc"},
			base,
			360,
		},
		{
			"waiting hours count whole",
			Claim{Urgency: 1, SubmittedAt: base},
			base.Add(90 * time.Minute),
			72, // 70 + 1 whole hour * 2
		},
		{
			"three days waiting",
			Claim{Urgency: 2, SubmittedAt: base},
			base.Add(72 * time.Hour),
			284, // 140 + 72*2
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.claim.PriorityScore(tt.at); got != tt.want {
				t.Errorf("PriorityScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClaimQueueOrdering(t *testing.T) {
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	low := &Claim{ID: 1, Urgency: 3, SubmittedAt: base}
	verified := &Claim{ID: 2, Urgency: 7, SubmittedAt: base, VerificationHash: "h"}
	high := &Claim{ID: 3, Urgency: 9, SubmittedAt: base}

	q := newClaimQueue([]*Claim{low, verified, high})

	wantOrder := []uint64{3, 2, 1}
	for i, want := range wantOrder {
		c := q.pop()
		if c == nil || c.ID != want {
			t.Fatalf("pop %d = %+v, want claim %d", i, c, want)
		}
	}
	if q.pop() != nil {
		t.Error("expected empty queue")
	}
}

func TestClaimQueueAgingOvertakesUrgency(t *testing.T) {
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	// An urgency-1 claim waiting 300 hours outscores a fresh urgency-10:
	// 70 + 600 > 700 + 0 is false, but > urgency 9's 630.
	old := &Claim{ID: 1, Urgency: 1, SubmittedAt: base}
	fresh := &Claim{ID: 2, Urgency: 9, SubmittedAt: base.Add(300 * time.Hour)}

	q := newClaimQueue([]*Claim{fresh, old})
	if c := q.pop(); c.ID != 1 {
		t.Errorf("pop = claim %d, want the aged urgency-1 claim first", c.ID)
	}
}

func TestRankMatchesScoreOrdering(t *testing.T) {
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base.Add(500 * time.Hour)

	claims := []*Claim{
		{ID: 1, Urgency: 4, SubmittedAt: base},
		{ID: 2, Urgency: 8, SubmittedAt: base.Add(100 * time.Hour)},
		{ID: 3, Urgency: 2, SubmittedAt: base.Add(10 * time.Hour), VerificationHash: "h"},
		{ID: 4, Urgency: 10, SubmittedAt: base.Add(450 * time.Hour)},
	}

	for i, a := range claims {
		for _, b := range claims[i+1:] {
			sa, sb := a.PriorityScore(now), b.PriorityScore(now)
			ra, rb := rank(a), rank(b)
			if sa != sb && (sa > sb) != (ra > rb) {
				t.Errorf("claims %d/%d: score order (%d vs %d) disagrees with rank order (%d vs %d)",
					a.ID, b.ID, sa, sb, ra, rb)
			}
		}
	}
}

func TestMonthlySpendingWindow(t *testing.T) {
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	r := &ReserveChamber{}

	r.recordSpend(types.Tokens(10), base)
	r.recordSpend(types.Tokens(5), base.Add(24*time.Hour))

	if got := r.MonthlySpending(base.Add(24 * time.Hour)); got != types.Tokens(15) {
		t.Errorf("MonthlySpending = %s, want 15.000000", got)
	}

	// 31 days later with no further payouts the whole window has aged out.
	if got := r.MonthlySpending(base.Add(32 * 24 * time.Hour)); got != 0 {
		t.Errorf("MonthlySpending after window = %s, want 0", got)
	}

	// A payout after a long gap zeroes stale slots.
	r.recordSpend(types.Tokens(7), base.Add(40*24*time.Hour))
	if got := r.MonthlySpending(base.Add(40 * 24 * time.Hour)); got != types.Tokens(7) {
		t.Errorf("MonthlySpending after gap = %s, want 7.000000", got)
	}
}
