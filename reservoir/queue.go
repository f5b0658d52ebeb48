package reservoir

import "container/heap"

// Claims age at the same rate, so relative priority never changes while
// they wait. rank folds the static score components and the submission
// instant into one time-independent ordering key: urgency and the
// verification bonus scaled to seconds, minus the waiting-time weight per
// second of submission lateness.
func rank(c *Claim) int64 {
	static := int64(c.Urgency) * urgencyWeight
	if c.VerificationHash != "" {
		static += verificationBonus
	}
	return static*3600 - hoursWaitingWeight*c.SubmittedAt.Unix()
}

// claimQueue is a max-heap of pending claims ordered by rank.
type claimQueue []*Claim

func (q claimQueue) Len() int { return len(q) }

func (q claimQueue) Less(i, j int) bool {
	ri, rj := rank(q[i]), rank(q[j])
	if ri != rj {
		return ri > rj
	}
	return q[i].ID < q[j].ID
}

func (q claimQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *claimQueue) Push(x any) { *q = append(*q, x.(*Claim)) }

func (q *claimQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return c
}

// newClaimQueue heapifies the given pending claims.
func newClaimQueue(claims []*Claim) *claimQueue {
	q := make(claimQueue, len(claims))
	copy(q, claims)
	heap.Init(&q)
	return &q
}

// pop removes and returns the highest-priority claim, or nil when empty.
func (q *claimQueue) pop() *Claim {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*Claim)
}
