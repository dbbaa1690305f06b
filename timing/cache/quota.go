package cache

// DynamicExtraWays is the number of ways handed to the core whose miss rate
// grew more under dynamic partitioning.
const DynamicExtraWays = 6

// A QuotaTracker supplies the per-core way quotas used by the victim
// selector. Next is called once per victim search, before the set is
// inspected.
type QuotaTracker interface {
	Next(stats Statistics, coreID int) Quota
}

// NewQuotaTracker returns the tracker matching a policy. Non-partitioning
// policies get a tracker that always reports the static split, which their
// selectors ignore.
func NewQuotaTracker(policy Policy, ways, core0Ways int) QuotaTracker {
	static := Quota{Core0: core0Ways, Core1: ways - core0Ways}
	if policy == DynamicPartition {
		return &DynamicQuota{ways: ways, base: core0Ways, quota: static}
	}
	return FixedQuota(static)
}

// FixedQuota never changes.
type FixedQuota Quota

// Next implements QuotaTracker.
func (q FixedQuota) Next(Statistics, int) Quota {
	return Quota(q)
}

// DynamicQuota recomputes the split on every victim search.
//
// Each core keeps a running value updated as
//
//	rate = float64(misses / accesses) - rate
//
// from the whole-cache counters, using integer division. The core whose
// value is larger receives base+DynamicExtraWays ways and the other core the
// rest. Equal values keep the previous split.
type DynamicQuota struct {
	ways  int
	base  int
	rate  [2]float64
	quota Quota
}

// Next implements QuotaTracker.
func (q *DynamicQuota) Next(stats Statistics, coreID int) Quota {
	var ratio float64
	if accesses := stats.Accesses(); accesses > 0 {
		ratio = float64(stats.Misses() / accesses)
	}

	owner := partitionOwner(coreID)
	q.rate[owner] = ratio - q.rate[owner]

	granted := q.base + DynamicExtraWays
	if granted > q.ways {
		granted = q.ways
	}

	switch {
	case q.rate[0] > q.rate[1]:
		q.quota = Quota{Core0: granted, Core1: q.ways - granted}
	case q.rate[1] > q.rate[0]:
		q.quota = Quota{Core0: q.ways - granted, Core1: granted}
	}

	return q.quota
}

// Rates returns the running miss-rate values of core 0 and core 1.
func (q *DynamicQuota) Rates() (float64, float64) {
	return q.rate[0], q.rate[1]
}
