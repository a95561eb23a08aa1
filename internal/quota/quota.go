package quota

import (
	"context"
	"time"

	"flipcheck/internal/storage"
	"flipcheck/internal/tier"
)

// window is the rolling period an action count accumulates over.
const window = 24 * time.Hour

// Result reports the outcome of a quota check or increment.
type Result struct {
	Allowed  bool
	Used     int
	Limit    int
	ResetsAt time.Time
}

// Remaining returns how many uses are left in the window. Unlimited tiers
// report -1.
func (r Result) Remaining() int {
	if r.Limit < 0 {
		return tier.Unlimited
	}
	left := r.Limit - r.Used
	if left < 0 {
		return 0
	}
	return left
}

// Tracker gates actions behind per-user daily counters. The underlying store
// performs the check-and-increment atomically; the tracker only resolves tier
// limits and shapes results.
type Tracker struct {
	store storage.UsageStore
	now   func() time.Time
}

// NewTracker constructs a Tracker. A nil now func defaults to time.Now.
func NewTracker(store storage.UsageStore, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, now: now}
}

// Increment consumes one use of an action if the user's tier allows it.
// Denial is a normal outcome carried in Result, not an error.
func (t *Tracker) Increment(ctx context.Context, userID string, userTier tier.Tier, action tier.Action) (Result, error) {
	limit := tier.LimitsFor(userTier).LimitFor(action)

	res, err := t.store.IncrementUsage(ctx, userID, string(action), limit, t.now().UTC())
	if err != nil {
		return Result{}, err
	}

	return Result{
		Allowed:  res.Allowed,
		Used:     res.Used,
		Limit:    limit,
		ResetsAt: res.WindowStart.Add(window),
	}, nil
}

// Check reports current usage without consuming quota. A lapsed window shows
// as zero used even though the stored row still carries the stale count; the
// row itself resets on the next increment.
func (t *Tracker) Check(ctx context.Context, userID string, userTier tier.Tier, action tier.Action) (Result, error) {
	limit := tier.LimitsFor(userTier).LimitFor(action)
	now := t.now().UTC()

	counter, found, err := t.store.GetUsage(ctx, userID, string(action))
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{
			Allowed:  limit != 0,
			Used:     0,
			Limit:    limit,
			ResetsAt: now.Add(window),
		}, nil
	}

	used := counter.Count
	windowStart := counter.WindowStart
	if now.Sub(windowStart) >= window {
		used = 0
		windowStart = now
	}

	return Result{
		Allowed:  limit < 0 || used < limit,
		Used:     used,
		Limit:    limit,
		ResetsAt: windowStart.Add(window),
	}, nil
}
