package quota

import (
	"context"
	"testing"
	"time"

	"flipcheck/internal/storage"
	"flipcheck/internal/tier"
)

// memUsageStore mirrors the storage contract in memory: lazy row creation,
// window reset before the limit check, count untouched on denial.
type memUsageStore struct {
	counters map[string]*storage.UsageCounter
}

func newMemUsageStore() *memUsageStore {
	return &memUsageStore{counters: make(map[string]*storage.UsageCounter)}
}

func (m *memUsageStore) IncrementUsage(ctx context.Context, userID, action string, limit int, now time.Time) (storage.UsageResult, error) {
	key := userID + "/" + action
	c, ok := m.counters[key]
	if !ok {
		c = &storage.UsageCounter{UserID: userID, Action: action, WindowStart: now}
		m.counters[key] = c
	}

	if now.Sub(c.WindowStart) >= 24*time.Hour {
		c.Count = 0
		c.WindowStart = now
	}

	allowed := limit < 0 || c.Count < limit
	if allowed {
		c.Count++
	}
	return storage.UsageResult{Allowed: allowed, Used: c.Count, WindowStart: c.WindowStart}, nil
}

func (m *memUsageStore) GetUsage(ctx context.Context, userID, action string) (storage.UsageCounter, bool, error) {
	c, ok := m.counters[userID+"/"+action]
	if !ok {
		return storage.UsageCounter{}, false, nil
	}
	return *c, true, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIncrementUpToLimit(t *testing.T) {
	store := newMemUsageStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(store, fixedClock(now))

	limit := tier.LimitsFor(tier.Free).LookupsPerDay
	for i := 1; i <= limit; i++ {
		res, err := tracker.Increment(context.Background(), "u1", tier.Free, tier.ActionPriceLookup)
		if err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("increment %d should be allowed", i)
		}
		if res.Used != i {
			t.Fatalf("used = %d, want %d", res.Used, i)
		}
	}

	res, err := tracker.Increment(context.Background(), "u1", tier.Free, tier.ActionPriceLookup)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("increment past limit should be denied")
	}
	if res.Used != limit {
		t.Fatalf("denial must leave count unchanged, used = %d", res.Used)
	}
	if res.Remaining() != 0 {
		t.Fatalf("remaining = %d", res.Remaining())
	}
}

func TestWindowRollover(t *testing.T) {
	store := newMemUsageStore()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	tracker := NewTracker(store, func() time.Time { return clock })

	limit := tier.LimitsFor(tier.Free).LookupsPerDay
	for i := 0; i < limit; i++ {
		if _, err := tracker.Increment(context.Background(), "u1", tier.Free, tier.ActionPriceLookup); err != nil {
			t.Fatal(err)
		}
	}

	// Exactly 24h later the stale window is reset, not merely capped.
	clock = start.Add(24 * time.Hour)
	res, err := tracker.Increment(context.Background(), "u1", tier.Free, tier.ActionPriceLookup)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatal("first increment after window lapse should be allowed")
	}
	if res.Used != 1 {
		t.Fatalf("used after rollover = %d, want 1", res.Used)
	}
	if !res.ResetsAt.Equal(clock.Add(24 * time.Hour)) {
		t.Fatalf("resets_at = %s", res.ResetsAt)
	}
}

func TestUnlimitedTierStillCounts(t *testing.T) {
	store := newMemUsageStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(store, fixedClock(now))

	for i := 1; i <= 250; i++ {
		res, err := tracker.Increment(context.Background(), "u1", tier.Pro, tier.ActionPriceLookup)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed {
			t.Fatalf("unlimited tier denied at %d", i)
		}
		if res.Used != i {
			t.Fatalf("used = %d, want %d", res.Used, i)
		}
	}

	res, _ := tracker.Check(context.Background(), "u1", tier.Pro, tier.ActionPriceLookup)
	if res.Remaining() != tier.Unlimited {
		t.Fatalf("unlimited remaining = %d", res.Remaining())
	}
}

func TestCheckDoesNotConsume(t *testing.T) {
	store := newMemUsageStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(store, fixedClock(now))

	if _, err := tracker.Increment(context.Background(), "u1", tier.Free, tier.ActionPriceLookup); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		res, err := tracker.Check(context.Background(), "u1", tier.Free, tier.ActionPriceLookup)
		if err != nil {
			t.Fatal(err)
		}
		if res.Used != 1 {
			t.Fatalf("check must not consume quota, used = %d", res.Used)
		}
	}
}

func TestCheckUnknownPair(t *testing.T) {
	tracker := NewTracker(newMemUsageStore(), fixedClock(time.Now()))
	res, err := tracker.Check(context.Background(), "nobody", tier.Free, tier.ActionExtraction)
	if err != nil {
		t.Fatal(err)
	}
	if res.Used != 0 || !res.Allowed {
		t.Fatalf("fresh pair should be allowed with zero used, got %+v", res)
	}
	if res.Remaining() != tier.LimitsFor(tier.Free).ExtractionsPerDay {
		t.Fatalf("remaining = %d", res.Remaining())
	}
}

func TestCheckLapsedWindowReportsZero(t *testing.T) {
	store := newMemUsageStore()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	tracker := NewTracker(store, func() time.Time { return clock })

	for i := 0; i < 5; i++ {
		if _, err := tracker.Increment(context.Background(), "u1", tier.Free, tier.ActionPriceLookup); err != nil {
			t.Fatal(err)
		}
	}

	clock = start.Add(25 * time.Hour)
	res, err := tracker.Check(context.Background(), "u1", tier.Free, tier.ActionPriceLookup)
	if err != nil {
		t.Fatal(err)
	}
	if res.Used != 0 {
		t.Fatalf("lapsed window should report zero used, got %d", res.Used)
	}
}
