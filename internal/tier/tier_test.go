package tier

import "testing"

func TestParse(t *testing.T) {
	for _, s := range []string{"free", "flipper", "pro"} {
		parsed, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", s, err)
		}
		if string(parsed) != s {
			t.Fatalf("Parse(%q) = %q", s, parsed)
		}
	}

	if _, err := Parse("platinum"); err == nil {
		t.Fatal("unknown tier should not parse")
	}
	if _, err := Parse(""); err == nil {
		t.Fatal("empty tier should not parse")
	}
}

func TestPlanDiscountsDecreaseWithTier(t *testing.T) {
	free := PlanFor(Free)
	flipper := PlanFor(Flipper)
	pro := PlanFor(Pro)

	if !(free.Discount > flipper.Discount && flipper.Discount > pro.Discount) {
		t.Fatalf("discounts should shrink as tiers rise: %v %v %v", free.Discount, flipper.Discount, pro.Discount)
	}
	if pro.SampleLimit <= flipper.SampleLimit {
		t.Fatalf("pro should request more samples than flipper: %d vs %d", pro.SampleLimit, flipper.SampleLimit)
	}
	if free.Source == flipper.Source {
		t.Fatal("free and flipper should use distinct source names")
	}
}

func TestLimitForAction(t *testing.T) {
	l := LimitsFor(Flipper)
	if got := l.LimitFor(ActionPriceLookup); got != 100 {
		t.Fatalf("flipper lookup limit = %d", got)
	}
	if got := l.LimitFor(ActionExtraction); got != 50 {
		t.Fatalf("flipper extraction limit = %d", got)
	}
	if got := LimitsFor(Pro).LimitFor(ActionPriceLookup); got != Unlimited {
		t.Fatalf("pro lookups should be unlimited, got %d", got)
	}
}

func TestUnknownTierFallsBackToFree(t *testing.T) {
	if LimitsFor(Tier("mystery")) != LimitsFor(Free) {
		t.Fatal("unknown tier limits should match free")
	}
	if PlanFor(Tier("mystery")) != PlanFor(Free) {
		t.Fatal("unknown tier plan should match free")
	}
}
