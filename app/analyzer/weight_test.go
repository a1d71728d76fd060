package analyzer

import "testing"

func TestWeight_TierBase(t *testing.T) {
	w := WeightConfig{ReadCountCeiling: 10000, ReadCountBoost: 0.5}

	tier1 := w.Weight(1, 0)
	tier2 := w.Weight(2, 0)
	tier3 := w.Weight(3, 0)

	if tier1 != 3.0 || tier2 != 2.0 || tier3 != 1.0 {
		t.Errorf("Expected base weights 3/2/1, got %f/%f/%f", tier1, tier2, tier3)
	}

	if got := w.Weight(99, 0); got != 1.0 {
		t.Errorf("Expected unknown tier to fall back to 1.0, got %f", got)
	}
}

func TestWeight_ReadCountBoostCapped(t *testing.T) {
	w := WeightConfig{ReadCountCeiling: 10000, ReadCountBoost: 0.5}

	atCeiling := w.Weight(1, 10000)
	farBeyond := w.Weight(1, 10000000)

	if atCeiling != 3.0*1.5 {
		t.Errorf("Expected weight at ceiling to be 4.5, got %f", atCeiling)
	}
	if farBeyond != atCeiling {
		t.Errorf("Expected boost capped at ceiling: %f vs %f", farBeyond, atCeiling)
	}
}

func TestWeight_Monotonic(t *testing.T) {
	w := WeightConfig{ReadCountCeiling: 10000, ReadCountBoost: 0.5}

	prev := w.Weight(2, 0)
	for _, reads := range []int{1, 10, 100, 1000, 10000} {
		cur := w.Weight(2, reads)
		if cur < prev {
			t.Errorf("Expected weight to be non-decreasing in reads, got %f after %f at %d reads", cur, prev, reads)
		}
		prev = cur
	}
}
