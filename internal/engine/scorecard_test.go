package engine

import "testing"

func scorecardScenario() FeatureSet {
	return FeatureSet{
		"account_age_days":      600.0,
		"avg_tx_value":          0.02,
		"tx_count_6m":           5.0,
		"unique_counterparties": 10.0,
		"contract_interactions": 3.0,
		"largest_outgoing_tx":   50.0,
		"months_with_tx":        20.0,
		"tx_value_skewness":     10.0,
		"total_transactions":    100.0,
	}
}

func TestScoreKnownScenario(t *testing.T) {
	// 57 + 64 + 131 + 60 + 51 + 62 + 66 + 62 + 59
	if got := Score(scorecardScenario()); got != 612 {
		t.Fatalf("score = %v, want 612", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	fs := scorecardScenario()
	first := Score(fs)
	for i := 0; i < 10; i++ {
		if got := Score(fs); got != first {
			t.Fatalf("score drifted: %v != %v", got, first)
		}
	}
}

func TestScoreEmptyFeatures(t *testing.T) {
	// every feature reads as 0, skewness falls back to its null bin:
	// 54 + 25 + 57 + 49 + 36 + 57 + 59 + 46 + 44
	if got := Score(FeatureSet{}); got != 427 {
		t.Fatalf("empty feature score = %v, want 427", got)
	}
}

func TestScoreNullSkewness(t *testing.T) {
	fs := scorecardScenario()
	fs["tx_value_skewness"] = nil
	// the 62-point skewness bin is replaced by the 46-point null fallback
	if got := Score(fs); got != 596 {
		t.Fatalf("null-skewness score = %v, want 596", got)
	}
}

func TestScoreDerivedAccountAgeMonths(t *testing.T) {
	fs := FeatureSet{"account_age_days": 540.0} // exactly 18 months
	base := Score(FeatureSet{})
	// 18 months crosses the first boundary: 57 instead of 54
	if got := Score(fs); got != base+3 {
		t.Fatalf("score = %v, want %v", got, base+3)
	}
}

func TestScoreBoundaryIsExclusive(t *testing.T) {
	low := Score(FeatureSet{"tx_count_6m": 0.0})
	at := Score(FeatureSet{"tx_count_6m": 1.0})
	if at-low != 93-57 {
		t.Fatalf("value at boundary must fall into the next bin: low=%v at=%v", low, at)
	}
}
