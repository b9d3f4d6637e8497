package engine

import "math"

// scoreBin maps a half-open value range to fixed points. Upper bounds are
// exclusive; the final +Inf bin is the catch-all.
type scoreBin struct {
	Upper  float64
	Points float64
}

// scoreRule is one additive scorecard entry. Rules with Nullable set award
// NullPoints when the feature is absent or null instead of reading it as 0.
type scoreRule struct {
	Feature    string
	Nullable   bool
	NullPoints float64
	Bins       []scoreBin
}

// scorecard is a compatibility contract: boundaries and point values must
// not change without a scorecard version bump.
var scorecard = []scoreRule{
	{Feature: "account_age_months", Bins: []scoreBin{
		{18, 54}, {54, 57}, {math.Inf(1), 88},
	}},
	{Feature: "avg_tx_value", Bins: []scoreBin{
		{0.0006, 25}, {0.0181, 45}, {4.1449, 64}, {math.Inf(1), 77},
	}},
	{Feature: "tx_count_6m", Bins: []scoreBin{
		{1, 57}, {3, 93}, {math.Inf(1), 131},
	}},
	{Feature: "unique_counterparties", Bins: []scoreBin{
		{8, 49}, {1881, 60}, {math.Inf(1), 78},
	}},
	{Feature: "contract_interactions", Bins: []scoreBin{
		{2, 36}, {19, 51}, {83, 66}, {1974, 74}, {math.Inf(1), 84},
	}},
	{Feature: "largest_outgoing_tx", Bins: []scoreBin{
		{12.8, 57}, {206.2, 62}, {math.Inf(1), 70},
	}},
	{Feature: "months_with_tx", Bins: []scoreBin{
		{18, 59}, {37, 66}, {67, 68}, {math.Inf(1), 77},
	}},
	{Feature: "tx_value_skewness", Nullable: true, NullPoints: 46, Bins: []scoreBin{
		{4.5473, 51}, {14.6823, 62}, {66.3151, 67}, {math.Inf(1), 72},
	}},
	{Feature: "total_transactions", Bins: []scoreBin{
		{19, 44}, {2508, 59}, {4594, 61}, {math.Inf(1), 71},
	}},
}

// Score evaluates the additive binned scorecard over a feature set. For each
// rule the first bin whose exclusive upper bound exceeds the feature value
// contributes its points. Missing features read as 0 except where the rule
// defines a null fallback.
func Score(features FeatureSet) float64 {
	score := 0.0
	for _, rule := range scorecard {
		value, ok := ruleValue(features, rule.Feature)
		if !ok {
			if rule.Nullable {
				score += rule.NullPoints
				continue
			}
			value = 0
		}
		for _, bin := range rule.Bins {
			if value < bin.Upper {
				score += bin.Points
				break
			}
		}
	}
	return score
}

func ruleValue(features FeatureSet, name string) (float64, bool) {
	// account_age_months is derived, not stored.
	if name == "account_age_months" {
		days, ok := features.Float("account_age_days")
		if !ok || days <= 0 {
			return 0, true
		}
		return days / 30, true
	}

	v, ok := features.Float(name)
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
