package engine

import (
	"math"
	"sort"
	"time"
)

const secondsPerDay = 86400.0

// ExtractFeatures computes the full scalar feature set for one wallet.
// Deterministic for a fixed reference clock: now feeds only the
// days-since-last-transaction feature and the trailing 6/12 month windows.
// An empty transaction list yields an empty FeatureSet.
func ExtractFeatures(txs []Transaction, walletAddress string, now time.Time) FeatureSet {
	if len(txs) == 0 {
		return FeatureSet{}
	}

	features := FeatureSet{}
	n := len(txs)
	times := validTimes(txs)

	// Counting and age.
	ageDays := 0
	if len(times) > 0 {
		ageDays = wholeDays(times[len(times)-1].Sub(times[0]))
	}
	features["account_age_days"] = ageDays
	features["total_transactions"] = n
	features["avg_tx_per_month"] = float64(n) / math.Max(1, float64(ageDays)/30)

	// ETH flow.
	totalSent := sumETH(txs, func(t Transaction) bool { return t.From == walletAddress })
	totalReceived := sumETH(txs, func(t Transaction) bool { return t.To == walletAddress })
	features["total_eth_sent"] = totalSent
	features["total_eth_received"] = totalReceived
	features["net_eth_change"] = totalReceived - totalSent

	values := ethValues(txs, func(Transaction) bool { return true })
	features["largest_tx_value"] = maxOrZero(values)
	features["avg_tx_value"] = mean(values)
	medianValue := median(values)
	features["median_tx_value"] = medianValue

	// Counterparties.
	counterparties := counterpartySet(txs, walletAddress)
	features["unique_counterparties"] = len(counterparties)

	// Contract interaction.
	interactions, deployments := 0, 0
	for _, t := range txs {
		if len(t.Input) > 2 {
			interactions++
		}
		if len(t.ContractAddress) > 2 {
			deployments++
		}
	}
	features["contract_interactions"] = interactions
	features["contract_deployments"] = deployments

	// Failures.
	failed := 0
	for _, t := range txs {
		if t.Failed {
			failed++
		}
	}
	features["failed_transactions"] = failed
	features["failed_tx_ratio"] = float64(failed) / math.Max(1, float64(n))

	// Activity.
	perDay := map[string]int{}
	for _, ts := range times {
		perDay[ts.Format("2006-01-02")]++
	}
	features["active_days"] = len(perDay)

	daysSinceLast := 0
	if len(times) > 0 {
		daysSinceLast = wholeDays(now.Sub(times[len(times)-1]))
	}
	features["days_since_last_tx"] = daysSinceLast

	maxPerDay := 0
	for _, c := range perDay {
		if c > maxPerDay {
			maxPerDay = c
		}
	}
	features["max_tx_in_a_day"] = maxPerDay

	maxGapDays := 0
	if len(times) > 1 {
		for i := 1; i < len(times); i++ {
			if gap := wholeDays(times[i].Sub(times[i-1])); gap > maxGapDays {
				maxGapDays = gap
			}
		}
	}
	features["max_inactivity_days"] = maxGapDays

	features["most_active_weekday"] = mostActiveWeekday(times)

	// Counterparty diversity: each counterparty's share of the transactions
	// it appears in, on either side.
	counts := make([]int, 0, len(counterparties))
	for cp := range counterparties {
		c := 0
		for _, t := range txs {
			if t.From == cp || t.To == cp {
				c++
			}
		}
		counts = append(counts, c)
	}
	features["counterparty_entropy"] = entropyBase2(counts)

	features["largest_incoming_tx"] = maxOrZero(ethValues(txs, func(t Transaction) bool { return t.To == walletAddress }))
	features["largest_outgoing_tx"] = maxOrZero(ethValues(txs, func(t Transaction) bool { return t.From == walletAddress }))

	// Inter-transaction timing.
	avgGapDays, stdGapDays, minGapSeconds := 0.0, 0.0, 0.0
	automated := false
	if len(times) > 1 {
		gaps := make([]float64, 0, len(times)-1)
		for i := 1; i < len(times); i++ {
			gaps = append(gaps, times[i].Sub(times[i-1]).Seconds())
		}
		avgGapDays = mean(gaps) / secondsPerDay
		stdGapDays = sampleStddev(gaps) / secondsPerDay
		minGapSeconds = gaps[0]
		for _, g := range gaps {
			if g < minGapSeconds {
				minGapSeconds = g
			}
		}
		automated = minGapSeconds < 10
	}
	features["avg_time_between_tx_days"] = avgGapDays
	features["std_time_between_tx_days"] = stdGapDays
	features["shortest_time_between_tx_seconds"] = minGapSeconds
	features["automated_activity"] = automated

	// Ratios.
	incoming, outgoing := 0, 0
	for _, t := range txs {
		if t.To == walletAddress {
			incoming++
		}
		if t.From == walletAddress {
			outgoing++
		}
	}
	features["in_out_tx_count_ratio"] = float64(incoming) / math.Max(1, float64(outgoing))

	zeroValue := 0
	for _, t := range txs {
		if t.ValueETH == 0 {
			zeroValue++
		}
	}
	features["zero_value_tx_ratio"] = float64(zeroValue) / math.Max(1, float64(n))
	features["unique_counterparty_tx_ratio"] = float64(len(counterparties)) / math.Max(1, float64(n))

	// Repeat counterparty rate: appearances beyond the first, over all
	// counterparty appearances.
	appearances := counterpartyAppearances(txs, walletAddress)
	perCounterparty := map[string]int{}
	for _, cp := range appearances {
		perCounterparty[cp]++
	}
	repeats := 0
	for _, c := range perCounterparty {
		if c > 1 {
			repeats += c - 1
		}
	}
	features["repeat_counterparty_rate"] = float64(repeats) / math.Max(1, float64(len(appearances)))

	features["contract_interaction_ratio"] = float64(interactions) / math.Max(1, float64(n))
	features["contract_deployments_to_interactions"] = float64(deployments) / math.Max(1, float64(interactions))

	// Value distribution shape. With one transaction both moments are a
	// defined 0; an undefined statistic on a larger sample stays null so the
	// scorecard can apply its fallback bin.
	if n <= 1 {
		features["tx_value_skewness"] = 0.0
		features["tx_value_kurtosis"] = 0.0
	} else {
		features["tx_value_skewness"] = nullableStat(skewness(values))
		features["tx_value_kurtosis"] = nullableStat(kurtosis(values))
	}

	aboveMedian := 0
	for _, t := range txs {
		if t.ValueETH > medianValue {
			aboveMedian++
		}
	}
	features["tx_above_median_ratio"] = float64(aboveMedian) / math.Max(1, float64(n))

	// Temporal.
	if len(times) > 0 {
		features["first_tx_weekday"] = pandasWeekday(times[0])
		features["last_tx_weekday"] = pandasWeekday(times[len(times)-1])
	} else {
		features["first_tx_weekday"] = nil
		features["last_tx_weekday"] = nil
	}

	months := map[string]struct{}{}
	for _, ts := range times {
		months[ts.Format("2006-01")] = struct{}{}
	}
	features["months_with_tx"] = len(months)

	// Longest run of failed transactions, in given order.
	maxStreak, streak := 0, 0
	for _, t := range txs {
		if t.Failed {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 0
		}
	}
	features["max_failed_tx_streak"] = maxStreak

	features["max_gas_price_tx_ratio"] = maxGasPriceRatio(txs)

	// Trailing windows.
	windowFeatures(features, txs, walletAddress, now, 6, "6m")
	windowFeatures(features, txs, walletAddress, now, 12, "12m")

	return features
}

func windowFeatures(features FeatureSet, txs []Transaction, walletAddress string, now time.Time, months int, label string) {
	cutoff := now.AddDate(0, -months, 0)
	window := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if !t.Timestamp.IsZero() && !t.Timestamp.Before(cutoff) {
			window = append(window, t)
		}
	}

	sent := sumETH(window, func(t Transaction) bool { return t.From == walletAddress })
	received := sumETH(window, func(t Transaction) bool { return t.To == walletAddress })
	values := ethValues(window, func(Transaction) bool { return true })

	failed := 0
	for _, t := range window {
		if t.Failed {
			failed++
		}
	}

	features["tx_count_"+label] = len(window)
	features["total_eth_sent_"+label] = sent
	features["total_eth_received_"+label] = received
	features["net_eth_change_"+label] = received - sent
	features["largest_tx_value_"+label] = maxOrZero(values)
	features["avg_tx_value_"+label] = mean(values)
	features["failed_tx_count_"+label] = failed
	features["unique_counterparties_"+label] = len(counterpartySet(window, walletAddress))
}

// validTimes returns the parseable timestamps in ascending order. Records
// whose timestamp failed coercion are skipped by temporal aggregations.
func validTimes(txs []Transaction) []time.Time {
	times := make([]time.Time, 0, len(txs))
	for _, t := range txs {
		if !t.Timestamp.IsZero() {
			times = append(times, t.Timestamp)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}

func ethValues(txs []Transaction, keep func(Transaction) bool) []float64 {
	values := make([]float64, 0, len(txs))
	for _, t := range txs {
		if keep(t) && !math.IsNaN(t.ValueETH) {
			values = append(values, t.ValueETH)
		}
	}
	return values
}

func sumETH(txs []Transaction, keep func(Transaction) bool) float64 {
	sum := 0.0
	for _, t := range txs {
		if keep(t) && !math.IsNaN(t.ValueETH) {
			sum += t.ValueETH
		}
	}
	return sum
}

func maxOrZero(values []float64) float64 {
	max := 0.0
	for i, v := range values {
		if i == 0 || v > max {
			max = v
		}
	}
	return max
}

func counterpartySet(txs []Transaction, walletAddress string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, cp := range counterpartyAppearances(txs, walletAddress) {
		set[cp] = struct{}{}
	}
	return set
}

func counterpartyAppearances(txs []Transaction, walletAddress string) []string {
	appearances := make([]string, 0, len(txs))
	for _, t := range txs {
		if t.From == walletAddress && t.To != "" {
			appearances = append(appearances, t.To)
		}
	}
	for _, t := range txs {
		if t.To == walletAddress && t.From != "" {
			appearances = append(appearances, t.From)
		}
	}
	return appearances
}

func maxGasPriceRatio(txs []Transaction) float64 {
	maxGas := math.NaN()
	for _, t := range txs {
		if math.IsNaN(t.GasPrice) {
			continue
		}
		if math.IsNaN(maxGas) || t.GasPrice > maxGas {
			maxGas = t.GasPrice
		}
	}
	if math.IsNaN(maxGas) {
		return 0
	}
	atMax := 0
	for _, t := range txs {
		if t.GasPrice == maxGas {
			atMax++
		}
	}
	return float64(atMax) / math.Max(1, float64(len(txs)))
}

func mostActiveWeekday(times []time.Time) any {
	if len(times) == 0 {
		return nil
	}
	var counts [7]int
	for _, ts := range times {
		counts[pandasWeekday(ts)]++
	}
	best := 0
	for wd := 1; wd < 7; wd++ {
		if counts[wd] > counts[best] {
			best = wd
		}
	}
	return best
}

// pandasWeekday maps to the Monday=0..Sunday=6 convention the feature
// consumers expect, rather than Go's Sunday=0.
func pandasWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func wholeDays(d time.Duration) int {
	if d < 0 {
		return -wholeDays(-d)
	}
	return int(d.Hours() / 24)
}

func nullableStat(v float64, ok bool) any {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
