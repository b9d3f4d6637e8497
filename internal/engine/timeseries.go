package engine

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	monthlyWindow       = 24
	weeklyWindow        = 52
	dailyActivityWindow = 365 // days
)

// BucketStat is one monthly or weekly aggregation bucket.
type BucketStat struct {
	Period               string  `json:"period"`
	TxCount              int     `json:"tx_count"`
	SentCount            int     `json:"sent_count"`
	ReceivedCount        int     `json:"received_count"`
	EthSent              float64 `json:"eth_sent"`
	EthReceived          float64 `json:"eth_received"`
	EthNet               float64 `json:"eth_net"`
	UniqueCounterparties int     `json:"unique_counterparties"`
	AvgValue             float64 `json:"avg_value"`
	FailedCount          int     `json:"failed_count"`
}

// DailyActivity is one (date, count) pair of the trailing-year activity series.
type DailyActivity struct {
	Date    string `json:"date"`
	TxCount int    `json:"tx_count"`
}

// DistributionBucket is one histogram bar (hour, weekday, or value range).
type DistributionBucket struct {
	Label   string `json:"label"`
	TxCount int    `json:"tx_count"`
}

// CumulativePoint carries running totals up to and including a month.
type CumulativePoint struct {
	Period  string  `json:"period"`
	TxCount int     `json:"tx_count"`
	EthIn   float64 `json:"eth_in"`
	EthOut  float64 `json:"eth_out"`
	EthNet  float64 `json:"eth_net"`
}

// TimeSeries holds the seven independent visualization series.
type TimeSeries struct {
	Monthly             []BucketStat         `json:"monthly"`
	Weekly              []BucketStat         `json:"weekly"`
	DailyActivity       []DailyActivity      `json:"daily_activity"`
	HourlyDistribution  []DistributionBucket `json:"hourly_distribution"`
	WeekdayDistribution []DistributionBucket `json:"weekday_distribution"`
	ValueDistribution   []DistributionBucket `json:"value_distribution"`
	Cumulative          []CumulativePoint    `json:"cumulative"`
}

var weekdayLabels = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var valueBuckets = []struct {
	Upper float64 // exclusive
	Label string
}{
	{0.001, "<0.001"},
	{0.01, "0.001-0.01"},
	{0.1, "0.01-0.1"},
	{1, "0.1-1"},
	{10, "1-10"},
	{100, "10-100"},
	{math.Inf(1), ">100"},
}

// ExtractTimeSeries aggregates the normalized transactions into the seven
// chart series. Independent of ExtractFeatures; now bounds only the
// trailing-year daily activity series. Empty input yields empty series.
func ExtractTimeSeries(txs []Transaction, walletAddress string, now time.Time) *TimeSeries {
	series := &TimeSeries{
		Monthly:             []BucketStat{},
		Weekly:              []BucketStat{},
		DailyActivity:       []DailyActivity{},
		HourlyDistribution:  []DistributionBucket{},
		WeekdayDistribution: []DistributionBucket{},
		ValueDistribution:   []DistributionBucket{},
		Cumulative:          []CumulativePoint{},
	}
	if len(txs) == 0 {
		return series
	}

	series.Monthly = truncateBuckets(groupBuckets(txs, walletAddress, monthKey), monthlyWindow)
	series.Weekly = truncateBuckets(groupBuckets(txs, walletAddress, isoWeekKey), weeklyWindow)
	series.DailyActivity = dailyActivity(txs, now)
	series.HourlyDistribution = hourlyDistribution(txs)
	series.WeekdayDistribution = weekdayDistribution(txs)
	series.ValueDistribution = valueDistribution(txs)
	series.Cumulative = cumulative(txs, walletAddress)

	return series
}

func monthKey(t time.Time) string { return t.Format("2006-01") }

func isoWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func groupBuckets(txs []Transaction, walletAddress string, key func(time.Time) string) []BucketStat {
	groups := map[string][]Transaction{}
	for _, t := range txs {
		if t.Timestamp.IsZero() {
			continue
		}
		k := key(t.Timestamp)
		groups[k] = append(groups[k], t)
	}

	buckets := make([]BucketStat, 0, len(groups))
	for period, group := range groups {
		sent := sumETH(group, func(t Transaction) bool { return t.From == walletAddress })
		received := sumETH(group, func(t Transaction) bool { return t.To == walletAddress })

		stat := BucketStat{
			Period:               period,
			TxCount:              len(group),
			EthSent:              sent,
			EthReceived:          received,
			EthNet:               received - sent,
			UniqueCounterparties: len(counterpartySet(group, walletAddress)),
			AvgValue:             mean(ethValues(group, func(Transaction) bool { return true })),
		}
		for _, t := range group {
			if t.From == walletAddress {
				stat.SentCount++
			}
			if t.To == walletAddress {
				stat.ReceivedCount++
			}
			if t.Failed {
				stat.FailedCount++
			}
		}
		buckets = append(buckets, stat)
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Period < buckets[j].Period })
	return buckets
}

// truncateBuckets keeps the most recent max buckets, discarding oldest first.
func truncateBuckets(buckets []BucketStat, max int) []BucketStat {
	if len(buckets) > max {
		return buckets[len(buckets)-max:]
	}
	return buckets
}

func dailyActivity(txs []Transaction, now time.Time) []DailyActivity {
	cutoff := now.AddDate(0, 0, -dailyActivityWindow)
	perDay := map[string]int{}
	for _, t := range txs {
		if t.Timestamp.IsZero() || t.Timestamp.Before(cutoff) {
			continue
		}
		perDay[t.Timestamp.Format("2006-01-02")]++
	}

	days := make([]DailyActivity, 0, len(perDay))
	for date, count := range perDay {
		days = append(days, DailyActivity{Date: date, TxCount: count})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

func hourlyDistribution(txs []Transaction) []DistributionBucket {
	var counts [24]int
	for _, t := range txs {
		if !t.Timestamp.IsZero() {
			counts[t.Timestamp.Hour()]++
		}
	}
	buckets := make([]DistributionBucket, 24)
	for hour, count := range counts {
		buckets[hour] = DistributionBucket{Label: fmt.Sprintf("%02d", hour), TxCount: count}
	}
	return buckets
}

func weekdayDistribution(txs []Transaction) []DistributionBucket {
	var counts [7]int
	for _, t := range txs {
		if !t.Timestamp.IsZero() {
			counts[pandasWeekday(t.Timestamp)]++
		}
	}
	buckets := make([]DistributionBucket, 7)
	for wd, count := range counts {
		buckets[wd] = DistributionBucket{Label: weekdayLabels[wd], TxCount: count}
	}
	return buckets
}

// valueDistribution assigns each transaction to a half-open [lo, hi) ETH
// bucket; exactly 1.0 ETH lands in "1-10".
func valueDistribution(txs []Transaction) []DistributionBucket {
	counts := make([]int, len(valueBuckets))
	for _, t := range txs {
		if math.IsNaN(t.ValueETH) {
			continue
		}
		for i, b := range valueBuckets {
			if t.ValueETH < b.Upper {
				counts[i]++
				break
			}
		}
	}
	buckets := make([]DistributionBucket, len(valueBuckets))
	for i, b := range valueBuckets {
		buckets[i] = DistributionBucket{Label: b.Label, TxCount: counts[i]}
	}
	return buckets
}

func cumulative(txs []Transaction, walletAddress string) []CumulativePoint {
	months := groupBuckets(txs, walletAddress, monthKey)

	points := make([]CumulativePoint, 0, len(months))
	count := 0
	in, out := 0.0, 0.0
	for _, m := range months {
		count += m.TxCount
		in += m.EthReceived
		out += m.EthSent
		points = append(points, CumulativePoint{
			Period:  m.Period,
			TxCount: count,
			EthIn:   in,
			EthOut:  out,
			EthNet:  in - out,
		})
	}
	return points
}
