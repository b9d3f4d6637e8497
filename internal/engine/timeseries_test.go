package engine

import (
	"testing"
	"time"
)

func TestExtractTimeSeriesEmpty(t *testing.T) {
	ts := ExtractTimeSeries(nil, wallet, time.Now())
	if ts.Monthly == nil || ts.Weekly == nil || ts.DailyActivity == nil ||
		ts.HourlyDistribution == nil || ts.WeekdayDistribution == nil ||
		ts.ValueDistribution == nil || ts.Cumulative == nil {
		t.Fatal("empty input must yield initialized, empty series")
	}
	if len(ts.Monthly) != 0 || len(ts.Cumulative) != 0 {
		t.Fatal("empty input must yield zero-length series")
	}
}

func TestMonthlyTruncation(t *testing.T) {
	start := time.Date(2020, 1, 15, 12, 0, 0, 0, time.UTC)
	var txs []Transaction
	for i := 0; i < 30; i++ {
		txs = append(txs, mkTx(start.AddDate(0, i, 0).Unix(), 1, wallet, "0xb"))
	}
	now := start.AddDate(0, 30, 0)

	ts := ExtractTimeSeries(txs, wallet, now)
	if len(ts.Monthly) != monthlyWindow {
		t.Fatalf("monthly series length = %d, want %d", len(ts.Monthly), monthlyWindow)
	}
	// oldest six months (2020-01 .. 2020-06) fall off
	if ts.Monthly[0].Period != "2020-07" {
		t.Fatalf("oldest kept month = %s, want 2020-07", ts.Monthly[0].Period)
	}
	if ts.Monthly[len(ts.Monthly)-1].Period != "2022-06" {
		t.Fatalf("newest month = %s, want 2022-06", ts.Monthly[len(ts.Monthly)-1].Period)
	}
	if len(ts.Weekly) > weeklyWindow {
		t.Fatalf("weekly series length = %d, want at most %d", len(ts.Weekly), weeklyWindow)
	}
	// cumulative is never truncated
	if len(ts.Cumulative) != 30 {
		t.Fatalf("cumulative length = %d, want 30", len(ts.Cumulative))
	}
}

func TestMonthlyBucketStats(t *testing.T) {
	now := time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2021, 1, 10, 9, 0, 0, 0, time.UTC).Unix()
	txs := []Transaction{
		mkTx(jan, 2, wallet, "0xb"),
		mkTx(jan+3600, 3, "0xc", wallet),
		{Timestamp: time.Unix(jan+7200, 0).UTC(), ValueETH: 1, From: wallet, To: "0xb", Failed: true},
	}

	ts := ExtractTimeSeries(txs, wallet, now)
	if len(ts.Monthly) != 1 {
		t.Fatalf("monthly buckets = %d, want 1", len(ts.Monthly))
	}
	m := ts.Monthly[0]
	if m.Period != "2021-01" {
		t.Fatalf("period = %s, want 2021-01", m.Period)
	}
	if m.TxCount != 3 || m.SentCount != 2 || m.ReceivedCount != 1 || m.FailedCount != 1 {
		t.Fatalf("counts mismatch: %+v", m)
	}
	if !almostEqual(m.EthSent, 3) || !almostEqual(m.EthReceived, 3) || !almostEqual(m.EthNet, 0) {
		t.Fatalf("flows mismatch: %+v", m)
	}
	if m.UniqueCounterparties != 2 {
		t.Fatalf("unique_counterparties = %d, want 2", m.UniqueCounterparties)
	}
	if !almostEqual(m.AvgValue, 2) {
		t.Fatalf("avg_value = %v, want 2", m.AvgValue)
	}
}

func TestDailyActivityCutoff(t *testing.T) {
	now := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -10).Unix()
	stale := now.AddDate(0, 0, -400).Unix()
	txs := []Transaction{
		mkTx(recent, 1, wallet, "0xb"),
		mkTx(recent, 1, wallet, "0xb"),
		mkTx(stale, 1, wallet, "0xb"),
	}

	ts := ExtractTimeSeries(txs, wallet, now)
	if len(ts.DailyActivity) != 1 {
		t.Fatalf("daily activity entries = %d, want 1", len(ts.DailyActivity))
	}
	if ts.DailyActivity[0].TxCount != 2 {
		t.Fatalf("daily count = %d, want 2", ts.DailyActivity[0].TxCount)
	}
}

func TestDistributions(t *testing.T) {
	now := time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)
	monday9am := time.Date(2021, 1, 4, 9, 30, 0, 0, time.UTC)
	txs := []Transaction{
		{Timestamp: monday9am, ValueETH: 1.0, From: wallet, To: "0xb"},
		{Timestamp: monday9am.Add(time.Hour), ValueETH: 0.0005, From: wallet, To: "0xb"},
	}

	ts := ExtractTimeSeries(txs, wallet, now)

	if len(ts.HourlyDistribution) != 24 {
		t.Fatalf("hourly buckets = %d, want 24", len(ts.HourlyDistribution))
	}
	if ts.HourlyDistribution[9].TxCount != 1 || ts.HourlyDistribution[10].TxCount != 1 {
		t.Fatal("hourly counts misplaced")
	}

	if len(ts.WeekdayDistribution) != 7 {
		t.Fatalf("weekday buckets = %d, want 7", len(ts.WeekdayDistribution))
	}
	if ts.WeekdayDistribution[0].Label != "Monday" || ts.WeekdayDistribution[0].TxCount != 2 {
		t.Fatalf("Monday bucket mismatch: %+v", ts.WeekdayDistribution[0])
	}

	byLabel := map[string]int{}
	for _, b := range ts.ValueDistribution {
		byLabel[b.Label] = b.TxCount
	}
	// exactly 1.0 ETH belongs to the half-open [1, 10) bucket
	if byLabel["1-10"] != 1 {
		t.Fatalf("1.0 ETH should land in 1-10, got %v", byLabel)
	}
	if byLabel["<0.001"] != 1 {
		t.Fatalf("0.0005 ETH should land in <0.001, got %v", byLabel)
	}
}

func TestCumulativeRunningTotals(t *testing.T) {
	now := time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		mkTx(time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC).Unix(), 2, wallet, "0xb"),
		mkTx(time.Date(2021, 2, 5, 0, 0, 0, 0, time.UTC).Unix(), 5, "0xc", wallet),
		mkTx(time.Date(2021, 3, 5, 0, 0, 0, 0, time.UTC).Unix(), 1, wallet, "0xb"),
	}

	ts := ExtractTimeSeries(txs, wallet, now)
	if len(ts.Cumulative) != 3 {
		t.Fatalf("cumulative points = %d, want 3", len(ts.Cumulative))
	}
	last := ts.Cumulative[2]
	if last.TxCount != 3 {
		t.Fatalf("final cumulative tx count = %d, want 3", last.TxCount)
	}
	if !almostEqual(last.EthIn, 5) || !almostEqual(last.EthOut, 3) || !almostEqual(last.EthNet, 2) {
		t.Fatalf("final cumulative flows mismatch: %+v", last)
	}
	// each point must be monotonically non-decreasing in count
	for i := 1; i < len(ts.Cumulative); i++ {
		if ts.Cumulative[i].TxCount < ts.Cumulative[i-1].TxCount {
			t.Fatal("cumulative tx count must not decrease")
		}
	}
}
