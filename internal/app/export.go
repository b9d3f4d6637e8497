package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/TuanBC/credit-scoring-onchain/internal/engine"
)

// Export renders a wallet's monthly activity as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Address == "" {
		return errors.New("wallet address is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	result, err := a.scoreOnline(ctx, opts.Address)
	if err != nil {
		return err
	}

	monthly := result.Breakdown.TimeSeries.Monthly
	if len(monthly) == 0 {
		a.Logger.Info().Str("wallet", result.WalletAddress).Msg("no activity to export")
		return nil
	}

	downsampled := downsampleBuckets(monthly, opts.MaxPoints)
	a.Logger.Info().Int("total", len(monthly)).Int("exported", len(downsampled)).Msg("exporting monthly buckets")

	if opts.CSVPath != "" {
		if err := writeBucketsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeBucketsPNG(opts.PNGPath, result.WalletAddress, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleBuckets(buckets []engine.BucketStat, max int) []engine.BucketStat {
	if max <= 0 || len(buckets) <= max {
		return buckets
	}

	result := make([]engine.BucketStat, 0, max)
	step := float64(len(buckets)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(buckets) {
			idx = len(buckets) - 1
		}
		result = append(result, buckets[idx])
	}
	return result
}

func writeBucketsCSV(path string, buckets []engine.BucketStat) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"period", "tx_count", "sent_count", "received_count", "eth_sent", "eth_received", "eth_net", "unique_counterparties", "avg_value", "failed_count"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, b := range buckets {
		record := []string{
			b.Period,
			strconv.Itoa(b.TxCount),
			strconv.Itoa(b.SentCount),
			strconv.Itoa(b.ReceivedCount),
			strconv.FormatFloat(b.EthSent, 'f', -1, 64),
			strconv.FormatFloat(b.EthReceived, 'f', -1, 64),
			strconv.FormatFloat(b.EthNet, 'f', -1, 64),
			strconv.Itoa(b.UniqueCounterparties),
			strconv.FormatFloat(b.AvgValue, 'f', -1, 64),
			strconv.Itoa(b.FailedCount),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeBucketsPNG(path, wallet string, buckets []engine.BucketStat) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(buckets))
	txCounts := make([]float64, len(buckets))
	ethSent := make([]float64, len(buckets))
	ethReceived := make([]float64, len(buckets))

	for i, b := range buckets {
		month, err := time.Parse("2006-01", b.Period)
		if err != nil {
			return err
		}
		x[i] = month
		txCounts[i] = float64(b.TxCount)
		ethSent[i] = b.EthSent
		ethReceived[i] = b.EthReceived
	}

	ethFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.3f")
	}
	graph := chart.Chart{
		Title:  "Monthly activity " + wallet,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "ETH",
			ValueFormatter: ethFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name: "Transactions",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "ETH sent",
				XValues: x,
				YValues: ethSent,
			},
			chart.TimeSeries{
				Name:    "ETH received",
				XValues: x,
				YValues: ethReceived,
			},
			chart.TimeSeries{
				Name:    "Tx count",
				XValues: x,
				YValues: txCounts,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
