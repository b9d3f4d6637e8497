package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/TuanBC/credit-scoring-onchain/internal/engine"
	"github.com/TuanBC/credit-scoring-onchain/internal/service"
)

// Score evaluates one wallet and prints the result. With a file path it scores
// offline from a JSON transaction dump instead of calling Etherscan.
func (a *App) Score(ctx context.Context, opts ScoreOptions) error {
	if opts.Address == "" {
		return errors.New("wallet address is required")
	}

	var result service.Result
	var err error

	if opts.FilePath != "" {
		result, err = a.scoreFromFile(opts.Address, opts.FilePath)
	} else {
		result, err = a.scoreOnline(ctx, opts.Address)
	}
	if err != nil {
		return err
	}

	if opts.AsJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	printSummary(result)
	return nil
}

func (a *App) scoreOnline(ctx context.Context, address string) (service.Result, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return service.Result{}, err
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(store, nil)
	return svc.EvaluateWallet(ctx, address)
}

func (a *App) scoreFromFile(address, path string) (service.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.Result{}, fmt.Errorf("read transaction file: %w", err)
	}

	var raw []engine.RawTransaction
	if err := json.Unmarshal(data, &raw); err != nil {
		return service.Result{}, fmt.Errorf("parse transaction file: %w", err)
	}

	svc := a.newService(nil, nil)
	return svc.EvaluateTransactions(raw, address)
}

func printSummary(result service.Result) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Wallet\t%s\n", result.WalletAddress)
	fmt.Fprintf(writer, "Credit score\t%.0f\n", result.Breakdown.CreditScore)
	fmt.Fprintf(writer, "Transactions\t%d\n", result.Breakdown.TransactionCount)
	if result.Message != "" {
		fmt.Fprintf(writer, "Note\t%s\n", result.Message)
	}

	features := result.Breakdown.Features
	for _, name := range []string{
		"account_age_days",
		"total_eth_sent",
		"total_eth_received",
		"unique_counterparties",
		"contract_interactions",
		"tx_count_6m",
		"months_with_tx",
	} {
		if v, ok := features.Float(name); ok {
			fmt.Fprintf(writer, "%s\t%v\n", name, v)
		}
	}

	p := result.Breakdown.OffchainData
	fmt.Fprintf(writer, "Off-chain score\t%d\n", p.OffchainCreditScore)
	fmt.Fprintf(writer, "Occupation\t%s\n", p.Occupation)

	writer.Flush()
}
