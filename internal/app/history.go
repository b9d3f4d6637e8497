package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// History prints a wallet's recent persisted score snapshots.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	if opts.Address == "" {
		return errors.New("wallet address is required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	snapshots, err := store.ListSnapshots(ctx, strings.ToLower(strings.TrimSpace(opts.Address)), opts.Limit)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(os.Stdout, "no snapshots found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tScore\tTransactions\tNote")

	for _, snapshot := range snapshots {
		note := ""
		if snapshot.Message != nil {
			note = sanitizeInline(*snapshot.Message)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%s\n",
			snapshot.CreatedAt.UTC().Format(time.RFC3339),
			snapshot.CreditScore.StringFixed(0),
			snapshot.TransactionCount,
			note,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
