package fetcher

import (
	"context"

	"github.com/TuanBC/credit-scoring-onchain/internal/engine"
)

// TransactionFetcher retrieves the full normal-transaction history of a wallet.
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, address string) ([]engine.RawTransaction, error)
}
