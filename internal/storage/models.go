package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ScoreSnapshot is one persisted scoring run for a wallet. Features, time
// series, and the off-chain persona are stored as jsonb documents so the
// feature set can evolve without migrations.
type ScoreSnapshot struct {
	ID               int64
	WalletAddress    string
	CreditScore      decimal.Decimal
	TransactionCount int
	Features         json.RawMessage
	TimeSeries       json.RawMessage
	Offchain         json.RawMessage
	Message          *string
	CreatedAt        time.Time
}

// ScoreAlert captures a score movement that crossed the watch threshold.
type ScoreAlert struct {
	ID            int64
	WalletAddress string
	PreviousScore decimal.Decimal
	CurrentScore  decimal.Decimal
	Delta         decimal.Decimal
	Threshold     decimal.Decimal
	Direction     string
	CreatedAt     time.Time
}
