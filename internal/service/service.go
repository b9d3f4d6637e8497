package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/TuanBC/credit-scoring-onchain/internal/alerting"
	"github.com/TuanBC/credit-scoring-onchain/internal/cache"
	"github.com/TuanBC/credit-scoring-onchain/internal/config"
	"github.com/TuanBC/credit-scoring-onchain/internal/engine"
	"github.com/TuanBC/credit-scoring-onchain/internal/fetcher"
	"github.com/TuanBC/credit-scoring-onchain/internal/offchain"
	"github.com/TuanBC/credit-scoring-onchain/internal/storage"
)

// ErrInvalidAddress marks a wallet address that is not a 0x-prefixed 20-byte
// hex string.
var ErrInvalidAddress = errors.New("invalid ethereum wallet address")

// noHistoryMessage mirrors the API contract for wallets without transactions.
const noHistoryMessage = "No transaction history found for this wallet"

// Breakdown carries everything a scoring run produced for one wallet.
type Breakdown struct {
	CreditScore      float64            `json:"credit_score"`
	Features         engine.FeatureSet  `json:"features"`
	OffchainData     offchain.Persona   `json:"offchain_data"`
	TransactionCount int                `json:"transaction_count"`
	TimeSeries       *engine.TimeSeries `json:"time_series"`
}

// Result is the full evaluation payload for a wallet.
type Result struct {
	WalletAddress string    `json:"wallet_address"`
	Breakdown     Breakdown `json:"breakdown"`
	Message       string    `json:"message,omitempty"`
}

// Service orchestrates fetching, scoring, persistence, and alerting.
type Service struct {
	fetcher   fetcher.TransactionFetcher
	snapshots storage.SnapshotStore
	alerts    storage.AlertStore
	notifier  alerting.Notifier
	cache     *cache.TTL[string, Result]
	logger    zerolog.Logger

	wallets   []string
	threshold decimal.Decimal
	channels  []string
	alertsOn  bool
	locker    storage.AdvisoryLocker
	lockKey   int64

	now func() time.Time
}

// New constructs the scoring service.
func New(cfg *config.Config, txFetcher fetcher.TransactionFetcher, snapshots storage.SnapshotStore, alerts storage.AlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	threshold := decimal.Zero
	if cfg.Alerting.Enabled && cfg.Alerting.ThresholdScore > 0 {
		threshold = decimal.NewFromFloat(cfg.Alerting.ThresholdScore)
	}

	var locker storage.AdvisoryLocker
	if l, ok := snapshots.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		fetcher:   txFetcher,
		snapshots: snapshots,
		alerts:    alerts,
		notifier:  notifier,
		cache:     cache.NewTTL[string, Result](cfg.Scoring.CacheTTL),
		logger:    logger.With().Str("component", "service").Logger(),
		wallets:   cfg.Watch.Wallets,
		threshold: threshold,
		channels:  cfg.Alerting.Channels,
		alertsOn:  cfg.Alerting.Enabled,
		locker:    locker,
		lockKey:   cfg.Watch.AdvisoryLockKey,
		now:       time.Now,
	}
}

// NormalizeAddress validates and canonicalises a wallet address.
func NormalizeAddress(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if !common.IsHexAddress(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return strings.ToLower(trimmed), nil
}

// EvaluateWallet fetches the wallet's history and scores it. Results are
// cached for the configured TTL and persisted best-effort.
func (s *Service) EvaluateWallet(ctx context.Context, address string) (Result, error) {
	canonical, err := NormalizeAddress(address)
	if err != nil {
		return Result{}, err
	}

	if cached, ok := s.cache.Get(canonical); ok {
		s.logger.Debug().Str("wallet", canonical).Msg("serving cached evaluation")
		return cached, nil
	}

	result, err := s.evaluateFresh(ctx, canonical)
	if err != nil {
		return Result{}, err
	}

	s.cache.Set(canonical, result)
	return result, nil
}

func (s *Service) evaluateFresh(ctx context.Context, canonical string) (Result, error) {
	raw, err := s.fetcher.FetchTransactions(ctx, canonical)
	if err != nil {
		return Result{}, fmt.Errorf("fetch transactions: %w", err)
	}

	result, err := s.EvaluateTransactions(raw, canonical)
	if err != nil {
		return Result{}, err
	}

	s.persist(ctx, result)
	return result, nil
}

// EvaluateTransactions scores an already-fetched transaction set. This is the
// offline path: no network, no cache, no persistence.
func (s *Service) EvaluateTransactions(raw []engine.RawTransaction, address string) (Result, error) {
	canonical, err := NormalizeAddress(address)
	if err != nil {
		return Result{}, err
	}

	txs, err := engine.Normalize(raw)
	if err != nil {
		return Result{}, err
	}

	now := s.now().UTC()
	persona := offchain.Generate(canonical)

	if len(txs) == 0 {
		return Result{
			WalletAddress: canonical,
			Breakdown: Breakdown{
				CreditScore:  0,
				Features:     engine.FeatureSet{},
				OffchainData: persona,
				TimeSeries:   engine.ExtractTimeSeries(nil, canonical, now),
			},
			Message: noHistoryMessage,
		}, nil
	}

	features := engine.ExtractFeatures(txs, canonical, now)
	series := engine.ExtractTimeSeries(txs, canonical, now)
	score := engine.Score(features)

	s.logger.Info().Str("wallet", canonical).
		Int("transactions", len(txs)).
		Float64("score", score).
		Msg("wallet evaluated")

	return Result{
		WalletAddress: canonical,
		Breakdown: Breakdown{
			CreditScore:      score,
			Features:         features,
			OffchainData:     persona,
			TransactionCount: len(txs),
			TimeSeries:       series,
		},
	}, nil
}

// persist records the evaluation as a snapshot. Storage failures are logged
// and do not fail the request.
func (s *Service) persist(ctx context.Context, result Result) {
	if s.snapshots == nil {
		return
	}

	snapshot, err := toSnapshot(result)
	if err != nil {
		s.logger.Error().Err(err).Str("wallet", result.WalletAddress).Msg("failed to encode snapshot")
		return
	}
	if _, err := s.snapshots.InsertSnapshot(ctx, snapshot); err != nil {
		s.logger.Error().Err(err).Str("wallet", result.WalletAddress).Msg("failed to persist snapshot")
	}
}

func toSnapshot(result Result) (storage.ScoreSnapshot, error) {
	features, err := json.Marshal(result.Breakdown.Features)
	if err != nil {
		return storage.ScoreSnapshot{}, fmt.Errorf("marshal features: %w", err)
	}
	series, err := json.Marshal(result.Breakdown.TimeSeries)
	if err != nil {
		return storage.ScoreSnapshot{}, fmt.Errorf("marshal time series: %w", err)
	}
	persona, err := json.Marshal(result.Breakdown.OffchainData)
	if err != nil {
		return storage.ScoreSnapshot{}, fmt.Errorf("marshal offchain data: %w", err)
	}

	snapshot := storage.ScoreSnapshot{
		WalletAddress:    result.WalletAddress,
		CreditScore:      decimal.NewFromFloat(result.Breakdown.CreditScore),
		TransactionCount: result.Breakdown.TransactionCount,
		Features:         features,
		TimeSeries:       series,
		Offchain:         persona,
	}
	if result.Message != "" {
		msg := result.Message
		snapshot.Message = &msg
	}
	return snapshot, nil
}

// LatestSnapshot exposes the most recent persisted evaluation for a wallet.
func (s *Service) LatestSnapshot(ctx context.Context, address string) (storage.ScoreSnapshot, error) {
	canonical, err := NormalizeAddress(address)
	if err != nil {
		return storage.ScoreSnapshot{}, err
	}
	if s.snapshots == nil {
		return storage.ScoreSnapshot{}, storage.ErrNotConfigured
	}
	return s.snapshots.LatestSnapshot(ctx, canonical)
}

// WatchPass re-scores every configured wallet once, alerting on score
// movements that cross the threshold. Used by the watch scheduler.
func (s *Service) WatchPass(ctx context.Context, at time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("at", at).Msg("skip pass because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	if len(s.wallets) == 0 {
		return fmt.Errorf("no wallets configured for watching")
	}

	for _, wallet := range s.wallets {
		if err := s.watchWallet(ctx, wallet, at); err != nil {
			s.logger.Error().Err(err).Str("wallet", wallet).Msg("watch pass failed for wallet")
		}
	}
	return nil
}

func (s *Service) watchWallet(ctx context.Context, wallet string, at time.Time) error {
	canonical, err := NormalizeAddress(wallet)
	if err != nil {
		return err
	}

	var previous *decimal.Decimal
	if s.snapshots != nil {
		prior, err := s.snapshots.LatestSnapshot(ctx, canonical)
		switch {
		case err == nil:
			score := prior.CreditScore
			previous = &score
		case errors.Is(err, storage.ErrNoSnapshot):
			// first sighting of this wallet
		default:
			s.logger.Error().Err(err).Str("wallet", canonical).Msg("failed to load prior snapshot")
		}
	}

	// the watch loop always re-fetches; stale cache entries defeat its purpose
	result, err := s.evaluateFresh(ctx, canonical)
	if err != nil {
		return err
	}
	s.cache.Set(canonical, result)

	if previous == nil {
		return nil
	}

	current := decimal.NewFromFloat(result.Breakdown.CreditScore)
	delta := current.Sub(*previous)
	if !s.alertsOn || s.threshold.IsZero() || delta.Abs().LessThan(s.threshold) {
		return nil
	}

	direction := classifyDelta(delta)
	if s.alerts != nil {
		record := storage.ScoreAlert{
			WalletAddress: canonical,
			PreviousScore: *previous,
			CurrentScore:  current,
			Delta:         delta,
			Threshold:     s.threshold,
			Direction:     direction,
		}
		if _, err := s.alerts.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("wallet", canonical).Msg("failed to persist alert record")
		}
	}
	if s.notifier != nil {
		note := alerting.Notification{
			WalletAddress: canonical,
			At:            at,
			PreviousScore: *previous,
			CurrentScore:  current,
			Delta:         delta,
			Threshold:     s.threshold,
			Direction:     direction,
			Channels:      s.channels,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("wallet", canonical).Msg("failed to dispatch alert")
		}
	}
	return nil
}

func classifyDelta(d decimal.Decimal) string {
	switch d.Sign() {
	case 1:
		return "up"
	case -1:
		return "down"
	default:
		return "flat"
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
