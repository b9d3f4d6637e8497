package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/TuanBC/credit-scoring-onchain/internal/alerting"
	"github.com/TuanBC/credit-scoring-onchain/internal/config"
	"github.com/TuanBC/credit-scoring-onchain/internal/fetcher"
	"github.com/TuanBC/credit-scoring-onchain/internal/report"
	"github.com/TuanBC/credit-scoring-onchain/internal/scheduler"
	"github.com/TuanBC/credit-scoring-onchain/internal/server"
	"github.com/TuanBC/credit-scoring-onchain/internal/service"
	"github.com/TuanBC/credit-scoring-onchain/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.TransactionFetcher {
	return fetcher.NewEtherscan(fetcher.EtherscanOptions{
		BaseURL:   a.Config.Etherscan.BaseURL,
		APIKey:    a.Config.Etherscan.APIKey,
		ChainID:   a.Config.Etherscan.ChainID,
		Timeout:   a.Config.Etherscan.RequestTimeout,
		UserAgent: a.Config.Etherscan.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newReportGenerator() *report.Generator {
	client := report.NewClient(report.ClientOptions{
		BaseURL:     a.Config.Report.BaseURL,
		APIKey:      a.Config.Report.APIKey,
		Model:       a.Config.Report.Model,
		Temperature: a.Config.Report.Temperature,
		MaxTokens:   a.Config.Report.MaxTokens,
		Timeout:     a.Config.Report.RequestTimeout,
	}, a.Logger)
	return report.NewGenerator(client, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newService wires the scoring service with an optional store.
func (a *App) newService(store *storage.Store, notifier alerting.Notifier) *service.Service {
	var snapshots storage.SnapshotStore
	var alertStore storage.AlertStore
	if store != nil {
		snapshots = store
		alertStore = store
	}
	return service.New(a.Config, a.newFetcher(), snapshots, alertStore, notifier, a.Logger)
}

// Serve runs the HTTP API until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(store, nil)
	srv := server.New(a.Config.Server, svc, a.newReportGenerator(), a.Logger)

	a.Logger.Info().Msg("starting scoring api")
	err = srv.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("api terminated with error")
		return err
	}

	a.Logger.Info().Msg("scoring api stopped")
	return nil
}

// Watch periodically re-scores the configured wallets until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(a.Config.Watch.Wallets) == 0 {
		return errors.New("watch.wallets must list at least one address")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; score deltas cannot be tracked across restarts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(store, a.newNotifier())

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Watch.Interval,
		RunImmediately: true,
		StartupDelay:   a.Config.Watch.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Int("wallets", len(a.Config.Watch.Wallets)).Msg("starting watch loop")
	err = sched.Run(ctx, svc.WatchPass)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}

// ScoreOptions configure the one-shot scoring command.
type ScoreOptions struct {
	Address  string
	FilePath string
	AsJSON   bool
}

// ExportOptions hold parameters for exporting a wallet's activity series.
type ExportOptions struct {
	Address   string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Address string
	Limit   int
}
