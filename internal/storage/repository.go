package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSnapshotSQL = `INSERT INTO score_snapshots (
        wallet_address,
        credit_score,
        transaction_count,
        features,
        time_series,
        offchain,
        message
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id, created_at;`

	latestSnapshotSQL = `SELECT
        id,
        wallet_address,
        credit_score,
        transaction_count,
        features,
        time_series,
        offchain,
        message,
        created_at
    FROM score_snapshots
    WHERE wallet_address = $1
    ORDER BY created_at DESC
    LIMIT 1;`

	listSnapshotsSQL = `SELECT
        id,
        wallet_address,
        credit_score,
        transaction_count,
        features,
        time_series,
        offchain,
        message,
        created_at
    FROM score_snapshots
    WHERE wallet_address = $1
    ORDER BY created_at DESC
    LIMIT $2;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM score_snapshots;`

	deleteSnapshotsBeforeSQL = `DELETE FROM score_snapshots WHERE created_at < $1;`

	insertScoreAlertSQL = `INSERT INTO score_alerts (
        wallet_address,
        previous_score,
        current_score,
        delta,
        threshold,
        direction
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    RETURNING id, wallet_address, previous_score, current_score, delta, threshold, direction, created_at;`

	listRecentScoreAlertsSQL = `SELECT
        id,
        wallet_address,
        previous_score,
        current_score,
        delta,
        threshold,
        direction,
        created_at
    FROM score_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteScoreAlertsBeforeSQL = `DELETE FROM score_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore defines operations for score snapshot persistence.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, snapshot ScoreSnapshot) (ScoreSnapshot, error)
	LatestSnapshot(ctx context.Context, walletAddress string) (ScoreSnapshot, error)
	ListSnapshots(ctx context.Context, walletAddress string, limit int) ([]ScoreSnapshot, error)
	CountSnapshots(ctx context.Context) (int64, error)
	DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) error
}

// AlertStore defines operations for score alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert ScoreAlert) (ScoreAlert, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]ScoreAlert, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// ErrNoSnapshot is returned when a wallet has never been scored.
var ErrNoSnapshot = errors.New("storage: no snapshot for wallet")

// Store aggregates access to score snapshots and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertSnapshot persists one scoring run.
func (s *Store) InsertSnapshot(ctx context.Context, snapshot ScoreSnapshot) (ScoreSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return ScoreSnapshot{}, err
	}

	var message interface{}
	if snapshot.Message != nil {
		message = *snapshot.Message
	}

	row := pool.QueryRow(ctx, insertSnapshotSQL,
		snapshot.WalletAddress,
		snapshot.CreditScore.String(),
		snapshot.TransactionCount,
		[]byte(snapshot.Features),
		[]byte(snapshot.TimeSeries),
		[]byte(snapshot.Offchain),
		message,
	)
	if scanErr := row.Scan(&snapshot.ID, &snapshot.CreatedAt); scanErr != nil {
		return ScoreSnapshot{}, fmt.Errorf("insert snapshot: %w", scanErr)
	}
	return snapshot, nil
}

// LatestSnapshot returns the most recent snapshot for a wallet, or
// ErrNoSnapshot if the wallet has never been scored.
func (s *Store) LatestSnapshot(ctx context.Context, walletAddress string) (ScoreSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return ScoreSnapshot{}, err
	}

	rows, queryErr := pool.Query(ctx, latestSnapshotSQL, walletAddress)
	if queryErr != nil {
		return ScoreSnapshot{}, fmt.Errorf("latest snapshot: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return ScoreSnapshot{}, rows.Err()
		}
		return ScoreSnapshot{}, ErrNoSnapshot
	}
	return scanSnapshot(rows)
}

// ListSnapshots lists the most recent snapshots for a wallet.
func (s *Store) ListSnapshots(ctx context.Context, walletAddress string, limit int) ([]ScoreSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsSQL, walletAddress, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshots: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]ScoreSnapshot, 0, limit)
	for rows.Next() {
		snapshot, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snapshots = append(snapshots, snapshot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// CountSnapshots counts stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count snapshots: %w", scanErr)
	}
	return count, nil
}

// DeleteSnapshotsBefore deletes historical snapshots.
func (s *Store) DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteSnapshotsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete snapshots before: %w", execErr)
	}
	return nil
}

// InsertAlert persists a score alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert ScoreAlert) (ScoreAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return ScoreAlert{}, err
	}

	row := pool.QueryRow(ctx, insertScoreAlertSQL,
		alert.WalletAddress,
		alert.PreviousScore.String(),
		alert.CurrentScore.String(),
		alert.Delta.String(),
		alert.Threshold.String(),
		alert.Direction,
	)
	return scanScoreAlert(row)
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]ScoreAlert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentScoreAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]ScoreAlert, 0, limit)
	for rows.Next() {
		alert, scanErr := scanScoreAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteScoreAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanSnapshot(rows pgx.Rows) (ScoreSnapshot, error) {
	var (
		snapshot ScoreSnapshot
		scoreStr string
		features json.RawMessage
		series   json.RawMessage
		offchain json.RawMessage
		message  sql.NullString
	)

	if err := rows.Scan(
		&snapshot.ID,
		&snapshot.WalletAddress,
		&scoreStr,
		&snapshot.TransactionCount,
		&features,
		&series,
		&offchain,
		&message,
		&snapshot.CreatedAt,
	); err != nil {
		return ScoreSnapshot{}, err
	}

	score, err := decimal.NewFromString(scoreStr)
	if err != nil {
		return ScoreSnapshot{}, fmt.Errorf("parse credit score: %w", err)
	}
	snapshot.CreditScore = score
	snapshot.Features = features
	snapshot.TimeSeries = series
	snapshot.Offchain = offchain
	if message.Valid {
		msg := message.String
		snapshot.Message = &msg
	}
	return snapshot, nil
}

func scanScoreAlert(row pgx.Row) (ScoreAlert, error) {
	var (
		alert       ScoreAlert
		prevStr     string
		currStr     string
		deltaStr    string
		thresholdSt string
	)

	if err := row.Scan(
		&alert.ID,
		&alert.WalletAddress,
		&prevStr,
		&currStr,
		&deltaStr,
		&thresholdSt,
		&alert.Direction,
		&alert.CreatedAt,
	); err != nil {
		return ScoreAlert{}, fmt.Errorf("scan score alert: %w", err)
	}

	var convErr error
	if alert.PreviousScore, convErr = decimal.NewFromString(prevStr); convErr != nil {
		return ScoreAlert{}, fmt.Errorf("parse previous score: %w", convErr)
	}
	if alert.CurrentScore, convErr = decimal.NewFromString(currStr); convErr != nil {
		return ScoreAlert{}, fmt.Errorf("parse current score: %w", convErr)
	}
	if alert.Delta, convErr = decimal.NewFromString(deltaStr); convErr != nil {
		return ScoreAlert{}, fmt.Errorf("parse delta: %w", convErr)
	}
	if alert.Threshold, convErr = decimal.NewFromString(thresholdSt); convErr != nil {
		return ScoreAlert{}, fmt.Errorf("parse threshold: %w", convErr)
	}
	return alert, nil
}
