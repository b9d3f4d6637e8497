package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TuanBC/credit-scoring-onchain/internal/alerting"
)

// SimulateAlert 通过给定的分数变化模拟一次告警推送，用于验证通道配置。
func (a *App) SimulateAlert(ctx context.Context, wallet string, previous, current decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	delta := current.Sub(previous)
	direction := "flat"
	switch delta.Sign() {
	case 1:
		direction = "up"
	case -1:
		direction = "down"
	}

	note := alerting.Notification{
		WalletAddress: wallet,
		At:            time.Now().UTC(),
		PreviousScore: previous,
		CurrentScore:  current,
		Delta:         delta,
		Threshold:     decimal.NewFromFloat(a.Config.Alerting.ThresholdScore),
		Direction:     direction,
		Channels:      a.Config.Alerting.Channels,
		AdditionalMsg: "simulated alert",
	}
	return notifier.Notify(ctx, note)
}
