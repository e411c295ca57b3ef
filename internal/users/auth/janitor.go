// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"
)

// Janitor periodically purges expired refresh token rows.
//
// Expired rows are already rejected by Refresh; purging only keeps the
// ledger small.
type Janitor struct {
	ledger   RefreshTokenLedger
	interval time.Duration
	logger   *slog.Logger
}

// NewJanitor creates a [Janitor] that sweeps every interval.
func NewJanitor(ledger RefreshTokenLedger, interval time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{ledger: ledger, interval: interval, logger: logger}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (janitor *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(janitor.interval)
	defer ticker.Stop()

	for {
		janitor.Sweep(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep deletes expired rows once and reports how many were removed.
func (janitor *Janitor) Sweep(ctx context.Context) int64 {
	deleted, err := janitor.ledger.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			janitor.logger.Error("ledger_cleanup_failed", slog.Any("error", err))
		}
		return 0
	}

	if deleted > 0 {
		janitor.logger.Info("ledger_cleanup_done", slog.Int64("deleted", deleted))
	}
	return deleted
}
