package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/ledger"
)

// sweepHour is the local hour of day the overdue sweep runs at.
const sweepHour = 20

// StartScheduler starts the background task scheduler. It fires the overdue
// deadline sweep once a day; the ticker granularity follows the hour check so
// a restart never double-runs within the same hour.
func StartScheduler(ctx context.Context, store ledger.Store, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	go func() {
		log.Info("scheduler started")
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		var lastRun time.Time
		for {
			select {
			case <-ctx.Done():
				log.Info("scheduler stopped")
				return
			case now := <-ticker.C:
				if now.Hour() != sweepHour || sameDay(lastRun, now) {
					continue
				}
				lastRun = now

				if err := RunOverdueSweep(ctx, store, log); err != nil {
					log.Error("overdue sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// RunOverdueSweep flags overdue on every past-deadline non-completed
// installment and recomputes ledger statuses. A version conflict on one
// ledger is skipped; the next sweep picks it up.
func RunOverdueSweep(ctx context.Context, store ledger.Store, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now().UTC()

	ledgers, err := store.ListLedgersWithDeadlinesBefore(ctx, now)
	if err != nil {
		return err
	}

	flagged := 0
	for _, l := range ledgers {
		if !ledger.SweepOverdue(l, now) {
			continue
		}

		err := store.CommitLedgerUpdate(ctx, l, nil, nil)
		if errors.Is(err, ledger.ErrConflict) {
			log.Warn("sweep skipped busy ledger", zap.String("ledger_id", l.ID))
			continue
		}
		if err != nil {
			return err
		}
		flagged++
	}

	log.Info("overdue sweep finished",
		zap.Int("ledgers_checked", len(ledgers)),
		zap.Int("ledgers_flagged", flagged))
	return nil
}
