package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/cache"
	applog "finboard/internal/log"
	"finboard/internal/sheets"
)

const tombstoneTTL = 24 * time.Hour

// MirrorWorker applies transaction events to the spreadsheet ledger.
type MirrorWorker struct {
	ledger sheets.LedgerWriter
	logger *applog.Logger

	// Deletions seen recently. A requeued create or update older than the
	// delete must not bring the row back.
	tombstones *cache.LRUCache[time.Time]

	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

func NewMirrorWorker(ledger sheets.LedgerWriter, logger *applog.Logger) *MirrorWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MirrorWorker{
		ledger:     ledger,
		logger:     logger.WithComponent(applog.ComponentWorker),
		tombstones: cache.NewLRUCache[time.Time](10000, tombstoneTTL),
	}
}

// Tombstones exposes the deletion cache so it can be swept by a cache.Manager.
func (w *MirrorWorker) Tombstones() cache.Cleaner {
	return w.tombstones
}

// Handle processes a single transaction event. Returned errors requeue it.
func (w *MirrorWorker) Handle(ctx context.Context, ev *amqp.TransactionEvent) error {
	tx := ev.Transaction
	w.logger.InfoContext(ctx, "Processing transaction event",
		applog.FieldAction, string(ev.Action),
		applog.FieldTransactionID, tx.ID,
		applog.FieldUserID, ev.UserID)

	var err error
	switch ev.Action {
	case amqp.ActionCreated, amqp.ActionUpdated:
		if deletedAt, ok := w.tombstones.Get(tx.ID); ok && !ev.Timestamp.After(deletedAt) {
			w.skipped.Add(1)
			w.logger.InfoContext(ctx, "Skipping event for deleted transaction",
				applog.FieldTransactionID, tx.ID,
				"deleted_at", deletedAt.Format(time.RFC3339))
			return nil
		}
		err = w.ledger.Upsert(ctx, ev.UserID, tx)
	case amqp.ActionDeleted:
		w.tombstones.Set(tx.ID, ev.Timestamp)
		err = w.ledger.Remove(ctx, tx.ID)
	default:
		return fmt.Errorf("unknown action %q", ev.Action)
	}

	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("mirror %s %s: %w", ev.Action, tx.ID, err)
	}
	w.processed.Add(1)
	return nil
}

// Stats reports processed, skipped and failed event counts.
type Stats struct {
	Processed int64
	Skipped   int64
	Failed    int64
}

func (w *MirrorWorker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Skipped:   w.skipped.Load(),
		Failed:    w.failed.Load(),
	}
}
