package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/citysync/internal/core/reconcile"
	"github.com/example/citysync/internal/ports/secondary"
)

// ErrFlushFailed wraps a transactional failure while committing a batch.
var ErrFlushFailed = errors.New("flush failed")

// BatchWriter buffers city updates and commits them in fixed-size
// transactions. A successful flush is the run's resumability checkpoint:
// flushed users drop out of the candidate predicate for good.
type BatchWriter struct {
	store    secondary.UserStore
	size     int
	dryRun   bool
	pending  []reconcile.Update
	counters *Counters
	logger   *zap.Logger
}

// NewBatchWriter creates a writer that flushes every size updates.
// In dry-run mode flushes are logged and counted but nothing is written.
func NewBatchWriter(store secondary.UserStore, size int, dryRun bool, counters *Counters, logger *zap.Logger) *BatchWriter {
	if size < 1 {
		size = 1
	}
	return &BatchWriter{
		store:    store,
		size:     size,
		dryRun:   dryRun,
		pending:  make([]reconcile.Update, 0, size),
		counters: counters,
		logger:   logger,
	}
}

// Enqueue appends an update and flushes once the batch is full.
func (w *BatchWriter) Enqueue(ctx context.Context, u reconcile.Update) error {
	w.pending = append(w.pending, u)
	w.counters.Queued.Add(1)
	if len(w.pending) >= w.size {
		return w.Flush(ctx)
	}
	return nil
}

// Pending returns the number of updates waiting for the next flush.
func (w *BatchWriter) Pending() int {
	return len(w.pending)
}

// Flush writes every pending update in one transaction.
// On failure the batch is kept as-is and ErrFlushFailed is returned; callers
// abort the run rather than retry at a finer grain.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}

	updates := make([]secondary.CityUpdate, len(w.pending))
	for i, u := range w.pending {
		updates[i] = secondary.CityUpdate{UserID: u.UserID, City: u.City, ChatRecordID: u.ChatRecordID}
	}

	if !w.dryRun {
		if err := w.store.ApplyUpdates(ctx, updates); err != nil {
			return fmt.Errorf("%w: batch of %d updates: %w", ErrFlushFailed, len(updates), err)
		}
	}

	if res := reconcile.CanTransition(reconcile.PhaseMatched, reconcile.PhaseDone); !res.Allowed {
		return res.Error()
	}
	var changed int64
	for _, u := range w.pending {
		if u.CityChanged {
			changed++
		}
	}

	w.counters.Updated.Add(int64(len(updates)))
	w.counters.CityChanged.Add(changed)
	w.counters.Batches.Add(1)
	w.logger.Info("batch committed",
		zap.Int("updates", len(updates)),
		zap.Int64("city_changed", changed),
		zap.Bool("dry_run", w.dryRun))

	w.pending = make([]reconcile.Update, 0, w.size)
	return nil
}
