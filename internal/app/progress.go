package app

import (
	"time"

	"go.uber.org/zap"
)

// ProgressReporter logs run counters every N processed users.
// It only reads counters; it never influences the run.
type ProgressReporter struct {
	every    int64
	counters *Counters
	logger   *zap.Logger
	now      func() time.Time
}

// NewProgressReporter creates a reporter. every < 1 disables periodic lines.
func NewProgressReporter(every int, counters *Counters, logger *zap.Logger, now func() time.Time) *ProgressReporter {
	return &ProgressReporter{
		every:    int64(every),
		counters: counters,
		logger:   logger,
		now:      now,
	}
}

// UserProcessed emits a progress line when the checked count hits a multiple of every.
// It reports whether a line was written.
func (r *ProgressReporter) UserProcessed() bool {
	if r.every < 1 {
		return false
	}
	checked := r.counters.Checked.Load()
	if checked == 0 || checked%r.every != 0 {
		return false
	}
	snap := r.counters.Snapshot(r.now())
	r.logger.Info("progress",
		zap.Int64("checked", snap.Checked),
		zap.Int64("matched", snap.Matched),
		zap.Int64("updated", snap.Updated),
		zap.Int64("users_with_errors", snap.UsersWithErrors),
		zap.Int64("probe_errors", snap.ProbeErrors),
		zap.Duration("elapsed", snap.Elapsed))
	return true
}

// Final writes the end-of-run summary line.
func (r *ProgressReporter) Final(alreadyReconciled int, err error) {
	snap := r.counters.Snapshot(r.now())
	fields := []zap.Field{
		zap.Int64("checked", snap.Checked),
		zap.Int64("matched", snap.Matched),
		zap.Int64("exhausted", snap.Exhausted),
		zap.Int64("updated", snap.Updated),
		zap.Int64("city_changed", snap.CityChanged),
		zap.Int64("batches", snap.Batches),
		zap.Int64("probes", snap.Probes),
		zap.Int64("probe_errors", snap.ProbeErrors),
		zap.Int64("rate_limited", snap.RateLimited),
		zap.Int64("not_found", snap.NotFound),
		zap.Int64("forbidden", snap.Forbidden),
		zap.Int64("timeouts", snap.Timeouts),
		zap.Int64("transport_errors", snap.TransportErrors),
		zap.Int64("cancelled", snap.Cancelled),
		zap.Int("already_reconciled", alreadyReconciled),
		zap.Duration("elapsed", snap.Elapsed),
	}
	if err != nil {
		r.logger.Error("run aborted", append(fields, zap.Error(err))...)
		return
	}
	r.logger.Info("run complete", fields...)
}
