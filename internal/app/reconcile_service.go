package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/citysync/internal/core/reconcile"
	"github.com/example/citysync/internal/ctxutil"
	"github.com/example/citysync/internal/ports/primary"
	"github.com/example/citysync/internal/ports/secondary"
)

var (
	// ErrInvalidSettings is returned before any work when the run settings are rejected.
	ErrInvalidSettings = errors.New("invalid run settings")
	// ErrDirectoryUnavailable wraps failures loading the chat directory.
	ErrDirectoryUnavailable = errors.New("chat directory unavailable")
	// ErrCandidatesUnavailable wraps failures fetching pending users.
	ErrCandidatesUnavailable = errors.New("candidate source unavailable")
)

// ReconcileServiceImpl implements the ReconcileService and ProgressSource interfaces.
type ReconcileServiceImpl struct {
	store   secondary.ReconcileStore
	client  secondary.MembershipClient
	logger  *zap.Logger
	now     func() time.Time
	current atomic.Pointer[runState]
}

// runState is what Progress reads while and after a run executes.
type runState struct {
	runID    string
	counters *Counters
	final    atomic.Pointer[primary.Counters]
}

// NewReconcileService creates a new ReconcileService with injected dependencies.
// now defaults to time.Now when nil.
func NewReconcileService(
	store secondary.ReconcileStore,
	client secondary.MembershipClient,
	logger *zap.Logger,
	now func() time.Time,
) *ReconcileServiceImpl {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileServiceImpl{
		store:  store,
		client: client,
		logger: logger,
		now:    now,
	}
}

// SettingsFromRequest converts a run request into validated core settings.
func SettingsFromRequest(req primary.RunRequest) (reconcile.Settings, error) {
	strategy, err := reconcile.ParseStrategy(req.Strategy)
	if err != nil {
		return reconcile.Settings{}, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	settings := reconcile.Settings{
		Strategy:      strategy,
		Concurrency:   req.Concurrency,
		CallDelay:     req.CallDelay,
		UserDelay:     req.UserDelay,
		BatchSize:     req.BatchSize,
		PageSize:      req.PageSize,
		ProgressEvery: req.ProgressEvery,
		ProbeTimeout:  req.ProbeTimeout,
		DryRun:        req.DryRun,
	}
	if result := reconcile.CheckSettings(settings); !result.Allowed {
		return reconcile.Settings{}, fmt.Errorf("%w: %w", ErrInvalidSettings, result.Error())
	}
	return settings, nil
}

// run is the state of one reconciliation, owned by the scheduling goroutine.
type run struct {
	settings reconcile.Settings
	chats    []secondary.ChatRecord
	matcher  chatMatcher
	writer   *BatchWriter
	reporter *ProgressReporter
	counters *Counters
	logger   *zap.Logger
}

// Run reconciles every pending user once.
// Fatal errors (directory, candidates, flush) stop the run immediately and
// drop the unflushed batch; batches flushed earlier stay committed.
// A cancelled ctx stops the run the same way.
func (s *ReconcileServiceImpl) Run(ctx context.Context, req primary.RunRequest) (*primary.RunSummary, error) {
	settings, err := SettingsFromRequest(req)
	if err != nil {
		return nil, err
	}

	start := s.now()
	runID := uuid.NewString()
	ctx = ctxutil.WithRunID(ctx, runID)
	logger := runLogger(ctx, s.logger)

	counters := NewCounters(start)
	state := &runState{runID: runID, counters: counters}
	s.current.Store(state)

	summary := &primary.RunSummary{
		RunID:    runID,
		Strategy: string(settings.Strategy),
		DryRun:   settings.DryRun,
	}
	finish := func(err error) (*primary.RunSummary, error) {
		summary.Counters = counters.Snapshot(s.now())
		summary.Elapsed = summary.Counters.Elapsed
		final := summary.Counters
		state.final.Store(&final)
		return summary, err
	}

	chats, err := s.store.LoadChats(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
		logger.Error("failed to load chat directory", zap.Error(err))
		return finish(err)
	}
	summary.Chats = len(chats)

	already, err := s.store.CountReconciled(ctx, start)
	if err != nil {
		logger.Warn("failed to count reconciled users", zap.Error(err))
	}
	summary.AlreadyReconciled = already

	logger.Info("run started",
		zap.String("strategy", string(settings.Strategy)),
		zap.Int("concurrency", settings.EffectiveConcurrency()),
		zap.Duration("call_delay", settings.CallDelay),
		zap.Int("batch_size", settings.BatchSize),
		zap.Int("chats", len(chats)),
		zap.Int("already_reconciled", already),
		zap.Bool("dry_run", settings.DryRun))

	if len(chats) == 0 {
		logger.Warn("chat directory is empty, nothing to probe")
		return finish(nil)
	}

	prober := NewProber(s.client, settings.EffectiveConcurrency(), settings.CallDelay, settings.ProbeTimeout, counters, logger)
	r := &run{
		settings: settings,
		chats:    chats,
		matcher:  newMatcher(settings.Strategy, prober),
		writer:   NewBatchWriter(s.store, settings.BatchSize, settings.DryRun, counters, logger),
		reporter: NewProgressReporter(settings.ProgressEvery, counters, logger, s.now),
		counters: counters,
		logger:   logger,
	}

	err = s.drain(ctx, r, start)
	if err == nil {
		err = r.writer.Flush(ctx)
	}
	r.reporter.Final(already, err)
	return finish(err)
}

// runLogger tags every line with the run id carried by ctx.
func runLogger(ctx context.Context, base *zap.Logger) *zap.Logger {
	return base.With(zap.String("run_id", ctxutil.RunIDFromContext(ctx)))
}

// drain pages through candidates in telegram id order until none are left.
func (s *ReconcileServiceImpl) drain(ctx context.Context, r *run, now time.Time) error {
	var cursor int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.store.FetchPending(ctx, secondary.PendingQuery{
			Now:             now,
			AfterTelegramID: cursor,
			Limit:           r.settings.PageSize,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCandidatesUnavailable, err)
		}
		if len(page) == 0 {
			return nil
		}
		r.logger.Debug("fetched candidates", zap.Int("count", len(page)), zap.Int64("after", cursor))

		for _, user := range page {
			if err := s.reconcileUser(ctx, r, user); err != nil {
				return err
			}
			cursor = user.TelegramID
		}
		if r.settings.PageSize == 0 || len(page) < r.settings.PageSize {
			return nil
		}
	}
}

// reconcileUser probes one user and queues the resulting update, if any.
func (s *ReconcileServiceImpl) reconcileUser(ctx context.Context, r *run, user secondary.UserRecord) error {
	if result := reconcile.CanTransition(reconcile.PhasePending, reconcile.PhaseProbing); !result.Allowed {
		return result.Error()
	}

	errorsBefore := r.counters.ProbeErrors.Load()
	index := r.matcher.FirstMatch(ctx, user.TelegramID, r.chats)
	if err := ctx.Err(); err != nil {
		return err
	}

	r.counters.Checked.Add(1)
	if r.counters.ProbeErrors.Load() > errorsBefore {
		r.counters.UsersWithErrors.Add(1)
	}

	if index < 0 {
		r.counters.Exhausted.Add(1)
		r.logger.Debug("no city chat found",
			zap.Int64("telegram_id", user.TelegramID),
			zap.String("first_name", user.FirstName))
	} else {
		r.counters.Matched.Add(1)
		chat := r.chats[index]
		update, needed := reconcile.PlanUpdate(
			reconcile.UserState{UserID: user.ID, City: user.City, CityChatID: user.CityChatID},
			reconcile.Match{ChatRecordID: chat.ID, City: chat.City},
		)
		if needed {
			r.logger.Info("city matched",
				zap.Int64("telegram_id", user.TelegramID),
				zap.String("first_name", user.FirstName),
				zap.String("old_city", user.City),
				zap.String("new_city", chat.City),
				zap.Int64("chat_id", chat.PlatformID))
			if err := r.writer.Enqueue(ctx, update); err != nil {
				return err
			}
		}
	}

	r.reporter.UserProcessed()

	if r.settings.UserDelay > 0 {
		timer := time.NewTimer(r.settings.UserDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Progress returns the state of the current or most recent run.
// Once a run has returned its counters are frozen at the final figures.
func (s *ReconcileServiceImpl) Progress() (primary.RunProgress, bool) {
	state := s.current.Load()
	if state == nil {
		return primary.RunProgress{}, false
	}
	if final := state.final.Load(); final != nil {
		return primary.RunProgress{RunID: state.runID, Counters: *final}, true
	}
	return primary.RunProgress{RunID: state.runID, Running: true, Counters: state.counters.Snapshot(s.now())}, true
}

// CheckMembership asks the platform about one (chat, user) pair.
func (s *ReconcileServiceImpl) CheckMembership(ctx context.Context, chatID, userID int64) (*primary.MembershipCheck, error) {
	status, err := s.client.GetMemberStatus(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member status: %w", err)
	}
	return &primary.MembershipCheck{
		ChatID: chatID,
		UserID: userID,
		Status: status,
		Member: reconcile.IsMember(status),
	}, nil
}
