package app

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/example/citysync/internal/core/reconcile"
	"github.com/example/citysync/internal/ports/secondary"
)

// Prober is the only component that talks to the messaging platform.
// Every call passes through a shared counting semaphore (max in-flight
// probes) and a shared limiter (min spacing between consecutive calls).
type Prober struct {
	client   secondary.MembershipClient
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	timeout  time.Duration
	counters *Counters
	logger   *zap.Logger
}

// NewProber creates a prober governed by maxInFlight and callDelay.
// callDelay == 0 disables spacing.
func NewProber(client secondary.MembershipClient, maxInFlight int, callDelay, timeout time.Duration, counters *Counters, logger *zap.Logger) *Prober {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	limit := rate.Inf
	if callDelay > 0 {
		limit = rate.Every(callDelay)
	}
	return &Prober{
		client:   client,
		sem:      semaphore.NewWeighted(int64(maxInFlight)),
		limiter:  rate.NewLimiter(limit, 1),
		timeout:  timeout,
		counters: counters,
		logger:   logger,
	}
}

// IsMember reports whether userID belongs to chatID.
// It never fails: platform errors count as "not a member" and are tallied
// by kind. A probe stopped because ctx ended is counted as cancelled.
func (p *Prober) IsMember(ctx context.Context, chatID, userID int64) bool {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.counters.Cancelled.Add(1)
		return false
	}
	defer p.sem.Release(1)

	if err := p.limiter.Wait(ctx); err != nil {
		p.counters.Cancelled.Add(1)
		return false
	}
	if ctx.Err() != nil {
		p.counters.Cancelled.Add(1)
		return false
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.counters.Probes.Add(1)
	status, err := p.client.GetMemberStatus(callCtx, chatID, userID)
	if err != nil {
		if ctx.Err() != nil {
			p.counters.Cancelled.Add(1)
			return false
		}
		kind := classifyProbeError(err)
		p.counters.recordProbeError(kind)
		p.logger.Debug("probe failed",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return false
	}

	return reconcile.IsMember(status)
}
