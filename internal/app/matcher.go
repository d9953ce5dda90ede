package app

import (
	"context"
	"sync"

	"github.com/example/citysync/internal/core/reconcile"
	"github.com/example/citysync/internal/ports/secondary"
)

// membershipProber is the part of Prober the matchers depend on.
type membershipProber interface {
	IsMember(ctx context.Context, chatID, userID int64) bool
}

// chatMatcher finds the first chat, in directory order, that a user belongs to.
// It returns the directory index of the match, or -1.
type chatMatcher interface {
	FirstMatch(ctx context.Context, userID int64, chats []secondary.ChatRecord) int
}

func newMatcher(strategy reconcile.Strategy, prober membershipProber) chatMatcher {
	if strategy == reconcile.StrategyParallel {
		return &parallelMatcher{prober: prober}
	}
	return &sequentialMatcher{prober: prober}
}

// sequentialMatcher probes one chat at a time and stops at the first member.
type sequentialMatcher struct {
	prober membershipProber
}

func (m *sequentialMatcher) FirstMatch(ctx context.Context, userID int64, chats []secondary.ChatRecord) int {
	for i, chat := range chats {
		if ctx.Err() != nil {
			return -1
		}
		if m.prober.IsMember(ctx, chat.PlatformID, userID) {
			return i
		}
	}
	return -1
}

// parallelMatcher starts a probe per chat and lets the prober's semaphore
// bound how many run at once. Once the earliest matching chat is known, the
// remaining probes are cancelled and their results discarded. It returns
// only after every probe goroutine has finished.
type parallelMatcher struct {
	prober membershipProber
}

type probeResult struct {
	index  int
	member bool
}

func (m *parallelMatcher) FirstMatch(ctx context.Context, userID int64, chats []secondary.ChatRecord) int {
	if len(chats) == 0 {
		return -1
	}

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan probeResult, len(chats))
	var wg sync.WaitGroup
	for i, chat := range chats {
		wg.Add(1)
		go func(index int, chatID int64) {
			defer wg.Done()
			results <- probeResult{index: index, member: m.prober.IsMember(probeCtx, chatID, userID)}
		}(i, chat.PlatformID)
	}
	defer wg.Wait()

	resolver := reconcile.NewFirstMatch(len(chats))
	for range chats {
		r := <-results
		if winner, decided := resolver.Record(r.index, r.member); decided {
			cancel()
			return winner
		}
	}
	return -1
}
