package primary

import (
	"context"
	"time"
)

// ReconcileService defines the primary port for city reconciliation.
type ReconcileService interface {
	// Run reconciles every pending user once. A non-nil summary is returned
	// alongside fatal errors so the caller can report partial progress.
	Run(ctx context.Context, req RunRequest) (*RunSummary, error)

	// CheckMembership asks the platform about a single (chat, user) pair and
	// returns the raw answer without normalization.
	CheckMembership(ctx context.Context, chatID, userID int64) (*MembershipCheck, error)
}

// DirectoryService defines the primary port for read-only store views.
type DirectoryService interface {
	ListChats(ctx context.Context) ([]*Chat, error)
	Status(ctx context.Context) (*StoreStatus, error)
}

// ProgressSource exposes the current or most recent run.
// ok is false until a run has started.
type ProgressSource interface {
	Progress() (progress RunProgress, ok bool)
}

// RunProgress is a point-in-time view of a run.
type RunProgress struct {
	RunID    string
	Running  bool
	Counters Counters
}

// RunRequest contains the parameters for a reconciliation run.
type RunRequest struct {
	Strategy      string
	Concurrency   int
	CallDelay     time.Duration
	UserDelay     time.Duration
	BatchSize     int
	PageSize      int
	ProgressEvery int
	ProbeTimeout  time.Duration
	DryRun        bool
}

// Counters are the operator-facing figures of a run.
type Counters struct {
	Checked         int64         `json:"checked"`
	Matched         int64         `json:"matched"`
	Exhausted       int64         `json:"exhausted"`
	Queued          int64         `json:"queued"`
	Updated         int64         `json:"updated"`
	CityChanged     int64         `json:"city_changed"`
	Batches         int64         `json:"batches"`
	UsersWithErrors int64         `json:"users_with_errors"`
	Probes          int64         `json:"probes"`
	ProbeErrors     int64         `json:"probe_errors"`
	RateLimited     int64         `json:"rate_limited"`
	NotFound        int64         `json:"not_found"`
	Forbidden       int64         `json:"forbidden"`
	Timeouts        int64         `json:"timeouts"`
	TransportErrors int64         `json:"transport_errors"`
	Cancelled       int64         `json:"cancelled"`
	Elapsed         time.Duration `json:"elapsed_ns"`
}

// RunSummary is the outcome of a run.
type RunSummary struct {
	RunID             string
	Strategy          string
	DryRun            bool
	Chats             int
	AlreadyReconciled int
	Counters          Counters
	Elapsed           time.Duration
}

// TotalReconciled is the number of active users with a chat reference after the run.
func (s *RunSummary) TotalReconciled() int64 {
	if s.DryRun {
		return int64(s.AlreadyReconciled)
	}
	return int64(s.AlreadyReconciled) + s.Counters.Updated
}

// Chat is a directory entry as shown to operators.
type Chat struct {
	ID         int64
	PlatformID int64
	City       string
	Name       string
	Country    string
}

// StoreStatus summarizes reconciliation state in the store.
type StoreStatus struct {
	Chats      int
	Reconciled int
	Pending    int
}

// MembershipCheck is the raw result of a single probe.
type MembershipCheck struct {
	ChatID int64
	UserID int64
	Status string
	Member bool
}
