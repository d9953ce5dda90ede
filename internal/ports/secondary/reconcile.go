package secondary

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by MembershipClient implementations.
// The probe layer classifies failures with errors.Is and never lets them
// reach the scheduler.
var (
	ErrRateLimited = errors.New("rate limited by platform")
	ErrNotFound    = errors.New("user or chat not found")
	ErrForbidden   = errors.New("not allowed to read chat members")
)

// ChatRecord is one entry of the city chat directory.
type ChatRecord struct {
	ID         int64  // internal directory id, written to users.city_chat_id
	PlatformID int64  // chat identifier on the messaging platform
	City       string // opaque label, compared verbatim
	Name       string
	Country    string
}

// UserRecord is a candidate user as read from the store.
type UserRecord struct {
	ID                  int64
	TelegramID          int64
	FirstName           string
	City                string // "" when NULL
	CityChatID          int64  // 0 when NULL
	SubscriptionExpires time.Time
}

// PendingQuery selects users that still need reconciliation.
type PendingQuery struct {
	Now             time.Time // entitlement must expire after this instant
	AfterTelegramID int64     // keyset cursor; 0 starts from the beginning
	Limit           int       // 0 returns every remaining user
}

// CityUpdate is one row of a reconciliation batch.
type CityUpdate struct {
	UserID       int64
	City         string
	ChatRecordID int64
}

// ChatDirectory defines the secondary port for the city chat directory.
type ChatDirectory interface {
	// LoadChats returns every chat ordered by city label, then id.
	LoadChats(ctx context.Context) ([]ChatRecord, error)
}

// CandidateSource defines the secondary port for pending users.
type CandidateSource interface {
	// FetchPending returns users with an active entitlement and no chat
	// reference, ordered by telegram id ascending. An empty slice means
	// nothing is left.
	FetchPending(ctx context.Context, q PendingQuery) ([]UserRecord, error)
}

// UserStore defines the secondary port for writing reconciliation results.
type UserStore interface {
	// ApplyUpdates writes all updates in a single transaction.
	// Either every update is visible afterwards or none is.
	ApplyUpdates(ctx context.Context, updates []CityUpdate) error
}

// ReconcileStats defines the secondary port for progress figures kept in the store.
type ReconcileStats interface {
	// CountReconciled counts active users that already have a chat reference.
	CountReconciled(ctx context.Context, now time.Time) (int, error)

	// CountPending counts active users without a chat reference.
	CountPending(ctx context.Context, now time.Time) (int, error)
}

// ReconcileStore bundles everything a reconciliation needs from persistence.
type ReconcileStore interface {
	ChatDirectory
	CandidateSource
	UserStore
	ReconcileStats
}

// MembershipClient defines the secondary port for the messaging platform.
type MembershipClient interface {
	// GetMemberStatus returns the raw membership status of userID in chatID.
	// Implementations wrap classified failures with the sentinel errors above
	// and return ctx.Err() when the context ends first.
	GetMemberStatus(ctx context.Context, chatID, userID int64) (string, error)
}
