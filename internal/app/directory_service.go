package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/citysync/internal/ports/primary"
	"github.com/example/citysync/internal/ports/secondary"
)

// DirectoryServiceImpl implements the DirectoryService interface.
type DirectoryServiceImpl struct {
	store secondary.ReconcileStore
	now   func() time.Time
}

// NewDirectoryService creates a new DirectoryService with injected dependencies.
func NewDirectoryService(store secondary.ReconcileStore, now func() time.Time) *DirectoryServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &DirectoryServiceImpl{store: store, now: now}
}

// ListChats returns the chat directory in probe order.
func (s *DirectoryServiceImpl) ListChats(ctx context.Context) ([]*primary.Chat, error) {
	records, err := s.store.LoadChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}
	chats := make([]*primary.Chat, len(records))
	for i, r := range records {
		chats[i] = &primary.Chat{
			ID:         r.ID,
			PlatformID: r.PlatformID,
			City:       r.City,
			Name:       r.Name,
			Country:    r.Country,
		}
	}
	return chats, nil
}

// Status counts chats, reconciled users and pending users.
func (s *DirectoryServiceImpl) Status(ctx context.Context) (*primary.StoreStatus, error) {
	chats, err := s.store.LoadChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}
	now := s.now()
	reconciled, err := s.store.CountReconciled(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count reconciled users: %w", err)
	}
	pending, err := s.store.CountPending(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending users: %w", err)
	}
	return &primary.StoreStatus{
		Chats:      len(chats),
		Reconciled: reconciled,
		Pending:    pending,
	}, nil
}
