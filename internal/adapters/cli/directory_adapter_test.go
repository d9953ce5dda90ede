package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/citysync/internal/ports/primary"
)

// mockDirectoryService implements primary.DirectoryService for testing
type mockDirectoryService struct {
	listChatsFn func(ctx context.Context) ([]*primary.Chat, error)
	statusFn    func(ctx context.Context) (*primary.StoreStatus, error)
}

func (m *mockDirectoryService) ListChats(ctx context.Context) ([]*primary.Chat, error) {
	if m.listChatsFn != nil {
		return m.listChatsFn(ctx)
	}
	return []*primary.Chat{}, nil
}

func (m *mockDirectoryService) Status(ctx context.Context) (*primary.StoreStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx)
	}
	return &primary.StoreStatus{}, nil
}

func TestDirectoryAdapter_ListChats(t *testing.T) {
	mock := &mockDirectoryService{
		listChatsFn: func(ctx context.Context) ([]*primary.Chat, error) {
			return []*primary.Chat{
				{ID: 1, PlatformID: -1001, City: "Oslo", Country: "Norway", Name: "Oslo expats"},
				{ID: 2, PlatformID: -1002, City: "Riga", Country: "Latvia", Name: "Riga expats"},
			}, nil
		},
	}
	var buf bytes.Buffer
	adapter := NewDirectoryAdapter(mock, &buf)

	if err := adapter.ListChats(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Oslo expats", "-1002", "Latvia"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
	if strings.Index(output, "Oslo") > strings.Index(output, "Riga") {
		t.Errorf("expected directory order to be preserved, got:\n%s", output)
	}
}

func TestDirectoryAdapter_ListChatsEmpty(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewDirectoryAdapter(&mockDirectoryService{}, &buf)

	if err := adapter.ListChats(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No city chats found") {
		t.Errorf("expected empty message, got %q", buf.String())
	}
}

func TestDirectoryAdapter_Status(t *testing.T) {
	mock := &mockDirectoryService{
		statusFn: func(ctx context.Context) (*primary.StoreStatus, error) {
			return &primary.StoreStatus{Chats: 3, Reconciled: 120, Pending: 45}, nil
		},
	}
	var buf bytes.Buffer
	adapter := NewDirectoryAdapter(mock, &buf)

	if err := adapter.Status(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Users with cities: 120") || !strings.Contains(output, "Pending users:     45") {
		t.Errorf("unexpected status output:\n%s", output)
	}
}

func TestDirectoryAdapter_StatusError(t *testing.T) {
	mock := &mockDirectoryService{
		statusFn: func(ctx context.Context) (*primary.StoreStatus, error) {
			return nil, errors.New("connection refused")
		},
	}
	var buf bytes.Buffer

	err := NewDirectoryAdapter(mock, &buf).Status(context.Background())
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
