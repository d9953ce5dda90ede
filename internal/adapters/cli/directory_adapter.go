package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/example/citysync/internal/ports/primary"
)

// DirectoryAdapter translates read-only CLI commands to DirectoryService calls.
type DirectoryAdapter struct {
	service primary.DirectoryService
	out     io.Writer
}

// NewDirectoryAdapter creates a new DirectoryAdapter with the given service.
func NewDirectoryAdapter(service primary.DirectoryService, out io.Writer) *DirectoryAdapter {
	return &DirectoryAdapter{
		service: service,
		out:     out,
	}
}

// ListChats prints the chat directory in probe order.
func (a *DirectoryAdapter) ListChats(ctx context.Context) error {
	chats, err := a.service.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}

	if len(chats) == 0 {
		fmt.Fprintln(a.out, "No city chats found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-6s %-16s %-20s %-14s %s\n", "ID", "CHAT", "CITY", "COUNTRY", "NAME")
	fmt.Fprintln(a.out, "────────────────────────────────────────────────────────────────────────")
	for _, c := range chats {
		fmt.Fprintf(a.out, "%-6d %-16d %-20s %-14s %s\n", c.ID, c.PlatformID, c.City, c.Country, c.Name)
	}
	fmt.Fprintln(a.out)

	return nil
}

// Status prints reconciliation counts from the store.
func (a *DirectoryAdapter) Status(ctx context.Context) error {
	status, err := a.service.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	fmt.Fprintf(a.out, "City chats:        %d\n", status.Chats)
	fmt.Fprintf(a.out, "Users with cities: %d\n", status.Reconciled)
	fmt.Fprintf(a.out, "Pending users:     %d\n", status.Pending)
	return nil
}
