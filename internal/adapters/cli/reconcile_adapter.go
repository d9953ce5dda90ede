// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting but delegate
// business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/example/citysync/internal/ports/primary"
)

// ReconcileAdapter is a thin adapter that translates CLI operations to ReconcileService calls.
type ReconcileAdapter struct {
	service primary.ReconcileService
	out     io.Writer
}

// NewReconcileAdapter creates a new ReconcileAdapter with the given service.
func NewReconcileAdapter(service primary.ReconcileService, out io.Writer) *ReconcileAdapter {
	return &ReconcileAdapter{
		service: service,
		out:     out,
	}
}

// Run executes a reconciliation and prints its summary.
// The summary is printed even when the run aborts, then the error is returned.
func (a *ReconcileAdapter) Run(ctx context.Context, req primary.RunRequest) error {
	summary, err := a.service.Run(ctx, req)
	if summary != nil {
		a.printSummary(summary, err)
	}
	return err
}

func (a *ReconcileAdapter) printSummary(s *primary.RunSummary, runErr error) {
	c := s.Counters

	mode := s.Strategy
	if s.DryRun {
		mode += ", " + color.New(color.FgYellow).Sprint("dry run")
	}

	fmt.Fprintf(a.out, "\nRun %s (%s)\n", s.RunID, mode)
	fmt.Fprintln(a.out, "────────────────────────────────────────")
	fmt.Fprintf(a.out, "  Chats:              %d\n", s.Chats)
	fmt.Fprintf(a.out, "  Checked:            %d\n", c.Checked)
	fmt.Fprintf(a.out, "  Matched:            %d\n", c.Matched)
	fmt.Fprintf(a.out, "  No match:           %d\n", c.Exhausted)
	fmt.Fprintf(a.out, "  Updated:            %s (%d city changes, %d batches)\n",
		color.New(color.FgGreen).Sprint(c.Updated), c.CityChanged, c.Batches)
	if c.UsersWithErrors > 0 {
		fmt.Fprintf(a.out, "  Users with errors:  %s\n", color.New(color.FgYellow).Sprint(c.UsersWithErrors))
		fmt.Fprintf(a.out, "    rate limited %d, not found %d, forbidden %d, timeouts %d, transport %d\n",
			c.RateLimited, c.NotFound, c.Forbidden, c.Timeouts, c.TransportErrors)
	} else {
		fmt.Fprintf(a.out, "  Users with errors:  0\n")
	}
	fmt.Fprintf(a.out, "  Total with cities:  %d\n", s.TotalReconciled())
	fmt.Fprintf(a.out, "  Elapsed:            %s\n", s.Elapsed.Round(time.Millisecond))

	if runErr != nil {
		fmt.Fprintf(a.out, "\n%s %v\n", color.New(color.FgRed).Sprint("✗ Run aborted:"), runErr)
		return
	}
	fmt.Fprintf(a.out, "\n%s\n", color.New(color.FgGreen).Sprint("✓ Run complete"))
}

// Probe checks a single membership and prints the raw platform status.
func (a *ReconcileAdapter) Probe(ctx context.Context, chatID, userID int64) error {
	check, err := a.service.CheckMembership(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}

	verdict := color.New(color.FgRed).Sprint("not a member")
	if check.Member {
		verdict = color.New(color.FgGreen).Sprint("member")
	}
	fmt.Fprintf(a.out, "chat %d, user %d: %s (%s)\n", check.ChatID, check.UserID, check.Status, verdict)
	return nil
}
