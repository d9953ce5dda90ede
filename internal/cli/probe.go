package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/citysync/internal/wire"
)

// membershipCheck prints one (chat, user) membership answer.
type membershipCheck func(ctx context.Context, chatID, userID int64) error

// ProbeCmd returns the probe command
func ProbeCmd() *cobra.Command {
	return newProbeCmd(func(ctx context.Context, chatID, userID int64) error {
		adapter, err := wire.ProbeAdapter(os.Stdout)
		if err != nil {
			return err
		}
		return adapter.Probe(ctx, chatID, userID)
	})
}

// newProbeCmd builds the probe command around check.
// Group and supergroup ids are negative, so flag parsing is off and the
// arguments are taken verbatim; a leading "--" is accepted and skipped.
func newProbeCmd(check membershipCheck) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <chat-id> <telegram-user-id>",
		Short: "Check a single user's membership in a chat",
		Long: `Ask the platform for one user's status in one chat and print the raw answer.
Nothing is written to the store.

Example:
  citysync probe -1001234567890 987654321`,
		DisableFlagParsing: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if wantsHelp(args) {
				return nil
			}
			return cobra.ExactArgs(2)(cmd, positional(args))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantsHelp(args) {
				return cmd.Help()
			}
			chatID, userID, err := parseProbeArgs(positional(args))
			if err != nil {
				return err
			}
			return check(cmd.Context(), chatID, userID)
		},
	}
}

// positional drops the "--" separator and the persistent verbose flag,
// which are not parsed while flag parsing is disabled.
func positional(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		switch a {
		case "--", "-v", "--verbose":
			continue
		}
		out = append(out, a)
	}
	return out
}

func wantsHelp(args []string) bool {
	for _, a := range args {
		if a == "-h" || a == "--help" {
			return true
		}
	}
	return false
}

func parseProbeArgs(args []string) (chatID, userID int64, err error) {
	chatID, err = strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid chat id %q: %w", args[0], err)
	}
	userID, err = strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid user id %q: %w", args[1], err)
	}
	return chatID, userID, nil
}
