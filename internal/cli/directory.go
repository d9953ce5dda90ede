package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/example/citysync/internal/wire"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show how many users are reconciled and pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.DirectoryAdapter(cmd.Context(), os.Stdout)
			if err != nil {
				return err
			}
			return adapter.Status(cmd.Context())
		},
	}
}

// ChatsCmd returns the chats command
func ChatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List the city chat directory in probe order",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := wire.DirectoryAdapter(cmd.Context(), os.Stdout)
			if err != nil {
				return err
			}
			return adapter.ListChats(cmd.Context())
		},
	}
}
