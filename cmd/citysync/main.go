package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/citysync/internal/cli"
	"github.com/example/citysync/internal/version"
)

func main() {
	if err := execute(newRootCmd(), cli.Teardown); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "citysync",
		Short:   "citysync - match subscribers to their city chats",
		Version: version.String(),
		Long: `citysync works out each subscribed user's home city from the city group
chats they belong to and records the first match on the user row.`,
		SilenceUsage:      true,
		PersistentPreRunE: cli.Setup,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(cli.RunCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.ChatsCmd())
	rootCmd.AddCommand(cli.ProbeCmd())

	// Local store and config
	rootCmd.AddCommand(cli.InitDBCmd())
	rootCmd.AddCommand(cli.ConfigCmd())

	return rootCmd
}

// execute runs the command tree and always tears down afterwards, including
// when a command fails and cobra skips its post-run hooks.
func execute(rootCmd *cobra.Command, teardown func()) error {
	defer teardown()
	return rootCmd.Execute()
}
