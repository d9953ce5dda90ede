package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/example/citysync/internal/config"
	"github.com/example/citysync/internal/logging"
	"github.com/example/citysync/internal/wire"
)

// Setup loads .env, the config file and the environment, builds the logger
// and hands both to wire. It runs before every subcommand.
func Setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfig(cwd)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return err
	}

	wire.Configure(cfg, logger)
	return nil
}

// Teardown releases whatever wire opened. It is safe to call when nothing was.
func Teardown() {
	if err := wire.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
