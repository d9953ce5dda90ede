package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/citysync/internal/config"
	"github.com/example/citysync/internal/db"
	"github.com/example/citysync/internal/wire"
)

// InitDBCmd returns the init-db command
func InitDBCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the local SQLite store",
		Long: `Create (or migrate) the local SQLite store at database.path, or
~/.citysync/citysync.db when unset. Use --seed to add demo chats and users.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := wire.OpenSQLite()
			if err != nil {
				return err
			}
			defer database.Close()

			fmt.Println("✓ Store initialized")

			if seed {
				if err := db.SeedFixtures(database, time.Now()); err != nil {
					return fmt.Errorf("failed to seed store: %w", err)
				}
				fmt.Println("✓ Demo chats and users added")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "insert demo chats and users")
	return cmd
}

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(redacted(wire.Config()))
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write .citysync/config.yaml with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
			path := config.FilePath(cwd)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.SaveConfig(cwd, config.Default()); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote %s\n", path)
			return nil
		},
	})

	return cmd
}

func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.Telegram.BotToken != "" {
		out.Telegram.BotToken = "****"
	}
	if out.Database.Password != "" {
		out.Database.Password = "****"
	}
	if out.Database.DSN != "" {
		out.Database.DSN = "****"
	}
	return out
}
