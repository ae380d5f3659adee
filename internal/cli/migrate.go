package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rl1809/ventures/internal/config"
)

// MigrateCmd applies the embedded schema to the configured database.
func MigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ventures tables",
		Long: `Apply the base schema and the ventures schema to the configured database.
Every statement is idempotent, so running migrate twice is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx, *configPath)
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(ctx, cfg.DB)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Migrating %s database\n", cfg.DB.Driver)
			err = store.Migrate(ctx, func(file string) {
				fmt.Fprintf(out, "  %s %s\n", color.New(color.FgGreen).Sprint("APPLIED"), file)
			})
			if err != nil {
				fmt.Fprintf(out, "  %s %v\n", color.New(color.FgRed).Sprint("FAILED "), err)
				return err
			}
			fmt.Fprintln(out, "Ventures tables created successfully")
			return nil
		},
	}
}
