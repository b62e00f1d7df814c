package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ruralpay/backoffice/internal/database"
)

func newMigrateCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the back-office tables if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := database.InitDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.ApplySchema(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}
