package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ruralpay/backoffice/internal/config"
)

func newCatalogCommand(load configLoader) *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the loan types, or export them as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			catalog, err := config.LoadCatalog(cfg.Lending.CatalogPath)
			if err != nil {
				return err
			}

			if export != "" {
				if err := config.SaveCatalog(export, catalog); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d loan types to %s\n", len(catalog.LoanTypes()), export)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tBASE RATE\tTERM")
			for _, lt := range catalog.LoanTypes() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", lt.ID, lt.Name, lt.BaseInterestRate, lt.SuggestedTermMonths)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&export, "export", "", "write the catalog to this YAML file")

	return cmd
}
