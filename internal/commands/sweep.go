package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSweepCommand(load configLoader) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mark every overdue ACTIVE loan DELINQUENT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseAsOf(asOf, time.Now())
			if err != nil {
				return err
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			marked, err := a.services.Loans.SweepDelinquent(cmd.Context(), date)
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d loans delinquent as of %s\n", marked, date.Format(time.DateOnly))
			return err
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "sweep date as YYYY-MM-DD (default today)")

	return cmd
}

func parseAsOf(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--as-of: %w", err)
	}
	return t, nil
}
