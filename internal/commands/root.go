// Package commands is the backoffice command line: the HTTP server plus the
// operator tasks that run against the same database.
package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ruralpay/backoffice/internal/config"
)

// Version is stamped at build time with -ldflags "-X ...commands.Version=...".
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:     "backoffice",
		Short:   "Bank back office: ledger, lending and reporting",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "settings file; the environment overrides it")

	load := func() (*config.Config, error) {
		v := viper.New()
		config.Init(v, envFile)
		return config.Load(v)
	}

	rootCmd.AddCommand(newServeCommand(load))
	rootCmd.AddCommand(newMigrateCommand(load))
	rootCmd.AddCommand(newSweepCommand(load))
	rootCmd.AddCommand(newScheduleCommand())
	rootCmd.AddCommand(newCatalogCommand(load))

	return rootCmd
}

type configLoader func() (*config.Config, error)
