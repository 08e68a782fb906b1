package main

import (
	"fmt"
	"os"

	"github.com/inversionreal/storefront/config"
	"github.com/inversionreal/storefront/pkg/database"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var databaseURL string

	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the storefront database schema and admin accounts",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database URL (defaults to DATABASE_URL)")

	open := func() (*database.Client, error) {
		url := databaseURL
		if url == "" {
			url = config.Load().DatabaseURL
		}
		return database.NewClient(url)
	}

	rootCmd.AddCommand(upCmd(open))
	rootCmd.AddCommand(downCmd(open))
	rootCmd.AddCommand(versionCmd(open))
	rootCmd.AddCommand(createAdminCmd(open))

	return rootCmd
}
