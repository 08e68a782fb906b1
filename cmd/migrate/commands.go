package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/inversionreal/storefront/pkg/auth"
	"github.com/inversionreal/storefront/pkg/database"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/spf13/cobra"
)

type opener func() (*database.Client, error)

// withMigrator opens the database and runs fn with a migrator
func withMigrator(open opener, fn func(*database.Migrator) error) error {
	db, err := open()
	if err != nil {
		return err
	}
	defer db.Close()

	mg, err := db.NewMigrator()
	if err != nil {
		return err
	}
	defer mg.Close()

	return fn(mg)
}

func upCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(open, func(mg *database.Migrator) error {
				if err := mg.Up(); err != nil {
					return err
				}
				return printVersion(cmd, mg)
			})
		},
	}
}

func downCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (one step by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			return withMigrator(open, func(mg *database.Migrator) error {
				if err := mg.Down(steps); err != nil {
					return err
				}
				return printVersion(cmd, mg)
			})
		},
	}
}

func versionCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(open, func(mg *database.Migrator) error {
				return printVersion(cmd, mg)
			})
		},
	}
}

func printVersion(cmd *cobra.Command, mg *database.Migrator) error {
	v, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("schema version: %d (dirty)\n", v)
		return nil
	}
	cmd.Printf("schema version: %d\n", v)
	return nil
}

func createAdminCmd(open opener) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "create-admin <username>",
		Short: "Create an admin account for the admin API",
		Long: `Create an admin account. The password is read from --password or,
when the flag is omitted, from the ADMIN_PASSWORD environment variable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			if username == "" {
				return errors.New("username must not be empty")
			}
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			admin, err := store.New(db).CreateAdminUser(ctx, username, hash)
			if errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("admin %q already exists", username)
			}
			if err != nil {
				return err
			}

			cmd.Printf("created admin %q (id %d)\n", admin.Username, admin.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "admin password (at least 8 characters)")

	return cmd
}
