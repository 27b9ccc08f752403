// otpctl is the operator CLI: schema migrations and dev session tokens.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/baechuer/otp-auth/internal/infrastructure/db/migrate"
	"github.com/baechuer/otp-auth/internal/infrastructure/security"
)

// migrateFn is swapped in tests.
var migrateFn = migrate.Run

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "otpctl",
		Short:         "Operator tooling for the otp-auth service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
	}

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewTokenCmd())
	return cmd
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the embedded database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = os.Getenv("DB_ADDR")
			}
			if dsn == "" {
				return errors.New("DB_ADDR is required (flag --dsn or env)")
			}

			cmd.Printf("Running migrations %s...\n", args[0])
			if err := migrateFn(dsn, args[0]); err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres URL (default $DB_ADDR)")
	return cmd
}

// NewTokenCmd mints a session token for local testing against a running service.
func NewTokenCmd() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a session token for a user id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET is required")
			}
			if userID == "" {
				return errors.New("--user is required")
			}

			tok, err := security.NewJWTSigner(secret, "otp-auth", ttl).Issue(userID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to put in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
