package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/config"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/database"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
)

var ErrMissingEmail = errors.New("--email is required")

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := services.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func issueTokenCmd() *cobra.Command {
	var email, subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Issue an admin access token signed with JWT_SECRET",
		Long: `Issue an HS256 access token for an administrator without going through
the login endpoint.

Examples:
  reportctl issue-token --email ops@example.org
  reportctl issue-token --email ops@example.org --ttl 15m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if ttl > 0 {
				cfg.JWTAccessExpiry = ttl
			}
			return runIssueToken(cfg, email, subject, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email placed in the token")
	cmd.Flags().StringVar(&subject, "subject", "", "principal id (default: derived from the email)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: JWT_ACCESS_EXPIRY)")
	return cmd
}

func runIssueToken(cfg *config.Config, email, subject string, out io.Writer) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrMissingEmail
	}
	if subject == "" {
		subject = services.PrincipalID(email)
	}

	token, expiresAt, err := services.NewAuthService(cfg).IssueToken(subject, email)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n# subject %s, expires %s\n", token, subject, expiresAt.Format(time.RFC3339))
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the reports and system_logs tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if err := database.Connect(cfg); err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
