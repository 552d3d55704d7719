// Package main provides reportctl, the operator CLI for the water reports
// backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reportctl",
		Short: "Operator tooling for the water reports backend",
		Long: `reportctl manages the admin credential and the database schema.

Configuration is read from the same environment variables (and .env file)
as the server.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(issueTokenCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
