package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "loanbook/docs" // Swagger docs
)

// @title loanbook API
// @version 1.0
// @description Loan book microservices: users, loans, collection and reporting.

// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "loanbook",
		Short:         "Loan book microservices",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
