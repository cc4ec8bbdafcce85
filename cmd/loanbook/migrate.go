package main

import (
	"fmt"

	"loanbook/internal/adapters/persistence/models"
	"loanbook/internal/config"
	"loanbook/internal/pkg/logging"
	"loanbook/internal/server"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [user|loan|collection]",
		Short:     "Create or update the tables of one service",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{config.ServiceUser, config.ServiceLoan, config.ServiceCollection},
		RunE: func(cmd *cobra.Command, args []string) error {
			service := args[0]
			tables := server.TablesFor(service)
			if tables == nil {
				return fmt.Errorf("service %q has no tables", service)
			}

			cfg, err := config.Load(service)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, cfg.Service, cfg.AppMode)

			db, err := config.ConnectDatabase(cfg, logger)
			if err != nil {
				return err
			}
			defer config.CloseDatabase(db)

			if err := models.AutoMigrate(db, tables...); err != nil {
				return err
			}
			logger.Info("database migration completed")
			return nil
		},
	}
}
