package main

import (
	"loanbook/internal/adapters/persistence/models"
	"loanbook/internal/config"
	"loanbook/internal/pkg/logging"

	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the administrator from ADMIN_USERNAME and ADMIN_PASSWORD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ServiceUser)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, cfg.Service, cfg.AppMode)

			db, err := config.ConnectDatabase(cfg, logger)
			if err != nil {
				return err
			}
			defer config.CloseDatabase(db)

			if err := models.AutoMigrate(db, models.UserTables()...); err != nil {
				return err
			}
			return config.NewSeeder(db, cfg.Admin, logger).Run(cmd.Context())
		},
	}
}
