package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loanbook/internal/config"
	"loanbook/internal/pkg/logging"
	"loanbook/internal/server"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "serve [user|loan|collection|reporting]",
		Short:     "Run one service",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{config.ServiceUser, config.ServiceLoan, config.ServiceCollection, config.ServiceReporting},
		Run: func(cmd *cobra.Command, args []string) {
			runServe(args[0])
		},
	}
}

func runServe(service string) {
	cfg, err := config.Load(service)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.Service, cfg.AppMode)

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to build %s service: %v", service, err)
	}

	go gracefulShutdown(srv, logger)

	if err := srv.Listen(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(srv *server.Server, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownTimeout); err != nil {
		logger.Error("error during shutdown", slog.String("error", err.Error()))
	}
	logger.Info("server stopped gracefully")
}
