// Package server assembles one loanbook service process: database, rate
// limit storage, middleware, routes and background jobs.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loanbook/internal/adapters/cache"
	"loanbook/internal/adapters/http/middleware"
	"loanbook/internal/adapters/http/routes"
	"loanbook/internal/adapters/loanclient"
	"loanbook/internal/adapters/persistence/models"
	"loanbook/internal/adapters/persistence/repositories"
	"loanbook/internal/config"
	"loanbook/internal/core/services"
	"loanbook/internal/pkg/jwt"
	"loanbook/internal/pkg/metrics"
	"loanbook/internal/pkg/retry"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Server is one running service
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	app     *fiber.App
	db      *gorm.DB
	storage *cache.RedisStorage
	sweeper *services.TokenSweeper
}

// TablesFor returns the tables owned by service; reporting owns none
func TablesFor(service string) []interface{} {
	switch service {
	case config.ServiceUser:
		return models.UserTables()
	case config.ServiceLoan:
		return models.LoanTables()
	case config.ServiceCollection:
		return models.CollectionTables()
	}
	return nil
}

// New builds the service named by cfg.Service. The database is connected
// and migrated for services that own tables.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}
	if err := s.build(ctx); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *Server) build(ctx context.Context) error {
	cfg := s.cfg
	m := metrics.New()

	// Rate limit counters live in memory unless Redis is configured
	var storage fiber.Storage
	if cfg.Redis.URL != "" {
		rs, err := cache.NewRedisStorage(ctx, cfg.Redis.URL, "loanbook:"+cfg.Service+":")
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		s.storage = rs
		storage = rs
	}

	if tables := TablesFor(cfg.Service); tables != nil {
		db, err := config.ConnectDatabase(cfg, s.logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		s.db = db
		if err := models.AutoMigrate(db, tables...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "loanbook " + cfg.Service,
		ErrorHandler:          middleware.CustomErrorHandler,
		DisableStartupMessage: true,
	})
	middleware.Setup(s.app, cfg, middleware.Options{
		Logger:  s.logger,
		Metrics: m,
		Storage: storage,
	})

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.RefreshSecret, cfg.JWT.Issuer, cfg.JWT.AccessTTL(), cfg.JWT.RefreshTTL())
	common := routes.Common{
		Config:   cfg,
		Logger:   s.logger,
		Metrics:  m,
		Verifier: services.NewAccessVerifier(tokens),
		Storage:  storage,
		DB:       s.db,
	}

	switch cfg.Service {
	case config.ServiceUser:
		return s.buildUser(ctx, common, tokens)
	case config.ServiceLoan:
		loanService := services.NewLoanService(
			repositories.NewLoanRepository(s.db),
			repositories.NewBorrowerRepository(s.db),
			repositories.NewTransactor(s.db),
			s.logger,
		)
		routes.SetupLoanService(s.app, common, loanService)
	case config.ServiceCollection:
		repaymentService := services.NewRepaymentService(
			s.loanClient(m),
			repositories.NewRepaymentRepository(s.db),
			cfg.OptimisticLock,
			m,
			s.logger,
		)
		routes.SetupCollectionService(s.app, common, repaymentService)
	case config.ServiceReporting:
		routes.SetupReportingService(s.app, common, services.NewReportingService(s.loanClient(m), s.logger))
	default:
		return fmt.Errorf("unknown service %q", cfg.Service)
	}
	return nil
}

func (s *Server) buildUser(ctx context.Context, common routes.Common, tokens *jwt.Manager) error {
	if err := config.NewSeeder(s.db, s.cfg.Admin, s.logger).Run(ctx); err != nil {
		s.logger.Warn("admin seed failed", slog.String("error", err.Error()))
	}

	userRepo := repositories.NewUserRepository(s.db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(s.db)
	tx := repositories.NewTransactor(s.db)

	tokenService := services.NewTokenService(tokens, refreshTokenRepo, userRepo, tx, s.logger)
	authService := services.NewAuthService(userRepo, tokenService, s.logger)
	userService := services.NewUserService(userRepo, refreshTokenRepo, tx, s.logger)

	common.Verifier = tokenService
	routes.SetupUserService(s.app, common, authService, userService)

	sweeper, err := services.NewTokenSweeper(tokenService, s.cfg.Cron.TokenSweepSchedule, s.logger)
	if err != nil {
		return fmt.Errorf("schedule token sweep: %w", err)
	}
	s.sweeper = sweeper
	return nil
}

func (s *Server) loanClient(m *metrics.Metrics) *loanclient.Client {
	retrier := retry.New(s.cfg.Remote,
		retry.WithLogger(s.logger),
		retry.WithObserver(m.ObserveAttempt),
	)
	return loanclient.New(s.cfg.Services.Loan, retrier)
}

// App returns the Fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// DB returns the service database, nil for reporting
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Listen starts background jobs and serves on the configured port until
// Shutdown is called.
func (s *Server) Listen() error {
	if s.sweeper != nil {
		s.sweeper.Start()
	}
	s.logger.Info("server starting",
		slog.String("service", s.cfg.Service),
		slog.String("port", s.cfg.Port),
		slog.String("mode", s.cfg.AppMode),
	)
	return s.app.Listen(":" + s.cfg.Port)
}

// Shutdown stops accepting requests, waits up to timeout for in-flight
// ones and releases every resource.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.app.ShutdownWithContext(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			s.logger.Error("close redis", slog.String("error", err.Error()))
		}
	}
	if s.db != nil {
		if err := config.CloseDatabase(s.db); err != nil {
			s.logger.Error("close database", slog.String("error", err.Error()))
		}
	}
}
