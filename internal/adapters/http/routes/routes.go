package routes

import (
	"log/slog"

	"loanbook/internal/adapters/http/handlers"
	"loanbook/internal/adapters/http/middleware"
	"loanbook/internal/config"
	"loanbook/internal/core/domain"
	"loanbook/internal/core/services"
	"loanbook/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Common carries the collaborators every service shares
type Common struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Verifier middleware.TokenVerifier
	// Storage backs the credential rate limiter; nil keeps it in memory
	Storage fiber.Storage
	// DB is nil for services without a record store
	DB *gorm.DB
}

func setupCommon(app *fiber.App, common Common) {
	healthHandler := handlers.NewHealthHandler(common.Config, common.DB)

	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/swagger/*", swagger.HandlerDefault)
	if common.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(common.Metrics.Handler()))
	}
}

func callerLimiter(common Common) fiber.Handler {
	return middleware.CallerRateLimiter(common.Config, common.Storage)
}

// SetupUserService registers the auth and user management routes
func SetupUserService(app *fiber.App, common Common, authService *services.AuthService, userService *services.UserService) {
	setupCommon(app, common)

	authHandler := handlers.NewAuthHandler(authService, userService)
	userHandler := handlers.NewUserHandler(userService)

	requireAuth := middleware.RequireAuth(common.Verifier)
	perCaller := callerLimiter(common)
	session := middleware.DBSession(common.DB)
	limited := middleware.AuthRateLimiter(common.Storage)
	noCache := middleware.NoCacheHeaders()

	// Public
	app.Post("/register", limited, session, authHandler.Register)
	app.Post("/login", limited, noCache, session, authHandler.Login)
	app.Post("/refresh", limited, noCache, session, authHandler.Refresh)
	app.Post("/logout", session, authHandler.Logout)

	// Authenticated
	app.Post("/logout-all", requireAuth, perCaller, session, authHandler.LogoutAll)
	app.Get("/me", requireAuth, perCaller, session, authHandler.Me)

	// User management
	users := app.Group("/users", requireAuth, perCaller, session, middleware.RequirePermission(userService, domain.PermUserManage))
	users.Get("/", userHandler.ListUsers)
	users.Get("/:id", userHandler.GetUser)
	users.Put("/:id", userHandler.UpdateUser)
	users.Delete("/:id", userHandler.DeleteUser)
}

// SetupLoanService registers the loan facade routes
func SetupLoanService(app *fiber.App, common Common, loanService *services.LoanService) {
	setupCommon(app, common)

	loanHandler := handlers.NewLoanHandler(loanService)

	loans := app.Group("/loans", middleware.RequireAuth(common.Verifier), callerLimiter(common), middleware.DBSession(common.DB))
	loans.Get("/", middleware.RequirePermission(nil, domain.PermLoanRead), loanHandler.ListLoans)
	loans.Post("/", middleware.RequirePermission(nil, domain.PermLoanCreate), loanHandler.CreateLoan)
	loans.Get("/:id", middleware.RequirePermission(nil, domain.PermLoanRead), loanHandler.GetLoan)
	// the collection service writes repayments back with the caller's token
	loans.Put("/:id", middleware.RequirePermission(nil, domain.PermLoanUpdate, domain.PermRepaymentProcess), loanHandler.UpdateLoan)
}

// SetupCollectionService registers the repayment routes
func SetupCollectionService(app *fiber.App, common Common, repaymentService *services.RepaymentService) {
	setupCommon(app, common)

	collectionHandler := handlers.NewCollectionHandler(repaymentService)

	loans := app.Group("/loans", middleware.RequireAuth(common.Verifier), callerLimiter(common), middleware.DBSession(common.DB))
	loans.Post("/:id/repay", middleware.RequirePermission(nil, domain.PermRepaymentProcess), collectionHandler.Repay)
	loans.Get("/:id/repayments", middleware.RequirePermission(nil, domain.PermLoanRead), collectionHandler.History)
}

// SetupReportingService registers the report routes
func SetupReportingService(app *fiber.App, common Common, reportingService *services.ReportingService) {
	setupCommon(app, common)

	reportHandler := handlers.NewReportHandler(reportingService)

	reports := app.Group("/reports",
		middleware.RequireAuth(common.Verifier),
		callerLimiter(common),
		middleware.RequirePermission(nil, domain.PermReportRead),
		middleware.NoCacheHeaders(),
	)
	reports.Get("/active-loans", reportHandler.ActiveLoans)
	reports.Get("/paid-off-loans", reportHandler.PaidOffLoans)
	reports.Get("/loans", reportHandler.Loans)
	reports.Get("/summary", reportHandler.Summary)
}
