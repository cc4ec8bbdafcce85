package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"loanbook/internal/pkg/retry"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Service names, also used as the default database file and log attribute
const (
	ServiceUser       = "user"
	ServiceLoan       = "loan"
	ServiceCollection = "collection"
	ServiceReporting  = "reporting"
)

var defaultPorts = map[string]string{
	ServiceUser:       "5001",
	ServiceLoan:       "5002",
	ServiceCollection: "5003",
	ServiceReporting:  "5004",
}

const (
	defaultJWTSecret        = "dev_secret_change_me"
	defaultJWTRefreshSecret = "dev_refresh_secret_change_me"
)

// Config holds all configuration for one service process
type Config struct {
	AppMode   string
	Service   string
	Port      string
	LogLevel  string
	Database  DatabaseConfig
	JWT       JWTConfig
	Services  ServiceURLs
	Remote    retry.Policy
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cron      CronConfig
	Admin     AdminConfig

	// OptimisticLock makes the collection service send the loan version it
	// read, so a concurrent repayment is rejected instead of overwritten.
	OptimisticLock bool

	allowedOrigins string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// JWTConfig holds token configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	Issuer           string
	AccessTokenMins  int
	RefreshTokenDays int
}

// AccessTTL returns the access token lifetime
func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.AccessTokenMins) * time.Minute
}

// RefreshTTL returns the refresh token lifetime
func (j JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshTokenDays) * 24 * time.Hour
}

// ServiceURLs are the base URLs of the peer services this process calls
type ServiceURLs struct {
	Loan string
}

// RedisConfig holds the optional Redis connection used by rate limiters
type RedisConfig struct {
	URL string
}

// RateLimitConfig bounds request rates. Anonymous requests are counted per
// IP; authenticated ones per user, so peer services calling on behalf of
// many users from one address are not throttled as a single client.
type RateLimitConfig struct {
	Max       int
	Window    time.Duration
	CallerMax int
}

// CronConfig holds scheduled job configuration
type CronConfig struct {
	TokenSweepSchedule string
}

// AdminConfig seeds the first administrator
type AdminConfig struct {
	Username string
	Password string
}

// Load reads configuration for service from .env and the environment
func Load(service string) (*Config, error) {
	// .env is optional; real deployments use the environment
	_ = godotenv.Load()
	return FromViper(service, newViper(service))
}

func newViper(service string) *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_MODE", "dev")
	v.SetDefault("PORT", defaultPorts[service])
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "sqlite://loanbook-"+service+".db")

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_REFRESH_SECRET", defaultJWTRefreshSecret)
	v.SetDefault("JWT_ISSUER", "loanbook")
	v.SetDefault("ACCESS_TOKEN_MINUTES", 15)
	v.SetDefault("REFRESH_TOKEN_DAYS", 7)

	v.SetDefault("LOAN_SERVICE_URL", "http://localhost:5002")

	policy := retry.DefaultPolicy()
	v.SetDefault("REMOTE_MAX_ATTEMPTS", policy.MaxAttempts)
	v.SetDefault("REMOTE_BASE_DELAY", policy.BaseDelay)
	v.SetDefault("REMOTE_MAX_DELAY", policy.MaxDelay)
	v.SetDefault("REMOTE_ATTEMPT_TIMEOUT", policy.AttemptTimeout)
	v.SetDefault("REPAYMENT_OPTIMISTIC_LOCK", false)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("RATE_LIMIT_CALLER_MAX", 1000)
	v.SetDefault("TOKEN_SWEEP_SCHEDULE", "@every 1h")
	v.SetDefault("ALLOWED_ORIGINS", "")
	return v
}

// FromViper builds a Config from an already populated viper instance
func FromViper(service string, v *viper.Viper) (*Config, error) {
	if _, ok := defaultPorts[service]; !ok {
		return nil, fmt.Errorf("unknown service %q", service)
	}

	// trim spaces for Windows-edited .env files
	appMode := strings.TrimSpace(v.GetString("APP_MODE"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	cfg := &Config{
		AppMode:  appMode,
		Service:  service,
		Port:     v.GetString("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Database: DatabaseConfig{URL: v.GetString("DATABASE_URL")},
		JWT: JWTConfig{
			Secret:           v.GetString("JWT_SECRET"),
			RefreshSecret:    v.GetString("JWT_REFRESH_SECRET"),
			Issuer:           v.GetString("JWT_ISSUER"),
			AccessTokenMins:  v.GetInt("ACCESS_TOKEN_MINUTES"),
			RefreshTokenDays: v.GetInt("REFRESH_TOKEN_DAYS"),
		},
		Services: ServiceURLs{
			Loan: strings.TrimRight(v.GetString("LOAN_SERVICE_URL"), "/"),
		},
		Remote: retry.Policy{
			MaxAttempts:    v.GetInt("REMOTE_MAX_ATTEMPTS"),
			BaseDelay:      v.GetDuration("REMOTE_BASE_DELAY"),
			MaxDelay:       v.GetDuration("REMOTE_MAX_DELAY"),
			AttemptTimeout: v.GetDuration("REMOTE_ATTEMPT_TIMEOUT"),
		},
		Redis: RedisConfig{URL: v.GetString("REDIS_URL")},
		RateLimit: RateLimitConfig{
			Max:       v.GetInt("RATE_LIMIT_MAX"),
			Window:    v.GetDuration("RATE_LIMIT_WINDOW"),
			CallerMax: v.GetInt("RATE_LIMIT_CALLER_MAX"),
		},
		Cron:           CronConfig{TokenSweepSchedule: v.GetString("TOKEN_SWEEP_SCHEDULE")},
		Admin:          AdminConfig{Username: v.GetString("ADMIN_USERNAME"), Password: v.GetString("ADMIN_PASSWORD")},
		OptimisticLock: v.GetBool("REPAYMENT_OPTIMISTIC_LOCK"),
		allowedOrigins: v.GetString("ALLOWED_ORIGINS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.AccessTokenMins <= 0 || c.JWT.RefreshTokenDays <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.RateLimit.Max < 1 || c.RateLimit.CallerMax < 1 || c.RateLimit.Window <= 0 {
		return errors.New("rate limits must be positive")
	}
	if c.Remote.MaxAttempts < 1 {
		return errors.New("REMOTE_MAX_ATTEMPTS must be at least 1")
	}
	if c.IsProd() && (c.JWT.Secret == defaultJWTSecret || c.JWT.RefreshSecret == defaultJWTRefreshSecret) {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must be set in prod mode")
	}
	return nil
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	if c.allowedOrigins == "" && c.IsDev() {
		return "*"
	}
	return c.allowedOrigins
}
