package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// TokenSweeper periodically revokes expired refresh tokens
type TokenSweeper struct {
	cron   *cron.Cron
	tokens *TokenService
	logger *slog.Logger
}

// NewTokenSweeper schedules the sweep on spec (standard cron syntax or
// descriptors such as "@every 1h").
func NewTokenSweeper(tokens *TokenService, spec string, logger *slog.Logger) (*TokenSweeper, error) {
	s := &TokenSweeper{
		cron:   cron.New(),
		tokens: tokens,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, s.Run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start starts the scheduler in the background
func (s *TokenSweeper) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *TokenSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Run performs one sweep
func (s *TokenSweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.tokens.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("token sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Info("expired refresh tokens revoked", slog.Int64("count", n))
	}
}
