package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/config"
	"github.com/tapanjo92/lambda-pulse/internal/logging"
)

// Bootstrap loads and validates configuration, builds the logger and then
// the App. Entry points call it once at cold start.
func Bootstrap(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	logger, err := logging.New(cfg.App.LogLevel, cfg.App.Env)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(logger); err != nil {
		return nil, err
	}
	cfg.Print(logger)

	a, err := New(ctx, cfg, logger)
	if err != nil {
		logger.Error("dependency setup failed", zap.Error(err))
		return nil, err
	}
	return a, nil
}
