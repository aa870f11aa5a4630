package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/api"
	"github.com/tapanjo92/lambda-pulse/internal/app"
	"github.com/tapanjo92/lambda-pulse/internal/stream"
)

const banner = `
╔══════════════════════════════════════╗
║            LambdaPulse               ║
║   ticker metrics ETL + query API     ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	logger := a.Logger
	defer logger.Sync()
	cfg := a.Config

	// 1. API server
	srv := api.NewServer(api.Options{
		Addr:       cfg.App.HTTPAddr,
		APIKey:     cfg.App.APIKey,
		CORSOrigin: cfg.App.CORSAllowOrigin,
		Latest:     a.Latest,
		Snapshots:  a.Snapshots,
		Checks:     a.Checks,
	}, logger)
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	// 2. Kafka record source (optional)
	consumerErr := make(chan error, 1)
	var consumer *stream.Consumer
	if cfg.Kafka.Enabled {
		reader := stream.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
		consumer = stream.NewConsumer(reader, a.Transformer, stream.Options{
			BatchSize: cfg.Kafka.BatchSize,
			BatchWait: cfg.Kafka.BatchWait,
		}, logger)
		go func() { consumerErr <- consumer.Run(ctx) }()
	} else {
		logger.Info("kafka consumer disabled")
	}

	logger.Info("all services started")

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("api server failed", zap.Error(err))
			exitCode = 1
		}
	case err := <-consumerErr:
		if err != nil {
			// Offsets of the failed batch stay uncommitted; a restart redelivers it
			logger.Error("consumer stopped", zap.Error(err))
			_ = a.Alerter.Send(context.Background(), fmt.Sprintf("kafka consumer stopped: %v", err))
			exitCode = 1
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", zap.Error(err))
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka reader close error", zap.Error(err))
		}
	}
	if err := a.Close(shutdownCtx); err != nil {
		logger.Error("closing clients", zap.Error(err))
	}
	logger.Info("shutdown complete")

	if exitCode != 0 {
		logger.Sync()
		os.Exit(exitCode)
	}
}
