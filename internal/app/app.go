// Package app builds the stores, the transformer and the latest-points
// query from configuration. Each client is created once per process and
// shared by reference across invocations.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/timestreamquery"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite"
	"github.com/jackc/pgx/v5/pgxpool"
	qdb "github.com/questdb/go-questdb-client/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/api"
	"github.com/tapanjo92/lambda-pulse/internal/config"
	"github.com/tapanjo92/lambda-pulse/internal/db"
	"github.com/tapanjo92/lambda-pulse/internal/etl"
	"github.com/tapanjo92/lambda-pulse/internal/notifications"
	"github.com/tapanjo92/lambda-pulse/internal/query"
	"github.com/tapanjo92/lambda-pulse/internal/repository"
	"github.com/tapanjo92/lambda-pulse/internal/timeseries"
)

// SnapshotBackend is implemented by every snapshot repository.
type SnapshotBackend interface {
	etl.SnapshotStore
	api.SnapshotReader
}

type seriesBackend interface {
	timeseries.Writer
	query.Store
}

type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Snapshots   SnapshotBackend
	Series      timeseries.Writer
	Latest      *query.Latest
	Transformer *etl.Transformer
	Alerter     *notifications.Sender
	Checks      map[string]api.HealthCheck

	closers []func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Checks: make(map[string]api.HealthCheck),
	}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			c, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return aws.Config{}, fmt.Errorf("load aws config: %w", err)
			}
			awsCfg = &c
		}
		return *awsCfg, nil
	}

	snapshots, err := a.snapshotBackend(ctx, loadAWS)
	if err != nil {
		return nil, a.abort(ctx, err)
	}
	a.Snapshots = snapshots

	series, err := a.seriesBackend(ctx, loadAWS)
	if err != nil {
		return nil, a.abort(ctx, err)
	}
	a.Series = series
	a.Latest = query.NewLatest(series)

	var opts []etl.Option
	if cfg.Transform.IsolateSnapshotFailures {
		opts = append(opts, etl.WithIsolatedSnapshots())
	}
	a.Transformer = etl.NewTransformer(a.Snapshots, a.Series, logger, opts...)
	a.Alerter = notifications.NewSender(cfg.Webhook.URL, cfg.Webhook.Name, logger)

	return a, nil
}

func (a *App) snapshotBackend(ctx context.Context, loadAWS func() (aws.Config, error)) (SnapshotBackend, error) {
	cfg := a.Config
	switch cfg.Snapshot.Backend {
	case config.SnapshotDynamoDB:
		awsCfg, err := loadAWS()
		if err != nil {
			return nil, err
		}
		return repository.NewDynamoSnapshotRepo(dynamodb.NewFromConfig(awsCfg), cfg.Snapshot.Table), nil

	case config.SnapshotPostgres:
		pool, err := db.Connect(ctx, cfg.DSN(), db.DefaultPoolOptions)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.onClose(func(context.Context) error { pool.Close(); return nil })
		if err := db.TestConnection(ctx, pool, a.Logger); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool, a.Logger); err != nil {
			return nil, err
		}
		a.Checks["postgres"] = pingCheck(pool)
		return repository.NewSnapshotRepo(pool), nil

	case config.SnapshotRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.onClose(func(context.Context) error { return rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		return repository.NewRedisSnapshotRepo(rdb), nil
	}
	return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
}

func (a *App) seriesBackend(ctx context.Context, loadAWS func() (aws.Config, error)) (seriesBackend, error) {
	cfg := a.Config
	switch cfg.Series.Backend {
	case config.SeriesTimestream:
		awsCfg, err := loadAWS()
		if err != nil {
			return nil, err
		}
		return struct {
			timeseries.Writer
			query.Store
		}{
			timeseries.NewTimestreamWriter(timestreamwrite.NewFromConfig(awsCfg), cfg.Series.Database, cfg.Series.Table, a.Logger),
			timeseries.NewTimestreamQuerier(timestreamquery.NewFromConfig(awsCfg), cfg.Series.Database, cfg.Series.Table),
		}, nil

	case config.SeriesQuestDB:
		open := func(ctx context.Context) (qdb.LineSender, error) {
			return qdb.LineSenderFromConf(ctx, cfg.QuestDB.Conf)
		}
		writer, err := timeseries.NewQuestDBWriter(ctx, open, cfg.Series.Table, a.Logger)
		if err != nil {
			return nil, err
		}
		a.onClose(writer.Close)

		opts := db.DefaultPoolOptions
		opts.SimpleProtocol = true
		pool, err := db.Connect(ctx, cfg.QuestDB.DSN, opts)
		if err != nil {
			return nil, fmt.Errorf("questdb query: %w", err)
		}
		a.onClose(func(context.Context) error { pool.Close(); return nil })
		a.Checks["questdb"] = pingCheck(pool)

		return struct {
			timeseries.Writer
			query.Store
		}{writer, timeseries.NewQuestDBQuerier(pool, cfg.Series.Table)}, nil
	}
	return nil, fmt.Errorf("unknown series backend %q", cfg.Series.Backend)
}

func pingCheck(pool *pgxpool.Pool) api.HealthCheck {
	return func(ctx context.Context) error { return pool.Ping(ctx) }
}

// abort releases whatever New had opened before cause and reports both.
func (a *App) abort(ctx context.Context, cause error) error {
	if err := a.Close(ctx); err != nil {
		return errors.Join(cause, fmt.Errorf("release partial setup: %w", err))
	}
	return cause
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases clients in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
