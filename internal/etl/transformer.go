// Package etl runs one delivery-stream transformation invocation: decode
// each record, write its snapshot, accumulate its series point, submit the
// series batch once, and acknowledge every record.
package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/decode"
	"github.com/tapanjo92/lambda-pulse/internal/models"
	"github.com/tapanjo92/lambda-pulse/internal/timeseries"
)

var (
	ErrSnapshotWrite = errors.New("snapshot write failed")
	ErrSeriesSubmit  = errors.New("series submission failed")
)

type Option func(*Transformer)

// WithClock replaces time.Now as the source of the per-invocation timestamp.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) { t.now = now }
}

// WithIsolatedSnapshots keeps going after a snapshot write fails. The failed
// record gets no series point, so snapshots and series stay aligned.
// Without it the first snapshot failure ends the invocation.
func WithIsolatedSnapshots() Option {
	return func(t *Transformer) { t.isolateSnapshots = true }
}

// Stats describes what one invocation did. It only feeds logs.
type Stats struct {
	Records          int
	Decoded          int
	DecodeFailures   int
	SnapshotWrites   int
	SnapshotFailures int
	PointsSubmitted  int
}

// Transformer holds no per-invocation state, so one instance can serve
// concurrent invocations.
type Transformer struct {
	snapshots        SnapshotStore
	series           timeseries.Writer
	logger           *zap.Logger
	now              func() time.Time
	isolateSnapshots bool
}

func NewTransformer(snapshots SnapshotStore, series timeseries.Writer, logger *zap.Logger, opts ...Option) *Transformer {
	t := &Transformer{
		snapshots: snapshots,
		series:    series,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform processes records in order, one at a time. The returned
// acknowledgments always cover every record with result Ok and the original
// payload, even when err is non-nil: transformation failures must not block
// raw archival. err reports invocation-level failures (snapshot store, series
// store) for the host to retry; decode failures are only logged.
func (t *Transformer) Transform(ctx context.Context, records []models.Record) ([]models.Acknowledgment, error) {
	log := t.logger.With(zap.String("invocation", uuid.NewString()))

	stats, err := t.process(ctx, log, records)

	fields := []zap.Field{
		zap.Int("records", stats.Records),
		zap.Int("decoded", stats.Decoded),
		zap.Int("decode_failures", stats.DecodeFailures),
		zap.Int("snapshot_writes", stats.SnapshotWrites),
		zap.Int("snapshot_failures", stats.SnapshotFailures),
		zap.Int("points_submitted", stats.PointsSubmitted),
	}
	if err != nil {
		log.Error("transform failed", append(fields, zap.Error(err))...)
	} else {
		log.Info("transform complete", fields...)
	}

	return Acknowledge(records), err
}

func (t *Transformer) process(ctx context.Context, log *zap.Logger, records []models.Record) (Stats, error) {
	stats := Stats{Records: len(records)}

	// One timestamp for the whole batch keeps snapshot and series writes aligned
	now := t.now()
	batch := timeseries.NewBatch(len(records))

	for i, rec := range records {
		ev, err := decode.Decode(rec.Data)
		if err != nil {
			stats.DecodeFailures++
			log.Warn("skipping undecodable record",
				zap.Int("index", i), zap.String("record_id", rec.RecordID), zap.Error(err))
			continue
		}
		stats.Decoded++
		ev.ObservedAt = now

		if err := WriteSnapshot(ctx, t.snapshots, ev); err != nil {
			stats.SnapshotFailures++
			if !t.isolateSnapshots {
				return stats, fmt.Errorf("%w: record %s: %w", ErrSnapshotWrite, rec.RecordID, err)
			}
			log.Warn("snapshot write failed, record skipped",
				zap.Int("index", i), zap.String("record_id", rec.RecordID),
				zap.String("ticker", ev.Ticker), zap.Error(err))
			continue
		}
		stats.SnapshotWrites++

		batch.Add(models.NewSeriesPoint(ev))
	}

	submitted, err := timeseries.Submit(ctx, t.series, batch)
	if err != nil {
		return stats, fmt.Errorf("%w: %d points: %w", ErrSeriesSubmit, batch.Len(), err)
	}
	if submitted {
		stats.PointsSubmitted = batch.Len()
	}
	return stats, nil
}

// Acknowledge marks every record Ok and passes its payload through, in
// input order.
func Acknowledge(records []models.Record) []models.Acknowledgment {
	acks := make([]models.Acknowledgment, len(records))
	for i, rec := range records {
		acks[i] = models.Acknowledgment{
			RecordID: rec.RecordID,
			Result:   models.ResultOk,
			Data:     rec.Data,
		}
	}
	return acks
}
