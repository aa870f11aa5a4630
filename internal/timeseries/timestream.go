package timeseries

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite"
	wtypes "github.com/aws/aws-sdk-go-v2/service/timestreamwrite/types"
	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

// MaxTimestreamRecords is the WriteRecords per-call limit.
const MaxTimestreamRecords = 100

// TimestreamWriteAPI is the subset of *timestreamwrite.Client used here.
type TimestreamWriteAPI interface {
	WriteRecords(ctx context.Context, in *timestreamwrite.WriteRecordsInput, optFns ...func(*timestreamwrite.Options)) (*timestreamwrite.WriteRecordsOutput, error)
}

type TimestreamWriter struct {
	client   TimestreamWriteAPI
	database string
	table    string
	logger   *zap.Logger
}

func NewTimestreamWriter(client TimestreamWriteAPI, database, table string, logger *zap.Logger) *TimestreamWriter {
	return &TimestreamWriter{client: client, database: database, table: table, logger: logger}
}

func (w *TimestreamWriter) WriteBatch(ctx context.Context, points []models.SeriesPoint) error {
	if len(points) > MaxTimestreamRecords {
		return fmt.Errorf("timestream write %s.%s: %d points exceeds the %d record limit",
			w.database, w.table, len(points), MaxTimestreamRecords)
	}

	records := make([]wtypes.Record, len(points))
	for i, p := range points {
		records[i] = toTimestreamRecord(p)
	}

	out, err := w.client.WriteRecords(ctx, &timestreamwrite.WriteRecordsInput{
		DatabaseName: aws.String(w.database),
		TableName:    aws.String(w.table),
		Records:      records,
	})
	if err != nil {
		var rejected *wtypes.RejectedRecordsException
		if errors.As(err, &rejected) {
			for _, r := range rejected.RejectedRecords {
				w.logger.Warn("timestream rejected record",
					zap.Int32("index", r.RecordIndex),
					zap.String("reason", aws.ToString(r.Reason)))
			}
		}
		return fmt.Errorf("timestream write %s.%s: %w", w.database, w.table, err)
	}

	if out != nil && out.RecordsIngested != nil {
		w.logger.Debug("timestream batch written",
			zap.Int32("ingested", out.RecordsIngested.Total),
			zap.Int("submitted", len(points)))
	}
	return nil
}

func toTimestreamRecord(p models.SeriesPoint) wtypes.Record {
	dims := make([]wtypes.Dimension, len(p.Dimensions))
	for i, d := range p.Dimensions {
		dims[i] = wtypes.Dimension{
			Name:  aws.String(d.Name),
			Value: aws.String(d.Value),
		}
	}
	return wtypes.Record{
		Dimensions:       dims,
		MeasureName:      aws.String(p.MeasureName),
		MeasureValue:     aws.String(p.MeasureValue),
		MeasureValueType: wtypes.MeasureValueType(p.MeasureValueType),
		Time:             aws.String(models.EpochMillis(p.Time)),
		TimeUnit:         wtypes.TimeUnitMilliseconds,
	}
}

var _ Writer = (*TimestreamWriter)(nil)
