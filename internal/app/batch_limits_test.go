package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/config"
	"github.com/tapanjo92/lambda-pulse/internal/etl"
	"github.com/tapanjo92/lambda-pulse/internal/models"
	"github.com/tapanjo92/lambda-pulse/internal/timeseries"
)

type countingTimestream struct {
	calls   int
	records int
}

func (c *countingTimestream) WriteRecords(_ context.Context, in *timestreamwrite.WriteRecordsInput, _ ...func(*timestreamwrite.Options)) (*timestreamwrite.WriteRecordsOutput, error) {
	c.calls++
	c.records += len(in.Records)
	return &timestreamwrite.WriteRecordsOutput{}, nil
}

type memSnapshots struct{ puts int }

func (m *memSnapshots) PutSnapshot(context.Context, models.SnapshotRow) error {
	m.puts++
	return nil
}

// A full default-sized consumer batch must fit in one Timestream write.
func TestDefaultKafkaBatchFitsTimestream(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("METRICS_TABLE", "metrics")
	t.Setenv("TS_DATABASE", "stocks")
	t.Setenv("TS_TABLE", "prices")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.SeriesTimestream, cfg.Series.Backend)
	require.NoError(t, cfg.Validate(zap.NewNop()))

	records := make([]models.Record, cfg.Kafka.BatchSize)
	for i := range records {
		payload := fmt.Sprintf(`{"TICKER_SYMBOL":"T%d","PRICE":%d.5}`, i, i)
		records[i] = models.Record{
			RecordID: fmt.Sprintf("0-%d", i),
			Data:     base64.StdEncoding.EncodeToString([]byte(payload)),
		}
	}

	ts := &countingTimestream{}
	snaps := &memSnapshots{}
	tr := etl.NewTransformer(snaps,
		timeseries.NewTimestreamWriter(ts, cfg.Series.Database, cfg.Series.Table, zap.NewNop()),
		zap.NewNop())

	acks, err := tr.Transform(context.Background(), records)
	require.NoError(t, err)
	assert.Len(t, acks, cfg.Kafka.BatchSize)
	assert.Equal(t, cfg.Kafka.BatchSize, snaps.puts)
	assert.Equal(t, 1, ts.calls)
	assert.Equal(t, cfg.Kafka.BatchSize, ts.records)
}

func TestOversizedKafkaBatchRejectedForTimestream(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BATCH_SIZE", "500")
	t.Setenv("METRICS_TABLE", "metrics")
	t.Setenv("TS_DATABASE", "stocks")
	t.Setenv("TS_TABLE", "prices")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(zap.NewNop()), "KAFKA_BATCH_SIZE")
}
