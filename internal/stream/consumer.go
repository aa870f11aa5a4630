// Package stream feeds the transformer from a Kafka topic, for running the
// write path outside a managed delivery stream.
package stream

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/models"
	"github.com/tapanjo92/lambda-pulse/internal/timeseries"
)

// KafkaReader abstracts the input stream
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Transformer interface {
	Transform(ctx context.Context, records []models.Record) ([]models.Acknowledgment, error)
}

type Options struct {
	BatchSize int
	BatchWait time.Duration
}

// Consumer collects messages into batches and hands each batch to the
// transformer as one invocation. Offsets are committed only after the
// invocation succeeds.
type Consumer struct {
	reader      KafkaReader
	transformer Transformer
	opts        Options
	logger      *zap.Logger
}

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		Topic:             topic,
		GroupID:           groupID,
		MinBytes:          1,
		MaxBytes:          10e6,
		MaxWait:           200 * time.Millisecond,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    10 * time.Second,
	})
}

func NewConsumer(reader KafkaReader, t Transformer, opts Options, logger *zap.Logger) *Consumer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = timeseries.MaxTimestreamRecords
	}
	if opts.BatchWait <= 0 {
		opts.BatchWait = time.Second
	}
	return &Consumer{reader: reader, transformer: t, opts: opts, logger: logger}
}

// Run processes batches until ctx is cancelled (nil) or a batch fails
// (error). A failed batch is left uncommitted so the group redelivers it.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started",
		zap.Int("batch_size", c.opts.BatchSize),
		zap.Duration("batch_wait", c.opts.BatchWait))

	for {
		msgs, err := c.fetchBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch: %w", err)
		}
		if len(msgs) == 0 {
			continue
		}

		first, last := msgs[0], msgs[len(msgs)-1]
		if _, err := c.transformer.Transform(ctx, ToRecords(msgs)); err != nil {
			return fmt.Errorf("batch %d-%d..%d-%d: %w", first.Partition, first.Offset, last.Partition, last.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit: %w", err)
		}
		c.logger.Debug("batch committed", zap.Int("messages", len(msgs)), zap.Int64("last_offset", last.Offset))
	}
}

// fetchBatch blocks for the first message, then gathers more until the
// batch is full or BatchWait has passed since the first arrived.
func (c *Consumer) fetchBatch(ctx context.Context) ([]kafka.Message, error) {
	first, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgs := make([]kafka.Message, 1, c.opts.BatchSize)
	msgs[0] = first

	waitCtx, cancel := context.WithTimeout(ctx, c.opts.BatchWait)
	defer cancel()

	for len(msgs) < c.opts.BatchSize {
		m, err := c.reader.FetchMessage(waitCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// ToRecords wraps each message as an encoded record identified by its
// partition and offset.
func ToRecords(msgs []kafka.Message) []models.Record {
	records := make([]models.Record, len(msgs))
	for i, m := range msgs {
		records[i] = models.Record{
			RecordID:                    fmt.Sprintf("%d-%d", m.Partition, m.Offset),
			ApproximateArrivalTimestamp: m.Time.UnixMilli(),
			Data:                        base64.StdEncoding.EncodeToString(m.Value),
		}
	}
	return records
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
