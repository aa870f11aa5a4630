package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

const (
	snapshotKeyPrefix   = "snapshot:"
	snapshotIndexPrefix = "snapshots:"
)

// RedisSnapshotRepo stores each snapshot as a hash and keeps a per-ticker
// sorted set (score = observation millis) for newest-first reads.
type RedisSnapshotRepo struct {
	client redis.UniversalClient
}

func NewRedisSnapshotRepo(client redis.UniversalClient) *RedisSnapshotRepo {
	return &RedisSnapshotRepo{client: client}
}

func snapshotKey(ticker, ts string) string {
	return snapshotKeyPrefix + ticker + ":" + ts
}

func snapshotIndex(ticker string) string {
	return snapshotIndexPrefix + ticker
}

func (r *RedisSnapshotRepo) PutSnapshot(ctx context.Context, row models.SnapshotRow) error {
	score, err := strconv.ParseFloat(row.Timestamp, 64)
	if err != nil {
		return fmt.Errorf("put snapshot %s@%s: bad timestamp: %w", row.Ticker, row.Timestamp, err)
	}

	fields := map[string]any{
		"tickerSymbol": row.Ticker,
		"timestamp":    row.Timestamp,
		"price":        strconv.FormatFloat(row.Price, 'f', -1, 64),
	}
	if row.Change != nil {
		fields["change"] = strconv.FormatFloat(*row.Change, 'f', -1, 64)
	}
	if row.Sector != "" {
		fields["sector"] = row.Sector
	}

	key := snapshotKey(row.Ticker, row.Timestamp)

	// Hash + index land together or not at all
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.ZAdd(ctx, snapshotIndex(row.Ticker), redis.Z{Score: score, Member: row.Timestamp})
		return nil
	})
	if err != nil {
		return fmt.Errorf("put snapshot %s@%s: %w", row.Ticker, row.Timestamp, err)
	}
	return nil
}

func (r *RedisSnapshotRepo) Latest(ctx context.Context, ticker string, limit int) ([]models.SnapshotRow, error) {
	stamps, err := r.client.ZRevRange(ctx, snapshotIndex(ticker), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(stamps) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(stamps))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, ts := range stamps {
			cmds[i] = pipe.HGetAll(ctx, snapshotKey(ticker, ts))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.SnapshotRow, 0, len(cmds))
	for _, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue
		}
		row, err := snapshotFromHash(h)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func snapshotFromHash(h map[string]string) (models.SnapshotRow, error) {
	row := models.SnapshotRow{
		Ticker:    h["tickerSymbol"],
		Timestamp: h["timestamp"],
		Sector:    h["sector"],
	}
	price, err := strconv.ParseFloat(h["price"], 64)
	if err != nil {
		return models.SnapshotRow{}, fmt.Errorf("snapshot %s@%s price: %w", row.Ticker, row.Timestamp, err)
	}
	row.Price = price
	if c, ok := h["change"]; ok {
		change, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return models.SnapshotRow{}, fmt.Errorf("snapshot %s@%s change: %w", row.Ticker, row.Timestamp, err)
		}
		row.Change = &change
	}
	return row, nil
}
