package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapanjo92/lambda-pulse/internal/models"
	"github.com/tapanjo92/lambda-pulse/internal/repository"
	"github.com/tapanjo92/lambda-pulse/internal/testutil"
)

func snapshot(ticker string, ts int64, price float64) models.SnapshotRow {
	return models.NewSnapshotRow(models.MetricEvent{
		Ticker:     ticker,
		Price:      price,
		Sector:     "TECH",
		ObservedAt: time.UnixMilli(ts),
	})
}

// ---------- SnapshotRepo (PostgreSQL) ----------

func TestSnapshotRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewSnapshotRepo(pool)
	ctx := context.Background()

	ticker := fmt.Sprintf("TEST%d", time.Now().UnixNano())
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM metric_snapshots WHERE ticker_symbol = $1`, ticker)
	})

	change := 1.25
	first := snapshot(ticker, 1700000000000, 100.5)
	first.Change = &change
	require.NoError(t, repo.PutSnapshot(ctx, first))
	require.NoError(t, repo.PutSnapshot(ctx, snapshot(ticker, 1700000001000, 101)))

	// Same key again overwrites instead of duplicating
	again := snapshot(ticker, 1700000001000, 102)
	again.Sector = ""
	require.NoError(t, repo.PutSnapshot(ctx, again))

	rows, err := repo.Latest(ctx, ticker, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "1700000001000", rows[0].Timestamp)
	assert.Equal(t, 102.0, rows[0].Price)
	assert.Empty(t, rows[0].Sector)
	assert.Nil(t, rows[0].Change)

	assert.Equal(t, 100.5, rows[1].Price)
	require.NotNil(t, rows[1].Change)
	assert.Equal(t, 1.25, *rows[1].Change)
	t.Logf("Latest(%s): %d rows", ticker, len(rows))
}

// ---------- RedisSnapshotRepo ----------

func newRedisRepo(t *testing.T) (*repository.RedisSnapshotRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return repository.NewRedisSnapshotRepo(client), mr
}

func TestRedisSnapshotRepo_Put(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	change := -0.5
	row := snapshot("ACME", 1700000000000, 125.34)
	row.Change = &change
	require.NoError(t, repo.PutSnapshot(ctx, row))

	key := "snapshot:ACME:1700000000000"
	require.True(t, mr.Exists(key))
	assert.Equal(t, "125.34", mr.HGet(key, "price"))
	assert.Equal(t, "-0.5", mr.HGet(key, "change"))
	assert.Equal(t, "TECH", mr.HGet(key, "sector"))

	members, err := mr.ZMembers("snapshots:ACME")
	require.NoError(t, err)
	assert.Equal(t, []string{"1700000000000"}, members)
}

func TestRedisSnapshotRepo_PutIsIdempotent(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	change := 3.0
	row := snapshot("ACME", 1700000000000, 1)
	row.Change = &change
	require.NoError(t, repo.PutSnapshot(ctx, row))

	row.Change = nil
	row.Price = 2
	require.NoError(t, repo.PutSnapshot(ctx, row))

	key := "snapshot:ACME:1700000000000"
	assert.Equal(t, "2", mr.HGet(key, "price"))
	assert.Empty(t, mr.HGet(key, "change"), "stale field removed on overwrite")

	members, err := mr.ZMembers("snapshots:ACME")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRedisSnapshotRepo_Latest(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	for i, price := range []float64{10, 11, 12} {
		require.NoError(t, repo.PutSnapshot(ctx, snapshot("ACME", 1700000000000+int64(i)*1000, price)))
	}
	require.NoError(t, repo.PutSnapshot(ctx, snapshot("GLOBEX", 1700000000000, 99)))

	rows, err := repo.Latest(ctx, "ACME", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 12.0, rows[0].Price)
	assert.Equal(t, 11.0, rows[1].Price)
	assert.Equal(t, "TECH", rows[0].Sector)

	none, err := repo.Latest(ctx, "NOPE", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRedisSnapshotRepo_BadTimestamp(t *testing.T) {
	repo, _ := newRedisRepo(t)
	row := snapshot("ACME", 1, 1)
	row.Timestamp = "yesterday"
	assert.Error(t, repo.PutSnapshot(context.Background(), row))
}

func TestRedisSnapshotRepo_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	repo := repository.NewRedisSnapshotRepo(client)
	mr.Close()

	err = repo.PutSnapshot(context.Background(), snapshot("ACME", 1700000000000, 1))
	assert.Error(t, err)
}
