package etl

import (
	"context"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

// SnapshotStore is the key-value store for point-in-time rows. Puts are
// idempotent by (ticker, timestamp) and are not retried here.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, row models.SnapshotRow) error
}

// WriteSnapshot stores ev as one row keyed by its ticker and observation time.
func WriteSnapshot(ctx context.Context, store SnapshotStore, ev models.MetricEvent) error {
	return store.PutSnapshot(ctx, models.NewSnapshotRow(ev))
}
