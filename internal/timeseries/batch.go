// Package timeseries holds the write batch for a transform invocation and
// the time-series store backends it is submitted to (Amazon Timestream,
// QuestDB). The same backends serve the latest-points read path.
package timeseries

import (
	"context"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

// Writer submits one batch to a destination fixed at construction time.
// A rejected call means none of the points are guaranteed persisted.
type Writer interface {
	WriteBatch(ctx context.Context, points []models.SeriesPoint) error
}

// Batch accumulates the points of a single invocation in decode order.
// It is not safe for concurrent use and is never shared across invocations.
type Batch struct {
	points []models.SeriesPoint
}

func NewBatch(capacity int) *Batch {
	return &Batch{points: make([]models.SeriesPoint, 0, capacity)}
}

func (b *Batch) Add(p models.SeriesPoint) {
	b.points = append(b.points, p)
}

func (b *Batch) Len() int {
	return len(b.points)
}

func (b *Batch) Points() []models.SeriesPoint {
	return b.points
}

// Submit sends b in exactly one WriteBatch call. Empty batches are skipped
// because the stores reject empty submissions. The bool reports whether a
// call was made.
func Submit(ctx context.Context, w Writer, b *Batch) (bool, error) {
	if b == nil || b.Len() == 0 {
		return false, nil
	}
	if err := w.WriteBatch(ctx, b.Points()); err != nil {
		return true, err
	}
	return true, nil
}
