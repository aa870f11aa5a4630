// Package query serves the read path: the most recent points of the price
// measure, reshaped from columnar form into flat row objects.
package query

import (
	"context"
	"fmt"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

// LatestLimit bounds the latest-points query.
const LatestLimit = 10

// Store runs statements against a time-series backend. LatestStatement is
// backend specific because each store has its own SQL dialect and naming.
type Store interface {
	LatestStatement(measure string, limit int) string
	Run(ctx context.Context, statement string) (models.ColumnarResult, error)
}

type Latest struct {
	store     Store
	statement string
}

// NewLatest fixes the statement at construction; no caller input reaches it.
func NewLatest(store Store) *Latest {
	return &Latest{
		store:     store,
		statement: store.LatestStatement(models.MeasurePrice, LatestLimit),
	}
}

func (l *Latest) Statement() string {
	return l.statement
}

// Points runs the latest-points query once. Zero rows is a successful,
// empty result; a store failure is returned as an error.
func (l *Latest) Points(ctx context.Context) ([]models.QueryRow, error) {
	res, err := l.store.Run(ctx, l.statement)
	if err != nil {
		return nil, fmt.Errorf("latest points: %w", err)
	}
	return Reshape(res), nil
}
