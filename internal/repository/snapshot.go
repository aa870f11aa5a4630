package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

// SnapshotRepo keeps snapshot rows in PostgreSQL, keyed by
// (ticker_symbol, observed_at).
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// PutSnapshot is idempotent by key: a redelivered record overwrites its own row.
func (r *SnapshotRepo) PutSnapshot(ctx context.Context, row models.SnapshotRow) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO metric_snapshots (ticker_symbol, observed_at, price, change, sector)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (ticker_symbol, observed_at)
		 DO UPDATE SET price = EXCLUDED.price, change = EXCLUDED.change, sector = EXCLUDED.sector`,
		row.Ticker, row.Timestamp, row.Price, row.Change, nullString(row.Sector),
	)
	if err != nil {
		return fmt.Errorf("put snapshot %s@%s: %w", row.Ticker, row.Timestamp, err)
	}
	return nil
}

func (r *SnapshotRepo) Latest(ctx context.Context, ticker string, limit int) ([]models.SnapshotRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ticker_symbol, observed_at, price, change, sector
		 FROM metric_snapshots
		 WHERE ticker_symbol = $1
		 ORDER BY observed_at::bigint DESC
		 LIMIT $2`,
		ticker, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

// --- scan helpers ---

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectSnapshots(rows rowsIter) ([]models.SnapshotRow, error) {
	var out []models.SnapshotRow
	for rows.Next() {
		var s models.SnapshotRow
		var sector *string
		if err := rows.Scan(&s.Ticker, &s.Timestamp, &s.Price, &s.Change, &sector); err != nil {
			return nil, err
		}
		if sector != nil {
			s.Sector = *sector
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
