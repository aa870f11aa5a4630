package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/db"
)

// SetupPool connects to the integration database named by TEST_DATABASE_URL
// and applies the schema. Tests are skipped when it is not set.
func SetupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn, db.DefaultPoolOptions)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := db.EnsureSchema(ctx, pool, zap.NewNop()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return pool
}
