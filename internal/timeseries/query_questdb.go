package timeseries

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

// PGQueryer is satisfied by *pgxpool.Pool and *pgx.Conn.
type PGQueryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// QuestDBQuerier reads points back over QuestDB's PostgreSQL wire endpoint.
type QuestDBQuerier struct {
	db    PGQueryer
	table string
}

func NewQuestDBQuerier(db PGQueryer, table string) *QuestDBQuerier {
	return &QuestDBQuerier{db: db, table: table}
}

func (q *QuestDBQuerier) LatestStatement(measure string, limit int) string {
	return fmt.Sprintf(
		`SELECT %s AS time, %s, %s, %s, %s FROM "%s" WHERE %s = '%s' ORDER BY %s DESC LIMIT %d`,
		questTimeCol, models.DimensionTicker, models.DimensionSector,
		questMeasureNameCol, questMeasureValueCol,
		q.table, questMeasureNameCol, measure, questTimeCol, limit,
	)
}

func (q *QuestDBQuerier) Run(ctx context.Context, statement string) (models.ColumnarResult, error) {
	rows, err := q.db.Query(ctx, statement)
	if err != nil {
		return models.ColumnarResult{}, fmt.Errorf("questdb query: %w", err)
	}
	defer rows.Close()

	res, err := collectColumnar(rows)
	if err != nil {
		return models.ColumnarResult{}, fmt.Errorf("questdb query: %w", err)
	}
	return res, nil
}

// --- scan helpers ---

type columnarRows interface {
	FieldDescriptions() []pgconn.FieldDescription
	Next() bool
	Values() ([]any, error)
	Err() error
}

func collectColumnar(rows columnarRows) (models.ColumnarResult, error) {
	fields := rows.FieldDescriptions()
	res := models.ColumnarResult{Columns: make([]models.Column, len(fields))}
	for i, f := range fields {
		res.Columns[i] = models.Column{Name: f.Name}
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return models.ColumnarResult{}, err
		}
		scalars := make([]*string, len(vals))
		for i, v := range vals {
			scalars[i] = scalarString(v)
		}
		res.Rows = append(res.Rows, scalars)
	}
	return res, rows.Err()
}

func scalarString(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case []byte:
		s = string(t)
	case time.Time:
		s = t.UTC().Format(time.RFC3339Nano)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int64:
		s = strconv.FormatInt(t, 10)
	case int32:
		s = strconv.FormatInt(int64(t), 10)
	case int16:
		s = strconv.FormatInt(int64(t), 10)
	case int:
		s = strconv.Itoa(t)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	return &s
}
