package timeseries

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/timestreamquery"
	qtypes "github.com/aws/aws-sdk-go-v2/service/timestreamquery/types"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

// TimestreamQueryAPI is the subset of *timestreamquery.Client used here.
type TimestreamQueryAPI interface {
	Query(ctx context.Context, in *timestreamquery.QueryInput, optFns ...func(*timestreamquery.Options)) (*timestreamquery.QueryOutput, error)
}

type TimestreamQuerier struct {
	client   TimestreamQueryAPI
	database string
	table    string
}

func NewTimestreamQuerier(client TimestreamQueryAPI, database, table string) *TimestreamQuerier {
	return &TimestreamQuerier{client: client, database: database, table: table}
}

// LatestStatement selects every column of the most recent points for one
// measure. Names come from deployment config, never from callers.
func (q *TimestreamQuerier) LatestStatement(measure string, limit int) string {
	return fmt.Sprintf(
		`SELECT * FROM "%s"."%s" WHERE measure_name = '%s' ORDER BY time DESC LIMIT %d`,
		q.database, q.table, measure, limit,
	)
}

// Run executes statement once. Timestream may split even a small result
// across pages, so NextToken is followed until the statement is exhausted.
func (q *TimestreamQuerier) Run(ctx context.Context, statement string) (models.ColumnarResult, error) {
	var res models.ColumnarResult
	var next *string
	for {
		out, err := q.client.Query(ctx, &timestreamquery.QueryInput{
			QueryString: aws.String(statement),
			NextToken:   next,
		})
		if err != nil {
			return models.ColumnarResult{}, fmt.Errorf("timestream query: %w", err)
		}
		if len(res.Columns) == 0 && len(out.ColumnInfo) > 0 {
			res.Columns = toColumns(out.ColumnInfo)
		}
		for _, row := range out.Rows {
			res.Rows = append(res.Rows, toScalars(row))
		}
		if out.NextToken == nil || *out.NextToken == "" {
			return res, nil
		}
		next = out.NextToken
	}
}

func toColumns(info []qtypes.ColumnInfo) []models.Column {
	cols := make([]models.Column, len(info))
	for i, c := range info {
		cols[i] = models.Column{Name: aws.ToString(c.Name)}
		if c.Type != nil {
			cols[i].Type = string(c.Type.ScalarType)
		}
	}
	return cols
}

func toScalars(row qtypes.Row) []*string {
	vals := make([]*string, len(row.Data))
	for i, d := range row.Data {
		if d.NullValue != nil && *d.NullValue {
			continue
		}
		vals[i] = d.ScalarValue
	}
	return vals
}
