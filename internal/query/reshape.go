package query

import (
	"math"
	"strconv"
	"strings"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

// MeasureValuePrefix marks the column holding the measure value, e.g.
// "measure_value::double".
const MeasureValuePrefix = "measure_value"

// PriceKey is where the coerced measure value lands in a reshaped row.
const PriceKey = "price"

// Reshape pairs each row's values with the column metadata. The measure
// value column becomes a number under PriceKey; everything else is copied
// as its raw string. A value with no matching column is dropped. Row order
// is preserved and duplicates are kept.
func Reshape(res models.ColumnarResult) []models.QueryRow {
	out := make([]models.QueryRow, 0, len(res.Rows))
	for _, row := range res.Rows {
		obj := make(models.QueryRow, len(row))
		for i, val := range row {
			if i >= len(res.Columns) || res.Columns[i].Name == "" {
				continue
			}
			name := res.Columns[i].Name
			raw := ""
			if val != nil {
				raw = *val
			}
			if strings.HasPrefix(name, MeasureValuePrefix) {
				obj[PriceKey] = toNumber(raw)
				continue
			}
			obj[name] = raw
		}
		out = append(out, obj)
	}
	return out
}

// toNumber follows numeric coercion of a scalar string: blank is 0 and an
// unparsable value has no number, which encodes as JSON null.
func toNumber(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return float64(0)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
