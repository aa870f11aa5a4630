package models

// QueryRow is one reshaped result row: column name to value.
type QueryRow map[string]any

type Column struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// ColumnarResult mirrors a time-series query response. Each row holds one
// scalar per column in metadata order; nil marks a NULL.
type ColumnarResult struct {
	Columns []Column
	Rows    [][]*string
}
