package models

import (
	"strconv"
	"time"
)

const (
	MeasurePrice      = "price"
	MeasureTypeDouble = "DOUBLE"

	DimensionTicker = "ticker"
	DimensionSector = "sector"
)

// MetricEvent is one decoded stock-ticker observation.
type MetricEvent struct {
	Ticker     string    `json:"ticker"`
	Price      float64   `json:"price"`
	Change     *float64  `json:"change,omitempty"`
	Sector     string    `json:"sector,omitempty"`
	ObservedAt time.Time `json:"observedAt"`
}

// SnapshotRow is keyed by (Ticker, Timestamp). Timestamp is the observation
// time in epoch milliseconds.
type SnapshotRow struct {
	Ticker    string   `json:"tickerSymbol"`
	Timestamp string   `json:"timestamp"`
	Price     float64  `json:"price"`
	Change    *float64 `json:"change,omitempty"`
	Sector    string   `json:"sector,omitempty"`
}

type Dimension struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type SeriesPoint struct {
	Dimensions       []Dimension `json:"dimensions"`
	MeasureName      string      `json:"measureName"`
	MeasureValue     string      `json:"measureValue"`
	MeasureValueType string      `json:"measureValueType"`
	Time             time.Time   `json:"time"`
}

// Dimension returns the value of the named dimension, or "" when absent.
func (p SeriesPoint) Dimension(name string) string {
	for _, d := range p.Dimensions {
		if d.Name == name {
			return d.Value
		}
	}
	return ""
}

func EpochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func NewSnapshotRow(ev MetricEvent) SnapshotRow {
	return SnapshotRow{
		Ticker:    ev.Ticker,
		Timestamp: EpochMillis(ev.ObservedAt),
		Price:     ev.Price,
		Change:    ev.Change,
		Sector:    ev.Sector,
	}
}

// NewSeriesPoint builds the "price" measure for ev. Empty dimension values
// are rejected by time-series stores, so a missing sector is left out.
func NewSeriesPoint(ev MetricEvent) SeriesPoint {
	dims := []Dimension{{Name: DimensionTicker, Value: ev.Ticker}}
	if ev.Sector != "" {
		dims = append(dims, Dimension{Name: DimensionSector, Value: ev.Sector})
	}
	return SeriesPoint{
		Dimensions:       dims,
		MeasureName:      MeasurePrice,
		MeasureValue:     strconv.FormatFloat(ev.Price, 'f', -1, 64),
		MeasureValueType: MeasureTypeDouble,
		Time:             ev.ObservedAt,
	}
}
