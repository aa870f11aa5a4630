package timeseries

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	qdb "github.com/questdb/go-questdb-client/v3"
	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

// QuestDB column names. The measure value column keeps the "measure_value"
// prefix so read-side reshaping treats both backends alike.
const (
	questMeasureNameCol  = "measure_name"
	questMeasureValueCol = "measure_value"
	questTimeCol         = "timestamp"
)

// SenderFactory opens a new ILP sender. The sender must be configured
// with auto_flush=off so a batch goes out in one Flush request and Close
// drops anything still buffered.
type SenderFactory func(ctx context.Context) (qdb.LineSender, error)

// QuestDBWriter writes series points as ILP rows. After a failed row or
// flush the sender is discarded, so rows of a failed batch never ride
// along with the next one.
type QuestDBWriter struct {
	mu     sync.Mutex // LineSender is not goroutine safe
	open   SenderFactory
	sender qdb.LineSender
	table  string
	logger *zap.Logger
}

// NewQuestDBWriter opens the first sender eagerly so a bad configuration
// fails at startup.
func NewQuestDBWriter(ctx context.Context, open SenderFactory, table string, logger *zap.Logger) (*QuestDBWriter, error) {
	sender, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("questdb sender: %w", err)
	}
	return &QuestDBWriter{open: open, sender: sender, table: table, logger: logger}, nil
}

func (w *QuestDBWriter) WriteBatch(ctx context.Context, points []models.SeriesPoint) error {
	// Bad values are rejected before anything reaches the sender buffer
	values := make([]float64, len(points))
	for i, p := range points {
		v, err := strconv.ParseFloat(p.MeasureValue, 64)
		if err != nil {
			return fmt.Errorf("questdb write %s: point %d measure value %q: %w", w.table, i, p.MeasureValue, err)
		}
		values[i] = v
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sender == nil {
		sender, err := w.open(ctx)
		if err != nil {
			return fmt.Errorf("questdb sender %s: %w", w.table, err)
		}
		w.sender = sender
	}

	for i, p := range points {
		row := w.sender.Table(w.table)
		for _, d := range p.Dimensions {
			row = row.Symbol(d.Name, d.Value)
		}
		err := row.Symbol(questMeasureNameCol, p.MeasureName).
			Float64Column(questMeasureValueCol, values[i]).
			At(ctx, p.Time)
		if err != nil {
			w.discard(ctx)
			return fmt.Errorf("questdb write %s: row %d: %w", w.table, i, err)
		}
	}

	if err := w.sender.Flush(ctx); err != nil {
		w.discard(ctx)
		return fmt.Errorf("questdb flush %s: %w", w.table, err)
	}
	w.logger.Debug("questdb batch written", zap.String("table", w.table), zap.Int("rows", len(points)))
	return nil
}

// discard closes the sender with its buffer. Callers hold mu.
func (w *QuestDBWriter) discard(ctx context.Context) {
	if err := w.sender.Close(ctx); err != nil {
		w.logger.Warn("closing questdb sender", zap.String("table", w.table), zap.Error(err))
	}
	w.sender = nil
}

func (w *QuestDBWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sender == nil {
		return nil
	}
	err := w.sender.Close(ctx)
	w.sender = nil
	return err
}

var _ Writer = (*QuestDBWriter)(nil)
