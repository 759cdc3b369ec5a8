package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/taf-data-etl/internal/domain"
	"github.com/couchcryptid/taf-data-etl/internal/observability"
)

// ForecastStore keeps the latest forecast per station.
type ForecastStore interface {
	Put(ctx context.Context, f domain.Forecast) error
}

// FanoutLoader publishes a batch to the primary loader and then records
// every forecast in the store. Store failures are logged and counted; only
// a primary failure fails the batch.
type FanoutLoader struct {
	primary BatchLoader
	store   ForecastStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewFanoutLoader wraps primary. A nil store makes it a pass-through.
func NewFanoutLoader(primary BatchLoader, store ForecastStore, logger *slog.Logger, metrics *observability.Metrics) *FanoutLoader {
	return &FanoutLoader{primary: primary, store: store, logger: logger, metrics: metrics}
}

func (l *FanoutLoader) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if err := l.primary.LoadBatch(ctx, events); err != nil {
		return err
	}
	if l.store == nil {
		return nil
	}

	for _, ev := range events {
		if ev.Forecast == nil {
			continue
		}
		if err := l.store.Put(ctx, *ev.Forecast); err != nil {
			l.logger.Error("store forecast failed",
				"error", err,
				"station", ev.Forecast.Station,
				"forecast_id", ev.Forecast.ID,
			)
			l.metrics.StoreOperations.WithLabelValues("put", "error").Inc()
			continue
		}
		l.metrics.StoreOperations.WithLabelValues("put", "success").Inc()
	}
	return nil
}
