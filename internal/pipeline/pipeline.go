package pipeline

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/taf-data-etl/internal/domain"
	"github.com/couchcryptid/taf-data-etl/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw event into output events. A cycle file yields
// one event per bulletin entry, whether it parsed or failed.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil if the pipeline has processed at least one message,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any messages yet")
	}
	return nil
}

// Run executes the batch ETL loop until the context is cancelled. Extract
// and load failures back off exponentially from 200ms up to 5s.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// settledBatch is the transform result of one extracted batch. settled holds
// every message whose outcome is final, including rejected ones. None of
// them may be committed until events are loaded.
type settledBatch struct {
	events  []domain.OutputEvent
	settled []domain.RawEvent
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	batch, ok := p.transformBatch(ctx, rawBatch)
	if !ok {
		return false
	}

	if len(batch.events) > 0 {
		if err := p.loader.LoadBatch(ctx, batch.events); err != nil {
			p.logger.Error("load batch failed, offsets left uncommitted",
				"error", err,
				"events", len(batch.events),
				"messages", len(batch.settled),
			)
			return p.backoffOrStop(ctx, backoff)
		}
		p.metrics.MessagesProduced.Add(float64(len(batch.events)))
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}

	p.commitSettled(ctx, batch.settled)
	return true
}

// transformBatch converts every message of the batch. A message that fails
// to transform produces no events but is still settled, so it is committed
// together with the rest once the batch loads. Returns false on cancellation.
func (p *Pipeline) transformBatch(ctx context.Context, rawBatch []domain.RawEvent) (settledBatch, bool) {
	batch := settledBatch{
		events:  make([]domain.OutputEvent, 0, len(rawBatch)),
		settled: make([]domain.RawEvent, 0, len(rawBatch)),
	}

	for _, raw := range rawBatch {
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return settledBatch{}, false
			}
			p.logger.Warn("transform failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
		} else {
			batch.events = append(batch.events, out...)
		}
		batch.settled = append(batch.settled, raw)
	}
	return batch, true
}

// commitSettled commits offsets in partition and offset order, since a group
// commit of offset N also covers every earlier offset of its partition.
func (p *Pipeline) commitSettled(ctx context.Context, raws []domain.RawEvent) {
	slices.SortStableFunc(raws, func(a, b domain.RawEvent) int {
		return cmp.Or(
			cmp.Compare(a.Topic, b.Topic),
			cmp.Compare(a.Partition, b.Partition),
			cmp.Compare(a.Offset, b.Offset),
		)
	})
	for _, raw := range raws {
		if raw.Commit == nil {
			continue
		}
		if err := raw.Commit(ctx); err != nil {
			p.logger.Warn("commit offset failed", "error", err,
				"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
		}
	}
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the context is cancelled first.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil || !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}
