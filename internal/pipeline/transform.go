package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/couchcryptid/taf-data-etl/internal/domain"
	"github.com/couchcryptid/taf-data-etl/internal/observability"
)

// ErrNoEntries is returned for a source message that holds no bulletin.
var ErrNoEntries = errors.New("no bulletin entries in message")

// entryResult is the outcome of parsing one entry. Failed parses are cached
// too; the parser is deterministic for a given header and text.
type entryResult struct {
	forecast domain.Forecast
	err      error
}

// CycleTransformer implements Transformer for cycle-file and single-bulletin
// messages. Entries of a cycle are parsed concurrently and emitted in file
// order.
type CycleTransformer struct {
	workers int
	cache   *lruCache[entryResult] // nil when disabled
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a CycleTransformer. A cacheSize of zero disables
// the parse cache.
func NewTransformer(workers, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) *CycleTransformer {
	t := &CycleTransformer{
		workers: max(workers, 1),
		logger:  logger,
		metrics: metrics,
	}
	if cacheSize > 0 {
		t.cache = newLRUCache[entryResult](cacheSize)
	}
	return t
}

func (t *CycleTransformer) Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	source := sourceName(raw)

	if raw.IsBulletin() {
		return t.transformBulletin(source, raw)
	}

	cycle := domain.SplitCycle(string(raw.Value))
	if cycle.MalformedHeaders > 0 {
		t.logger.Warn("skipped blocks with malformed headers",
			"source", source,
			"count", cycle.MalformedHeaders,
		)
		t.metrics.EntryFailures.WithLabelValues(domain.FailureKind(domain.ErrMalformedHeader)).Add(float64(cycle.MalformedHeaders))
	}
	if len(cycle.Entries) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrNoEntries)
	}
	t.metrics.EntriesPerCycle.Observe(float64(len(cycle.Entries)))

	results, err := t.parseAll(ctx, cycle.Entries)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OutputEvent, 0, len(results))
	for i, res := range results {
		var (
			event domain.OutputEvent
			err   error
		)
		if res.err != nil {
			event, err = t.failureEvent(domain.NewEntryFailure(source, i, cycle.Entries[i], res.err))
		} else {
			event, err = t.forecastEvent(res.forecast)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func (t *CycleTransformer) transformBulletin(source string, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	text := strings.TrimSpace(string(raw.Value))
	if text == "" {
		return nil, fmt.Errorf("%s: %w", source, ErrNoEntries)
	}
	t.metrics.EntriesPerCycle.Observe(1)

	f, err := domain.ParseBulletin(raw.Timestamp, text)
	if err != nil {
		first, _, _ := strings.Cut(text, "\n")
		failure := domain.NewEntryFailure(source, 0, domain.CycleEntry{Lines: []string{first}}, err)
		event, serr := t.failureEvent(failure)
		if serr != nil {
			return nil, serr
		}
		return []domain.OutputEvent{event}, nil
	}

	event, err := t.forecastEvent(f)
	if err != nil {
		return nil, err
	}
	return []domain.OutputEvent{event}, nil
}

// parseAll fans entries out to the worker pool. Results are written by
// index, so the output order matches the input order.
func (t *CycleTransformer) parseAll(ctx context.Context, entries []domain.CycleEntry) ([]entryResult, error) {
	results := make([]entryResult, len(entries))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range min(t.workers, len(entries)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = t.parseEntry(entries[i])
			}
		}()
	}

	var err error
feed:
	for i := range entries {
		select {
		case jobs <- i:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return results, nil
}

func (t *CycleTransformer) parseEntry(entry domain.CycleEntry) entryResult {
	if t.cache == nil {
		f, err := domain.ParseCycleEntry(entry)
		return entryResult{forecast: f, err: err}
	}

	key := entryKey(entry)
	if res, ok := t.cache.get(key); ok {
		t.metrics.ParseCache.WithLabelValues("hit").Inc()
		return res
	}
	t.metrics.ParseCache.WithLabelValues("miss").Inc()

	f, err := domain.ParseCycleEntry(entry)
	res := entryResult{forecast: f, err: err}
	t.cache.put(key, res)
	return res
}

func (t *CycleTransformer) forecastEvent(f domain.Forecast) (domain.OutputEvent, error) {
	event, err := domain.SerializeForecast(domain.EnrichForecast(f))
	if err != nil {
		return domain.OutputEvent{}, err
	}
	t.metrics.EntriesParsed.Inc()
	return event, nil
}

func (t *CycleTransformer) failureEvent(failure domain.EntryFailure) (domain.OutputEvent, error) {
	kind := failure.Kind()
	attrs := []any{
		"source", failure.Source,
		"index", failure.Index,
		"header", failure.Header,
		"kind", kind,
		"error", failure.Err,
	}
	var pe *domain.ParseError
	if errors.As(failure.Err, &pe) {
		attrs = append(attrs, "token", pe.Token, "position", pe.Position, "state", pe.State.String())
	}
	t.logger.Warn("entry parse failed", attrs...)
	t.metrics.EntryFailures.WithLabelValues(kind).Inc()

	return domain.SerializeFailure(failure)
}

// entryKey hashes an entry's header and lines. Two entries with the same key
// parse to the same result.
func entryKey(entry domain.CycleEntry) string {
	h := sha256.New()
	h.Write([]byte(entry.Header))
	for _, line := range entry.Lines {
		h.Write([]byte{'\n'})
		h.Write([]byte(line))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sourceName(raw domain.RawEvent) string {
	if len(raw.Key) > 0 {
		return string(raw.Key)
	}
	return fmt.Sprintf("%s/%d/%d", raw.Topic, raw.Partition, raw.Offset)
}
