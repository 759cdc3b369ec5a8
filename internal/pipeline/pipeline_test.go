package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/taf-data-etl/internal/domain"
	"github.com/couchcryptid/taf-data-etl/internal/observability"
	"github.com/couchcryptid/taf-data-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err      error
	failKeys map[string]bool
	perCall  int
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.failKeys[string(raw.Key)] {
		return nil, pipeline.ErrNoEntries
	}
	n := max(m.perCall, 1)
	out := make([]domain.OutputEvent, n)
	for i := range out {
		out[i] = domain.OutputEvent{Key: raw.Key, Value: raw.Value}
	}
	return out, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.OutputEvent
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := domain.RawEvent{Key: []byte("00Z.txt"), Value: []byte("cycle")}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	tfm := &mockTransformer{perCall: 3}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 500*time.Millisecond)

	assert.Equal(t, 3, ldr.count())
	assert.Equal(t, raw.Value, ldr.loaded[0].Value)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, ldr.count())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorCommitsAndSkips(t *testing.T) {
	var commits atomic.Int64
	raw := domain.RawEvent{
		Key:    []byte("empty.txt"),
		Commit: func(context.Context) error { commits.Add(1); return nil },
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	tfm := &mockTransformer{err: pipeline.ErrNoEntries}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 500*time.Millisecond)

	assert.Zero(t, ldr.count())
	assert.Equal(t, int64(1), commits.Load())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var commits atomic.Int64
	batch := make([]domain.RawEvent, 3)
	for i := range batch {
		batch[i] = domain.RawEvent{
			Topic:  "raw-taf-cycles",
			Offset: int64(i),
			Commit: func(context.Context) error { commits.Add(1); return nil },
		}
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{batch}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 500*time.Millisecond)

	assert.Equal(t, 3, ldr.count())
	assert.Equal(t, int64(3), commits.Load())
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var commits atomic.Int64
	raw := domain.RawEvent{Commit: func(context.Context) error { commits.Add(1); return nil }}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{err: errors.New("broker unavailable")}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Zero(t, commits.Load())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("fetch failed")}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	start := time.Now()
	runFor(t, p, 300*time.Millisecond)

	assert.Zero(t, ldr.count())
	assert.Less(t, time.Since(start), 2*time.Second)
}

// commitLog records committed offsets in call order.
type commitLog struct {
	mu      sync.Mutex
	offsets []int64
}

func (c *commitLog) raw(key string, offset int64) domain.RawEvent {
	return domain.RawEvent{
		Key:    []byte(key),
		Topic:  "raw-taf-cycles",
		Offset: offset,
		Commit: func(context.Context) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.offsets = append(c.offsets, offset)
			return nil
		},
	}
}

func (c *commitLog) committed() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.offsets)
}

func TestPipeline_Run_MixedBatchCommits(t *testing.T) {
	tests := []struct {
		name       string
		loadErr    error
		wantLoad   int
		wantCommit []int64
	}{
		{"load succeeds", nil, 2, []int64{1, 2, 3}},
		{"load fails", errors.New("kafka down"), 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &commitLog{}
			// Out of offset order to check commits are sorted.
			batch := []domain.RawEvent{log.raw("good", 3), log.raw("good", 1), log.raw("bad", 2)}

			ext := &mockExtractor{batches: [][]domain.RawEvent{batch}}
			tfm := &mockTransformer{failKeys: map[string]bool{"bad": true}}
			ldr := &mockLoader{err: tt.loadErr}

			p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), 10)
			runFor(t, p, 300*time.Millisecond)

			assert.Equal(t, tt.wantLoad, ldr.count())
			assert.Equal(t, tt.wantCommit, log.committed())
		})
	}
}
