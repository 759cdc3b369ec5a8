package textscan

import (
	"errors"
	"fmt"
	"iter"
)

// DefaultLookBehindLimit is the history depth used when no limit is given.
const DefaultLookBehindLimit = 3

// ErrLookBehindLimit is returned when more history is requested than the
// scanner retains.
var ErrLookBehindLimit = errors.New("look-behind limit exceeded")

// Source is a forward-only sequence of items.
type Source[T any] interface {
	Next() (T, bool)
}

// SliceSource adapts a slice to a Source.
type SliceSource[T any] struct {
	items []T
	pos   int
}

// FromSlice returns a Source that yields items in order.
func FromSlice[T any](items []T) *SliceSource[T] {
	return &SliceSource[T]{items: items}
}

func (s *SliceSource[T]) Next() (T, bool) {
	if s.pos >= len(s.items) {
		var zero T
		return zero, false
	}
	item := s.items[s.pos]
	s.pos++
	return item, true
}

// ScannerOption configures a Scanner.
type ScannerOption func(*scannerConfig)

type scannerConfig struct {
	lookBehindLimit int
}

// WithLookBehindLimit sets how many previously current items are retained.
func WithLookBehindLimit(n int) ScannerOption {
	return func(c *scannerConfig) {
		if n >= 0 {
			c.lookBehindLimit = n
		}
	}
}

// Scanner wraps a Source with buffered lookahead and bounded lookbehind.
//
// History holds items that were current before the present one, newest
// first. When the source is exhausted the last current item moves into
// history, so Recall keeps returning it.
type Scanner[T any] struct {
	src        Source[T]
	ahead      []T
	behind     []T
	current    T
	hasCurrent bool
	limit      int
}

// NewScanner creates a Scanner over src.
func NewScanner[T any](src Source[T], opts ...ScannerOption) *Scanner[T] {
	cfg := scannerConfig{lookBehindLimit: DefaultLookBehindLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scanner[T]{
		src:    src,
		limit:  cfg.lookBehindLimit,
		behind: make([]T, 0, cfg.lookBehindLimit),
	}
}

// Next advances and returns the new current item, or false at the end.
func (s *Scanner[T]) Next() (T, bool) {
	if s.hasCurrent {
		s.remember(s.current)
	}

	item, ok := s.pull()
	if !ok {
		var zero T
		s.current = zero
		s.hasCurrent = false
		return zero, false
	}
	s.current = item
	s.hasCurrent = true
	return item, true
}

// Current returns the item most recently returned by Next.
func (s *Scanner[T]) Current() (T, bool) {
	return s.current, s.hasCurrent
}

// Peek returns the next item without advancing.
func (s *Scanner[T]) Peek() (T, bool) {
	items := s.LookAhead(1)
	if len(items) == 0 {
		var zero T
		return zero, false
	}
	return items[0], true
}

// LookAhead returns up to n upcoming items without advancing. Fewer are
// returned near the end of the source.
func (s *Scanner[T]) LookAhead(n int) []T {
	if n <= 0 {
		return nil
	}
	for len(s.ahead) < n {
		item, ok := s.src.Next()
		if !ok {
			break
		}
		s.ahead = append(s.ahead, item)
	}
	out := make([]T, min(n, len(s.ahead)))
	copy(out, s.ahead)
	return out
}

// LookBehind returns up to n previously current items, newest first.
func (s *Scanner[T]) LookBehind(n int) ([]T, error) {
	if n > s.limit {
		return nil, fmt.Errorf("look behind %d (limit %d): %w", n, s.limit, ErrLookBehindLimit)
	}
	if n <= 0 {
		return nil, nil
	}
	out := make([]T, min(n, len(s.behind)))
	copy(out, s.behind)
	return out, nil
}

// Recall returns the item that was current before the present one.
func (s *Scanner[T]) Recall() (T, bool) {
	if len(s.behind) == 0 {
		var zero T
		return zero, false
	}
	return s.behind[0], true
}

// All returns an iterator that advances the scanner until the source ends.
// The scanner's lookahead and history stay usable inside the loop body.
func (s *Scanner[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for item, ok := s.Next(); ok; item, ok = s.Next() {
			if !yield(item) {
				return
			}
		}
	}
}

func (s *Scanner[T]) pull() (T, bool) {
	if len(s.ahead) > 0 {
		item := s.ahead[0]
		s.ahead = s.ahead[1:]
		return item, true
	}
	return s.src.Next()
}

func (s *Scanner[T]) remember(item T) {
	if s.limit == 0 {
		return
	}
	if len(s.behind) < s.limit {
		s.behind = append(s.behind, item)
	}
	copy(s.behind[1:], s.behind[:len(s.behind)-1])
	s.behind[0] = item
}
