package textscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abc(opts ...ScannerOption) *Scanner[string] {
	return NewScanner[string](FromSlice([]string{"a", "b", "c"}), opts...)
}

func TestScanner_Next(t *testing.T) {
	s := abc()
	for _, want := range []string{"a", "b", "c"} {
		got, ok := s.Next()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := s.Next()
	assert.False(t, ok)

	empty := NewScanner[string](FromSlice[string](nil))
	_, ok = empty.Next()
	assert.False(t, ok)
}

func TestScanner_LookAhead(t *testing.T) {
	s := abc()
	assert.Empty(t, s.LookAhead(0))
	assert.Equal(t, []string{"a"}, s.LookAhead(1))
	assert.Equal(t, []string{"a", "b", "c"}, s.LookAhead(3))
	assert.Equal(t, []string{"a", "b", "c"}, s.LookAhead(4))

	s.Next()
	assert.Equal(t, []string{"b", "c"}, s.LookAhead(2))
	assert.Equal(t, []string{"b", "c"}, s.LookAhead(3))

	s.Next()
	assert.Equal(t, []string{"c"}, s.LookAhead(2))

	s.Next()
	assert.Empty(t, s.LookAhead(1))
	_, ok := s.Next()
	assert.False(t, ok)
}

func TestScanner_LookBehind(t *testing.T) {
	s := abc(WithLookBehindLimit(2))

	_, err := s.LookBehind(3)
	require.ErrorIs(t, err, ErrLookBehindLimit)

	steps := []struct {
		advance string
		one     []string
		two     []string
	}{
		{advance: "a", one: nil, two: nil},
		{advance: "b", one: []string{"a"}, two: []string{"a"}},
		{advance: "c", one: []string{"b"}, two: []string{"b", "a"}},
		{advance: "", one: []string{"c"}, two: []string{"c", "b"}},
	}
	for _, step := range steps {
		got, ok := s.Next()
		assert.Equal(t, step.advance != "", ok)
		if ok {
			assert.Equal(t, step.advance, got)
		}

		one, err := s.LookBehind(1)
		require.NoError(t, err)
		two, err := s.LookBehind(2)
		require.NoError(t, err)
		if step.one == nil {
			assert.Empty(t, one)
			assert.Empty(t, two)
			continue
		}
		assert.Equal(t, step.one, one)
		assert.Equal(t, step.two, two)
	}
}

func TestScanner_LookBehindDefaultLimit(t *testing.T) {
	s := NewScanner[int](FromSlice([]int{1, 2, 3, 4, 5}))
	for range s.All() {
	}
	got, err := s.LookBehind(DefaultLookBehindLimit)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 4, 3}, got)

	_, err = s.LookBehind(DefaultLookBehindLimit + 1)
	assert.Error(t, err)
}

func TestScanner_Peek(t *testing.T) {
	s := abc()
	for _, want := range []string{"a", "b", "c"} {
		got, ok := s.Peek()
		require.True(t, ok)
		assert.Equal(t, want, got)
		got, _ = s.Peek()
		assert.Equal(t, want, got)
		got, _ = s.Next()
		assert.Equal(t, want, got)
	}
	_, ok := s.Peek()
	assert.False(t, ok)
	_, ok = s.Next()
	assert.False(t, ok)
}

func TestScanner_Recall(t *testing.T) {
	s := abc()
	_, ok := s.Recall()
	assert.False(t, ok)

	s.Next()
	_, ok = s.Recall()
	assert.False(t, ok)

	s.Next()
	got, _ := s.Recall()
	assert.Equal(t, "a", got)

	s.Next()
	got, _ = s.Recall()
	assert.Equal(t, "b", got)

	s.Next()
	got, ok = s.Recall()
	assert.True(t, ok)
	assert.Equal(t, "c", got)
}

func TestScanner_AllOverTokenizer(t *testing.T) {
	s := NewScanner[Token](NewTokenizer("a b\nc", Options{IncludeNewline: true}))

	var afterNewline []string
	for tok := range s.All() {
		prev, ok := s.Recall()
		if tok.Kind == Text && ok && prev.IsNewline() {
			afterNewline = append(afterNewline, tok.Value)
		}
	}
	assert.Equal(t, []string{"c"}, afterNewline)
}
