package pipeline

import (
	"testing"

	"github.com/couchcryptid/taf-data-etl/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache[int](2)
	c.put("a", 1)
	c.put("b", 2)

	_, ok := c.get("a") // a becomes most recent
	assert.True(t, ok)

	c.put("c", 3)
	_, ok = c.get("b")
	assert.False(t, ok)

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string](2)
	c.put("a", "old")
	c.put("a", "new")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, c.len())
}

func TestEntryKey(t *testing.T) {
	a := domain.CycleEntry{Header: "2023/04/24 00:00", Lines: []string{"TAF KXYZ 240000Z", "FM241200 18010KT"}}
	b := domain.CycleEntry{Header: "2023/04/24 00:00", Lines: []string{"TAF KXYZ 240000Z FM241200", "18010KT"}}
	c := domain.CycleEntry{Header: "2023/04/24 00:00 Ammendment", Lines: a.Lines}

	assert.Equal(t, entryKey(a), entryKey(a))
	assert.NotEqual(t, entryKey(a), entryKey(b))
	assert.NotEqual(t, entryKey(a), entryKey(c))
	assert.Len(t, entryKey(a), 64)
}
