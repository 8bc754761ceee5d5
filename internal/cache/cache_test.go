package cache

import (
	"testing"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetSet(t *testing.T) {
	c := NewCache(10, time.Minute)

	_, found := c.Get("DLHC010012342024")
	assert.False(t, found)

	stored := &database.Case{ID: 1, CNRNumber: "DLHC010012342024"}
	require.NoError(t, c.Set("DLHC010012342024", stored))

	got, found := c.Get(" dlhc010012342024 ")
	require.True(t, found)
	assert.Same(t, stored, got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.MaxSize)
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := NewCache(10, time.Minute)
	require.NoError(t, c.Set("A1", &database.Case{CNRNumber: "A1"}))
	require.NoError(t, c.Set("B2", &database.Case{CNRNumber: "B2"}))

	c.Delete("A1")
	_, found := c.Get("A1")
	assert.False(t, found)

	c.Clear()
	_, found = c.Get("B2")
	assert.False(t, found)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCacheEvictsWhenFull(t *testing.T) {
	c := NewCache(2, time.Minute)

	require.NoError(t, c.Set("A1", &database.Case{CNRNumber: "A1"}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, c.Set("B2", &database.Case{CNRNumber: "B2"}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, c.Set("C3", &database.Case{CNRNumber: "C3"}))

	assert.Equal(t, 2, c.Stats().Size)
	_, found := c.Get("A1")
	assert.False(t, found)
	_, found = c.Get("C3")
	assert.True(t, found)

	// replacing an existing key never evicts
	require.NoError(t, c.Set("C3", &database.Case{CNRNumber: "C3", Petitioner: "X"}))
	_, found = c.Get("B2")
	assert.True(t, found)
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10, 20*time.Millisecond)
	require.NoError(t, c.Set("A1", &database.Case{CNRNumber: "A1"}))

	assert.Eventually(t, func() bool {
		_, found := c.Get("A1")
		return !found
	}, time.Second, 10*time.Millisecond)
}
