package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getOK(t *testing.T, c *TTLCache, key string) ([]byte, bool) {
	t.Helper()
	b, ok, err := c.GetBytes(key)
	require.NoError(t, err)
	return b, ok
}

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache()

	require.NoError(t, c.SetBytes("k", []byte("payload"), time.Minute))
	b, ok := getOK(t, c, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), b)

	_, ok = getOK(t, c, "missing")
	assert.False(t, ok)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()

	require.NoError(t, c.SetBytes("k", []byte("x"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok := getOK(t, c, "k")
	assert.False(t, ok)
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()

	require.NoError(t, c.SetBytes("k", []byte("x"), 0))
	time.Sleep(2 * time.Millisecond)

	_, ok := getOK(t, c, "k")
	assert.True(t, ok)
}

func TestTTLCacheOverwrite(t *testing.T) {
	c := NewTTLCache()

	require.NoError(t, c.SetBytes("k", []byte("1"), time.Minute))
	require.NoError(t, c.SetBytes("k", []byte("2"), time.Minute))

	b, ok := getOK(t, c, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("2"), b)
}

func TestTTLCacheSizeBound(t *testing.T) {
	c := NewTTLCacheWithSize(2)

	require.NoError(t, c.SetBytes("a", []byte("1"), time.Minute))
	require.NoError(t, c.SetBytes("b", []byte("2"), time.Minute))
	require.NoError(t, c.SetBytes("c", []byte("3"), time.Minute))

	assert.Len(t, c.m, 2)
	_, ok := getOK(t, c, "c")
	assert.True(t, ok, "newest entry survives eviction")
}

func TestTTLCacheEvictsExpiredFirst(t *testing.T) {
	c := NewTTLCacheWithSize(2)

	require.NoError(t, c.SetBytes("dead", []byte("1"), time.Millisecond))
	require.NoError(t, c.SetBytes("live", []byte("2"), time.Minute))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, c.SetBytes("new", []byte("3"), time.Minute))

	_, ok := getOK(t, c, "live")
	assert.True(t, ok)
	_, ok = getOK(t, c, "new")
	assert.True(t, ok)
	_, ok = getOK(t, c, "dead")
	assert.False(t, ok)
}

func TestTTLCacheUpdateDoesNotEvict(t *testing.T) {
	c := NewTTLCacheWithSize(2)

	require.NoError(t, c.SetBytes("a", []byte("1"), time.Minute))
	require.NoError(t, c.SetBytes("b", []byte("2"), time.Minute))
	require.NoError(t, c.SetBytes("a", []byte("10"), time.Minute))

	_, okA := getOK(t, c, "a")
	_, okB := getOK(t, c, "b")
	assert.True(t, okA)
	assert.True(t, okB)
}
