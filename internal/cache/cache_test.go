package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/edgarseg/internal/model"
)

const docURL = "https://www.sec.gov/Archives/edgar/data/320193/000032019324000010/a8-k.htm"

func TestDocumentKey(t *testing.T) {
	key := DocumentKey(docURL)
	assert.True(t, strings.HasPrefix(key, keyPrefix))
	assert.Len(t, key, len(keyPrefix)+64)
	assert.Equal(t, key, DocumentKey(docURL))
	assert.NotEqual(t, key, DocumentKey(docURL+"?x"))
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	buf := []byte("original")
	require.NoError(t, c.Set("k", buf, 0))
	buf[0] = 'X'

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "original", string(got))

	got[0] = 'Y'
	again, _ := c.Get("k")
	assert.Equal(t, "original", string(again))

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set("k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := DocumentKey(docURL)

	_, ok := c.Get(key)
	assert.False(t, ok)

	require.NoError(t, c.Set(key, []byte("<html>filing</html>"), 0))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "<html>filing</html>", string(got))

	// Sharded by hash prefix, no colons in file names
	path := c.path(key)
	assert.Equal(t, dir, filepath.Dir(filepath.Dir(path)))
	assert.NotContains(t, filepath.Base(path), ":")

	require.NoError(t, c.Delete(key))
	require.NoError(t, c.Delete(key), "deleting a missing entry is not an error")
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := DocumentKey(docURL)
	require.NoError(t, c.Set(key, []byte("v"), time.Minute))

	now = now.Add(30 * time.Second)
	_, ok := c.Get(key)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get(key)
	assert.False(t, ok)

	_, err := os.Stat(c.path(key))
	assert.True(t, os.IsNotExist(err), "expired entry should be removed")
}

func TestDiskCache_NoTTLKeepsForever(t *testing.T) {
	c := NewDiskCache(t.TempDir(), 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set("k", []byte("v"), 0))
	now = now.AddDate(10, 0, 0)

	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	key := DocumentKey(docURL)
	path := c.path(key)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestLayeredCache_PromotesHits(t *testing.T) {
	memory := NewMemoryCache(time.Minute, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Hour)
	layered := NewLayeredCache(memory, disk)

	require.NoError(t, disk.Set("k", []byte("from disk"), 0))
	_, inMemory := memory.Get("k")
	assert.False(t, inMemory)

	got, ok := layered.Get("k")
	require.True(t, ok)
	assert.Equal(t, "from disk", string(got))

	promoted, ok := memory.Get("k")
	require.True(t, ok)
	assert.Equal(t, "from disk", string(promoted))
}

func TestLayeredCache_SetDeleteClear(t *testing.T) {
	memory := NewMemoryCache(time.Minute, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Hour)
	layered := NewLayeredCache(memory, disk)

	require.NoError(t, layered.Set("a", []byte("1"), 0))
	_, ok := disk.Get("a")
	assert.True(t, ok)

	require.NoError(t, layered.Delete("a"))
	_, ok = layered.Get("a")
	assert.False(t, ok)

	require.NoError(t, layered.Set("b", []byte("2"), 0))
	require.NoError(t, layered.Clear())
	assert.Equal(t, 0, memory.Len())
	_, ok = disk.Get("b")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	assert.Nil(t, New(model.CacheConfig{Enabled: false}))

	memoryOnly := New(model.CacheConfig{Enabled: true, MemoryTTL: time.Minute})
	assert.IsType(t, &MemoryCache{}, memoryOnly)

	layered := New(model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute, DiskTTL: time.Hour})
	assert.IsType(t, &LayeredCache{}, layered)
}
