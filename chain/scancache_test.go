package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

func TestScanCacheRoundTrip(t *testing.T) {
	cache, err := OpenScanCache("", time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.Get("0xpredicate")
	assert.False(t, ok, "empty cache misses")

	scanned := []models.Transaction{
		{Hash: "0xdeposit", Kind: models.TypeDeposit, Status: models.StatusSuccess},
	}
	require.NoError(t, cache.Put("0xpredicate", scanned))

	got, ok := cache.Get("0xpredicate")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "0xdeposit", got[0].Hash)
	assert.Equal(t, models.TypeDeposit, got[0].Kind)

	_, ok = cache.Get("0xother")
	assert.False(t, ok, "addresses do not share entries")
}

func TestScanCachePersistsToDisk(t *testing.T) {
	dir := t.TempDir()

	cache, err := OpenScanCache(dir, time.Minute)
	require.NoError(t, err)
	require.NoError(t, cache.Put("0xpredicate", []models.Transaction{{Hash: "0xdeposit"}}))
	require.NoError(t, cache.Close())

	reopened, err := OpenScanCache(dir, time.Minute)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Get("0xpredicate")
	require.True(t, ok)
	assert.Equal(t, "0xdeposit", got[0].Hash)
}
