package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	// pub/sub frames are exchanged over RESP2 with miniredis.
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheFetchJSON(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "lookup", KindTax, "GST18")
	require.NoError(t, err)
	assert.Equal(t, "lookup:tax:GST18:1", key)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]string{"ref": "GST18"}, nil
	}

	var out map[string]string
	hit, err := cache.FetchJSON(ctx, key, &out, loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "GST18", out["ref"])
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	hit, err = cache.FetchJSON(ctx, key, &out, loader)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)
}

func TestCacheBumpChangesKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "lookup", KindProduct, "X")
	require.NoError(t, err)
	ver, err := cache.Bump(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
	after, err := cache.BuildKey(ctx, "lookup", KindProduct, "X")
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestCacheListenFollowsPublishedVersion(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)

	require.NoError(t, cache.ListenForInvalidation(ctx, ""))
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(bumpChannel)[bumpChannel] == 1
	}, time.Second, 10*time.Millisecond)

	mr.Publish(bumpChannel, "42")
	require.Eventually(t, func() bool {
		ver, err := cache.Version(context.Background())
		return err == nil && ver == 42
	}, time.Second, 10*time.Millisecond)
}

func TestCacheVersionKeepsExistingValue(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(cacheVersionKey, "7"))
	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ver)
	mr.CheckGet(t, cacheVersionKey, "7")

	require.NoError(t, mr.Set(cacheVersionKey, "0"))
	ver, err = cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)
}

func TestRaiseVersionNeverLowers(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	ver, err := cache.raiseVersion(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), ver)

	ver, err = cache.raiseVersion(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), ver)
	mr.CheckGet(t, cacheVersionKey, "5")

	ver, err = cache.raiseVersion(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), ver)
}

func TestNilCacheCallsLoader(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "lookup", KindTax, "GST5")
	require.NoError(t, err)
	assert.Equal(t, "lookup:tax:GST5", key)

	var out string
	hit, err := cache.FetchJSON(ctx, key, &out, func(context.Context) (any, error) { return "v", nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "v", out)

	ver, err := cache.Bump(ctx)
	require.NoError(t, err)
	assert.Zero(t, ver)
}

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError("get tax", pgx.ErrNoRows), ErrNotFound)

	missing := &pgconn.PgError{Code: pgUndefinedTable, Message: `relation "currencies" does not exist`}
	err := mapError("get currency", missing)
	assert.ErrorIs(t, err, ErrSchemaMissing)

	other := errors.New("conn reset")
	err = mapError("get product", other)
	assert.ErrorIs(t, err, other)
	assert.Contains(t, err.Error(), "lookup: get product")
}

func TestISOCurrency(t *testing.T) {
	usd, ok := isoCurrency("usd")
	require.True(t, ok)
	assert.Equal(t, "USD", usd.Code)
	assert.Equal(t, int32(2), usd.Scale)
	assert.NotEmpty(t, usd.Symbol)

	jpy, ok := isoCurrency("JPY")
	require.True(t, ok)
	assert.Equal(t, int32(0), jpy.Scale)

	_, ok = isoCurrency("NOT")
	assert.False(t, ok)
}
