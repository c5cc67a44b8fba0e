package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/injectguard/injectguard/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetNXClaimsOnlyOnce(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewCacheWithClient(client)

	key := fmt.Sprintf(cache.AlertDedupKeyPattern, "203.0.113.7", "sql_injection")
	mock.ExpectSetNX(key, "attempt-1", 15*time.Minute).SetVal(true)
	mock.ExpectSetNX(key, "attempt-2", 15*time.Minute).SetVal(false)

	claimed, err := c.SetNX(context.Background(), key, "attempt-1", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = c.SetNX(context.Background(), key, "attempt-2", 15*time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAndGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewCacheWithClient(client)

	mock.ExpectSet("k", "v", time.Minute).SetVal("OK")
	mock.ExpectGet("k").SetVal("v")
	mock.ExpectDel("k").SetVal(1)

	require.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))

	value, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	require.NoError(t, c.Delete(context.Background(), "k"))
	require.NoError(t, mock.ExpectationsWereMet())
}
