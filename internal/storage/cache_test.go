package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/certcheck/internal/common"
	"github.com/Veraticus/certcheck/internal/model"
)

type countingLookup struct {
	records map[string]*model.Certificate
	calls   int
}

func (c *countingLookup) FindActiveCertificate(_ context.Context, seatNo string) (*model.Certificate, error) {
	c.calls++
	if cert, ok := c.records[seatNo]; ok {
		return cert, nil
	}
	return nil, common.ErrNotFound
}

func TestCachedLookup_RedisUnavailableFallsThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer func() { _ = client.Close() }()

	next := &countingLookup{records: map[string]*model.Certificate{
		"B1234": {SeatNo: "B1234", StudentName: "Aniket Todkar"},
	}}
	cached := NewCachedLookup(next, client, time.Minute)

	cert, err := cached.FindActiveCertificate(context.Background(), "b 1234")
	require.NoError(t, err)
	assert.Equal(t, "Aniket Todkar", cert.StudentName)
	assert.Equal(t, 1, next.calls)

	_, err = cached.FindActiveCertificate(context.Background(), "MISSING")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCachedLookup_Redis(t *testing.T) {
	addr := os.Getenv("CERTCHECK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CERTCHECK_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	client, err := NewRedisClient(ctx, addr)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	next := &countingLookup{records: map[string]*model.Certificate{
		"CACHE1": {SeatNo: "CACHE1", StudentName: "Cached Student", SGPA: 7.5},
	}}
	cached := NewCachedLookup(next, client, time.Minute)
	require.NoError(t, cached.Invalidate(ctx, "CACHE1"))
	defer func() { _ = cached.Invalidate(ctx, "CACHE1") }()

	for i := 0; i < 3; i++ {
		cert, err := cached.FindActiveCertificate(ctx, "cache1")
		require.NoError(t, err)
		assert.InDelta(t, 7.5, cert.SGPA, 1e-9)
	}
	assert.Equal(t, 1, next.calls, "hits after the first come from redis")

	for i := 0; i < 2; i++ {
		_, err := cached.FindActiveCertificate(ctx, "NOPE")
		assert.ErrorIs(t, err, common.ErrNotFound)
	}
	assert.Equal(t, 3, next.calls, "misses are never cached")
}
