package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Veraticus/certcheck/internal/model"
	"github.com/Veraticus/certcheck/internal/service"
)

// DefaultCacheTTL is used when a CachedLookup is built with a non-positive TTL.
const DefaultCacheTTL = 10 * time.Minute

const cacheKeyPrefix = "certcheck:certificate:"

// CachedLookup serves reference lookups from Redis before asking the
// wrapped store. Only hits are cached. Redis failures are logged and the
// wrapped store answers instead.
type CachedLookup struct {
	next   service.RecordLookup
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCachedLookup wraps next with a Redis cache.
func NewCachedLookup(next service.RecordLookup, client redis.UniversalClient, ttl time.Duration) *CachedLookup {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedLookup{next: next, client: client, ttl: ttl}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	if err := validateString(addr, "addr"); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func cacheKey(seatNo string) string {
	return cacheKeyPrefix + seatNo
}

// FindActiveCertificate implements service.RecordLookup.
func (c *CachedLookup) FindActiveCertificate(ctx context.Context, seatNo string) (*model.Certificate, error) {
	seat := model.NormalizeSeatNo(seatNo)
	key := cacheKey(seat)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cert model.Certificate
		if jsonErr := json.Unmarshal(data, &cert); jsonErr == nil {
			slog.Debug("certificate cache hit", "seat_no", seat)
			return &cert, nil
		}
		slog.Warn("discarding unreadable cache entry", "seat_no", seat)
	case errors.Is(err, redis.Nil):
	default:
		slog.Warn("certificate cache unavailable", "error", err)
	}

	cert, err := c.next.FindActiveCertificate(ctx, seat)
	if err != nil {
		return nil, err
	}

	if encoded, jsonErr := json.Marshal(cert); jsonErr == nil {
		if setErr := c.client.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
			slog.Warn("failed to cache certificate", "seat_no", seat, "error", setErr)
		}
	}
	return cert, nil
}

// Invalidate drops the cached record for a seat number.
func (c *CachedLookup) Invalidate(ctx context.Context, seatNo string) error {
	return c.client.Del(ctx, cacheKey(model.NormalizeSeatNo(seatNo))).Err()
}
