// Package cache keeps recent adapter results in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amityadav/marketwatch/internal/logger"
	"github.com/amityadav/marketwatch/internal/search"
)

// connectionTimeout bounds the startup ping.
const connectionTimeout = 5 * time.Second

const keyPrefix = "marketwatch:fetch:"

// NewClient parses a redis:// URL and verifies the connection.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Adapter serves repeated identical requests from Redis. Only successful
// results are stored so a transient outage is never replayed.
type Adapter struct {
	next   search.Adapter
	client redis.Cmdable
	ttl    time.Duration
	log    logger.Logger
}

// Wrap decorates next with a read-through cache.
func Wrap(next search.Adapter, client redis.Cmdable, ttl time.Duration, log logger.Logger) *Adapter {
	return &Adapter{next: next, client: client, ttl: ttl, log: log}
}

// Name reports the wrapped adapter's name.
func (a *Adapter) Name() string { return a.next.Name() }

// Fetch implements search.Adapter.
func (a *Adapter) Fetch(ctx context.Context, req search.Request) search.Result {
	key := Key(a.next.Name(), req)

	raw, err := a.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var records []search.ResultRecord
		if jsonErr := json.Unmarshal(raw, &records); jsonErr == nil {
			res := search.Succeeded(records)
			res.Cached = true
			return res
		}
		a.log.Warn("Discarding unreadable cache entry", logger.String("key", key))
	case !errors.Is(err, redis.Nil):
		a.log.Warn("Cache read failed", logger.String("adapter", a.next.Name()), logger.Error(err))
	}

	res := a.next.Fetch(ctx, req)
	if !res.OK {
		return res
	}
	payload, err := json.Marshal(res.Records)
	if err != nil {
		return res
	}
	if err := a.client.Set(ctx, key, payload, a.ttl).Err(); err != nil {
		a.log.Warn("Cache write failed", logger.String("adapter", a.next.Name()), logger.Error(err))
	}
	return res
}

// Key derives the cache key for one adapter request.
func Key(adapter string, req search.Request) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%s|%s|%t",
		req.Query, req.Window, req.Locale.HL, req.Locale.GL, req.Locale.CEID, req.Locale.WebRegion, req.Locale.Widened)))
	return keyPrefix + adapter + ":" + hex.EncodeToString(sum[:12])
}
