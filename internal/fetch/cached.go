// Package fetch - cached.go wraps page fetching with a Redis-backed cache.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves a page and its main text.
type Fetcher interface {
	Fetch(ctx context.Context, urlStr string) (*Result, error)
}

// Default cache lifetimes.
const (
	DefaultPageCacheTTL    = 24 * time.Hour
	DefaultFailureCacheTTL = 10 * time.Minute
)

// CachedFetcher serves pages from Redis when fresh and records recent failures
// so a dead URL is not hammered on every request.
type CachedFetcher struct {
	next       Fetcher
	rdb        redis.Cmdable
	ttl        time.Duration
	failureTTL time.Duration
	logger     *logrus.Logger
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	CacheTTL   time.Duration
	FailureTTL time.Duration
}

// NewCachedFetcher wraps next. A nil rdb disables caching.
func NewCachedFetcher(next Fetcher, rdb redis.Cmdable, config *CachedFetcherConfig, logger *logrus.Logger) *CachedFetcher {
	if config == nil {
		config = &CachedFetcherConfig{}
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultPageCacheTTL
	}
	if config.FailureTTL <= 0 {
		config.FailureTTL = DefaultFailureCacheTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CachedFetcher{
		next:       next,
		rdb:        rdb,
		ttl:        config.CacheTTL,
		failureTTL: config.FailureTTL,
		logger:     logger,
	}
}

// Fetch returns the cached page for urlStr or fetches and caches it.
// Redis errors degrade to an uncached fetch.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*Result, error) {
	if f.rdb == nil {
		return f.next.Fetch(ctx, urlStr)
	}
	log := f.logger.WithField("url", urlStr)

	if msg, err := f.rdb.Get(ctx, failureKey(urlStr)).Result(); err == nil {
		return nil, &Error{URL: urlStr, Message: "recently failed: " + msg}
	} else if !errors.Is(err, redis.Nil) {
		log.WithError(err).Warn("page cache unavailable")
		return f.next.Fetch(ctx, urlStr)
	}

	raw, err := f.rdb.Get(ctx, pageKey(urlStr)).Result()
	switch {
	case err == nil:
		var cached Result
		if jerr := json.Unmarshal([]byte(raw), &cached); jerr == nil {
			log.Debug("page cache hit")
			return &cached, nil
		}
	case !errors.Is(err, redis.Nil):
		log.WithError(err).Warn("page cache read failed")
	}

	result, err := f.next.Fetch(ctx, urlStr)
	if err != nil {
		if ctx.Err() == nil {
			if serr := f.rdb.Set(ctx, failureKey(urlStr), err.Error(), f.failureTTL).Err(); serr != nil {
				log.WithError(serr).Warn("failed to record fetch failure")
			}
		}
		return nil, err
	}

	stored := *result
	stored.HTML = ""
	payload, err := json.Marshal(stored)
	if err == nil {
		if serr := f.rdb.Set(ctx, pageKey(urlStr), string(payload), f.ttl).Err(); serr != nil {
			log.WithError(serr).Warn("page cache write failed")
		}
	}
	return result, nil
}

// Invalidate drops any cached page or failure for urlStr.
func (f *CachedFetcher) Invalidate(ctx context.Context, urlStr string) error {
	if f.rdb == nil {
		return nil
	}
	return f.rdb.Del(ctx, pageKey(urlStr), failureKey(urlStr)).Err()
}

func pageKey(urlStr string) string {
	return "postcraft:page:" + hashURL(urlStr)
}

func failureKey(urlStr string) string {
	return "postcraft:page-fail:" + hashURL(urlStr)
}

func hashURL(urlStr string) string {
	sum := sha256.Sum256([]byte(urlStr))
	return hex.EncodeToString(sum[:])
}
