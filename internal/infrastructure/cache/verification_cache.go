package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/service/verification"
)

// VerificationCacheStats counts cache outcomes
type VerificationCacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// VerificationCache stores verification results keyed by corpus version,
// signature generation, kind, and normalized value. A reload changes the
// version, so stale results are never served and simply expire.
type VerificationCache struct {
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errs   atomic.Int64
}

// NewVerificationCache wraps c. A non-positive ttl uses DefaultTTL.
func NewVerificationCache(c Cache, ttl time.Duration, logger *zap.Logger) *VerificationCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationCache{cache: c, ttl: ttl, logger: logger}
}

// Get returns the cached result, or nil on a miss
func (v *VerificationCache) Get(ctx context.Context, key verification.CacheKey) (*verification.Result, error) {
	var res verification.Result
	err := v.cache.GetJSON(ctx, buildKey(key), &res)
	if err != nil {
		var notFound ErrCacheKeyNotFound
		if errors.As(err, &notFound) {
			v.misses.Add(1)
			return nil, nil
		}
		v.errs.Add(1)
		return nil, err
	}

	v.hits.Add(1)
	return &res, nil
}

// Set stores a result
func (v *VerificationCache) Set(ctx context.Context, key verification.CacheKey, res verification.Result) error {
	if err := v.cache.SetJSON(ctx, buildKey(key), res, v.ttl); err != nil {
		v.errs.Add(1)
		return err
	}
	return nil
}

// Stats returns a snapshot of the cache counters
func (v *VerificationCache) Stats() VerificationCacheStats {
	s := VerificationCacheStats{
		Hits:   v.hits.Load(),
		Misses: v.misses.Load(),
		Errors: v.errs.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func buildKey(key verification.CacheKey) string {
	sum := md5.Sum([]byte(key.NormalizedValue))
	return VerificationPrefix + key.CorpusVersion + ":" +
		strconv.FormatUint(key.SignatureGeneration, 10) + ":" +
		string(key.Kind) + ":" + hex.EncodeToString(sum[:])
}
