package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/contact-guardian/internal/domain/values"
	"github.com/davidleathers/contact-guardian/internal/service/verification"
)

func TestVerificationCache_RoundTrip(t *testing.T) {
	c, mr := setupTestRedis(t)
	vc := NewVerificationCache(c, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	key := verification.CacheKey{
		CorpusVersion:       "abc123-1",
		SignatureGeneration: 2,
		Kind:                values.KindPhone,
		NormalizedValue:     "132861",
	}

	got, err := vc.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	res := verification.Result{
		Kind:             values.KindPhone,
		Value:            "13 28 61",
		NormalizedValue:  "132861",
		Matched:          true,
		RiskLevel:        values.RiskSafe,
		OrganizationName: "Australian Taxation Office",
		OrganizationType: values.OrgGovernment,
		ConfidenceScore:  0.95,
		Source:           verification.SourceCorpus,
		CorpusVersion:    "abc123-1",
	}
	require.NoError(t, vc.Set(ctx, key, res))

	got, err = vc.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, res, *got)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], VerificationPrefix+"abc123-1:2:phone:"))
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))

	stats := vc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Zero(t, stats.Errors)
	assert.InDelta(t, 0.5, stats.HitRate, 0.0001)
}

func TestVerificationCache_KeysSeparateGenerations(t *testing.T) {
	c, _ := setupTestRedis(t)
	vc := NewVerificationCache(c, 0, nil)
	ctx := context.Background()

	key := verification.CacheKey{CorpusVersion: "v1", SignatureGeneration: 1, Kind: values.KindEmail, NormalizedValue: "a@b.com"}
	require.NoError(t, vc.Set(ctx, key, verification.Result{RiskLevel: values.RiskThreat}))

	key.SignatureGeneration = 2
	got, err := vc.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	key.SignatureGeneration = 1
	key.CorpusVersion = "v2"
	got, err = vc.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestVerificationCache_ConnectionError(t *testing.T) {
	c, mr := setupTestRedis(t)
	vc := NewVerificationCache(c, time.Minute, zaptest.NewLogger(t))
	mr.Close()

	_, err := vc.Get(context.Background(), verification.CacheKey{CorpusVersion: "v", NormalizedValue: "x"})
	assert.Error(t, err)
	assert.Equal(t, int64(1), vc.Stats().Errors)
}
