package rest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockRateLimiter struct{ mock.Mock }

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Int(0), args.Error(1)
}

func (m *MockRateLimiter) Reset(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func TestLocalLimiter_PerClientBuckets(t *testing.T) {
	l := NewLocalLimiter(1, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "other clients have their own bucket")
	assert.Equal(t, "local", l.Name())
}

func TestLocalLimiter_EvictsIdleClients(t *testing.T) {
	l := NewLocalLimiter(1, 1).(*localLimiter)
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "a")
	now = now.Add(5 * time.Minute)
	_, _ = l.Allow(context.Background(), "b")
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, l.evict())
	assert.Len(t, l.limiters, 1)
	assert.Contains(t, l.limiters, "b")
}

func TestDistributedLimiter(t *testing.T) {
	backend := &MockRateLimiter{}
	l := NewDistributedLimiter(backend, 100, time.Minute, zaptest.NewLogger(t))

	backend.On("Allow", mock.Anything, "api:1.2.3.4", 100, time.Minute).Return(false, nil).Once()
	ok, err := l.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	backend.On("Allow", mock.Anything, "api:1.2.3.4", 100, time.Minute).Return(false, assert.AnError).Once()
	ok, err = l.Allow(context.Background(), "1.2.3.4")
	assert.Error(t, err)
	assert.True(t, ok, "backend failures let requests through")
	assert.Equal(t, "redis", l.Name())
	backend.AssertExpectations(t)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:5555", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:5555", "198.51.100.2"},
		{"remote addr", nil, "192.0.2.9:4000", "192.0.2.9"},
		{"remote without port", nil, "192.0.2.9", "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}
