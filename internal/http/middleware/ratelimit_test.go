package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnavarrete/customers-api/internal/config"
)

func TestOpClass(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/customers", opRead},
		{http.MethodHead, "/customers/:id", opRead},
		{http.MethodPost, "/customers", opWrite},
		{http.MethodPatch, "/customers/:id", opWrite},
		{http.MethodDelete, "/customers/:id", opWrite},
		{http.MethodGet, "/customers/:id/statistics", opStats},
		{http.MethodGet, "/customers/statistics-summary", opStats},
	}
	for _, tt := range tests {
		c, _ := newCtx(tt.method, nil)
		c.SetPath(tt.path)
		assert.Equal(t, tt.want, opClass(c), "%s %s", tt.method, tt.path)
	}
}

func TestBucketLimit(t *testing.T) {
	limits := config.ClassLimits{
		General: config.BucketLimit{Limit: 100, Window: time.Minute},
		Read:    config.BucketLimit{Limit: 60, Window: time.Minute},
		Write:   config.BucketLimit{Limit: 10, Window: time.Minute},
		Stats:   config.BucketLimit{Limit: 5, Window: time.Minute},
	}
	assert.Equal(t, 60, bucketLimit(limits, opRead).Limit)
	assert.Equal(t, 10, bucketLimit(limits, opWrite).Limit)
	assert.Equal(t, 5, bucketLimit(limits, opStats).Limit)
	assert.Equal(t, 100, bucketLimit(limits, "unknown").Limit)
}

func TestRateLimitWithoutRedisPassesThrough(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitConfig{Redis: nil})

	for i := 0; i < 50; i++ {
		c, rec := newCtx(http.MethodPost, nil)
		require.NoError(t, mw(okHandler)(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestConsumeZeroLimitNeverBlocks(t *testing.T) {
	cfg := RateLimitConfig{KeyPrefix: "rl:"}
	c, _ := newCtx(http.MethodGet, nil)

	limited, retryAfter, err := cfg.consume(c, classAnon, opRead, "1.2.3.4", config.BucketLimit{})
	require.NoError(t, err)
	assert.False(t, limited)
	assert.Zero(t, retryAfter)
}
