//go:build integration

package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coursehub/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("未设置 TEST_REDIS_ADDR，跳过 Redis 集成测试")
	}
	c, err := NewClient(&config.RedisConfig{Addr: addr}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCheckRateLimit_FixedWindow(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := fmt.Sprintf("test:%d", time.Now().UnixNano())

	for i := 0; i < 3; i++ {
		ok, err := c.CheckRateLimit(ctx, key, 3, time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "第 %d 次应放行", i+1)
	}
	ok, err := c.CheckRateLimit(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "超出上限应拒绝")

	ttl, err := c.rdb.PTTL(ctx, rateLimitPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "计数键必须带过期时间")

	assert.Eventually(t, func() bool {
		ok, err := c.CheckRateLimit(ctx, key, 3, time.Second)
		return err == nil && ok
	}, 3*time.Second, 100*time.Millisecond, "窗口过期后应重新放行")
}
