package redis

import (
	"AIBoss/backend/go/internal/config"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestOpenAndHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := Open(ctx, &config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, HealthCheck(client)(ctx))

	mr.Close()
	require.Error(t, HealthCheck(client)(ctx))
}

func TestOpenFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(context.Background(), &config.RedisConfig{Address: addr})
	require.ErrorContains(t, err, "无法连接到 Redis")
}
