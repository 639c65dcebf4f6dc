package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/sentinel-rag/pkg/options/redis"
)

func TestNew_NilOptions(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestNew_Unreachable(t *testing.T) {
	opts := options.NewOptions()
	opts.Port = 1
	opts.DialTimeout = 200 * time.Millisecond

	_, err := New(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestNew_Health(t *testing.T) {
	opts := options.NewOptions()
	opts.Database = 15
	c, err := New(context.Background(), opts)
	if err != nil {
		t.Skip("redis not available")
	}
	defer c.Close()

	stats := c.HealthWithStats(context.Background())
	assert.True(t, stats.Healthy)
	assert.Empty(t, stats.Error)
	assert.GreaterOrEqual(t, stats.TotalConns, uint32(1))
}
