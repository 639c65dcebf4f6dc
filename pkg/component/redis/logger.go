package redis

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// internalLogger routes go-redis connection diagnostics (dial retries,
// pool errors) to the global logger at warn level.
type internalLogger struct{}

func (internalLogger) Printf(ctx context.Context, format string, v ...any) {
	logger.Global().WithCtx(ctx).Warnw(fmt.Sprintf(format, v...), "component", "redis")
}

func init() {
	goredis.SetLogger(internalLogger{})
}
