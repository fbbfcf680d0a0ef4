// internal/sequence/redis.go
package sequence

import (
	"context"
	"fmt"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

// seedScript raises the key to ARGV[1] only when it is currently lower.
var seedScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local floor = tonumber(ARGV[1])
if current < floor then
	redis.call("SET", KEYS[1], floor)
	return floor
end
return current
`)

// RedisCounter uses INCR, which Redis executes atomically.
type RedisCounter struct {
	client redis.Cmdable
	prefix string
}

func NewRedisCounter(client redis.Cmdable, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "sequence"
	}
	return &RedisCounter{client: client, prefix: prefix}
}

func (c *RedisCounter) key(kind models.DocumentKind, ownerID int64) string {
	return fmt.Sprintf("%s:%s:%d", c.prefix, kind, ownerID)
}

func (c *RedisCounter) Increment(ctx context.Context, kind models.DocumentKind, ownerID int64) (int64, error) {
	value, err := c.client.Incr(ctx, c.key(kind, ownerID)).Result()
	if err != nil {
		return 0, errors.NewDatabaseError("redis incr document sequence", err)
	}
	return value, nil
}

func (c *RedisCounter) Seed(ctx context.Context, kind models.DocumentKind, ownerID int64, floor int64) error {
	if err := seedScript.Run(ctx, c.client, []string{c.key(kind, ownerID)}, floor).Err(); err != nil {
		return errors.NewDatabaseError("redis seed document sequence", err)
	}
	return nil
}

func (c *RedisCounter) Backend() string { return "redis" }
