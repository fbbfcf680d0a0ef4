package lock

import (
	"context"
	stderrors "errors"
	"time"

	"codavert-workers/internal/common/errors"
	"codavert-workers/internal/common/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still carries our token, so an
// expired holder cannot release a lock someone else took over.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var errNotAcquired = stderrors.New("lock held by another owner")

// RedisLocker implements Locker with SET NX PX so several manager replicas
// can share one lock space.
type RedisLocker struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
	logger logger.Logger
}

func NewRedisLocker(client redis.Cmdable, ttl, wait time.Duration, log logger.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: "lock:",
		ttl:    ttl,
		wait:   wait,
		poll:   25 * time.Millisecond,
		logger: log,
	}
}

func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := r.prefix + key
	token := uuid.NewString()

	if r.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.wait)
		defer cancel()
	}

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, errors.NewLockTimeoutError(key, err)
		}
		if ok {
			return r.releaser(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.NewLockTimeoutError(key, errNotAcquired)
		case <-ticker.C:
		}
	}
}

func (r *RedisLocker) releaser(redisKey, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true

		// The caller's context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil {
			r.logger.Warn("Failed to release record lock", map[string]interface{}{
				"key":   redisKey,
				"error": err,
			})
		}
	}
}
