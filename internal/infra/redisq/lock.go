package redisq

import (
	"context"
	"fmt"
	"postqueue/internal/domain"
	"postqueue/internal/ports"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ ports.Locker = (*Client)(nil)

// releaseScript deletes the lock only if it still carries the caller's token,
// so a worker whose lock expired cannot free a lock taken over by another.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (c *Client) Acquire(ctx context.Context, id string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.Rdb.SetNX(ctx, c.lockKey(id), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %s: %w", id, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (c *Client) Release(ctx context.Context, id, token string) error {
	n, err := releaseScript.Run(ctx, c.Rdb, []string{c.lockKey(id)}, token).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("release lock %s: %w", id, domain.ErrLockNotHeld)
	}
	return nil
}

func (c *Client) Held(ctx context.Context, id string) (bool, error) {
	n, err := c.Rdb.Exists(ctx, c.lockKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check lock %s: %w", id, err)
	}
	return n > 0, nil
}
