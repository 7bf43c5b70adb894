package redisq

import (
	"context"
	"errors"
	"fmt"
	"postqueue/internal/config"
	"postqueue/pkg/backoff"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var ErrRedisNotReady = errors.New("redis did not become ready")

type Client struct {
	Rdb    *redis.Client
	prefix string
}

func New(rdb *redis.Client, keyPrefix string) *Client {
	prefix := keyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &Client{Rdb: rdb, prefix: prefix}
}

// Connect dials redis and pings it until it answers or the attempts run out.
func Connect(ctx context.Context, cfg config.Redis) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	log.Ctx(ctx).Info().Msgf("connecting to redis at %s", opts.Addr)
	rdb := redis.NewClient(opts)

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = rdb.Ping(ctx).Err(); lastErr == nil {
			log.Ctx(ctx).Info().Msg("connected to redis")
			return New(rdb, cfg.KeyPrefix), nil
		}
		log.Ctx(ctx).Warn().Err(lastErr).Int("attempt", attempt).Msg("redis ping failed")
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(backoff.ExponentialJitter(cfg.RetryInterval, 30*time.Second, attempt)):
		}
	}

	_ = rdb.Close()
	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Rdb.Close()
}

// Key joins parts under the configured prefix: Key("post", id) -> "postqueue:post:<id>".
func (c *Client) Key(parts ...string) string {
	return c.prefix + strings.Join(parts, ":")
}

func (c *Client) scheduledKey() string { return c.Key("scheduled") }
func (c *Client) postKey(id string) string { return c.Key("post", id) }
func (c *Client) archiveKey(id string) string { return c.Key("failed", id) }
func (c *Client) lockKey(id string) string { return c.Key("lock", id) }
func (c *Client) contentKey(cid string) string { return c.Key("content", cid, "posts") }

func score(t time.Time) float64 { return float64(t.UnixMilli()) }

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
