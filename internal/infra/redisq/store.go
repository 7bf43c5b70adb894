package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"postqueue/internal/domain"
	"postqueue/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ ports.QueueStore = (*Client)(nil)

func (c *Client) Save(ctx context.Context, p domain.ScheduledPost, ttl time.Duration) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal post %s: %w", p.ID, err)
	}
	_, err = c.Rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.postKey(p.ID), b, ttl)
		pipe.ZAdd(ctx, c.scheduledKey(), redis.Z{Score: score(p.ScheduledAt), Member: p.ID})
		if p.ContentID != "" {
			pipe.SAdd(ctx, c.contentKey(p.ContentID), p.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save post %s: %w", p.ID, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, id string) (*domain.ScheduledPost, error) {
	return c.load(ctx, c.postKey(id))
}

func (c *Client) GetArchived(ctx context.Context, id string) (*domain.ScheduledPost, error) {
	return c.load(ctx, c.archiveKey(id))
}

func (c *Client) load(ctx context.Context, key string) (*domain.ScheduledPost, error) {
	b, err := c.Rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var p domain.ScheduledPost
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &p, nil
}

func (c *Client) Update(ctx context.Context, p domain.ScheduledPost, ttl time.Duration) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal post %s: %w", p.ID, err)
	}
	if err := c.Rdb.Set(ctx, c.postKey(p.ID), b, ttl).Err(); err != nil {
		return fmt.Errorf("update post %s: %w", p.ID, err)
	}
	return nil
}

func (c *Client) Reschedule(ctx context.Context, p domain.ScheduledPost, ttl time.Duration) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal post %s: %w", p.ID, err)
	}
	_, err = c.Rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.postKey(p.ID), b, ttl)
		pipe.ZAdd(ctx, c.scheduledKey(), redis.Z{Score: score(p.ScheduledAt), Member: p.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("reschedule post %s: %w", p.ID, err)
	}
	return nil
}

// Remove deletes the record, its ordered-set member and its content index entry.
// A post with only ID set clears an orphaned ordered-set member.
func (c *Client) Remove(ctx context.Context, p domain.ScheduledPost) error {
	_, err := c.Rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		c.remove(ctx, pipe, p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove post %s: %w", p.ID, err)
	}
	return nil
}

func (c *Client) Archive(ctx context.Context, p domain.ScheduledPost, ttl time.Duration) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal post %s: %w", p.ID, err)
	}
	_, err = c.Rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.archiveKey(p.ID), b, ttl)
		c.remove(ctx, pipe, p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("archive post %s: %w", p.ID, err)
	}
	return nil
}

func (c *Client) remove(ctx context.Context, pipe redis.Pipeliner, p domain.ScheduledPost) {
	pipe.Del(ctx, c.postKey(p.ID))
	pipe.ZRem(ctx, c.scheduledKey(), p.ID)
	if p.ContentID != "" {
		pipe.SRem(ctx, c.contentKey(p.ContentID), p.ID)
	}
}

// DueIDs returns ids scored in [0, until], earliest first. limit <= 0 means no limit.
func (c *Client) DueIDs(ctx context.Context, until time.Time, limit int64) ([]string, error) {
	rng := &redis.ZRangeBy{Min: "0", Max: fmtFloat(score(until))}
	if limit > 0 {
		rng.Count = limit
	}
	ids, err := c.Rdb.ZRangeByScore(ctx, c.scheduledKey(), rng).Result()
	if err != nil {
		return nil, fmt.Errorf("due ids: %w", err)
	}
	return ids, nil
}

func (c *Client) RangeIDs(ctx context.Context, from, to time.Time) ([]string, error) {
	ids, err := c.Rdb.ZRangeByScore(ctx, c.scheduledKey(), &redis.ZRangeBy{
		Min: fmtFloat(score(from)),
		Max: fmtFloat(score(to)),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range ids: %w", err)
	}
	return ids, nil
}

func (c *Client) ContentPostIDs(ctx context.Context, contentID string) ([]string, error) {
	ids, err := c.Rdb.SMembers(ctx, c.contentKey(contentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("content %s posts: %w", contentID, err)
	}
	return ids, nil
}
