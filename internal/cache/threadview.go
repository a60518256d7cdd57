package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ThreadViewPrefix is the key prefix for per-user collapsed-thread sets
	ThreadViewPrefix = "threadview:"

	// ThreadViewTTL is the TTL for collapsed state (30 days)
	ThreadViewTTL = 30 * 24 * time.Hour
)

// ThreadViewCache persists which comment threads a user has collapsed on a
// course page, so the state survives page reloads. The rest of the view
// state (open composer, open menu, pending deletes) is session-local and
// never stored.
type ThreadViewCache interface {
	// SetCollapsed stores whether a single thread is collapsed.
	SetCollapsed(ctx context.Context, userID, courseID, commentID int64, collapsed bool) error

	// GetCollapsed returns the set of collapsed comment IDs for a course.
	// Returns (ids, found, error); found=false means the user has no saved
	// state for this course and the default seeding applies.
	GetCollapsed(ctx context.Context, userID, courseID int64) ([]int64, bool, error)

	// SaveCollapsed replaces the stored set wholesale. Used to persist the
	// seeded default the first time a user opens a course page.
	SaveCollapsed(ctx context.Context, userID, courseID int64, commentIDs []int64) error

	// Remove drops IDs from the stored set, e.g. after a cascade delete.
	Remove(ctx context.Context, userID, courseID int64, commentIDs []int64) error
}

// RedisThreadViewCache implements ThreadViewCache using Redis Sets.
type RedisThreadViewCache struct {
	client *redis.Client
}

// NewThreadViewCache creates a ThreadViewCache backed by Redis.
func NewThreadViewCache(client *redis.Client) ThreadViewCache {
	return &RedisThreadViewCache{client: client}
}

// threadViewKey returns the Redis key for a user's collapsed set on a course.
func threadViewKey(userID, courseID int64) string {
	return fmt.Sprintf("%suser:%d:course:%d", ThreadViewPrefix, userID, courseID)
}

func (c *RedisThreadViewCache) SetCollapsed(ctx context.Context, userID, courseID, commentID int64, collapsed bool) error {
	key := threadViewKey(userID, courseID)
	member := strconv.FormatInt(commentID, 10)

	pipe := c.client.Pipeline()
	if collapsed {
		pipe.SAdd(ctx, key, member)
	} else {
		pipe.SRem(ctx, key, member)
	}
	pipe.Expire(ctx, key, ThreadViewTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[ThreadViewCache] SetCollapsed FAILED: user=%d course=%d comment=%d err=%v",
			userID, courseID, commentID, err)
		return fmt.Errorf("set collapsed: %w", err)
	}

	log.Printf("[ThreadViewCache] SetCollapsed OK: user=%d course=%d comment=%d collapsed=%t",
		userID, courseID, commentID, collapsed)
	return nil
}

func (c *RedisThreadViewCache) GetCollapsed(ctx context.Context, userID, courseID int64) ([]int64, bool, error) {
	key := threadViewKey(userID, courseID)

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		log.Printf("[ThreadViewCache] GetCollapsed FAILED: user=%d course=%d err=%v", userID, courseID, err)
		return nil, false, fmt.Errorf("check collapsed exists: %w", err)
	}
	if exists == 0 {
		return nil, false, nil
	}

	members, err := c.client.SMembers(ctx, key).Result()
	if err != nil {
		log.Printf("[ThreadViewCache] GetCollapsed FAILED: user=%d course=%d err=%v", userID, courseID, err)
		return nil, false, fmt.Errorf("get collapsed: %w", err)
	}

	// Refresh TTL on access
	c.client.Expire(ctx, key, ThreadViewTTL)

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			log.Printf("[ThreadViewCache] GetCollapsed parse error: member=%q err=%v", m, err)
			return nil, false, fmt.Errorf("parse comment id: %w", err)
		}
		ids = append(ids, id)
	}

	log.Printf("[ThreadViewCache] GetCollapsed OK: user=%d course=%d count=%d", userID, courseID, len(ids))
	return ids, true, nil
}

func (c *RedisThreadViewCache) SaveCollapsed(ctx context.Context, userID, courseID int64, commentIDs []int64) error {
	key := threadViewKey(userID, courseID)

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	if len(commentIDs) > 0 {
		members := make([]interface{}, len(commentIDs))
		for i, id := range commentIDs {
			members[i] = strconv.FormatInt(id, 10)
		}
		pipe.SAdd(ctx, key, members...)
	}
	pipe.Expire(ctx, key, ThreadViewTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[ThreadViewCache] SaveCollapsed FAILED: user=%d course=%d err=%v", userID, courseID, err)
		return fmt.Errorf("save collapsed: %w", err)
	}

	log.Printf("[ThreadViewCache] SaveCollapsed OK: user=%d course=%d count=%d", userID, courseID, len(commentIDs))
	return nil
}

func (c *RedisThreadViewCache) Remove(ctx context.Context, userID, courseID int64, commentIDs []int64) error {
	if len(commentIDs) == 0 {
		return nil
	}
	key := threadViewKey(userID, courseID)

	members := make([]interface{}, len(commentIDs))
	for i, id := range commentIDs {
		members[i] = strconv.FormatInt(id, 10)
	}

	removed, err := c.client.SRem(ctx, key, members...).Result()
	if err != nil {
		log.Printf("[ThreadViewCache] Remove FAILED: user=%d course=%d err=%v", userID, courseID, err)
		return fmt.Errorf("remove collapsed: %w", err)
	}

	log.Printf("[ThreadViewCache] Remove OK: user=%d course=%d removed=%d", userID, courseID, removed)
	return nil
}
