package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Kaiser2484/bida-booking/services/table-service/internal/domain"
)

// ListingCache keeps table listings in redis for a short window. Entries are
// best-effort: any redis error on read degrades to a database hit.
type ListingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewListingCache(rdb *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{rdb: rdb, ttl: ttl}
}

// Key maps the (club, status) filter pair onto a cache key. Empty filters
// collapse to "all" so the unfiltered listing has a stable key.
func Key(clubID string, status domain.TableStatus) string {
	c, s := clubID, string(status)
	if c == "" {
		c = "all"
	}
	if s == "" {
		s = "all"
	}
	return fmt.Sprintf("tables:%s:%s", c, s)
}

func (c *ListingCache) Get(ctx context.Context, key string) ([]domain.TableInfo, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rows []domain.TableInfo
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (c *ListingCache) Set(ctx context.Context, key string, rows []domain.TableInfo) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate drops every listing entry that could contain the given club's
// tables: the club's own keys plus the unfiltered "all" keys.
func (c *ListingCache) Invalidate(ctx context.Context, clubID string) error {
	patterns := []string{"tables:all:*"}
	if clubID != "" {
		patterns = append(patterns, "tables:"+clubID+":*")
	}
	for _, pattern := range patterns {
		if err := c.deleteMatching(ctx, pattern); err != nil {
			return err
		}
	}
	return nil
}

func (c *ListingCache) deleteMatching(ctx context.Context, pattern string) error {
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
