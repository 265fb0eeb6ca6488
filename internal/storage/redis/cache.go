package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seatguard/seatguard/internal/core"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{
			Addr: redisURL,
		}
	}

	client := redis.NewClient(opt)

	return &Client{client}
}

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Set(ctx, key, data, expiration).Err()
}

func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// CacheSeatCounts mirrors the recalculated per-role tallies for fast
// reporting reads.
func (c *Client) CacheSeatCounts(ctx context.Context, tenantID string, counts core.SeatCounts) error {
	key := fmt.Sprintf("seats:counts:%s", tenantID)
	return c.SetJSON(ctx, key, counts, 5*time.Minute)
}

func (c *Client) GetCachedSeatCounts(ctx context.Context, tenantID string) (*core.SeatCounts, error) {
	key := fmt.Sprintf("seats:counts:%s", tenantID)
	var counts core.SeatCounts
	if err := c.GetJSON(ctx, key, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

func (c *Client) CacheStats(ctx context.Context, tenantID string, windowDays int, stats *core.EventStats) error {
	key := fmt.Sprintf("seats:stats:%s:%d", tenantID, windowDays)
	return c.SetJSON(ctx, key, stats, time.Minute)
}

func (c *Client) GetCachedStats(ctx context.Context, tenantID string, windowDays int) (*core.EventStats, error) {
	key := fmt.Sprintf("seats:stats:%s:%d", tenantID, windowDays)
	var stats core.EventStats
	if err := c.GetJSON(ctx, key, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
