// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package cache keeps recently computed tallies in Redis so repeated
// results requests do not rescan the vote table.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/campus-ballot/models"
)

const tallyPrefix = "tally:"

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// TallyCache stores tallies as JSON under one key per scope. Entries
// expire after ttl, so a missed invalidation heals itself.
type TallyCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTallyCache(rdb *redis.Client, ttl time.Duration) *TallyCache {
	return &TallyCache{rdb: rdb, ttl: ttl}
}

func key(scope models.Scope) string {
	return tallyPrefix + scope.Key()
}

func (c *TallyCache) Get(ctx context.Context, scope models.Scope) (models.Tally, bool, error) {
	b, err := c.rdb.Get(ctx, key(scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Tally{}, false, nil
	}
	if err != nil {
		return models.Tally{}, false, fmt.Errorf("redis get: %w", err)
	}

	var t models.Tally
	if err := json.Unmarshal(b, &t); err != nil {
		return models.Tally{}, false, fmt.Errorf("decode cached tally: %w", err)
	}
	return t, true, nil
}

func (c *TallyCache) Set(ctx context.Context, t models.Tally) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tally: %w", err)
	}
	if err := c.rdb.Set(ctx, key(t.Scope), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *TallyCache) Invalidate(ctx context.Context, scope models.Scope) error {
	if err := c.rdb.Del(ctx, key(scope)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
