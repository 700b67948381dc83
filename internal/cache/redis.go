// Copyright 2026 The Permitd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides the result cache implementations: a Redis-backed
// cache shared across permission-server replicas and an in-process cache for
// single-node deployments. The decision TTL is a tunable staleness window,
// not a correctness guarantee for role-derived grants.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/permitd/permitd/internal/permission"
)

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache implements permission.ResultCache on Redis with JSON values
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed result cache and verifies the
// connection
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
	}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Get retrieves a cached decision, or nil on miss
func (c *RedisCache) Get(ctx context.Context, key permission.CacheKey) (*permission.CheckResult, error) {
	data, err := c.client.Get(ctx, key.String()).Result()
	if err == redis.Nil {
		return nil, nil // Cache miss
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var result permission.CheckResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		// Corrupt entries are dropped rather than served
		c.client.Del(ctx, key.String())
		return nil, fmt.Errorf("failed to unmarshal check result: %w", err)
	}

	return &result, nil
}

// Put stores a decision for the configured TTL
func (c *RedisCache) Put(ctx context.Context, key permission.CacheKey, result *permission.CheckResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal check result: %w", err)
	}

	if err := c.client.Set(ctx, key.String(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate evicts the exact key
func (c *RedisCache) Invalidate(ctx context.Context, key permission.CacheKey) error {
	if err := c.client.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
