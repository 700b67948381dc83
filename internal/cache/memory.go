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

package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/permitd/permitd/internal/permission"
)

// MemoryCache implements permission.ResultCache on an expirable LRU. It is
// scoped to the process, so it only fits single-replica deployments; use the
// Redis cache when permission-server is scaled out.
type MemoryCache struct {
	lru *expirable.LRU[string, permission.CheckResult]
}

// NewMemoryCache creates an in-process result cache holding up to size
// entries with the given TTL
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 10000
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, permission.CheckResult](size, nil, ttl),
	}
}

// Get retrieves a cached decision, or nil on miss
func (c *MemoryCache) Get(_ context.Context, key permission.CacheKey) (*permission.CheckResult, error) {
	result, ok := c.lru.Get(key.String())
	if !ok {
		return nil, nil
	}
	return &result, nil
}

// Put stores a decision
func (c *MemoryCache) Put(_ context.Context, key permission.CacheKey, result *permission.CheckResult) error {
	c.lru.Add(key.String(), *result)
	return nil
}

// Invalidate evicts the exact key
func (c *MemoryCache) Invalidate(_ context.Context, key permission.CacheKey) error {
	c.lru.Remove(key.String())
	return nil
}
