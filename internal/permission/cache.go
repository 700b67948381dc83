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

package permission

import (
	"context"
	"fmt"
)

// CacheKey identifies one cached check decision. Entries are keyed per
// principal, so revoking a role grant only evicts the exact key written by
// the revoke; users holding that role may observe the old decision for up
// to the cache TTL.
type CacheKey struct {
	TenantID       *string
	PrincipalKey   string
	PermissionName string
}

// String renders the key in a stable wire form
func (k CacheKey) String() string {
	tenant := "host"
	if k.TenantID != nil {
		tenant = *k.TenantID
	}
	return fmt.Sprintf("permcheck:%s:%s:%s", tenant, k.PrincipalKey, k.PermissionName)
}

// ResultCache memoizes check decisions with a fixed TTL. A miss is
// (nil, nil); implementations must support concurrent per-key access.
type ResultCache interface {
	// Get retrieves a cached decision, or nil on miss
	Get(ctx context.Context, key CacheKey) (*CheckResult, error)

	// Put stores a decision for the implementation's TTL
	Put(ctx context.Context, key CacheKey, result *CheckResult) error

	// Invalidate evicts the exact key
	Invalidate(ctx context.Context, key CacheKey) error
}
