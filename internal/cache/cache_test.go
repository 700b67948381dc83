package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/permitd/permitd/internal/permission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedisCache(RedisConfig{
		Addr: mr.Addr(),
		TTL:  ttl,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

// TestPurpose: Validates the Redis-backed result cache round trip for both
// tenant-scoped and host-level keys.
// Scope: Unit Test (miniredis)
// Expected: A stored decision is returned on Get; a never-written key is a
// miss (nil, nil) rather than an error.
// Test Case ID: CSH-01
func TestCache_Redis_PutGet(t *testing.T) {
	c, _ := newRedisCache(t, 15*time.Minute)
	ctx := context.Background()

	key := permission.CacheKey{
		TenantID:       strPtr("tenant-1"),
		PrincipalKey:   "user-1",
		PermissionName: "Orders.Create",
	}
	want := &permission.CheckResult{
		IsGranted:      true,
		PermissionName: "Orders.Create",
		GrantedBy:      permission.ProviderUser,
	}

	require.NoError(t, c.Put(ctx, key, want))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Host-level key is distinct from the tenant-scoped one
	hostKey := permission.CacheKey{PrincipalKey: "user-1", PermissionName: "Orders.Create"}
	miss, err := c.Get(ctx, hostKey)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

// TestPurpose: Validates that Invalidate evicts exactly the written key so a
// check immediately after revoke cannot observe the stale decision.
// Scope: Unit Test (miniredis)
// Expected: Get returns a miss after Invalidate; an unrelated key survives.
// Test Case ID: CSH-02
func TestCache_Redis_Invalidate(t *testing.T) {
	c, _ := newRedisCache(t, 15*time.Minute)
	ctx := context.Background()

	key := permission.CacheKey{PrincipalKey: "user-1", PermissionName: "Orders.Create"}
	other := permission.CacheKey{PrincipalKey: "user-2", PermissionName: "Orders.Create"}

	require.NoError(t, c.Put(ctx, key, &permission.CheckResult{IsGranted: true, PermissionName: "Orders.Create", GrantedBy: permission.ProviderUser}))
	require.NoError(t, c.Put(ctx, other, &permission.CheckResult{IsGranted: false, PermissionName: "Orders.Create"}))

	require.NoError(t, c.Invalidate(ctx, key))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	kept, err := c.Get(ctx, other)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.False(t, kept.IsGranted)
}

// TestPurpose: Validates that entries expire after the configured TTL.
// Scope: Unit Test (miniredis clock)
// Expected: After FastForward past the TTL the entry is a miss.
// Test Case ID: CSH-03
func TestCache_Redis_TTLExpiry(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	key := permission.CacheKey{PrincipalKey: "user-1", PermissionName: "Products.Edit"}
	require.NoError(t, c.Put(ctx, key, &permission.CheckResult{IsGranted: true, PermissionName: "Products.Edit", GrantedBy: permission.ProviderRole}))

	mr.FastForward(2 * time.Minute)

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// TestPurpose: Validates that corrupt cache payloads are dropped, not served.
// Scope: Unit Test (miniredis)
// Expected: Get returns an error and the entry is deleted.
// Test Case ID: CSH-04
func TestCache_Redis_CorruptEntry(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	key := permission.CacheKey{PrincipalKey: "user-1", PermissionName: "Orders.Create"}
	require.NoError(t, mr.Set(key.String(), "{not-json"))

	_, err := c.Get(ctx, key)
	assert.Error(t, err)
	assert.False(t, mr.Exists(key.String()))
}

// TestPurpose: Validates the in-process cache used by single-node deployments.
// Scope: Unit Test
// Expected: Put/Get round trip works and Invalidate evicts the exact key.
// Test Case ID: CSH-05
func TestCache_Memory_PutGetInvalidate(t *testing.T) {
	c := NewMemoryCache(16, time.Minute)
	ctx := context.Background()

	key := permission.CacheKey{TenantID: strPtr("tenant-1"), PrincipalKey: "user-1", PermissionName: "Orders.Create"}
	want := &permission.CheckResult{IsGranted: true, PermissionName: "Orders.Create", GrantedBy: permission.ProviderUser}

	require.NoError(t, c.Put(ctx, key, want))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, c.Invalidate(ctx, key))

	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}
