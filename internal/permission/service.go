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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/permitd/permitd/internal/audit"
	"github.com/permitd/permitd/internal/observability/logger"
)

// Service is the boundary exposed to other services. It wraps the resolver
// and the result cache behind the fail-closed contract: Check converts any
// downstream failure into a denial, while Grant and Revoke keep NotFound and
// duplicate outcomes distinguishable because those are caller mistakes, not
// authorization failures.
type Service struct {
	catalog     CatalogRepository
	grants      GrantRepository
	resolver    *Resolver
	cache       ResultCache
	auditLogger audit.Logger
}

// NewService creates a new permission service
func NewService(
	catalog CatalogRepository,
	grants GrantRepository,
	resolver *Resolver,
	cache ResultCache,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		catalog:     catalog,
		grants:      grants,
		resolver:    resolver,
		cache:       cache,
		auditLogger: auditLogger,
	}
}

// Check decides whether userID holds permissionName within the tenant scope.
// The cache is consulted first; on a miss the resolver runs and the decision
// is cached. This method never returns an error: a store or collaborator
// failure is logged at error level and reported as not granted.
func (s *Service) Check(ctx context.Context, userID, permissionName string, tenantID *string) *CheckResult {
	key := CacheKey{TenantID: tenantID, PrincipalKey: userID, PermissionName: permissionName}

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to a resolver round-trip.
		slog.WarnContext(ctx, "result cache read failed", logger.Error(err), logger.PermissionName(permissionName))
	} else if cached != nil {
		slog.DebugContext(ctx, "permission check served from cache",
			logger.UserID(userID), logger.PermissionName(permissionName))
		return cached
	}

	result, err := s.resolver.Resolve(ctx, userID, permissionName, tenantID)
	if err != nil {
		slog.ErrorContext(ctx, "permission check failed closed",
			logger.Error(err), logger.UserID(userID), logger.PermissionName(permissionName))
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeCheckFailedClosed,
			TenantID: derefTenant(tenantID),
			ActorID:  userID,
			Resource: permissionName,
			Metadata: map[string]any{"error": err.Error()},
		})
		return &CheckResult{IsGranted: false, PermissionName: permissionName}
	}

	if err := s.cache.Put(ctx, key, result); err != nil {
		slog.WarnContext(ctx, "result cache write failed", logger.Error(err), logger.PermissionName(permissionName))
	}

	if !result.IsGranted {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeCheckDenied,
			TenantID: derefTenant(tenantID),
			ActorID:  userID,
			Resource: permissionName,
		})
	}

	return result
}

// Grant records a grant fact. It returns (false, nil) when the identical
// grant already exists, ErrPermissionNotFound when the permission name is
// not in the catalog, and invalidates the cached decision for the affected
// key before reporting success.
func (s *Service) Grant(ctx context.Context, permissionName string, provider Provider, providerKey string, tenantID *string) (bool, error) {
	if _, err := s.catalog.GetByName(ctx, permissionName); err != nil {
		if errors.Is(err, ErrPermissionNotFound) {
			return false, ErrPermissionNotFound
		}
		return false, fmt.Errorf("failed to verify permission: %w", err)
	}

	grant := &Grant{
		ID:             uuid.Must(uuid.NewV7()).String(),
		TenantID:       tenantID,
		PermissionName: permissionName,
		Provider:       provider,
		ProviderKey:    providerKey,
		CreatedAt:      time.Now(),
	}

	if err := s.grants.Insert(ctx, grant); err != nil {
		if errors.Is(err, ErrAlreadyGranted) {
			slog.WarnContext(ctx, "permission already granted",
				logger.PermissionName(permissionName), logger.Provider(string(provider)), logger.ProviderKey(providerKey))
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeGrantDuplicate,
				TenantID: derefTenant(tenantID),
				ActorID:  providerKey,
				Resource: permissionName,
			})
			return false, nil
		}
		return false, fmt.Errorf("failed to insert grant: %w", err)
	}

	// Write-then-invalidate: the stale cached decision must be gone before
	// this operation reports success.
	key := CacheKey{TenantID: tenantID, PrincipalKey: providerKey, PermissionName: permissionName}
	if err := s.cache.Invalidate(ctx, key); err != nil {
		return false, fmt.Errorf("grant persisted but cache invalidation failed: %w", err)
	}

	slog.InfoContext(ctx, "permission granted",
		logger.PermissionName(permissionName), logger.Provider(string(provider)), logger.ProviderKey(providerKey))
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionGranted,
		TenantID: derefTenant(tenantID),
		ActorID:  providerKey,
		Resource: permissionName,
		Metadata: map[string]any{"provider": string(provider)},
	})

	return true, nil
}

// Revoke tombstones a grant fact. It returns (false, nil) when no matching
// grant exists and invalidates the cached decision for the affected key
// before reporting success. Revoking a role grant only evicts the exact
// per-role key; users holding the role may see the old decision for up to
// the cache TTL.
func (s *Service) Revoke(ctx context.Context, permissionName string, provider Provider, providerKey string, tenantID *string) (bool, error) {
	err := s.grants.SoftDelete(ctx, tenantID, permissionName, provider, providerKey)
	if err != nil {
		if errors.Is(err, ErrGrantNotFound) {
			slog.WarnContext(ctx, "grant not found for revoke",
				logger.PermissionName(permissionName), logger.Provider(string(provider)), logger.ProviderKey(providerKey))
			return false, nil
		}
		return false, fmt.Errorf("failed to delete grant: %w", err)
	}

	key := CacheKey{TenantID: tenantID, PrincipalKey: providerKey, PermissionName: permissionName}
	if err := s.cache.Invalidate(ctx, key); err != nil {
		return false, fmt.Errorf("revoke persisted but cache invalidation failed: %w", err)
	}

	slog.InfoContext(ctx, "permission revoked",
		logger.PermissionName(permissionName), logger.Provider(string(provider)), logger.ProviderKey(providerKey))
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionRevoked,
		TenantID: derefTenant(tenantID),
		ActorID:  providerKey,
		Resource: permissionName,
		Metadata: map[string]any{"provider": string(provider)},
	})

	return true, nil
}

// ListUserPermissions retrieves the active grants held directly by a user.
// A nil tenantID lists grants across all tenants.
func (s *Service) ListUserPermissions(ctx context.Context, userID string, tenantID *string) ([]*Grant, error) {
	grants, err := s.grants.ListForProvider(ctx, ProviderUser, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user grants: %w", err)
	}
	return grants, nil
}

// ListRolePermissions retrieves the active grants attached to a role.
// A nil tenantID lists grants across all tenants.
func (s *Service) ListRolePermissions(ctx context.Context, roleID string, tenantID *string) ([]*Grant, error) {
	grants, err := s.grants.ListForProvider(ctx, ProviderRole, roleID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role grants: %w", err)
	}
	return grants, nil
}

func derefTenant(tenantID *string) string {
	if tenantID == nil {
		return ""
	}
	return *tenantID
}
