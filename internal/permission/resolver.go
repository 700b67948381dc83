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
)

// Resolver decides whether a permission is granted to a user, and by which
// path. It is independent of caching and transport; infrastructure failures
// propagate as errors and are never reported as a negative result.
type Resolver struct {
	grants GrantRepository
	roles  RoleDirectory
}

// NewResolver creates a new resolver
func NewResolver(grants GrantRepository, roles RoleDirectory) *Resolver {
	return &Resolver{
		grants: grants,
		roles:  roles,
	}
}

// Resolve checks a (user, permission, tenant) triple. The direct user grant
// is consulted first; role grants only when no direct grant exists. Tenant
// scoping is exact-match: a nil tenantID checks host-level grants only, with
// no fallback across tenants.
func (r *Resolver) Resolve(ctx context.Context, userID, permissionName string, tenantID *string) (*CheckResult, error) {
	// 1. Direct user grant. Cheapest path, no collaborator round-trip, and
	// an explicit user grant takes precedence over any role-derived one.
	_, err := r.grants.Find(ctx, tenantID, permissionName, ProviderUser, userID)
	if err == nil {
		return &CheckResult{
			IsGranted:      true,
			PermissionName: permissionName,
			GrantedBy:      ProviderUser,
		}, nil
	}
	if !errors.Is(err, ErrGrantNotFound) {
		return nil, fmt.Errorf("failed to look up user grant: %w", err)
	}

	// 2. Role-derived grant. Any granting role suffices; there is no
	// priority among roles.
	roleIDs, err := r.roles.GetUserRoles(ctx, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	for _, roleID := range roleIDs {
		_, err := r.grants.Find(ctx, tenantID, permissionName, ProviderRole, roleID)
		if err == nil {
			return &CheckResult{
				IsGranted:      true,
				PermissionName: permissionName,
				GrantedBy:      ProviderRole,
			}, nil
		}
		if !errors.Is(err, ErrGrantNotFound) {
			return nil, fmt.Errorf("failed to look up role grant: %w", err)
		}
	}

	// 3. No grant found on either path.
	return &CheckResult{
		IsGranted:      false,
		PermissionName: permissionName,
	}, nil
}
