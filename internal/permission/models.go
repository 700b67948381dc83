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
	"time"
)

// Domain errors
var (
	ErrPermissionNotFound = errors.New("permission not found")
	ErrPermissionExists   = errors.New("permission already exists")
	ErrGrantNotFound      = errors.New("grant not found")
	ErrAlreadyGranted     = errors.New("permission already granted")
	ErrInvalidProvider    = errors.New("invalid grant provider")
)

// Provider identifies the kind of principal a grant is attached to.
// The wire format uses the two string literals "User" and "Role".
type Provider string

const (
	ProviderUser Provider = "User"
	ProviderRole Provider = "Role"
)

// ParseProvider validates a wire-format provider name.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderUser, ProviderRole:
		return Provider(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidProvider, s)
	}
}

// Permission is a catalog entry. The ParentID tree exists for display
// grouping only: granting a parent does not grant its children.
type Permission struct {
	ID          string
	Name        string
	DisplayName string
	GroupName   string
	ParentID    *string
	Children    []*Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Grant is a persisted fact: permission Name is granted to Provider:ProviderKey,
// optionally scoped to a tenant. A nil TenantID means a host-level grant.
// Grants are never mutated in place; a scope change is revoke-then-grant.
type Grant struct {
	ID             string
	TenantID       *string
	PermissionName string
	Provider       Provider
	ProviderKey    string
	CreatedAt      time.Time
	DeletedAt      *time.Time
}

// CheckResult is the outcome of a permission check. It is cached with a TTL
// but never persisted; the grant store remains the system of record.
type CheckResult struct {
	IsGranted      bool     `json:"is_granted"`
	PermissionName string   `json:"permission_name"`
	GrantedBy      Provider `json:"granted_by,omitempty"`
}

// CatalogRepository defines persistence for catalog entries
type CatalogRepository interface {
	// Create creates a new permission definition
	Create(ctx context.Context, p *Permission) error

	// GetByID retrieves a permission by ID, children included
	GetByID(ctx context.Context, id string) (*Permission, error)

	// GetByName retrieves a permission by its unique name
	GetByName(ctx context.Context, name string) (*Permission, error)

	// ListRoots retrieves root permissions with their children
	ListRoots(ctx context.Context) ([]*Permission, error)

	// ListByGroup retrieves permissions in a display group
	ListByGroup(ctx context.Context, groupName string) ([]*Permission, error)

	// Search retrieves permissions matching a term and/or group, paged
	Search(ctx context.Context, params SearchParams) ([]*Permission, int, error)

	// Delete soft-deletes a permission
	Delete(ctx context.Context, id string) error
}

// SearchParams filters catalog searches
type SearchParams struct {
	Term      string
	GroupName string
	Page      int
	PageSize  int
}

// Offset returns the row offset for the page
func (p SearchParams) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.PageSize
}

// GrantRepository defines persistence for grant facts
type GrantRepository interface {
	// Find retrieves the active grant for the exact key tuple, or
	// ErrGrantNotFound. Tenant matching is exact: a nil tenantID matches
	// only host-level rows.
	Find(ctx context.Context, tenantID *string, permissionName string, provider Provider, providerKey string) (*Grant, error)

	// Insert persists a new grant. A duplicate of an active grant returns
	// ErrAlreadyGranted; the store's uniqueness constraint is the authority
	// under concurrent inserts.
	Insert(ctx context.Context, g *Grant) error

	// SoftDelete tombstones the active grant for the key tuple, or returns
	// ErrGrantNotFound
	SoftDelete(ctx context.Context, tenantID *string, permissionName string, provider Provider, providerKey string) error

	// ListForProvider retrieves active grants for a provider ordered by
	// permission name. A nil tenantID lists grants across all tenants;
	// this path serves audit/listing, not the hot check path.
	ListForProvider(ctx context.Context, provider Provider, providerKey string, tenantID *string) ([]*Grant, error)
}

// RoleDirectory is the external role-membership collaborator.
type RoleDirectory interface {
	// GetUserRoles returns the role IDs held by a user within a tenant scope
	GetUserRoles(ctx context.Context, userID string, tenantID *string) ([]string, error)
}
