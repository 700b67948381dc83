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

// Catalog manages permission definitions. Entries are seeded or created by
// admin tooling and rarely change; deletion is logical so historical grants
// keep a valid referent.
type Catalog struct {
	repo        CatalogRepository
	auditLogger audit.Logger
}

// NewCatalog creates a new catalog service
func NewCatalog(repo CatalogRepository, auditLogger audit.Logger) *Catalog {
	return &Catalog{
		repo:        repo,
		auditLogger: auditLogger,
	}
}

// Create registers a new permission definition
func (c *Catalog) Create(ctx context.Context, name, displayName, groupName string, parentID *string) (*Permission, error) {
	_, err := c.repo.GetByName(ctx, name)
	if err == nil {
		return nil, ErrPermissionExists
	}
	if !errors.Is(err, ErrPermissionNotFound) {
		return nil, fmt.Errorf("failed to check existing permission: %w", err)
	}

	now := time.Now()
	p := &Permission{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Name:        name,
		DisplayName: displayName,
		GroupName:   groupName,
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := c.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}

	slog.InfoContext(ctx, "permission created", logger.PermissionName(p.Name))
	c.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionCreated,
		Resource: p.Name,
		Metadata: map[string]any{"group_name": groupName},
	})

	return p, nil
}

// GetByID retrieves a permission with its children
func (c *Catalog) GetByID(ctx context.Context, id string) (*Permission, error) {
	return c.repo.GetByID(ctx, id)
}

// GetByName retrieves a permission by its unique name
func (c *Catalog) GetByName(ctx context.Context, name string) (*Permission, error) {
	return c.repo.GetByName(ctx, name)
}

// ListRoots retrieves root permissions with their children, for display
func (c *Catalog) ListRoots(ctx context.Context) ([]*Permission, error) {
	return c.repo.ListRoots(ctx)
}

// ListByGroup retrieves permissions in a display group
func (c *Catalog) ListByGroup(ctx context.Context, groupName string) ([]*Permission, error) {
	return c.repo.ListByGroup(ctx, groupName)
}

// Search retrieves a page of permissions matching the params, and the total
// match count
func (c *Catalog) Search(ctx context.Context, params SearchParams) ([]*Permission, int, error) {
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	return c.repo.Search(ctx, params)
}

// Delete soft-deletes a permission definition
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "permission deleted", slog.String("permission_id", id))
	c.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionDeleted,
		Resource: id,
	})

	return nil
}
