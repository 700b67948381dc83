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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/permitd/permitd/internal/permission"
)

// PermissionRepository implements permission.CatalogRepository
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new catalog repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

const permissionColumns = `id, name, display_name, group_name, parent_id, created_at, updated_at, deleted_at`

// Create creates a new permission definition
func (r *PermissionRepository) Create(ctx context.Context, p *permission.Permission) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permissions (
			id, name, display_name, group_name, parent_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		p.ID, p.Name, p.DisplayName, p.GroupName, p.ParentID,
		p.CreatedAt, p.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return permission.ErrPermissionExists
		}
		return fmt.Errorf("failed to create permission: %w", err)
	}

	return nil
}

// GetByID retrieves a permission by ID with its children
func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*permission.Permission, error) {
	return r.getOne(ctx, `WHERE id = $1 AND deleted_at IS NULL`, id)
}

// GetByName retrieves a permission by its unique name with its children
func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*permission.Permission, error) {
	return r.getOne(ctx, `WHERE name = $1 AND deleted_at IS NULL`, name)
}

func (r *PermissionRepository) getOne(ctx context.Context, where string, arg any) (*permission.Permission, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions
	`+where, arg)

	p, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, permission.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	children, err := r.children(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Children = children

	return p, nil
}

// ListRoots retrieves root permissions with their children, ordered for
// display
func (r *PermissionRepository) ListRoots(ctx context.Context) ([]*permission.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions
		WHERE parent_id IS NULL AND deleted_at IS NULL
		ORDER BY group_name, display_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	roots, err := scanPermissions(rows)
	if err != nil {
		return nil, err
	}

	for _, p := range roots {
		children, err := r.children(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.Children = children
	}

	return roots, nil
}

// ListByGroup retrieves permissions in a display group
func (r *PermissionRepository) ListByGroup(ctx context.Context, groupName string) ([]*permission.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions
		WHERE group_name = $1 AND deleted_at IS NULL
		ORDER BY display_name
	`, groupName)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions by group: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

// Search retrieves a page of permissions matching the params and the total
// match count
func (r *PermissionRepository) Search(ctx context.Context, params permission.SearchParams) ([]*permission.Permission, int, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}

	if params.Term != "" {
		args = append(args, "%"+strings.ToLower(params.Term)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(display_name) LIKE $%d)", n, n))
	}
	if params.GroupName != "" {
		args = append(args, params.GroupName)
		where = append(where, fmt.Sprintf("group_name = $%d", len(args)))
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM permissions WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count permissions: %w", err)
	}

	args = append(args, params.PageSize, params.Offset())
	rows, err := r.db.pool.Query(ctx, fmt.Sprintf(`
		SELECT `+permissionColumns+`
		FROM permissions
		WHERE `+clause+`
		ORDER BY group_name, display_name
		LIMIT $%d OFFSET $%d
	`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search permissions: %w", err)
	}
	defer rows.Close()

	perms, err := scanPermissions(rows)
	if err != nil {
		return nil, 0, err
	}

	return perms, total, nil
}

// Delete soft-deletes a permission
func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE permissions SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	if result.RowsAffected() == 0 {
		return permission.ErrPermissionNotFound
	}

	return nil
}

func (r *PermissionRepository) children(ctx context.Context, parentID string) ([]*permission.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions
		WHERE parent_id = $1 AND deleted_at IS NULL
		ORDER BY display_name
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermission(row rowScanner) (*permission.Permission, error) {
	var p permission.Permission
	var parentID sql.NullString
	var deletedAt sql.NullTime

	if err := row.Scan(
		&p.ID, &p.Name, &p.DisplayName, &p.GroupName, &parentID,
		&p.CreatedAt, &p.UpdatedAt, &deletedAt,
	); err != nil {
		return nil, err
	}

	if parentID.Valid {
		p.ParentID = &parentID.String
	}
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Time
	}

	return &p, nil
}

func scanPermissions(rows pgx.Rows) ([]*permission.Permission, error) {
	var perms []*permission.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
