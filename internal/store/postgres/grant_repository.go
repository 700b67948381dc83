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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/permitd/permitd/internal/permission"
)

// GrantRepository implements permission.GrantRepository
type GrantRepository struct {
	db *DB
}

// NewGrantRepository creates a new grant repository
func NewGrantRepository(db *DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Find retrieves the active grant for the exact key tuple. Tenant matching
// uses IS NOT DISTINCT FROM so a nil tenant matches only host-level rows.
func (r *GrantRepository) Find(ctx context.Context, tenantID *string, permissionName string, provider permission.Provider, providerKey string) (*permission.Grant, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, permission_name, provider_name, provider_key, created_at, deleted_at
		FROM permission_grants
		WHERE tenant_id IS NOT DISTINCT FROM $1
		  AND permission_name = $2
		  AND provider_name = $3
		  AND provider_key = $4
		  AND deleted_at IS NULL
	`, tenantID, permissionName, string(provider), providerKey)

	g, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, permission.ErrGrantNotFound
		}
		return nil, fmt.Errorf("failed to find grant: %w", err)
	}

	return g, nil
}

// Insert persists a new grant. The partial unique index over live rows is
// the authority under concurrent inserts: the loser observes
// ErrAlreadyGranted, never a duplicate row.
func (r *GrantRepository) Insert(ctx context.Context, g *permission.Grant) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permission_grants (
			id, tenant_id, permission_name, provider_name, provider_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`,
		g.ID, g.TenantID, g.PermissionName, string(g.Provider), g.ProviderKey, g.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return permission.ErrAlreadyGranted
		}
		return fmt.Errorf("failed to insert grant: %w", err)
	}

	return nil
}

// SoftDelete tombstones the active grant for the key tuple
func (r *GrantRepository) SoftDelete(ctx context.Context, tenantID *string, permissionName string, provider permission.Provider, providerKey string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE permission_grants SET deleted_at = now()
		WHERE tenant_id IS NOT DISTINCT FROM $1
		  AND permission_name = $2
		  AND provider_name = $3
		  AND provider_key = $4
		  AND deleted_at IS NULL
	`, tenantID, permissionName, string(provider), providerKey)

	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return permission.ErrGrantNotFound
	}

	return nil
}

// ListForProvider retrieves active grants for a provider ordered by
// permission name. A nil tenantID lists grants across all tenants.
func (r *GrantRepository) ListForProvider(ctx context.Context, provider permission.Provider, providerKey string, tenantID *string) ([]*permission.Grant, error) {
	query := `
		SELECT id, tenant_id, permission_name, provider_name, provider_key, created_at, deleted_at
		FROM permission_grants
		WHERE provider_name = $1 AND provider_key = $2 AND deleted_at IS NULL
	`
	args := []any{string(provider), providerKey}

	if tenantID != nil {
		query += ` AND tenant_id = $3`
		args = append(args, *tenantID)
	}
	query += ` ORDER BY permission_name`

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []*permission.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

func scanGrant(row rowScanner) (*permission.Grant, error) {
	var g permission.Grant
	var tenantID sql.NullString
	var providerName string
	var deletedAt sql.NullTime

	if err := row.Scan(
		&g.ID, &tenantID, &g.PermissionName, &providerName, &g.ProviderKey,
		&g.CreatedAt, &deletedAt,
	); err != nil {
		return nil, err
	}

	if tenantID.Valid {
		g.TenantID = &tenantID.String
	}
	if deletedAt.Valid {
		g.DeletedAt = &deletedAt.Time
	}
	g.Provider = permission.Provider(providerName)

	return &g, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
