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
	"github.com/permitd/permitd/internal/order"
)

// OrderRepository implements order.Repository
type OrderRepository struct {
	db *DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists an order and its items in one transaction
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, user_id, tenant_id, shipping_address, status, total_amount, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		o.ID, o.UserID, o.TenantID, o.ShippingAddress, string(o.Status), o.TotalAmount(), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

// GetByID retrieves an order with its items
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT id, user_id, tenant_id, shipping_address, status, created_at
		FROM orders
		WHERE id = $1
	`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.items(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

// ListForUser retrieves a user's orders, newest first
func (r *OrderRepository) ListForUser(ctx context.Context, userID string, tenantID *string) ([]*order.Order, error) {
	query := `
		SELECT id, user_id, tenant_id, shipping_address, status, created_at
		FROM orders
		WHERE user_id = $1
	`
	args := []any{userID}

	if tenantID != nil {
		query += ` AND tenant_id = $2`
		args = append(args, *tenantID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		items, err := r.items(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items
	}

	return orders, nil
}

func (r *OrderRepository) items(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var item order.Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	var tenantID sql.NullString
	var status string

	if err := row.Scan(&o.ID, &o.UserID, &tenantID, &o.ShippingAddress, &status, &o.CreatedAt); err != nil {
		return nil, err
	}

	if tenantID.Valid {
		o.TenantID = &tenantID.String
	}
	o.Status = order.Status(status)

	return &o, nil
}
