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

package order

import (
	"context"
	"errors"
	"time"

	"github.com/permitd/permitd/internal/permission"
)

// Domain errors
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderInvalid  = errors.New("order validation failed")
	ErrNoItems       = errors.New("order has no items")
)

// PermissionCreateOrders guards order creation
const PermissionCreateOrders = "Orders.Create"

// Status of an order
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Order is a customer order accepted after validation
type Order struct {
	ID              string
	UserID          string
	TenantID        *string
	ShippingAddress string
	Status          Status
	Items           []Item
	CreatedAt       time.Time
}

// Item is one order line
type Item struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice float64
}

// TotalAmount sums the order lines
func (o *Order) TotalAmount() float64 {
	var total float64
	for _, item := range o.Items {
		total += float64(item.Quantity) * item.UnitPrice
	}
	return total
}

// ValidationResult aggregates the outcome of every check run for an order.
// Errors holds one human-readable reason per failed check, in check order;
// it never carries a raw downstream error or stack trace.
type ValidationResult struct {
	IsValid             bool     `json:"is_valid"`
	UserExists          bool     `json:"user_exists"`
	HasPermission       bool     `json:"has_permission"`
	ProductsAvailable   bool     `json:"products_available"`
	UnavailableProducts []string `json:"unavailable_products"`
	Errors              []string `json:"errors"`
}

// Repository defines order persistence
type Repository interface {
	// Create persists an order with its items
	Create(ctx context.Context, o *Order) error

	// GetByID retrieves an order with its items
	GetByID(ctx context.Context, id string) (*Order, error)

	// ListForUser retrieves a user's orders, newest first; a nil tenantID
	// lists across all tenants
	ListForUser(ctx context.Context, userID string, tenantID *string) ([]*Order, error)
}

// IdentityChecker is the identity collaborator consumed over the network
type IdentityChecker interface {
	// UserExists reports whether the user is known to the identity service
	UserExists(ctx context.Context, userID string) (bool, error)
}

// PermissionChecker is the permission service endpoint consumed over the
// network
type PermissionChecker interface {
	// Check asks the permission service for a decision
	Check(ctx context.Context, userID, permissionName string, tenantID *string) (*permission.CheckResult, error)
}

// StockChecker is the product collaborator consumed over the network
type StockChecker interface {
	// Available reports whether quantity units of the product are in stock
	Available(ctx context.Context, productID string, quantity int) (bool, error)
}
