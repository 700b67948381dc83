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
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/permitd/permitd/internal/audit"
	"github.com/permitd/permitd/internal/observability/logger"
)

// CreateOrderInput carries the caller's order request
type CreateOrderInput struct {
	UserID          string
	TenantID        *string
	ShippingAddress string
	Items           []ItemInput
}

// ItemInput is one requested order line
type ItemInput struct {
	ProductID string
	Quantity  int
	UnitPrice float64
}

// Service orchestrates order creation: it fans out the validation checks to
// the collaborating services and persists the order only when every check
// passes.
type Service struct {
	repo        Repository
	validator   *Validator
	auditLogger audit.Logger
}

// NewService creates a new order service
func NewService(repo Repository, validator *Validator, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		validator:   validator,
		auditLogger: auditLogger,
	}
}

// Validate runs the collaborator checks without creating anything
func (s *Service) Validate(ctx context.Context, userID string, tenantID *string, items []ItemInput) *ValidationResult {
	return s.validator.Validate(ctx, userID, tenantID, toItems(items))
}

// Create validates and persists an order. When validation fails it returns
// ErrOrderInvalid together with the result carrying one reason per failed
// check.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*Order, *ValidationResult, error) {
	if len(input.Items) == 0 {
		return nil, nil, ErrNoItems
	}

	items := toItems(input.Items)

	slog.InfoContext(ctx, "creating order",
		logger.UserID(input.UserID), slog.Int("item_count", len(items)))

	result := s.validator.Validate(ctx, input.UserID, input.TenantID, items)
	if !result.IsValid {
		slog.WarnContext(ctx, "order rejected",
			logger.UserID(input.UserID), slog.Any("reasons", result.Errors))
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeOrderRejected,
			TenantID: derefTenant(input.TenantID),
			ActorID:  input.UserID,
			Metadata: map[string]any{"reasons": result.Errors},
		})
		return nil, result, ErrOrderInvalid
	}

	o := &Order{
		ID:              uuid.Must(uuid.NewV7()).String(),
		UserID:          input.UserID,
		TenantID:        input.TenantID,
		ShippingAddress: input.ShippingAddress,
		Status:          StatusPending,
		CreatedAt:       time.Now(),
	}
	for _, item := range items {
		item.ID = uuid.Must(uuid.NewV7()).String()
		item.OrderID = o.ID
		o.Items = append(o.Items, item)
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, result, fmt.Errorf("failed to persist order: %w", err)
	}

	slog.InfoContext(ctx, "order created",
		logger.OrderID(o.ID), logger.UserID(o.UserID), slog.Float64("total_amount", o.TotalAmount()))
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeOrderCreated,
		TenantID: derefTenant(input.TenantID),
		ActorID:  input.UserID,
		Resource: o.ID,
		Metadata: map[string]any{"total_amount": o.TotalAmount()},
	})

	return o, result, nil
}

// GetByID retrieves an order with its items
func (s *Service) GetByID(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForUser retrieves a user's orders, newest first
func (s *Service) ListForUser(ctx context.Context, userID string, tenantID *string) ([]*Order, error) {
	return s.repo.ListForUser(ctx, userID, tenantID)
}

func toItems(inputs []ItemInput) []Item {
	items := make([]Item, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, Item{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
		})
	}
	return items
}

func derefTenant(tenantID *string) string {
	if tenantID == nil {
		return ""
	}
	return *tenantID
}
