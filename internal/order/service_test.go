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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/permitd/permitd/internal/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, o *Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *mockOrderRepo) ListForUser(ctx context.Context, userID string, tenantID *string) ([]*Order, error) {
	args := m.Called(ctx, userID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

func passingCollaborators(userID string) (*mockIdentity, *mockPermissions, *mockStock) {
	identity := new(mockIdentity)
	perms := new(mockPermissions)
	stock := new(mockStock)
	identity.On("UserExists", mock.Anything, userID).Return(true, nil)
	perms.On("Check", mock.Anything, userID, PermissionCreateOrders, mock.Anything).
		Return(granted(PermissionCreateOrders), nil)
	stock.On("Available", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	return identity, perms, stock
}

// TestPurpose: Validates the happy path: a valid order is persisted with UUIDv7 identifiers.
// Scope: Unit Test
// Security: Only validated orders reach the store
// Expected: The order persists as pending, items carry the order's ID, creation is audited.
// Test Case ID: ORD-01
func TestOrder_Service_Create(t *testing.T) {
	repo := new(mockOrderRepo)
	identity, perms, stock := passingCollaborators("user-1")
	auditLogger := new(mockAudit)
	service := NewService(repo, NewValidator(identity, perms, stock, time.Second), auditLogger)
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(o *Order) bool {
		uid, err := uuid.Parse(o.ID)
		if err != nil || uid.Version() != 7 {
			return false
		}
		if o.Status != StatusPending || len(o.Items) != 2 {
			return false
		}
		for _, item := range o.Items {
			if item.OrderID != o.ID {
				return false
			}
		}
		return true
	})).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeOrderCreated && e.ActorID == "user-1"
	})).Once()

	created, result, err := service.Create(ctx, CreateOrderInput{
		UserID:          "user-1",
		ShippingAddress: "1 Main St",
		Items: []ItemInput{
			{ProductID: "prod-a", Quantity: 2, UnitPrice: 9.50},
			{ProductID: "prod-b", Quantity: 1, UnitPrice: 15.00},
		},
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.True(t, result.IsValid)
	assert.InDelta(t, 34.0, created.TotalAmount(), 0.001)
	auditLogger.AssertExpectations(t)
}

// TestPurpose: Validates that a failed validation rejects the order without persisting.
// Scope: Unit Test
// Security: No order row may exist for a rejected request
// Expected: ErrOrderInvalid with the validation result attached; the repository is untouched.
// Test Case ID: ORD-02
func TestOrder_Service_Create_RejectedOrderNotPersisted(t *testing.T) {
	repo := new(mockOrderRepo)
	identity := new(mockIdentity)
	perms := new(mockPermissions)
	stock := new(mockStock)
	auditLogger := new(mockAudit)
	service := NewService(repo, NewValidator(identity, perms, stock, time.Second), auditLogger)
	ctx := context.Background()

	identity.On("UserExists", mock.Anything, "user-1").Return(true, nil)
	perms.On("Check", mock.Anything, "user-1", PermissionCreateOrders, mock.Anything).
		Return(denied(PermissionCreateOrders), nil)
	stock.On("Available", mock.Anything, "prod-a", 1).Return(true, nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeOrderRejected
	})).Once()

	created, result, err := service.Create(ctx, CreateOrderInput{
		UserID: "user-1",
		Items:  []ItemInput{{ProductID: "prod-a", Quantity: 1, UnitPrice: 5}},
	})

	require.ErrorIs(t, err, ErrOrderInvalid)
	assert.Nil(t, created)
	require.NotNil(t, result)
	assert.False(t, result.IsValid)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	auditLogger.AssertExpectations(t)
}

// TestPurpose: Validates that an empty order is rejected before any collaborator call.
// Scope: Unit Test
// Security: Vacuously valid orders must not exist
// Expected: ErrNoItems, and no collaborator round-trips happen.
// Test Case ID: ORD-03
func TestOrder_Service_Create_NoItems(t *testing.T) {
	repo := new(mockOrderRepo)
	identity := new(mockIdentity)
	perms := new(mockPermissions)
	stock := new(mockStock)
	service := NewService(repo, NewValidator(identity, perms, stock, time.Second), new(mockAudit))

	created, result, err := service.Create(context.Background(), CreateOrderInput{UserID: "user-1"})

	require.ErrorIs(t, err, ErrNoItems)
	assert.Nil(t, created)
	assert.Nil(t, result)
	identity.AssertNotCalled(t, "UserExists", mock.Anything, mock.Anything)
	perms.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
