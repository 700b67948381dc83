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
	"testing"
	"time"

	"github.com/permitd/permitd/internal/audit"
	"github.com/permitd/permitd/internal/permission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) UserExists(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type mockPermissions struct {
	mock.Mock
}

func (m *mockPermissions) Check(ctx context.Context, userID, permissionName string, tenantID *string) (*permission.CheckResult, error) {
	args := m.Called(ctx, userID, permissionName, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*permission.CheckResult), args.Error(1)
}

type mockStock struct {
	mock.Mock
}

func (m *mockStock) Available(ctx context.Context, productID string, quantity int) (bool, error) {
	args := m.Called(ctx, productID, quantity)
	return args.Bool(0), args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

func granted(name string) *permission.CheckResult {
	return &permission.CheckResult{IsGranted: true, PermissionName: name, GrantedBy: permission.ProviderRole}
}

func denied(name string) *permission.CheckResult {
	return &permission.CheckResult{IsGranted: false, PermissionName: name}
}

// TestPurpose: Validates that an order passing every collaborator check is valid.
// Scope: Unit Test
// Security: The permission check gates order creation
// Expected: IsValid is true with no accumulated reasons.
// Test Case ID: VAL-01
func TestValidator_AllChecksPass(t *testing.T) {
	identity := new(mockIdentity)
	perms := new(mockPermissions)
	stock := new(mockStock)
	v := NewValidator(identity, perms, stock, time.Second)
	ctx := context.Background()

	identity.On("UserExists", mock.Anything, "user-1").Return(true, nil)
	perms.On("Check", mock.Anything, "user-1", PermissionCreateOrders, (*string)(nil)).
		Return(granted(PermissionCreateOrders), nil)
	stock.On("Available", mock.Anything, "prod-a", 2).Return(true, nil)

	result := v.Validate(ctx, "user-1", nil, []Item{{ProductID: "prod-a", Quantity: 2}})

	assert.True(t, result.IsValid)
	assert.True(t, result.UserExists)
	assert.True(t, result.HasPermission)
	assert.True(t, result.ProductsAvailable)
	assert.Empty(t, result.Errors)
}

// TestPurpose: Validates that every check is attempted even when an earlier one fails.
// Scope: Unit Test
// Security: The caller must see the complete set of rejection reasons in one round trip
// Expected: A missing user and missing permission yield two distinct reasons, and the
// stock check still runs.
// Test Case ID: VAL-02
func TestValidator_AllChecksRunOnFailure(t *testing.T) {
	identity := new(mockIdentity)
	perms := new(mockPermissions)
	stock := new(mockStock)
	v := NewValidator(identity, perms, stock, time.Second)
	ctx := context.Background()

	identity.On("UserExists", mock.Anything, "ghost").Return(false, nil)
	perms.On("Check", mock.Anything, "ghost", PermissionCreateOrders, (*string)(nil)).
		Return(denied(PermissionCreateOrders), nil)
	stock.On("Available", mock.Anything, "prod-a", 1).Return(true, nil)

	result := v.Validate(ctx, "ghost", nil, []Item{{ProductID: "prod-a", Quantity: 1}})

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "does not exist")
	assert.Contains(t, result.Errors[1], "does not have")
	stock.AssertCalled(t, "Available", mock.Anything, "prod-a", 1)
}

// TestPurpose: Validates deterministic reason ordering despite concurrent checks.
// Scope: Unit Test
// Security: Stable output keeps downstream consumers and operators sane
// Expected: Reasons always appear as existence, permission, stock regardless of
// which check finished first.
// Test Case ID: VAL-03
func TestValidator_ReasonOrderIsFixed(t *testing.T) {
	for i := 0; i < 20; i++ {
		identity := new(mockIdentity)
		perms := new(mockPermissions)
		stock := new(mockStock)
		v := NewValidator(identity, perms, stock, time.Second)

		identity.On("UserExists", mock.Anything, "ghost").Return(false, nil)
		perms.On("Check", mock.Anything, "ghost", PermissionCreateOrders, (*string)(nil)).
			Return(denied(PermissionCreateOrders), nil)
		stock.On("Available", mock.Anything, "prod-a", 1).Return(false, nil)

		result := v.Validate(context.Background(), "ghost", nil, []Item{{ProductID: "prod-a", Quantity: 1}})

		require.Len(t, result.Errors, 3)
		assert.Contains(t, result.Errors[0], "does not exist")
		assert.Contains(t, result.Errors[1], "does not have")
		assert.Contains(t, result.Errors[2], "unavailable")
	}
}

// TestPurpose: Validates that collaborator failures convert to failed checks, not panics or partial results.
// Scope: Unit Test
// Security: An unreachable collaborator must fail the order, never wave it through
// Expected: A transport error on each collaborator shows up as that check's reason.
// Test Case ID: VAL-04
func TestValidator_CollaboratorFailureFailsClosed(t *testing.T) {
	identity := new(mockIdentity)
	perms := new(mockPermissions)
	stock := new(mockStock)
	v := NewValidator(identity, perms, stock, time.Second)
	ctx := context.Background()

	identity.On("UserExists", mock.Anything, "user-1").Return(false, errors.New("identity unreachable"))
	perms.On("Check", mock.Anything, "user-1", PermissionCreateOrders, (*string)(nil)).
		Return(nil, errors.New("permission unreachable"))
	stock.On("Available", mock.Anything, "prod-a", 1).Return(false, errors.New("product unreachable"))

	result := v.Validate(ctx, "user-1", nil, []Item{{ProductID: "prod-a", Quantity: 1}})

	assert.False(t, result.IsValid)
	assert.False(t, result.UserExists)
	assert.False(t, result.HasPermission)
	assert.False(t, result.ProductsAvailable)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "could not be verified")
	assert.Equal(t, []string{"prod-a"}, result.UnavailableProducts)
}

// TestPurpose: Validates per-product availability accumulation.
// Scope: Unit Test
// Security: The rejection names every unavailable product, not just the first
// Expected: Two unavailable products out of three appear in UnavailableProducts.
// Test Case ID: VAL-05
func TestValidator_UnavailableProductsAccumulate(t *testing.T) {
	identity := new(mockIdentity)
	perms := new(mockPermissions)
	stock := new(mockStock)
	v := NewValidator(identity, perms, stock, time.Second)
	ctx := context.Background()

	identity.On("UserExists", mock.Anything, "user-1").Return(true, nil)
	perms.On("Check", mock.Anything, "user-1", PermissionCreateOrders, (*string)(nil)).
		Return(granted(PermissionCreateOrders), nil)
	stock.On("Available", mock.Anything, "prod-a", 1).Return(false, nil)
	stock.On("Available", mock.Anything, "prod-b", 1).Return(true, nil)
	stock.On("Available", mock.Anything, "prod-c", 5).Return(false, nil)

	result := v.Validate(ctx, "user-1", nil, []Item{
		{ProductID: "prod-a", Quantity: 1},
		{ProductID: "prod-b", Quantity: 1},
		{ProductID: "prod-c", Quantity: 5},
	})

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"prod-a", "prod-c"}, result.UnavailableProducts)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "prod-a")
	assert.Contains(t, result.Errors[0], "prod-c")
}

// TestPurpose: Validates the tenant scope is forwarded to the permission check.
// Scope: Unit Test
// Security: Order permission must be evaluated in the order's tenant, not at host scope
// Expected: The permission collaborator receives the exact tenant pointer.
// Test Case ID: VAL-06
func TestValidator_TenantScopeForwarded(t *testing.T) {
	identity := new(mockIdentity)
	perms := new(mockPermissions)
	stock := new(mockStock)
	v := NewValidator(identity, perms, stock, time.Second)
	tenant := "tenant-a"

	identity.On("UserExists", mock.Anything, "user-1").Return(true, nil)
	perms.On("Check", mock.Anything, "user-1", PermissionCreateOrders, &tenant).
		Return(granted(PermissionCreateOrders), nil)
	stock.On("Available", mock.Anything, "prod-a", 1).Return(true, nil)

	result := v.Validate(context.Background(), "user-1", &tenant, []Item{{ProductID: "prod-a", Quantity: 1}})

	assert.True(t, result.IsValid)
	perms.AssertExpectations(t)
}
