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

	"golang.org/x/sync/errgroup"

	"github.com/permitd/permitd/internal/observability/logger"
)

// Validator combines the independent collaborator checks for an order into
// one decision. Every check is attempted even when an earlier one fails, so
// the caller sees the complete set of reasons in one round trip; a
// collaborator error or timeout converts locally into a failed check plus a
// message and, like the permission endpoint itself, fails closed.
type Validator struct {
	identity    IdentityChecker
	permissions PermissionChecker
	stock       StockChecker
	timeout     time.Duration
}

// NewValidator creates a new order validator. The timeout is the overall
// deadline across the fan-out so one slow collaborator cannot stall order
// creation indefinitely.
func NewValidator(identity IdentityChecker, permissions PermissionChecker, stock StockChecker, timeout time.Duration) *Validator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Validator{
		identity:    identity,
		permissions: permissions,
		stock:       stock,
		timeout:     timeout,
	}
}

// Validate runs the user-existence, permission, and stock checks
// concurrently under one deadline and assembles the result in fixed check
// order: existence, permission, stock.
func (v *Validator) Validate(ctx context.Context, userID string, tenantID *string, items []Item) *ValidationResult {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	result := &ValidationResult{
		UnavailableProducts: []string{},
		Errors:              []string{},
	}

	var (
		userErr  string
		permErr  string
		stockErr string
	)

	var g errgroup.Group

	g.Go(func() error {
		exists, err := v.identity.UserExists(ctx, userID)
		if err != nil {
			slog.ErrorContext(ctx, "user existence check failed",
				logger.Collaborator("identity"), logger.UserID(userID), logger.Error(err))
			userErr = fmt.Sprintf("user %s could not be verified", userID)
			return nil
		}
		result.UserExists = exists
		if !exists {
			userErr = fmt.Sprintf("user %s does not exist", userID)
		}
		return nil
	})

	g.Go(func() error {
		check, err := v.permissions.Check(ctx, userID, PermissionCreateOrders, tenantID)
		if err != nil {
			// Transport failure talking to the permission service is logged
			// apart from a denial, but the caller sees the same failed check.
			slog.ErrorContext(ctx, "permission check unreachable",
				logger.Collaborator("permission"), logger.UserID(userID), logger.Error(err))
			permErr = fmt.Sprintf("user %s does not have %q permission", userID, PermissionCreateOrders)
			return nil
		}
		result.HasPermission = check.IsGranted
		if !check.IsGranted {
			permErr = fmt.Sprintf("user %s does not have %q permission", userID, PermissionCreateOrders)
		}
		return nil
	})

	g.Go(func() error {
		unavailable := []string{}
		for _, item := range items {
			ok, err := v.stock.Available(ctx, item.ProductID, item.Quantity)
			if err != nil {
				slog.ErrorContext(ctx, "stock check failed",
					logger.Collaborator("product"), slog.String("product_id", item.ProductID), logger.Error(err))
				unavailable = append(unavailable, item.ProductID)
				continue
			}
			if !ok {
				unavailable = append(unavailable, item.ProductID)
			}
		}
		result.UnavailableProducts = unavailable
		result.ProductsAvailable = len(unavailable) == 0
		if !result.ProductsAvailable {
			stockErr = fmt.Sprintf("products unavailable: %v", unavailable)
		}
		return nil
	})

	// Check funcs never return errors; failures land in their slots.
	_ = g.Wait()

	// Assemble reasons in check order regardless of completion order.
	for _, msg := range []string{userErr, permErr, stockErr} {
		if msg != "" {
			result.Errors = append(result.Errors, msg)
		}
	}
	result.IsValid = len(result.Errors) == 0

	return result
}
