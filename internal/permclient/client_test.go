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

package permclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/permitd/permitd/internal/observability/logger"
	"github.com/permitd/permitd/internal/permission"
	"github.com/permitd/permitd/internal/transport/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates decision round-trips against the permission endpoint.
// Scope: Unit Test
// Security: The client must hand the decision to the caller untouched
// Expected: The request body carries the triple; the decision comes back typed.
// Test Case ID: PMC-01
func TestPermissionClient_Check(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/permissions/check", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"is_granted": true, "permission_name": "Orders.Create", "granted_by": "Role"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	tenant := "tenant-a"

	result, err := client.Check(context.Background(), "user-1", "Orders.Create", &tenant)

	require.NoError(t, err)
	assert.True(t, result.IsGranted)
	assert.Equal(t, permission.ProviderRole, result.GrantedBy)
	assert.Equal(t, "user-1", gotBody["user_id"])
	assert.Equal(t, "Orders.Create", gotBody["permission_name"])
	assert.Equal(t, "tenant-a", gotBody["tenant_id"])
}

// TestPurpose: Validates that transport failures surface as errors, not decisions.
// Scope: Unit Test
// Security: The caller owns the fail-closed conversion and must see the distinction
// Expected: A 500 from the service is an error with no CheckResult.
// Test Case ID: PMC-02
func TestPermissionClient_Check_ServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	result, err := client.Check(context.Background(), "user-1", "Orders.Create", nil)

	require.Error(t, err)
	assert.Nil(t, result)
}

// TestPurpose: Validates the grant/revoke outcome shape.
// Scope: Unit Test
// Security: Duplicate grants are reported as an outcome, never an error
// Expected: success=false with a message decodes cleanly.
// Test Case ID: PMC-03
func TestPermissionClient_GrantOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/permissions/grant", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "message": "permission already granted"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	out, err := client.Grant(context.Background(), "Pages.Create", permission.ProviderUser, "user-1", nil)

	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "permission already granted", out.Message)
}

// TestPurpose: Validates grant listings and tenant filtering.
// Scope: Unit Test
// Security: Listing serves audit; the tenant filter must reach the service
// Expected: The DTO slice decodes and tenant_id is forwarded as a query parameter.
// Test Case ID: PMC-04
func TestPermissionClient_ListUserPermissions(t *testing.T) {
	var gotTenant string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/user-1/permissions", r.URL.Path)
		gotTenant = r.URL.Query().Get("tenant_id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"permission_name": "Pages.Create", "provider_name": "User", "provider_key": "user-1", "granted_at": "2026-01-10T12:00:00Z"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	tenant := "tenant-a"

	grants, err := client.ListUserPermissions(context.Background(), "user-1", &tenant)

	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "Pages.Create", grants[0].PermissionName)
	assert.Equal(t, "tenant-a", gotTenant)
}

// TestPurpose: Validates correlation identifier propagation on permission calls.
// Scope: Unit Test
// Security: Authorization decisions must be traceable across services
// Expected: The context's correlation id reaches the service header.
// Test Case ID: PMC-05
func TestPermissionClient_CorrelationHeader(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(correlation.Header)
		w.Write([]byte(`{"is_granted": false, "permission_name": "Pages.Create"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	ctx := logger.WithCorrelationID(context.Background(), "corr-456")

	_, err := client.Check(ctx, "user-1", "Pages.Create", nil)

	require.NoError(t, err)
	assert.Equal(t, "corr-456", gotHeader)
}
