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

package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/permitd/permitd/internal/observability/logger"
	"github.com/permitd/permitd/internal/transport/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates user existence lookups against the identity service.
// Scope: Unit Test
// Security: A 404 means a clean "no such user", not a transport failure
// Expected: 200 with exists=true is true, 404 is (false, nil), 500 is an error.
// Test Case ID: IDC-01
func TestIdentityClient_UserExists(t *testing.T) {
	t.Run("user exists", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/users/user-1/exists", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"exists": true}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, time.Second)
		exists, err := client.UserExists(context.Background(), "user-1")

		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("unknown user", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, time.Second)
		exists, err := client.UserExists(context.Background(), "ghost")

		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("server failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, time.Second)
		_, err := client.UserExists(context.Background(), "user-1")

		require.Error(t, err)
	})
}

// TestPurpose: Validates role membership lookups including tenant scoping.
// Scope: Unit Test
// Security: Role lookups feed the grant resolver; the tenant scope must be forwarded
// Expected: The tenant_id query parameter is present exactly when a tenant is given.
// Test Case ID: IDC-02
func TestIdentityClient_GetUserRoles(t *testing.T) {
	var gotTenant string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.URL.Query().Get("tenant_id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"role_ids": ["role-admin", "role-viewer"]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	roles, err := client.GetUserRoles(context.Background(), "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"role-admin", "role-viewer"}, roles)
	assert.Empty(t, gotTenant)

	tenant := "tenant-a"
	_, err = client.GetUserRoles(context.Background(), "user-1", &tenant)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", gotTenant)
}

// TestPurpose: Validates correlation identifier propagation on outbound calls.
// Scope: Unit Test
// Security: Cross-service traceability of authorization decisions
// Expected: The context's correlation id travels on the wire header; without one,
// a fresh id is minted rather than sending nothing.
// Test Case ID: IDC-03
func TestIdentityClient_CorrelationHeader(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(correlation.Header)
		w.Write([]byte(`{"exists": true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	ctx := logger.WithCorrelationID(context.Background(), "corr-123")
	_, err := client.UserExists(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "corr-123", gotHeader)

	_, err = client.UserExists(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, gotHeader)
}
