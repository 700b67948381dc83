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

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/permitd/permitd/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var authTestSecret = []byte("middleware-test-secret")

func signTestToken(t *testing.T, subject, tenantID string) string {
	t.Helper()
	claims := token.Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(authTestSecret)
	require.NoError(t, err)
	return signed
}

// TestPurpose: Validates bearer-token enforcement and identity propagation.
// Scope: Unit Test
// Security: Admin routes must reject unauthenticated callers and expose the
// verified identity to handlers
// Expected: 401 without or with a bad token; with a valid token the handler
// reads the subject and tenant from the request context.
// Test Case ID: MID-01
func TestAuthMiddleware(t *testing.T) {
	verifier := token.NewVerifier(authTestSecret, "")

	var gotUserID string
	var gotTenantID *string
	protected := AuthMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		gotTenantID = GetTenantID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "user-1", "tenant-a"))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", gotUserID)
		require.NotNil(t, gotTenantID)
		assert.Equal(t, "tenant-a", *gotTenantID)
	})

	t.Run("host scope token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "user-1", ""))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, gotTenantID)
	})
}

// TestPurpose: Validates that a nil verifier disables the guard.
// Scope: Unit Test
// Security: Gateway-authenticated deployments run without a local secret
// Expected: The request passes through untouched.
// Test Case ID: MID-02
func TestAuthMiddleware_NilVerifierPassthrough(t *testing.T) {
	open := AuthMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
