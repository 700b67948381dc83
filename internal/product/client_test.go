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

package product

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates stock availability lookups against the product service.
// Scope: Unit Test
// Security: An unknown product is unavailable, not a transport failure
// Expected: 200 reflects the payload, 404 is (false, nil), and the quantity
// travels as a query parameter.
// Test Case ID: PRD-01
func TestProductClient_Available(t *testing.T) {
	t.Run("in stock", func(t *testing.T) {
		var gotQuantity string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/products/prod-a/availability", r.URL.Path)
			gotQuantity = r.URL.Query().Get("quantity")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"available": true}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, time.Second)
		ok, err := client.Available(context.Background(), "prod-a", 3)

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "3", gotQuantity)
	})

	t.Run("unknown product", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, time.Second)
		ok, err := client.Available(context.Background(), "ghost", 1)

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("server failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, time.Second)
		_, err := client.Available(context.Background(), "prod-a", 1)

		require.Error(t, err)
	})
}
