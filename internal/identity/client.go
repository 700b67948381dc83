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

// Package identity holds the HTTP client for the identity collaborator. The
// identity service owns users and role memberships; this core only consumes
// the two read operations the resolver and the order validator need.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/permitd/permitd/internal/transport/correlation"
)

// Client calls the identity service over HTTP. Every call carries a bounded
// timeout and propagates the correlation identifier from the request scope.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new identity client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type userExistsResponse struct {
	Exists bool `json:"exists"`
}

// UserExists reports whether the user is known to the identity service
func (c *Client) UserExists(ctx context.Context, userID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/%s/exists", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build identity request: %w", err)
	}
	correlation.SetHeader(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var body userExistsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode identity response: %w", err)
	}

	return body.Exists, nil
}

type userRolesResponse struct {
	RoleIDs []string `json:"role_ids"`
}

// GetUserRoles returns the role IDs held by a user within a tenant scope.
// A nil tenantID asks for host-level memberships only; tenant scoping is
// exact, matching the grant store's semantics.
func (c *Client) GetUserRoles(ctx context.Context, userID string, tenantID *string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/%s/roles", c.baseURL, url.PathEscape(userID))
	if tenantID != nil {
		endpoint += "?tenant_id=" + url.QueryEscape(*tenantID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build identity request: %w", err)
	}
	correlation.SetHeader(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var body userRolesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	return body.RoleIDs, nil
}
