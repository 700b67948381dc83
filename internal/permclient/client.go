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

// Package permclient is the typed HTTP client for the permission service
// endpoint, used by consumer services such as order-server.
package permclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/permitd/permitd/internal/permission"
	"github.com/permitd/permitd/internal/transport/correlation"
)

// Client calls the permission service over HTTP with a bounded timeout.
// Transport errors surface to the caller, who decides the fail-closed
// conversion; the order validator treats them as a failed check.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new permission service client
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

type checkRequest struct {
	UserID         string  `json:"user_id"`
	PermissionName string  `json:"permission_name"`
	TenantID       *string `json:"tenant_id,omitempty"`
}

// Check asks the permission service for a decision
func (c *Client) Check(ctx context.Context, userID, permissionName string, tenantID *string) (*permission.CheckResult, error) {
	var result permission.CheckResult
	err := c.post(ctx, "/api/v1/permissions/check", checkRequest{
		UserID:         userID,
		PermissionName: permissionName,
		TenantID:       tenantID,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type grantRequest struct {
	PermissionName string  `json:"permission_name"`
	ProviderName   string  `json:"provider_name"`
	ProviderKey    string  `json:"provider_key"`
	TenantID       *string `json:"tenant_id,omitempty"`
}

// Outcome is the grant/revoke response shape
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Grant asks the permission service to record a grant fact
func (c *Client) Grant(ctx context.Context, permissionName string, provider permission.Provider, providerKey string, tenantID *string) (*Outcome, error) {
	var out Outcome
	err := c.post(ctx, "/api/v1/permissions/grant", grantRequest{
		PermissionName: permissionName,
		ProviderName:   string(provider),
		ProviderKey:    providerKey,
		TenantID:       tenantID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Revoke asks the permission service to tombstone a grant fact
func (c *Client) Revoke(ctx context.Context, permissionName string, provider permission.Provider, providerKey string, tenantID *string) (*Outcome, error) {
	var out Outcome
	err := c.post(ctx, "/api/v1/permissions/revoke", grantRequest{
		PermissionName: permissionName,
		ProviderName:   string(provider),
		ProviderKey:    providerKey,
		TenantID:       tenantID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GrantDTO is one listed grant on the wire
type GrantDTO struct {
	PermissionName string  `json:"permission_name"`
	ProviderName   string  `json:"provider_name"`
	ProviderKey    string  `json:"provider_key"`
	TenantID       *string `json:"tenant_id,omitempty"`
	GrantedAt      string  `json:"granted_at"`
}

// ListUserPermissions lists the grants held directly by a user
func (c *Client) ListUserPermissions(ctx context.Context, userID string, tenantID *string) ([]GrantDTO, error) {
	return c.list(ctx, fmt.Sprintf("/api/v1/users/%s/permissions", url.PathEscape(userID)), tenantID)
}

// ListRolePermissions lists the grants attached to a role
func (c *Client) ListRolePermissions(ctx context.Context, roleID string, tenantID *string) ([]GrantDTO, error) {
	return c.list(ctx, fmt.Sprintf("/api/v1/roles/%s/permissions", url.PathEscape(roleID)), tenantID)
}

func (c *Client) list(ctx context.Context, path string, tenantID *string) ([]GrantDTO, error) {
	endpoint := c.baseURL + path
	if tenantID != nil {
		endpoint += "?tenant_id=" + url.QueryEscape(*tenantID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build permission request: %w", err)
	}
	correlation.SetHeader(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("permission service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("permission service returned status %d", resp.StatusCode)
	}

	var grants []GrantDTO
	if err := json.NewDecoder(resp.Body).Decode(&grants); err != nil {
		return nil, fmt.Errorf("failed to decode permission response: %w", err)
	}
	return grants, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal permission request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build permission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	correlation.SetHeader(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("permission service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("permission service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode permission response: %w", err)
	}
	return nil
}
