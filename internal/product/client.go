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

// Package product holds the HTTP client for the product collaborator's
// stock availability check.
package product

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

// Client calls the product service over HTTP with a bounded timeout
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new product client
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

type availabilityResponse struct {
	Available bool `json:"available"`
}

// Available reports whether quantity units of the product are in stock
func (c *Client) Available(ctx context.Context, productID string, quantity int) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/products/%s/availability?quantity=%d",
		c.baseURL, url.PathEscape(productID), quantity)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build product request: %w", err)
	}
	correlation.SetHeader(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("product service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("product service returned status %d", resp.StatusCode)
	}

	var body availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode product response: %w", err)
	}

	return body.Available, nil
}
