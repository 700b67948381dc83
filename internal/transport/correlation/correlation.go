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

// Package correlation propagates the caller-supplied correlation identifier
// across service boundaries: inbound via middleware, outbound via the
// collaborator clients, unchanged end to end.
package correlation

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/permitd/permitd/internal/observability/logger"
)

// Header is the wire header carrying the correlation identifier
const Header = "X-Correlation-Id"

// FromRequest extracts the correlation id from an inbound request, minting
// one when the caller sent none.
func FromRequest(r *http.Request) string {
	if id := r.Header.Get(Header); id != "" {
		return id
	}
	return uuid.NewString()
}

// SetHeader stamps the correlation id from the context onto an outbound
// request, minting one when the scope carries none so nested calls are
// always traceable.
func SetHeader(ctx context.Context, req *http.Request) {
	id := logger.CorrelationIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set(Header, id)
}
