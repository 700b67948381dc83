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

package logger

import "log/slog"

// Common attribute keys for consistent logging across the application

// Request attributes
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

func CorrelationID(id string) slog.Attr {
	return slog.String("correlation_id", id)
}

func Method(method string) slog.Attr {
	return slog.String("method", method)
}

func Path(path string) slog.Attr {
	return slog.String("path", path)
}

func RemoteAddr(addr string) slog.Attr {
	return slog.String("remote_addr", addr)
}

func UserAgent(ua string) slog.Attr {
	return slog.String("user_agent", ua)
}

func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

func Duration(ms int64) slog.Attr {
	return slog.Int64("duration_ms", ms)
}

// Principal attributes
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

func RoleID(id string) slog.Attr {
	return slog.String("role_id", id)
}

func TenantID(id string) slog.Attr {
	return slog.String("tenant_id", id)
}

// Permission attributes
func PermissionName(name string) slog.Attr {
	return slog.String("permission_name", name)
}

func Provider(name string) slog.Attr {
	return slog.String("provider_name", name)
}

func ProviderKey(key string) slog.Attr {
	return slog.String("provider_key", key)
}

func GrantedBy(by string) slog.Attr {
	return slog.String("granted_by", by)
}

// Order attributes
func OrderID(id string) slog.Attr {
	return slog.String("order_id", id)
}

// Collaborator attributes
func Collaborator(name string) slog.Attr {
	return slog.String("collaborator", name)
}

func TargetURL(url string) slog.Attr {
	return slog.String("target_url", url)
}

// Error attributes
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func ErrorType(errType string) slog.Attr {
	return slog.String("error_type", errType)
}

// Cache attributes
func CacheKey(key string) slog.Attr {
	return slog.String("cache_key", key)
}

func CacheHit(hit bool) slog.Attr {
	return slog.Bool("cache_hit", hit)
}

// Component attributes
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Operation(op string) slog.Attr {
	return slog.String("operation", op)
}

// String creates a generic string attribute
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}
