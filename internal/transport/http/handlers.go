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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/permitd/permitd/internal/observability/metrics"
	"github.com/permitd/permitd/internal/permission"
	"github.com/permitd/permitd/internal/token"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds the permission service HTTP handlers and dependencies
type Handler struct {
	service      *permission.Service
	catalog      *permission.Catalog
	checkMetrics *metrics.CheckMetrics
	verifier     *token.Verifier
}

// NewHandler creates a new HTTP handler for the permission service
func NewHandler(
	service *permission.Service,
	catalog *permission.Catalog,
	checkMetrics *metrics.CheckMetrics,
	verifier *token.Verifier,
) *Handler {
	return &Handler{
		service:      service,
		catalog:      catalog,
		checkMetrics: checkMetrics,
		verifier:     verifier,
	}
}

// NewRouter creates the permission service router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(CorrelationMiddleware)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// The check endpoint stays open to peer services; it only ever
		// narrows what a caller may do.
		r.Post("/permissions/check", h.CheckPermission)

		// Admin surface
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.verifier))

			r.Post("/permissions/grant", h.GrantPermission)
			r.Post("/permissions/revoke", h.RevokePermission)
			r.Get("/users/{userID}/permissions", h.ListUserPermissions)
			r.Get("/roles/{roleID}/permissions", h.ListRolePermissions)

			// Catalog
			r.Get("/permissions", h.ListPermissions)
			r.Post("/permissions", h.CreatePermission)
			r.Get("/permissions/search", h.SearchPermissions)
			r.Get("/permissions/groups/{groupName}", h.ListPermissionsByGroup)
			r.Get("/permissions/{permissionID}", h.GetPermission)
			r.Delete("/permissions/{permissionID}", h.DeletePermission)
		})
	})

	return r
}

// HealthCheck reports service liveness
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ---- Check / grant / revoke ----

type checkPermissionRequest struct {
	UserID         string  `json:"user_id"`
	PermissionName string  `json:"permission_name"`
	TenantID       *string `json:"tenant_id,omitempty"`
}

// CheckPermission decides whether a user holds a permission. Downstream
// failures never surface here: the response is a denial, per the fail-closed
// contract.
func (h *Handler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	var req checkPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.PermissionName == "" {
		respondError(w, http.StatusBadRequest, "user_id and permission_name are required")
		return
	}

	result := h.service.Check(r.Context(), req.UserID, req.PermissionName, req.TenantID)
	h.checkMetrics.RecordCheck(r.Context(), result.IsGranted)

	respondJSON(w, http.StatusOK, result)
}

type grantPermissionRequest struct {
	PermissionName string  `json:"permission_name"`
	ProviderName   string  `json:"provider_name"`
	ProviderKey    string  `json:"provider_key"`
	TenantID       *string `json:"tenant_id,omitempty"`
}

type outcomeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GrantPermission records a grant fact. Granting an unknown permission is a
// 404; a duplicate grant is a non-error outcome with success=false.
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	req, provider, ok := decodeGrantRequest(w, r)
	if !ok {
		return
	}

	granted, err := h.service.Grant(r.Context(), req.PermissionName, provider, req.ProviderKey, req.TenantID)
	if err != nil {
		if errors.Is(err, permission.ErrPermissionNotFound) {
			respondError(w, http.StatusNotFound, "permission does not exist")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to grant permission")
		return
	}

	if h.checkMetrics != nil && granted {
		h.checkMetrics.GrantsTotal.Add(r.Context(), 1)
	}

	message := "permission granted"
	if !granted {
		message = "permission already granted"
	}
	respondJSON(w, http.StatusOK, outcomeResponse{Success: granted, Message: message})
}

// RevokePermission tombstones a grant fact. Revoking an absent grant is a
// non-error outcome with success=false.
func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	req, provider, ok := decodeGrantRequest(w, r)
	if !ok {
		return
	}

	revoked, err := h.service.Revoke(r.Context(), req.PermissionName, provider, req.ProviderKey, req.TenantID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to revoke permission")
		return
	}

	if h.checkMetrics != nil && revoked {
		h.checkMetrics.RevokesTotal.Add(r.Context(), 1)
	}

	message := "permission revoked"
	if !revoked {
		message = "grant not found"
	}
	respondJSON(w, http.StatusOK, outcomeResponse{Success: revoked, Message: message})
}

func decodeGrantRequest(w http.ResponseWriter, r *http.Request) (*grantPermissionRequest, permission.Provider, bool) {
	var req grantPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, "", false
	}
	if req.PermissionName == "" || req.ProviderKey == "" {
		respondError(w, http.StatusBadRequest, "permission_name and provider_key are required")
		return nil, "", false
	}

	provider, err := permission.ParseProvider(req.ProviderName)
	if err != nil {
		respondError(w, http.StatusBadRequest, "provider_name must be User or Role")
		return nil, "", false
	}

	return &req, provider, true
}

// ---- Grant listings ----

type grantDTO struct {
	ID             string  `json:"id"`
	PermissionName string  `json:"permission_name"`
	ProviderName   string  `json:"provider_name"`
	ProviderKey    string  `json:"provider_key"`
	TenantID       *string `json:"tenant_id,omitempty"`
	GrantedAt      string  `json:"granted_at"`
}

// ListUserPermissions lists the grants held directly by a user
func (h *Handler) ListUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	grants, err := h.service.ListUserPermissions(r.Context(), userID, tenantFilter(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}
	respondJSON(w, http.StatusOK, toGrantDTOs(grants))
}

// ListRolePermissions lists the grants attached to a role
func (h *Handler) ListRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")
	grants, err := h.service.ListRolePermissions(r.Context(), roleID, tenantFilter(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}
	respondJSON(w, http.StatusOK, toGrantDTOs(grants))
}

func toGrantDTOs(grants []*permission.Grant) []grantDTO {
	dtos := make([]grantDTO, 0, len(grants))
	for _, g := range grants {
		dtos = append(dtos, grantDTO{
			ID:             g.ID,
			PermissionName: g.PermissionName,
			ProviderName:   string(g.Provider),
			ProviderKey:    g.ProviderKey,
			TenantID:       g.TenantID,
			GrantedAt:      g.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return dtos
}

// ---- Catalog ----

type permissionDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	GroupName   string          `json:"group_name,omitempty"`
	ParentID    *string         `json:"parent_id,omitempty"`
	Children    []permissionDTO `json:"children,omitempty"`
}

type createPermissionRequest struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	GroupName   string  `json:"group_name"`
	ParentID    *string `json:"parent_id,omitempty"`
}

type pagedPermissionsResponse struct {
	Items      []permissionDTO `json:"items"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}

// ListPermissions lists root catalog entries with their children
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.catalog.ListRoots(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}
	respondJSON(w, http.StatusOK, toPermissionDTOs(perms))
}

// SearchPermissions searches the catalog by term and group, paged
func (h *Handler) SearchPermissions(w http.ResponseWriter, r *http.Request) {
	params := permission.SearchParams{
		Term:      r.URL.Query().Get("term"),
		GroupName: r.URL.Query().Get("group"),
		Page:      queryInt(r, "page", 1),
		PageSize:  queryInt(r, "page_size", 20),
	}

	perms, total, err := h.catalog.Search(r.Context(), params)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to search permissions")
		return
	}

	respondJSON(w, http.StatusOK, pagedPermissionsResponse{
		Items:      toPermissionDTOs(perms),
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
	})
}

// ListPermissionsByGroup lists catalog entries in one display group
func (h *Handler) ListPermissionsByGroup(w http.ResponseWriter, r *http.Request) {
	perms, err := h.catalog.ListByGroup(r.Context(), chi.URLParam(r, "groupName"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list permissions")
		return
	}
	respondJSON(w, http.StatusOK, toPermissionDTOs(perms))
}

// GetPermission retrieves one catalog entry with its children
func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "permissionID"))
	if err != nil {
		if errors.Is(err, permission.ErrPermissionNotFound) {
			respondError(w, http.StatusNotFound, "permission not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get permission")
		return
	}
	respondJSON(w, http.StatusOK, toPermissionDTO(p))
}

// CreatePermission registers a new catalog entry
func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req createPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.DisplayName == "" {
		respondError(w, http.StatusBadRequest, "name and display_name are required")
		return
	}

	p, err := h.catalog.Create(r.Context(), req.Name, req.DisplayName, req.GroupName, req.ParentID)
	if err != nil {
		if errors.Is(err, permission.ErrPermissionExists) {
			respondError(w, http.StatusConflict, "permission already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create permission")
		return
	}

	respondJSON(w, http.StatusCreated, toPermissionDTO(p))
}

// DeletePermission soft-deletes a catalog entry
func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	err := h.catalog.Delete(r.Context(), chi.URLParam(r, "permissionID"))
	if err != nil {
		if errors.Is(err, permission.ErrPermissionNotFound) {
			respondError(w, http.StatusNotFound, "permission not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete permission")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toPermissionDTO(p *permission.Permission) permissionDTO {
	dto := permissionDTO{
		ID:          p.ID,
		Name:        p.Name,
		DisplayName: p.DisplayName,
		GroupName:   p.GroupName,
		ParentID:    p.ParentID,
	}
	for _, child := range p.Children {
		dto.Children = append(dto.Children, toPermissionDTO(child))
	}
	return dto
}

func toPermissionDTOs(perms []*permission.Permission) []permissionDTO {
	dtos := make([]permissionDTO, 0, len(perms))
	for _, p := range perms {
		dtos = append(dtos, toPermissionDTO(p))
	}
	return dtos
}

// ---- Helpers ----

func tenantFilter(r *http.Request) *string {
	if v := r.URL.Query().Get("tenant_id"); v != "" {
		return &v
	}
	return nil
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
