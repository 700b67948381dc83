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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/permitd/permitd/internal/order"
	"github.com/permitd/permitd/internal/token"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// OrderHandler holds the order service HTTP handlers
type OrderHandler struct {
	service  *order.Service
	verifier *token.Verifier
}

// NewOrderHandler creates a new HTTP handler for the order service
func NewOrderHandler(service *order.Service, verifier *token.Verifier) *OrderHandler {
	return &OrderHandler{
		service:  service,
		verifier: verifier,
	}
}

// NewOrderRouter creates the order service router
func NewOrderRouter(h *OrderHandler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

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

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(AuthMiddleware(h.verifier))

		r.Post("/", h.CreateOrder)
		r.Post("/validate", h.ValidateOrder)
		r.Get("/{orderID}", h.GetOrder)
		r.Get("/user/{userID}", h.ListUserOrders)
	})

	return r
}

// HealthCheck reports service liveness
func (h *OrderHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type orderItemRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type createOrderRequest struct {
	UserID          string             `json:"user_id"`
	TenantID        *string            `json:"tenant_id,omitempty"`
	ShippingAddress string             `json:"shipping_address"`
	Items           []orderItemRequest `json:"items"`
}

type orderItemDTO struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type orderDTO struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	TenantID        *string        `json:"tenant_id,omitempty"`
	ShippingAddress string         `json:"shipping_address"`
	Status          string         `json:"status"`
	TotalAmount     float64        `json:"total_amount"`
	Items           []orderItemDTO `json:"items"`
	CreatedAt       string         `json:"created_at"`
}

type rejectedOrderResponse struct {
	Message    string                  `json:"message"`
	Validation *order.ValidationResult `json:"validation"`
}

// CreateOrder validates and creates an order. A validation failure is a 422
// carrying the full validation result, one reason per failed check.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeOrderRequest(w, r)
	if !ok {
		return
	}

	created, result, err := h.service.Create(r.Context(), *input)
	if err != nil {
		if errors.Is(err, order.ErrOrderInvalid) {
			respondJSON(w, http.StatusUnprocessableEntity, rejectedOrderResponse{
				Message:    "order validation failed",
				Validation: result,
			})
			return
		}
		if errors.Is(err, order.ErrNoItems) {
			respondError(w, http.StatusBadRequest, "order must contain at least one item")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	respondJSON(w, http.StatusCreated, toOrderDTO(created))
}

// ValidateOrder runs the collaborator checks without persisting anything
func (h *OrderHandler) ValidateOrder(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeOrderRequest(w, r)
	if !ok {
		return
	}

	result := h.service.Validate(r.Context(), input.UserID, input.TenantID, input.Items)
	respondJSON(w, http.StatusOK, result)
}

// GetOrder retrieves one order with its items
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetByID(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(o))
}

// ListUserOrders lists a user's orders, newest first
func (h *OrderHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListForUser(r.Context(), chi.URLParam(r, "userID"), tenantFilter(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	dtos := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, toOrderDTO(o))
	}
	respondJSON(w, http.StatusOK, dtos)
}

func decodeOrderRequest(w http.ResponseWriter, r *http.Request) (*order.CreateOrderInput, bool) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return nil, false
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "order must contain at least one item")
		return nil, false
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			respondError(w, http.StatusBadRequest, "each item needs a product_id and a positive quantity")
			return nil, false
		}
	}

	input := &order.CreateOrderInput{
		UserID:          req.UserID,
		TenantID:        req.TenantID,
		ShippingAddress: req.ShippingAddress,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, order.ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return input, true
}

func toOrderDTO(o *order.Order) orderDTO {
	dto := orderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		TenantID:        o.TenantID,
		ShippingAddress: o.ShippingAddress,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount(),
		Items:           make([]orderItemDTO, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, orderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return dto
}
