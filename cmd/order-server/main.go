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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/permitd/permitd/internal/audit"
	"github.com/permitd/permitd/internal/config"
	"github.com/permitd/permitd/internal/identity"
	"github.com/permitd/permitd/internal/observability/logger"
	"github.com/permitd/permitd/internal/observability/tracing"
	"github.com/permitd/permitd/internal/order"
	"github.com/permitd/permitd/internal/permclient"
	"github.com/permitd/permitd/internal/product"
	"github.com/permitd/permitd/internal/store/postgres"
	"github.com/permitd/permitd/internal/token"
	transportHTTP "github.com/permitd/permitd/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load("order-server")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting order server")

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Collaborator clients
	identityClient := identity.NewClient(cfg.Collaborators.IdentityURL, cfg.Collaborators.CallTimeout)
	permissionClient := permclient.NewClient(cfg.Collaborators.PermissionURL, cfg.Collaborators.CallTimeout)
	productClient := product.NewClient(cfg.Collaborators.ProductURL, cfg.Collaborators.CallTimeout)

	// Initialize services
	auditLogger := audit.NewSlogLogger()
	orderRepo := postgres.NewOrderRepository(db)
	validator := order.NewValidator(identityClient, permissionClient, productClient, cfg.Collaborators.ValidationTimeout)
	orderService := order.NewService(orderRepo, validator, auditLogger)

	var verifier *token.Verifier
	if cfg.Security.JWTSecret != "" {
		verifier = token.NewVerifier([]byte(cfg.Security.JWTSecret), cfg.Security.JWTIssuer)
	} else {
		slog.Warn("JWT_SECRET not set, order endpoints are unauthenticated")
	}

	// Rate limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Initialize HTTP handler and router
	handler := transportHTTP.NewOrderHandler(orderService, verifier)
	router := transportHTTP.NewOrderRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}
