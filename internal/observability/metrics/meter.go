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

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{
			meter: otel.Meter("noop"),
		}, nil
	}

	// Meter from the global meter provider; exporters are configured by the
	// process that installs the provider.
	meter := otel.Meter(serviceName)

	return &Meter{
		meter: meter,
	}, nil
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// CheckMetrics holds the counters for the permission check surface
type CheckMetrics struct {
	ChecksTotal  metric.Int64Counter
	DeniedTotal  metric.Int64Counter
	GrantsTotal  metric.Int64Counter
	RevokesTotal metric.Int64Counter
}

// NewCheckMetrics registers the permission check counters
func NewCheckMetrics(m *Meter) (*CheckMetrics, error) {
	checks, err := m.CreateCounter("permission_checks_total", "Total permission checks served")
	if err != nil {
		return nil, err
	}
	denied, err := m.CreateCounter("permission_checks_denied_total", "Permission checks that resulted in a denial")
	if err != nil {
		return nil, err
	}
	grants, err := m.CreateCounter("permission_grants_total", "Grant operations accepted")
	if err != nil {
		return nil, err
	}
	revokes, err := m.CreateCounter("permission_revokes_total", "Revoke operations accepted")
	if err != nil {
		return nil, err
	}
	return &CheckMetrics{
		ChecksTotal:  checks,
		DeniedTotal:  denied,
		GrantsTotal:  grants,
		RevokesTotal: revokes,
	}, nil
}

// RecordCheck records one check outcome
func (c *CheckMetrics) RecordCheck(ctx context.Context, granted bool) {
	if c == nil {
		return
	}
	c.ChecksTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("granted", granted)))
	if !granted {
		c.DeniedTotal.Add(ctx, 1)
	}
}
