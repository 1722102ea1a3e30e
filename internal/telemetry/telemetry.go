//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

// Package telemetry configures OpenTelemetry tracing and transfers
// the tracing context across process boundaries.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fogfish/suitestarter/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// W3C trace context
var propagator = propagation.TraceContext{}

// Setup installs global tracer provider exporting spans to OTLP endpoint.
// Tracing is not enabled if endpoint is empty or null, the returned shutdown
// function is always valid.
func Setup(ctx context.Context, service, version, endpoint string) (func(context.Context) error, error) {
	if !config.IsSet(endpoint) {
		return func(context.Context) error { return nil }, nil
	}

	// exporter reads endpoint from OTEL_EXPORTER_OTLP_* environment
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithProcess(),
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(service),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagator)

	slog.Info("tracing enabled", "service", service, "endpoint", endpoint)

	return provider.Shutdown, nil
}

// Carrier serializes tracing context of ctx as JSON object, e.g.
// {"traceparent":"00-..."}. Empty string is returned if there is
// no active span.
func Carrier(ctx context.Context) (string, error) {
	carrier := propagation.MapCarrier{}
	propagator.Inject(ctx, carrier)
	if len(carrier) == 0 {
		return "", nil
	}

	b, err := json.Marshal(carrier)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// Extract tracing context from message headers
func Extract(ctx context.Context, headers map[string][]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}

	carrier := propagation.MapCarrier{}
	for key, val := range headers {
		if len(val) > 0 {
			carrier[strings.ToLower(key)] = val[0]
		}
	}

	return propagator.Extract(ctx, carrier)
}

// Inject tracing context into message headers
func Inject(ctx context.Context, headers map[string][]string) {
	carrier := propagation.MapCarrier{}
	propagator.Inject(ctx, carrier)
	for key, val := range carrier {
		headers[key] = []string{val}
	}
}
