//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

package telemetry_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fogfish/it/v2"
	"github.com/fogfish/suitestarter/internal/config"
	"github.com/fogfish/suitestarter/internal/telemetry"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestCarrier(t *testing.T) {
	t.Run("NoSpan", func(t *testing.T) {
		val, err := telemetry.Carrier(context.Background())
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(val, ""),
		)
	})

	t.Run("Span", func(t *testing.T) {
		provider := sdktrace.NewTracerProvider()
		defer provider.Shutdown(context.Background())

		ctx, span := provider.Tracer("test").Start(context.Background(), "test")
		defer span.End()

		val, err := telemetry.Carrier(ctx)
		it.Then(t).Should(it.Nil(err))

		var carrier map[string]string
		err = json.Unmarshal([]byte(val), &carrier)
		it.Then(t).Should(
			it.Nil(err),
			it.Equal(carrier["traceparent"], "00-"+span.SpanContext().TraceID().String()+"-"+span.SpanContext().SpanID().String()+"-01"),
		)
	})
}

func TestExtract(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	defer provider.Shutdown(context.Background())

	ctx, span := provider.Tracer("test").Start(context.Background(), "test")
	defer span.End()

	headers := map[string][]string{}
	telemetry.Inject(ctx, headers)

	remote := trace.SpanContextFromContext(telemetry.Extract(context.Background(), headers))
	it.Then(t).Should(
		it.True(remote.IsRemote()),
		it.Equal(remote.TraceID(), span.SpanContext().TraceID()),
	)

	t.Run("NoHeaders", func(t *testing.T) {
		sc := trace.SpanContextFromContext(telemetry.Extract(context.Background(), nil))
		it.Then(t).ShouldNot(it.True(sc.IsValid()))
	})
}

func TestSetupDisabled(t *testing.T) {
	for _, endpoint := range []string{"", config.Null} {
		shutdown, err := telemetry.Setup(context.Background(), "test", "0.0.0", endpoint)
		it.Then(t).Should(
			it.Nil(err),
			it.Nil(shutdown(context.Background())),
		)

		_, enabled := otel.GetTracerProvider().(*sdktrace.TracerProvider)
		it.Then(t).ShouldNot(it.True(enabled))
	}
}
