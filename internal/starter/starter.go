//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

// Package starter launches ETOS suite runner (ESR) for each TERCC event.
package starter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fogfish/logger/v3"
	"github.com/fogfish/suitestarter/internal/config"
	"github.com/fogfish/suitestarter/internal/esr"
	"github.com/fogfish/suitestarter/internal/events"
	"github.com/fogfish/suitestarter/internal/manifest"
	"github.com/fogfish/suitestarter/internal/metrics"
	"github.com/fogfish/suitestarter/internal/scheduler"
	"github.com/fogfish/suitestarter/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AssertionError is a violated precondition of suite runner launch.
// The event cannot be consumed without operator's intervention.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string { return e.Message }

// IsAssertion checks if err is caused by AssertionError
func IsAssertion(err error) bool {
	var e *AssertionError
	return errors.As(err, &e)
}

// JobName of suite runner, it is unique per suffix
func JobName(suiteID, suffix string) string {
	return strings.ToLower(fmt.Sprintf("suite-runner-%s-%s", suiteID, suffix))
}

// uuid first group, 8 hex digits
func uniqueSuffix() string {
	id, _, _ := strings.Cut(uuid.NewString(), "-")
	return id
}

type Option func(*Starter)

// WithSuffix overrides the source of job name uniqueness
func WithSuffix(f func() string) Option {
	return func(s *Starter) { s.suffix = f }
}

// Starter renders the suite runner template and submits it as job.
// Configuration and template are immutable, the callback is safe for
// concurrent use.
type Starter struct {
	config    config.Config
	template  *esr.Template
	scheduler scheduler.Submitter
	suffix    func() string
	tracer    trace.Tracer
}

func New(cfg config.Config, tmpl *esr.Template, sched scheduler.Submitter, opts ...Option) *Starter {
	s := &Starter{
		config:    cfg,
		template:  tmpl,
		scheduler: sched,
		suffix:    uniqueSuffix,
		tracer:    otel.Tracer("github.com/fogfish/suitestarter"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SuiteRunnerCallback starts a suite runner for TERCC event. It returns true
// if the event is consumed.
func (s *Starter) SuiteRunnerCallback(ctx context.Context, evt *events.TERCC) (bool, error) {
	suiteID := evt.ID()
	log := slog.With("suite_id", suiteID)

	ctx, span := s.tracer.Start(ctx, "suite_runner_callback",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("etos.suite_id", suiteID)),
	)
	defer span.End()

	metrics.EventsReceived.Inc()

	val, err := s.render(ctx, suiteID, evt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if IsAssertion(err) {
			metrics.EventsFailed.WithLabelValues("assertion").Inc()
			log.Log(ctx, logger.CRITICAL, "suite runner is not started", "err", err)
		} else {
			metrics.EventsFailed.WithLabelValues("render").Inc()
			log.Error("suite runner template is not rendered", "err", err)
		}

		return false, err
	}

	manifest.RemoveEmptyConfigMaps(val)

	t := time.Now()
	job, err := s.scheduler.Submit(ctx, val)
	metrics.SubmitDuration.Observe(float64(time.Since(t).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.EventsFailed.WithLabelValues("submit").Inc()
		log.Error("suite runner job is not created", "err", err)
		return false, fmt.Errorf("submit suite runner %s: %w", suiteID, err)
	}

	metrics.JobsSubmitted.Inc()
	log.Info("started new executor", "job", job)

	return true, nil
}

func (s *Starter) render(ctx context.Context, suiteID string, evt *events.TERCC) (manifest.Value, error) {
	payload, err := evt.JSON()
	if err != nil {
		return nil, fmt.Errorf("serialize TERCC: %w", err)
	}

	if payload == "" {
		return nil, &AssertionError{Message: "Missing TERCC in event"}
	}

	if missing := s.config.Missing(); len(missing) > 0 {
		return nil, &AssertionError{Message: fmt.Sprintf("Missing %s in environment", missing[0])}
	}

	carrier, err := telemetry.Carrier(ctx)
	if err != nil {
		return nil, fmt.Errorf("serialize tracing context: %w", err)
	}

	jobName := JobName(suiteID, s.suffix())
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("etos.job_name", jobName))

	return s.template.Render(esr.Values{
		Config:       s.config,
		SuiteID:      suiteID,
		JobName:      jobName,
		EventJSON:    payload,
		TraceCarrier: carrier,
	})
}
