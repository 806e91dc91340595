// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package worklog wires the query pipeline together: name matching,
// timeframe extraction, intent classification, selective loading,
// aggregation, and the LLM formatting boundary, exposed over HTTP.
package worklog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/itplan/worklog-assistant/services/llm"
	"github.com/itplan/worklog-assistant/services/worklog/aggregate"
	"github.com/itplan/worklog-assistant/services/worklog/config"
	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
	"github.com/itplan/worklog-assistant/services/worklog/loader"
	"github.com/itplan/worklog-assistant/services/worklog/query"
	"github.com/itplan/worklog-assistant/services/worklog/source"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	serviceQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "service",
		Name:      "queries_total",
		Help:      "Resolved queries by intent and name-match kind",
	}, []string{"intent", "match"})

	serviceQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "worklog",
		Subsystem: "service",
		Name:      "query_duration_seconds",
		Help:      "End-to-end resolve-and-aggregate latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 15.0},
	})
)

var serviceTracer = otel.Tracer("worklog.service")

// ErrEmployeeDirectory is returned when the employee directory cannot
// be loaded at all. Name matching is impossible without it, so the
// query fails outright before any other data is fetched.
var ErrEmployeeDirectory = errors.New("employee directory unavailable")

// =============================================================================
// Service
// =============================================================================

// ModeSwitcher is the optional operator surface for flipping the
// backend between live and synthetic. The fallback source implements
// it; plain sources do not.
type ModeSwitcher interface {
	Mode() string
	Status() source.SourceStatus
	SwitchToSynthetic() source.SourceStatus
	SwitchToLive(ctx context.Context) source.SourceStatus
}

// Service is the worklog query pipeline.
//
// Description:
//
//	One instance serves the whole process. All per-query state lives
//	in the QueryContext built inside ResolveAndAggregate; the only
//	process-lifetime mutable state is the backend mode flag owned by
//	the record source.
//
// Thread Safety: Service is safe for concurrent use.
type Service struct {
	src        source.RecordSource
	loader     *loader.Loader
	aggregator *aggregate.Aggregator
	matcher    *query.Matcher
	classifier *query.Classifier
	formatter  llm.Client
	limiter    *llm.CallLimiter
	logger     *slog.Logger
	nowFn      func() time.Time
}

// ServiceConfig collects the Service dependencies.
//
// Inputs:
//
//	Source - The record source. Must not be nil. Pass the fallback
//	    wrapper to get resilience and the mode-switch surface.
//	Intents - Loaded intent configuration. Must not be nil.
//	Formatter - LLM client for answer formatting. Nil disables the
//	    formatting step; callers then receive only the raw artifact.
//	FormatterLimitPerMin - Formatting calls allowed per minute.
//	    Zero disables limiting.
//	Logger - Logger instance. Must not be nil.
//	Now - Clock override for tests. Nil uses time.Now.
type ServiceConfig struct {
	Source               source.RecordSource
	Intents              *config.IntentConfig
	Formatter            llm.Client
	FormatterLimitPerMin int
	Logger               *slog.Logger
	Now                  func() time.Time
}

// NewService creates the pipeline from its parts.
func NewService(cfg ServiceConfig) *Service {
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Service{
		src:        cfg.Source,
		loader:     loader.NewLoader(cfg.Source, cfg.Intents.Limits, cfg.Logger),
		aggregator: aggregate.NewAggregator(cfg.Intents.Limits),
		matcher:    query.NewMatcher(cfg.Intents),
		classifier: query.NewClassifier(cfg.Intents),
		formatter:  cfg.Formatter,
		limiter:    llm.NewCallLimiter(cfg.FormatterLimitPerMin),
		logger:     cfg.Logger,
		nowFn:      nowFn,
	}
}

// ResolveAndAggregate is the single pipeline entry point: free-text
// question in, well-formed aggregation artifact out.
//
// Description:
//
//	Loads the employee directory (the one hard prerequisite), then
//	resolves the query into a QueryContext, fans out the selective
//	load, and aggregates. Transport failures inside the load degrade
//	locally and never surface here; the only error condition is a
//	directory that cannot be loaded at all.
//
// Outputs:
//
//	datatypes.ProcessedData - Always well formed on nil error.
//	error - ErrEmployeeDirectory (wrapped) when name resolution was
//	    impossible.
func (s *Service) ResolveAndAggregate(ctx context.Context, queryText string) (datatypes.ProcessedData, error) {
	ctx, span := serviceTracer.Start(ctx, "service.resolve_and_aggregate")
	defer span.End()
	started := time.Now()

	employeesRes := s.src.GetEmployees(ctx)
	if !employeesRes.Success {
		span.SetAttributes(attribute.String("error", "employee_directory"))
		return datatypes.ProcessedData{}, fmt.Errorf("%w: %s", ErrEmployeeDirectory, employeesRes.Message)
	}

	qc := s.buildQueryContext(queryText, employeesRes.Data)
	span.SetAttributes(
		attribute.String("intent", string(qc.Intent)),
		attribute.String("match", qc.Match.Kind.String()),
		attribute.String("timeframe", qc.Timeframe.Label),
	)
	serviceQueriesTotal.WithLabelValues(string(qc.Intent), qc.Match.Kind.String()).Inc()

	raw := s.loader.Load(ctx, qc)
	out := s.aggregator.Aggregate(raw, qc)

	serviceQueryDuration.Observe(time.Since(started).Seconds())
	s.logger.Info("query resolved",
		slog.String("intent", string(qc.Intent)),
		slog.String("match", qc.Match.Kind.String()),
		slog.String("timeframe", qc.Timeframe.Label),
		slog.Int("employees", len(out.Employees)),
		slog.Duration("duration", time.Since(started)))
	return out, nil
}

// buildQueryContext runs the pure interpretation steps.
func (s *Service) buildQueryContext(queryText string, employees []datatypes.Employee) datatypes.QueryContext {
	match := s.matcher.Match(queryText, employees)
	timeframe := query.ExtractTimeframe(queryText, s.nowFn())
	intent := s.classifier.Classify(queryText)
	return datatypes.QueryContext{
		Query:     queryText,
		Match:     match,
		Timeframe: timeframe,
		Intent:    intent,
		Needs:     query.NeedsFor(intent),
		Employees: employees,
	}
}

// AnswerQuery resolves a query and formats the result through the LLM
// boundary.
//
// Description:
//
//	When no formatter is configured, or the formatter is rate-limited
//	or fails, the caller still gets the artifact; Answer is empty and
//	the reason is logged. The artifact is the contract, the prose is
//	best effort.
func (s *Service) AnswerQuery(ctx context.Context, queryText string) (string, datatypes.ProcessedData, error) {
	data, err := s.ResolveAndAggregate(ctx, queryText)
	if err != nil {
		return "", datatypes.ProcessedData{}, err
	}
	if s.formatter == nil {
		return "", data, nil
	}

	if ok, wait := s.limiter.Allow(); !ok {
		s.logger.Warn("formatter rate-limited, returning raw artifact",
			slog.Duration("retry_after", wait))
		return "", data, nil
	}

	prompt := llm.BuildAnalysisPrompt(data, queryText, s.nowFn())
	temperature := float32(0.3)
	maxTokens := 2000
	answer, err := s.formatter.Generate(ctx, prompt, llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		s.logger.Warn("formatter call failed, returning raw artifact",
			slog.String("error", err.Error()))
		return "", data, nil
	}
	return answer, data, nil
}

// ModeSwitcher returns the operator surface when the underlying source
// supports it.
func (s *Service) ModeSwitcher() (ModeSwitcher, bool) {
	ms, ok := s.src.(ModeSwitcher)
	return ms, ok
}
