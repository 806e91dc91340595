// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	sourceCallTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "source",
		Name:      "call_total",
		Help:      "Record source calls by operation and outcome: live, fallback, synthetic",
	}, []string{"operation", "outcome"})

	sourceModeSwitchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "source",
		Name:      "mode_switch_total",
		Help:      "Explicit backend mode switches by target mode",
	}, []string{"mode"})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var fallbackTracer = otel.Tracer("worklog.source.fallback")

// =============================================================================
// FallbackSource
// =============================================================================

// Mode values reported by FallbackSource.Mode.
const (
	ModeLive      = "live"
	ModeSynthetic = "synthetic"
)

// SourceStatus is the operator-visible state of the fallback wrapper.
type SourceStatus struct {
	Mode               string `json:"mode"`
	LiveAvailable      bool   `json:"liveAvailable"`
	SyntheticAvailable bool   `json:"syntheticAvailable"`
}

// FallbackSource composes a live and a synthetic RecordSource behind a
// single resilient surface.
//
// Description:
//
//	On construction it probes the live source once with a cheap read
//	and records the result in liveAvailable. Per operation: if the
//	flag is false, the synthetic source is called directly; otherwise
//	the live source is tried first and the synthetic source absorbs
//	any failed call. A failed live call does NOT flip the flag, so a
//	transient error self-heals on the next call. Only the explicit
//	mode-switch operations mutate the flag; SwitchToLive re-probes
//	before trusting the live source again.
//
//	The wrapper itself never fails: an empty-but-successful live
//	result is passed through untouched, never treated as a miss.
//
// Thread Safety: safe for concurrent use. The mode flag is a single
// atomic; no multi-step critical section exists.
type FallbackSource struct {
	live          RecordSource
	synthetic     RecordSource
	liveAvailable atomic.Bool
	logger        *slog.Logger
}

// NewFallbackSource creates the wrapper and probes the live source.
//
// Inputs:
//
//	ctx - Governs the availability probe.
//	live - The live backend source. Must not be nil.
//	synthetic - The always-available stand-in. Must not be nil.
//	logger - Logger instance. Must not be nil.
func NewFallbackSource(ctx context.Context, live, synthetic RecordSource, logger *slog.Logger) *FallbackSource {
	f := &FallbackSource{
		live:      live,
		synthetic: synthetic,
		logger:    logger,
	}
	f.probe(ctx)
	return f
}

// probe tests live availability with the cheapest read and records it.
func (f *FallbackSource) probe(ctx context.Context) bool {
	start := time.Now()
	res := f.live.GetWorkTypes(ctx)
	f.liveAvailable.Store(res.Success)
	if res.Success {
		f.logger.Info("live backend available",
			slog.Duration("probe_duration", time.Since(start)))
	} else {
		f.logger.Warn("live backend unavailable, synthetic fallback active",
			slog.String("reason", res.Message),
			slog.Duration("probe_duration", time.Since(start)))
	}
	return res.Success
}

// Name implements RecordSource.
func (f *FallbackSource) Name() string { return "fallback" }

// Mode reports which backend currently serves calls.
func (f *FallbackSource) Mode() string {
	if f.liveAvailable.Load() {
		return ModeLive
	}
	return ModeSynthetic
}

// Status reports the wrapper state for the status endpoint.
func (f *FallbackSource) Status() SourceStatus {
	return SourceStatus{
		Mode:               f.Mode(),
		LiveAvailable:      f.liveAvailable.Load(),
		SyntheticAvailable: true,
	}
}

// SwitchToSynthetic forces all subsequent calls to the synthetic
// source until the next explicit switch. Sticky, unlike the per-call
// fallback.
func (f *FallbackSource) SwitchToSynthetic() SourceStatus {
	f.liveAvailable.Store(false)
	sourceModeSwitchTotal.WithLabelValues(ModeSynthetic).Inc()
	f.logger.Info("backend mode switched", slog.String("mode", ModeSynthetic))
	return f.Status()
}

// SwitchToLive re-probes the live source and enables it if the probe
// succeeds. When the probe fails the wrapper stays on synthetic.
func (f *FallbackSource) SwitchToLive(ctx context.Context) SourceStatus {
	ok := f.probe(ctx)
	sourceModeSwitchTotal.WithLabelValues(ModeLive).Inc()
	f.logger.Info("backend mode switch requested",
		slog.String("target", ModeLive),
		slog.Bool("live_available", ok))
	return f.Status()
}

// callWithFallback runs one operation through the live-then-synthetic
// policy. A live failure falls back for this call only and leaves the
// availability flag untouched.
func callWithFallback[T any](f *FallbackSource, ctx context.Context, operation string, call func(context.Context, RecordSource) datatypes.Result[T]) datatypes.Result[T] {
	ctx, span := fallbackTracer.Start(ctx, "source."+operation)
	defer span.End()

	if !f.liveAvailable.Load() {
		span.SetAttributes(attribute.String("source", "synthetic_direct"))
		sourceCallTotal.WithLabelValues(operation, "synthetic").Inc()
		return call(ctx, f.synthetic)
	}

	res := call(ctx, f.live)
	if res.Success {
		span.SetAttributes(attribute.String("source", "live"))
		sourceCallTotal.WithLabelValues(operation, "live").Inc()
		return res
	}

	span.SetAttributes(attribute.String("source", "fallback"))
	sourceCallTotal.WithLabelValues(operation, "fallback").Inc()
	f.logger.Warn("live call failed, serving synthetic result",
		slog.String("operation", operation),
		slog.String("reason", res.Message))
	return call(ctx, f.synthetic)
}

// GetEmployees implements RecordSource.
func (f *FallbackSource) GetEmployees(ctx context.Context) datatypes.Result[[]datatypes.Employee] {
	return callWithFallback(f, ctx, "get_employees", func(ctx context.Context, s RecordSource) datatypes.Result[[]datatypes.Employee] {
		return s.GetEmployees(ctx)
	})
}

// GetTasks implements RecordSource.
func (f *FallbackSource) GetTasks(ctx context.Context, employeeID string, limit int) datatypes.Result[[]datatypes.Task] {
	return callWithFallback(f, ctx, "get_tasks", func(ctx context.Context, s RecordSource) datatypes.Result[[]datatypes.Task] {
		return s.GetTasks(ctx, employeeID, limit)
	})
}

// GetTimeEntries implements RecordSource.
func (f *FallbackSource) GetTimeEntries(ctx context.Context, employeeID string, start, end time.Time, limit int) datatypes.Result[[]datatypes.TimeEntry] {
	return callWithFallback(f, ctx, "get_time_entries", func(ctx context.Context, s RecordSource) datatypes.Result[[]datatypes.TimeEntry] {
		return s.GetTimeEntries(ctx, employeeID, start, end, limit)
	})
}

// GetProjects implements RecordSource.
func (f *FallbackSource) GetProjects(ctx context.Context, name string, limit int) datatypes.Result[[]datatypes.Project] {
	return callWithFallback(f, ctx, "get_projects", func(ctx context.Context, s RecordSource) datatypes.Result[[]datatypes.Project] {
		return s.GetProjects(ctx, name, limit)
	})
}

// GetWorkTypes implements RecordSource.
func (f *FallbackSource) GetWorkTypes(ctx context.Context) datatypes.Result[[]datatypes.WorkType] {
	return callWithFallback(f, ctx, "get_work_types", func(ctx context.Context, s RecordSource) datatypes.Result[[]datatypes.WorkType] {
		return s.GetWorkTypes(ctx)
	})
}

// CheckOverdue implements RecordSource.
func (f *FallbackSource) CheckOverdue(ctx context.Context, employeeID string) datatypes.Result[*datatypes.OverdueInfo] {
	return callWithFallback(f, ctx, "check_overdue", func(ctx context.Context, s RecordSource) datatypes.Result[*datatypes.OverdueInfo] {
		return s.CheckOverdue(ctx, employeeID)
	})
}
