// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loader fetches the record types a resolved query needs,
// concurrently, with per-fetch failure isolation.
package loader

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/itplan/worklog-assistant/services/worklog/config"
	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
	"github.com/itplan/worklog-assistant/services/worklog/source"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	loaderFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "loader",
		Name:      "fetch_failures_total",
		Help:      "Record fetches that degraded to an empty result, by record type",
	}, []string{"record_type"})

	loaderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "worklog",
		Subsystem: "loader",
		Name:      "load_duration_seconds",
		Help:      "Wall time of the full fan-out load",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 15.0},
	})
)

var loaderTracer = otel.Tracer("worklog.loader")

// =============================================================================
// Loader
// =============================================================================

// Loader pulls raw records through a RecordSource according to a
// resolved QueryContext.
//
// Description:
//
//	Only the record types named by context.Needs are fetched. The
//	independent fetches run concurrently with join-all semantics: a
//	failed fetch degrades to an empty list for that record type and
//	never cancels the others. When the name matcher resolved a
//	concrete employee, per-employee fetches are scoped to that
//	identity and use the scoped limit caps; ALL and unresolved
//	queries fetch unscoped under the tighter unscoped caps. The
//	overdue check runs only when a concrete identity exists.
//
// Thread Safety: Loader is stateless and safe for concurrent use.
type Loader struct {
	src    source.RecordSource
	limits config.FetchLimits
	logger *slog.Logger
}

// NewLoader creates a Loader.
//
// Inputs:
//
//	src - The resilient record source. Must not be nil.
//	limits - Backend-side fetch caps, from the intent configuration.
//	logger - Logger instance. Must not be nil.
func NewLoader(src source.RecordSource, limits config.FetchLimits, logger *slog.Logger) *Loader {
	return &Loader{src: src, limits: limits, logger: logger}
}

// Load executes the selective fan-out for one query.
//
// Outputs:
//
//	datatypes.RawRecords - Always well formed; every slice is non-nil
//	even when its fetch failed or was not requested.
func (l *Loader) Load(ctx context.Context, qc datatypes.QueryContext) datatypes.RawRecords {
	ctx, span := loaderTracer.Start(ctx, "loader.load")
	defer span.End()
	started := time.Now()

	employeeID := ""
	if qc.Match.Kind == datatypes.MatchEmployee && qc.Match.Employee != nil {
		employeeID = qc.Match.Employee.ID
	}
	scoped := employeeID != ""
	span.SetAttributes(
		attribute.Bool("scoped", scoped),
		attribute.String("intent", string(qc.Intent)),
	)

	raw := datatypes.RawRecords{
		Employees:   append([]datatypes.Employee(nil), qc.Employees...),
		WorkTypes:   []datatypes.WorkType{},
		Tasks:       []datatypes.Task{},
		TimeEntries: []datatypes.TimeEntry{},
		Projects:    []datatypes.Project{},
	}

	g, gctx := errgroup.WithContext(ctx)

	if qc.Needs.Tasks {
		limit := l.limits.TasksUnscoped
		if scoped {
			limit = l.limits.TasksScoped
		}
		g.Go(func() error {
			res := l.src.GetTasks(gctx, employeeID, limit)
			if !res.Success {
				l.degrade("tasks", res.Message)
				return nil
			}
			raw.Tasks = res.Data
			return nil
		})
	}

	if qc.Needs.TimeEntries {
		limit := l.limits.TimeEntriesUnscoped
		if scoped {
			limit = l.limits.TimeEntriesScoped
		}
		// Date bounds apply only to scoped fetches; unscoped queries
		// pull the full set and downstream filtering decides.
		var start, end time.Time
		if scoped {
			start, end = qc.Timeframe.Start, qc.Timeframe.End
		}
		g.Go(func() error {
			res := l.src.GetTimeEntries(gctx, employeeID, start, end, limit)
			if !res.Success {
				l.degrade("time_entries", res.Message)
				return nil
			}
			raw.TimeEntries = res.Data
			return nil
		})
	}

	// Work types are a tiny reference table used for labeling; always
	// loaded regardless of the needs bundle.
	g.Go(func() error {
		res := l.src.GetWorkTypes(gctx)
		if !res.Success {
			l.degrade("work_types", res.Message)
			return nil
		}
		raw.WorkTypes = res.Data
		return nil
	})

	if qc.Needs.Projects {
		g.Go(func() error {
			res := l.src.GetProjects(gctx, "", l.limits.Projects)
			if !res.Success {
				l.degrade("projects", res.Message)
				return nil
			}
			raw.Projects = res.Data
			return nil
		})
	}

	// No identity, nothing to check: UNKNOWN_SINGLE and unscoped
	// queries skip the overdue probe entirely.
	if qc.Needs.Overdue && scoped {
		g.Go(func() error {
			res := l.src.CheckOverdue(gctx, employeeID)
			if !res.Success {
				l.degrade("overdue", res.Message)
				return nil
			}
			raw.OverdueInfo = res.Data
			return nil
		})
	}

	// Fetch closures never return errors; Wait only joins.
	_ = g.Wait()

	if raw.Tasks == nil {
		raw.Tasks = []datatypes.Task{}
	}
	if raw.TimeEntries == nil {
		raw.TimeEntries = []datatypes.TimeEntry{}
	}

	loaderDuration.Observe(time.Since(started).Seconds())
	l.logger.Debug("selective load complete",
		slog.Int("tasks", len(raw.Tasks)),
		slog.Int("time_entries", len(raw.TimeEntries)),
		slog.Int("projects", len(raw.Projects)),
		slog.Int("work_types", len(raw.WorkTypes)),
		slog.Bool("scoped", scoped),
		slog.Duration("duration", time.Since(started)))
	return raw
}

// degrade records one fetch that fell back to an empty result.
func (l *Loader) degrade(recordType, reason string) {
	loaderFetchFailures.WithLabelValues(recordType).Inc()
	l.logger.Warn("record fetch degraded to empty result",
		slog.String("record_type", recordType),
		slog.String("reason", reason))
}
