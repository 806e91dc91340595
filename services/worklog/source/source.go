// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package source provides record sources for the worklog pipeline: a
// live REST backend client, a deterministic synthetic source, and a
// resilient wrapper that falls back from live to synthetic.
package source

import (
	"context"
	"time"

	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
)

// =============================================================================
// RecordSource Interface
// =============================================================================

// RecordSource is the capability interface every backend implementation
// satisfies.
//
// Description:
//
//	Each operation returns a uniform result envelope instead of an
//	error: expected failure modes (network error, non-2xx, empty
//	result) are reported through Result.Success and Result.Message.
//	An empty-but-successful result (Success true, zero-length Data)
//	is a valid answer and distinct from a failure.
//
//	employeeID scoping: an empty employeeID means the fetch is
//	unscoped (all employees), subject to the limit cap. A zero start
//	or end time means that bound is open.
//
// Thread Safety: implementations must be safe for concurrent use.
type RecordSource interface {
	// Name identifies the source in logs and status output.
	Name() string

	// GetEmployees returns the full employee directory.
	GetEmployees(ctx context.Context) datatypes.Result[[]datatypes.Employee]

	// GetTasks returns tasks, optionally scoped to one employee.
	GetTasks(ctx context.Context, employeeID string, limit int) datatypes.Result[[]datatypes.Task]

	// GetTimeEntries returns logged work, optionally scoped to one
	// employee and bounded to [start, end] calendar days.
	GetTimeEntries(ctx context.Context, employeeID string, start, end time.Time, limit int) datatypes.Result[[]datatypes.TimeEntry]

	// GetProjects returns projects matching the name filter, or all
	// projects when name is empty.
	GetProjects(ctx context.Context, name string, limit int) datatypes.Result[[]datatypes.Project]

	// GetWorkTypes returns the work-type reference list. It doubles
	// as the cheap availability probe.
	GetWorkTypes(ctx context.Context) datatypes.Result[[]datatypes.WorkType]

	// CheckOverdue reports whether the employee has overdue tasks.
	CheckOverdue(ctx context.Context, employeeID string) datatypes.Result[*datatypes.OverdueInfo]
}
