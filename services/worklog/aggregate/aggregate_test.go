// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itplan/worklog-assistant/services/worklog/config"
	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
)

var testLimits = config.FetchLimits{
	TasksScoped:         100,
	TasksUnscoped:       50,
	TimeEntriesScoped:   200,
	TimeEntriesUnscoped: 100,
	Projects:            30,
	RecentActivity:      100,
	TopTasks:            50,
}

func mayTimeframe() datatypes.Timeframe {
	return datatypes.Timeframe{
		Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
		Label: "May 2024",
	}
}

func ivanContext() datatypes.QueryContext {
	emp := datatypes.Employee{ID: "u-ivan", DisplayName: "Ivan"}
	return datatypes.QueryContext{
		Query:     "What did Ivan do in May 2024?",
		Match:     datatypes.NameMatch{Kind: datatypes.MatchEmployee, Employee: &emp},
		Timeframe: mayTimeframe(),
		Intent:    datatypes.IntentUserActivity,
		Needs:     datatypes.Needs{Tasks: true, TimeEntries: true},
		Employees: []datatypes.Employee{emp},
	}
}

// ivanRecords is the end-to-end fixture: 3 tasks and 5 May entries for
// Ivan, plus 2 April entries that the time filter must drop.
func ivanRecords() datatypes.RawRecords {
	tasks := []datatypes.Task{
		{ID: "t-1", Title: "Parser rework", Description: "Parser rework", DueDate: "2024-05-10", Status: "active", EmployeeID: "u-ivan", Hours: 8},
		{ID: "t-2", Title: "API integration", Description: "API integration", DueDate: "2024-05-20", Status: "active", EmployeeID: "u-ivan", Hours: 8},
		{ID: "t-3", Title: "Code review", Description: "Code review", DueDate: "2024-05-25", Status: "active", EmployeeID: "u-ivan", Hours: 4},
	}
	entries := []datatypes.TimeEntry{
		{ID: "e-1", EmployeeID: "u-ivan", Description: "parsing", Minutes: 480, Date: "2024-05-02", TaskID: "t-1", ProjectID: "p-1", WorkTypeID: "wt-dev"},
		{ID: "e-2", EmployeeID: "u-ivan", Description: "parsing", Minutes: 240, Date: "2024-05-03", TaskID: "t-1", ProjectID: "p-1", WorkTypeID: "wt-dev"},
		{ID: "e-3", EmployeeID: "u-ivan", Description: "integration", Minutes: 360, Date: "2024-05-12", TaskID: "t-2", ProjectID: "p-1", WorkTypeID: "wt-dev"},
		{ID: "e-4", EmployeeID: "u-ivan", Description: "review", Minutes: 90, Date: "2024-05-21", TaskID: "t-3", ProjectID: "p-2", WorkTypeID: "wt-review"},
		{ID: "e-5", EmployeeID: "u-ivan", Description: "meeting", Minutes: 60, Date: "2024-05-30", TaskID: "", ProjectID: "p-2", WorkTypeID: "wt-meet"},
		// April entries, outside the window.
		{ID: "e-6", EmployeeID: "u-ivan", Description: "april work", Minutes: 480, Date: "2024-04-10", TaskID: "t-1", ProjectID: "p-1", WorkTypeID: "wt-dev"},
		{ID: "e-7", EmployeeID: "u-ivan", Description: "april work", Minutes: 120, Date: "2024-04-28", TaskID: "t-2", ProjectID: "p-1", WorkTypeID: "wt-dev"},
	}
	return datatypes.RawRecords{
		Employees:   []datatypes.Employee{{ID: "u-ivan", DisplayName: "Ivan"}},
		WorkTypes:   []datatypes.WorkType{{ID: "wt-dev", Name: "Development"}, {ID: "wt-review", Name: "Review"}, {ID: "wt-meet", Name: "Meeting"}},
		Tasks:       tasks,
		TimeEntries: entries,
		Projects:    []datatypes.Project{{ID: "p-1", Name: "Assistant"}, {ID: "p-2", Name: "Internal"}},
	}
}

func TestAggregateIvanInMay(t *testing.T) {
	a := NewAggregator(testLimits)
	out := a.Aggregate(ivanRecords(), ivanContext())

	require.Len(t, out.Employees, 1)
	ivan := out.Employees[0]
	assert.Equal(t, "Ivan", ivan.Name)
	assert.Equal(t, 3, ivan.TaskCount)
	assert.Len(t, ivan.TimeEntries, 5, "April entries must be filtered out")

	wantMinutes := 480 + 240 + 360 + 90 + 60
	assert.InDelta(t, float64(wantMinutes)/60, ivan.TotalHours, 1e-6)

	assert.Equal(t, []string{"Development", "Meeting", "Review"}, ivan.WorkTypes)
	assert.Equal(t, []string{"Assistant", "Internal"}, ivan.Projects)

	assert.Equal(t, 3, out.Summary.TotalTasks)
	assert.Equal(t, 5, out.Summary.TotalTimeEntries)
	assert.Equal(t, 1, out.Summary.TotalUsers)
	assert.Equal(t, "May 2024", out.Summary.DateRange)
}

func TestAggregateMinutesInvariant(t *testing.T) {
	a := NewAggregator(testLimits)
	out := a.Aggregate(ivanRecords(), ivanContext())

	for _, emp := range out.Employees {
		sum := 0
		for _, e := range emp.TimeEntries {
			sum += e.Minutes
		}
		assert.InDelta(t, float64(sum)/60, emp.TotalHours, 1e-6, "employee %s", emp.Name)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	a := NewAggregator(testLimits)
	first := a.Aggregate(ivanRecords(), ivanContext())
	second := a.Aggregate(ivanRecords(), ivanContext())
	assert.Equal(t, first, second)
}

func TestAggregateSkipsTimeFilterForTeamQueries(t *testing.T) {
	a := NewAggregator(testLimits)
	qc := ivanContext()
	qc.Match = datatypes.NameMatch{Kind: datatypes.MatchAll}

	out := a.Aggregate(ivanRecords(), qc)
	require.Len(t, out.Employees, 1)
	assert.Len(t, out.Employees[0].TimeEntries, 7, "team-wide queries keep the full set")
	assert.Equal(t, 7, out.Summary.TotalTimeEntries)
}

func TestAggregateSkipsTimeFilterForGeneralInfo(t *testing.T) {
	a := NewAggregator(testLimits)
	qc := ivanContext()
	qc.Intent = datatypes.IntentGeneralInfo

	out := a.Aggregate(ivanRecords(), qc)
	assert.Equal(t, 7, out.Summary.TotalTimeEntries)
}

func TestAggregateUnknownEmployeeLabel(t *testing.T) {
	a := NewAggregator(testLimits)
	raw := ivanRecords()
	raw.TimeEntries = append(raw.TimeEntries, datatypes.TimeEntry{
		ID: "e-8", EmployeeID: "u-ghost", Description: "mystery", Minutes: 30, Date: "2024-05-15",
	})

	out := a.Aggregate(raw, ivanContext())
	require.Len(t, out.Employees, 2)
	// Sorted by name: "Ivan" < "unknown employee".
	assert.Equal(t, "unknown employee", out.Employees[1].Name)
	assert.InDelta(t, 0.5, out.Employees[1].TotalHours, 1e-6)
}

func TestRecentActivityOrderingAndPlaceholder(t *testing.T) {
	a := NewAggregator(testLimits)
	out := a.Aggregate(ivanRecords(), ivanContext())

	require.Len(t, out.RecentActivity, 5)
	for i := 1; i < len(out.RecentActivity); i++ {
		assert.GreaterOrEqual(t, out.RecentActivity[i-1].Date, out.RecentActivity[i].Date, "newest first")
	}
	// e-5 has no task reference; newest entry, so it gets position 1.
	assert.Equal(t, "2024-05-30", out.RecentActivity[0].Date)
	assert.Equal(t, "Task #1", out.RecentActivity[0].Task)
}

func TestRecentActivityCap(t *testing.T) {
	limits := testLimits
	limits.RecentActivity = 2
	a := NewAggregator(limits)
	out := a.Aggregate(ivanRecords(), ivanContext())
	assert.Len(t, out.RecentActivity, 2)
}

func TestTopTasksSummedAndSorted(t *testing.T) {
	a := NewAggregator(testLimits)
	out := a.Aggregate(ivanRecords(), ivanContext())

	require.NotEmpty(t, out.TopTasks)
	// t-1 has 480+240 minutes = 12h, the heaviest bucket.
	assert.Equal(t, "Parser rework", out.TopTasks[0].Title)
	assert.InDelta(t, 12.0, out.TopTasks[0].Hours, 1e-6)
	for i := 1; i < len(out.TopTasks); i++ {
		assert.GreaterOrEqual(t, out.TopTasks[i-1].Hours, out.TopTasks[i].Hours)
	}
}

func TestAggregateEmptyInputIsWellFormed(t *testing.T) {
	a := NewAggregator(testLimits)
	raw := datatypes.RawRecords{
		Employees:   []datatypes.Employee{},
		WorkTypes:   []datatypes.WorkType{},
		Tasks:       []datatypes.Task{},
		TimeEntries: []datatypes.TimeEntry{},
		Projects:    []datatypes.Project{},
	}
	out := a.Aggregate(raw, ivanContext())

	assert.NotNil(t, out.Employees)
	assert.NotNil(t, out.RecentActivity)
	assert.NotNil(t, out.TopTasks)
	assert.Zero(t, out.Summary.TotalTasks)
	assert.Zero(t, out.Summary.TotalTimeEntries)
	assert.Equal(t, "May 2024", out.Summary.DateRange)
}

func TestAggregateOverdueInfoAttached(t *testing.T) {
	a := NewAggregator(testLimits)
	raw := ivanRecords()
	raw.OverdueInfo = &datatypes.OverdueInfo{HasOverdue: true, Details: "2 tasks past due"}

	out := a.Aggregate(raw, ivanContext())
	require.NotNil(t, out.OverdueInfo)
	assert.True(t, out.OverdueInfo.HasOverdue)
	assert.Equal(t, "Ivan", out.OverdueInfo.EmployeeName, "name backfilled from the match")
	assert.True(t, out.Summary.HasOverdueInfo)

	require.Len(t, out.Employees, 1)
	assert.True(t, out.Employees[0].HasOverdueTasks, "overdue result pinned to the matched employee")
}

func TestAggregateNoOverdueLeavesFlagUnset(t *testing.T) {
	a := NewAggregator(testLimits)
	raw := ivanRecords()
	raw.OverdueInfo = &datatypes.OverdueInfo{HasOverdue: false}

	out := a.Aggregate(raw, ivanContext())
	require.Len(t, out.Employees, 1)
	assert.False(t, out.Employees[0].HasOverdueTasks)
}

func TestAggregateDropsUndatedTasks(t *testing.T) {
	a := NewAggregator(testLimits)
	raw := ivanRecords()
	raw.Tasks = append(raw.Tasks, datatypes.Task{
		ID: "t-4", Title: "Backlog grooming", Status: "active", EmployeeID: "u-ivan",
	})

	out := a.Aggregate(raw, ivanContext())
	assert.Equal(t, 3, out.Summary.TotalTasks, "a task without a due date falls outside any window")
	require.Len(t, out.Employees, 1)
	assert.Equal(t, 3, out.Employees[0].TaskCount)
}
