// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aggregate turns raw records into the per-employee summary
// artifact handed to the LLM formatting boundary.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/itplan/worklog-assistant/services/worklog/config"
	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
)

// unknownEmployeeLabel groups records whose owner cannot be resolved
// against the employee directory.
const unknownEmployeeLabel = "unknown employee"

// Aggregator builds ProcessedData from RawRecords.
//
// Description:
//
//	Aggregation is fully deterministic: identical inputs produce
//	byte-identical output. Employee groups are sorted by name, the
//	work-type and project sets are sorted after deduplication, and
//	every descending sort breaks ties on a stable secondary key.
//	Minutes are the authoritative time unit; hour figures are derived
//	by a single division per employee so the minutes/60 invariant
//	holds exactly.
//
// Thread Safety: Aggregator is stateless and safe for concurrent use.
type Aggregator struct {
	limits config.FetchLimits
}

// NewAggregator creates an Aggregator with the given output caps.
func NewAggregator(limits config.FetchLimits) *Aggregator {
	return &Aggregator{limits: limits}
}

// Aggregate produces the final artifact for one query.
//
// Description:
//
//	Steps, in order: time-filter (skipped for team-wide, indefinite
//	and general-info queries), group tasks by employee, group time
//	entries by employee with work-type and project set collection,
//	attach project membership, then build the recent-activity and
//	top-tasks views. The result is always well formed even when every
//	input slice is empty.
func (a *Aggregator) Aggregate(raw datatypes.RawRecords, qc datatypes.QueryContext) datatypes.ProcessedData {
	tasks, entries := raw.Tasks, raw.TimeEntries
	if timeFilterApplies(qc) {
		tasks = filterTasksByDate(tasks, qc.Timeframe)
		entries = filterEntriesByDate(entries, qc.Timeframe)
	}

	employees := a.groupByEmployee(tasks, entries, raw)

	out := datatypes.ProcessedData{
		Summary: datatypes.DataSummary{
			TotalUsers:       len(raw.Employees),
			TotalTasks:       len(tasks),
			TotalTimeEntries: len(entries),
			TotalProjects:    len(raw.Projects),
			DateRange:        qc.Timeframe.Label,
			HasOverdueInfo:   raw.OverdueInfo != nil,
		},
		Employees:      employees,
		RecentActivity: a.recentActivity(entries, tasks, raw.Employees),
		TopTasks:       a.topTasks(entries, tasks, raw.Employees),
	}
	if raw.OverdueInfo != nil {
		info := *raw.OverdueInfo
		if info.EmployeeName == "" && qc.Match.Employee != nil {
			info.EmployeeName = qc.Match.Employee.DisplayName
		}
		out.OverdueInfo = &info

		// The overdue check only ever runs for a concrete employee, so
		// the result is pinned to the matched summary.
		if qc.Match.Employee != nil {
			for i := range out.Employees {
				if out.Employees[i].ID == qc.Match.Employee.ID {
					out.Employees[i].HasOverdueTasks = info.HasOverdue
					break
				}
			}
		}
	}
	return out
}

// timeFilterApplies reports whether the timeframe window should be
// enforced here. Team-wide and indefinite-identity queries, plus the
// catch-all intents, pass the full set through and leave any further
// narrowing to the downstream summarizer.
func timeFilterApplies(qc datatypes.QueryContext) bool {
	switch qc.Match.Kind {
	case datatypes.MatchAll, datatypes.MatchUnknownSingle:
		return false
	}
	switch qc.Intent {
	case datatypes.IntentGeneralInfo, datatypes.IntentUserList:
		return false
	}
	return true
}

func filterTasksByDate(tasks []datatypes.Task, tf datatypes.Timeframe) []datatypes.Task {
	start, end := tf.StartISO(), tf.EndISO()
	out := make([]datatypes.Task, 0, len(tasks))
	for _, t := range tasks {
		// ISO dates compare correctly as strings. An empty DueDate
		// sorts below any window start, so undated tasks drop out.
		if t.DueDate < start || t.DueDate > end {
			continue
		}
		out = append(out, t)
	}
	return out
}

func filterEntriesByDate(entries []datatypes.TimeEntry, tf datatypes.Timeframe) []datatypes.TimeEntry {
	start, end := tf.StartISO(), tf.EndISO()
	out := make([]datatypes.TimeEntry, 0, len(entries))
	for _, e := range entries {
		if e.Date < start || e.Date > end {
			continue
		}
		out = append(out, e)
	}
	return out
}

// employeeAccum is the mutable per-employee bucket used during
// grouping, flattened into an EmployeeSummary at the end.
type employeeAccum struct {
	summary      datatypes.EmployeeSummary
	totalMinutes int
	workTypes    map[string]struct{}
	projects     map[string]struct{}
}

func (a *Aggregator) groupByEmployee(tasks []datatypes.Task, entries []datatypes.TimeEntry, raw datatypes.RawRecords) []datatypes.EmployeeSummary {
	buckets := map[string]*employeeAccum{}
	bucket := func(employeeID string) *employeeAccum {
		name := employeeName(employeeID, raw.Employees)
		acc, ok := buckets[name]
		if !ok {
			acc = &employeeAccum{
				summary: datatypes.EmployeeSummary{
					Name:        name,
					ID:          employeeID,
					AllTasks:    []datatypes.TaskDetail{},
					WorkTypes:   []string{},
					Projects:    []string{},
					TimeEntries: []datatypes.EntryDetail{},
				},
				workTypes: map[string]struct{}{},
				projects:  map[string]struct{}{},
			}
			buckets[name] = acc
		}
		return acc
	}

	for _, t := range tasks {
		acc := bucket(t.EmployeeID)
		acc.summary.TaskCount++
		acc.summary.AllTasks = append(acc.summary.AllTasks, datatypes.TaskDetail{
			Title:       t.Title,
			Description: t.Description,
			Date:        t.DueDate,
			Hours:       t.Hours,
			Status:      t.Status,
		})
	}

	projectNames := map[string]string{}
	for _, p := range raw.Projects {
		projectNames[p.ID] = p.Name
	}
	workTypeNames := map[string]string{}
	for _, w := range raw.WorkTypes {
		workTypeNames[w.ID] = w.Name
	}

	for _, e := range entries {
		acc := bucket(e.EmployeeID)
		acc.totalMinutes += e.Minutes
		workType := workTypeNames[e.WorkTypeID]
		acc.summary.TimeEntries = append(acc.summary.TimeEntries, datatypes.EntryDetail{
			Date:        e.Date,
			Hours:       datatypes.RoundHours(float64(e.Minutes) / 60),
			Minutes:     e.Minutes,
			Description: e.Description,
			TaskID:      e.TaskID,
			ProjectID:   e.ProjectID,
			WorkType:    workType,
		})
		if workType != "" {
			acc.workTypes[workType] = struct{}{}
		}
		if name, ok := projectNames[e.ProjectID]; ok && name != "" {
			acc.projects[name] = struct{}{}
		}
	}

	out := make([]datatypes.EmployeeSummary, 0, len(buckets))
	for _, acc := range buckets {
		// One division keeps sum(minutes)/60 == totalHours exact.
		acc.summary.TotalHours = float64(acc.totalMinutes) / 60
		acc.summary.WorkTypes = sortedSet(acc.workTypes)
		acc.summary.Projects = sortedSet(acc.projects)
		out = append(out, acc.summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// recentActivity projects time entries sorted newest-first, capped at
// the configured limit. Entries whose task reference cannot be
// resolved to a title get a stable positional placeholder.
func (a *Aggregator) recentActivity(entries []datatypes.TimeEntry, tasks []datatypes.Task, directory []datatypes.Employee) []datatypes.Activity {
	sorted := make([]datatypes.TimeEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].ID < sorted[j].ID
	})
	if a.limits.RecentActivity > 0 && len(sorted) > a.limits.RecentActivity {
		sorted = sorted[:a.limits.RecentActivity]
	}

	taskTitles := map[string]string{}
	for _, t := range tasks {
		taskTitles[t.ID] = t.Title
	}

	out := make([]datatypes.Activity, 0, len(sorted))
	for i, e := range sorted {
		title := taskTitles[e.TaskID]
		if title == "" {
			title = fmt.Sprintf("Task #%d", i+1)
		}
		description := e.Description
		if description == "" {
			description = "no description"
		}
		out = append(out, datatypes.Activity{
			Date:        e.Date,
			Employee:    employeeName(e.EmployeeID, directory),
			Task:        title,
			Hours:       datatypes.RoundHours(float64(e.Minutes) / 60),
			Description: description,
		})
	}
	return out
}

// topTasks buckets time entries by resolved task identity, sums hours
// per bucket and returns the heaviest ones first.
func (a *Aggregator) topTasks(entries []datatypes.TimeEntry, tasks []datatypes.Task, directory []datatypes.Employee) []datatypes.TaskHours {
	taskTitles := map[string]string{}
	taskStatus := map[string]string{}
	for _, t := range tasks {
		taskTitles[t.ID] = t.Title
		taskStatus[t.ID] = t.Status
	}

	type taskBucket struct {
		row     datatypes.TaskHours
		minutes int
	}
	buckets := map[string]*taskBucket{}
	order := []string{}
	for _, e := range entries {
		key := e.TaskID
		title := taskTitles[key]
		if title == "" {
			title = "untracked work"
			key = ""
		}
		b, ok := buckets[key]
		if !ok {
			status := taskStatus[key]
			if status == "" {
				status = "active"
			}
			b = &taskBucket{row: datatypes.TaskHours{
				Title:    title,
				Employee: employeeName(e.EmployeeID, directory),
				Status:   status,
			}}
			buckets[key] = b
			order = append(order, key)
		}
		b.minutes += e.Minutes
	}

	out := make([]datatypes.TaskHours, 0, len(buckets))
	for _, key := range order {
		b := buckets[key]
		b.row.Hours = datatypes.RoundHours(float64(b.minutes) / 60)
		out = append(out, b.row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Hours != out[j].Hours {
			return out[i].Hours > out[j].Hours
		}
		return out[i].Title < out[j].Title
	})
	if a.limits.TopTasks > 0 && len(out) > a.limits.TopTasks {
		out = out[:a.limits.TopTasks]
	}
	return out
}

// employeeName resolves an employee ID against the directory, with a
// fixed label for unresolvable owners.
func employeeName(employeeID string, directory []datatypes.Employee) string {
	if employeeID == "" {
		return unknownEmployeeLabel
	}
	for _, e := range directory {
		if e.ID == employeeID {
			return e.DisplayName
		}
	}
	return unknownEmployeeLabel
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
