// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/itplan/worklog-assistant/services/worklog/datatypes"
)

// Caps applied to the prompt views so the context stays inside the
// model window even for busy periods.
const (
	promptRecentActivityCap = 15
	promptTopTasksCap       = 10
)

// BuildAnalysisPrompt renders aggregated worklog data into the
// analysis prompt sent to the formatting model.
//
// Description:
//
//	The prompt carries the original question, the resolved period,
//	period totals, the per-employee detail, a capped recent-activity
//	view and a capped top-tasks view, followed by grounding
//	instructions that forbid the model from inventing data. The
//	output is deterministic for a given artifact and clock.
//
// Inputs:
//
//	data - The aggregation artifact. Must be well formed (non-nil
//	       slices), which the aggregator guarantees.
//	userQuery - The original free-text question.
//	now - The reference clock, injected for testability.
func BuildAnalysisPrompt(data datatypes.ProcessedData, userQuery string, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "QUESTION: %q\n", userQuery)
	fmt.Fprintf(&b, "TODAY: %s\n", now.Format(datatypes.DateLayout))
	fmt.Fprintf(&b, "ANALYZED PERIOD: %s\n\n", data.Summary.DateRange)

	fmt.Fprintf(&b, "PERIOD TOTALS (%s):\n", data.Summary.DateRange)
	fmt.Fprintf(&b, "- employees in system: %d\n", data.Summary.TotalUsers)
	fmt.Fprintf(&b, "- tasks in period: %d\n", data.Summary.TotalTasks)
	fmt.Fprintf(&b, "- time entries in period: %d\n", data.Summary.TotalTimeEntries)
	fmt.Fprintf(&b, "- projects: %d\n\n", data.Summary.TotalProjects)
	b.WriteString("NOTE: the data covers only the analyzed period.\n\n")

	if len(data.Employees) > 0 {
		b.WriteString("PER-EMPLOYEE DETAIL:\n")
		for _, emp := range data.Employees {
			fmt.Fprintf(&b, "\n%s:\n", emp.Name)
			fmt.Fprintf(&b, "- tasks: %d\n", emp.TaskCount)
			fmt.Fprintf(&b, "- total time: %.1f hours\n", emp.TotalHours)
			if len(emp.WorkTypes) > 0 {
				fmt.Fprintf(&b, "- work types: %s\n", strings.Join(emp.WorkTypes, ", "))
			}
			if len(emp.Projects) > 0 {
				fmt.Fprintf(&b, "- projects: %s\n", strings.Join(emp.Projects, ", "))
			}
			if len(emp.AllTasks) > 0 {
				b.WriteString("- task list:\n")
				for i, task := range emp.AllTasks {
					fmt.Fprintf(&b, "  %d. %s (%.1fh, %s, %s)\n", i+1, task.Title, task.Hours, task.Date, task.Status)
					if task.Description != "" && task.Description != task.Title {
						fmt.Fprintf(&b, "     %s\n", task.Description)
					}
				}
			}
			if len(emp.TimeEntries) > 0 {
				b.WriteString("- time entries:\n")
				for i, entry := range emp.TimeEntries {
					fmt.Fprintf(&b, "  %d. %s: %.1fh - %s\n", i+1, entry.Date, entry.Hours, entry.Description)
					if entry.WorkType != "" {
						fmt.Fprintf(&b, "     work type: %s\n", entry.WorkType)
					}
				}
			}
		}
		b.WriteString("\n")
	}

	if len(data.RecentActivity) > 0 {
		b.WriteString("RECENT ACTIVITY:\n")
		activity := data.RecentActivity
		if len(activity) > promptRecentActivityCap {
			activity = activity[:promptRecentActivityCap]
		}
		for _, a := range activity {
			fmt.Fprintf(&b, "- %s: %s - %s (%.1fh)\n", a.Date, a.Employee, a.Task, a.Hours)
			if a.Description != "" {
				fmt.Fprintf(&b, "  %s\n", a.Description)
			}
		}
		b.WriteString("\n")
	}

	if len(data.TopTasks) > 0 {
		b.WriteString("TOP TASKS BY TIME:\n")
		top := data.TopTasks
		if len(top) > promptTopTasksCap {
			top = top[:promptTopTasksCap]
		}
		for i, task := range top {
			fmt.Fprintf(&b, "%d. %s - %.1fh (%s)\n", i+1, task.Title, task.Hours, task.Employee)
		}
		b.WriteString("\n")
	}

	if data.OverdueInfo != nil {
		b.WriteString("OVERDUE CHECK:\n")
		fmt.Fprintf(&b, "- has overdue tasks: %t\n", data.OverdueInfo.HasOverdue)
		if data.OverdueInfo.EmployeeName != "" {
			fmt.Fprintf(&b, "- employee: %s\n", data.OverdueInfo.EmployeeName)
		}
		if data.OverdueInfo.Details != "" {
			fmt.Fprintf(&b, "- details: %s\n", data.OverdueInfo.Details)
		}
		b.WriteString("\n")
	}

	b.WriteString("ANALYSIS INSTRUCTIONS:\n")
	b.WriteString("- answer only what the question asks, nothing extra\n")
	fmt.Fprintf(&b, "- the data is already filtered to the period: %s\n", data.Summary.DateRange)
	b.WriteString("- use only the figures and facts given above, never invent data\n")
	b.WriteString("- if the period has no data, say so plainly\n")
	b.WriteString("- format lists as plain text with bullet characters\n")
	b.WriteString("- keep the answer under 4000 characters\n")

	return b.String()
}
